/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stretchr/testify/require"
)

// RequireNoErrorInChannel asserts that a buffered channel (e.g. the fatal error channel of a service unit)
// holds no error.
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var err error
	select {
	case err = <-c:
	default:
	}
	require.NoError(t, err, msgAndArgs...)
}

// RequireErrorIsAll asserts that err matches every target according to errors.Is.
// It is handy for errors wrapped with several %w verbs, e.g. a failed read-through
// that is both a cache miss and an I/O failure.
func RequireErrorIsAll(t require.TestingT, err error, targets []error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var missing []error
	for _, target := range targets {
		if !errors.Is(err, target) {
			missing = append(missing, target)
		}
	}
	if len(missing) == 0 {
		return
	}
	require.FailNow(t, fmt.Sprintf("All target errors should be in err tree:\n"+
		"missing: %s\n"+
		"in tree:\n%s", quoteErrors(missing), errorTreeString(err)), msgAndArgs...)
}

func quoteErrors(errs []error) string {
	texts := make([]string, 0, len(errs))
	for _, err := range errs {
		texts = append(texts, fmt.Sprintf("%q", err.Error()))
	}
	return "[" + strings.Join(texts, "; ") + "]"
}

// errorTreeString prints err and everything it wraps, one error per line, indented by depth.
func errorTreeString(err error) string {
	var sb strings.Builder
	var walk func(e error, depth int)
	walk = func(e error, depth int) {
		if e == nil {
			return
		}
		sb.WriteString(strings.Repeat("\t", depth+1))
		sb.WriteString(fmt.Sprintf("%q\n", e.Error()))
		switch x := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner, depth+1)
			}
		case interface{ Unwrap() error }:
			walk(x.Unwrap(), depth+1)
		}
	}
	walk(err, 0)
	return strings.TrimSuffix(sb.String(), "\n")
}
