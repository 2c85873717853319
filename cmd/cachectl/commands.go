/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/acronis/go-cachekit/lrucache"
)

const helpText = `commands:
  get <key>          print the value, loading it from the backing store if read-through is enabled
  put <key> <value>  store the value, the rest of the line is the value
  del <key>          remove the key from the cache and the backing store
  flush              write all entries to the backing store
  keys               print keys from the least to the most recently used
  stats              print usage counters
  help               print this text
  quit               exit`

var errUnknownCommand = errors.New("unknown command")

// commandLoop reads commands line by line and executes them against the cache.
// It stops on "quit" or end of input and calls onExit to shut the whole process down.
type commandLoop struct {
	cache  *lrucache.Cache[string, string]
	in     io.Reader
	out    io.Writer
	onExit func()
}

func newCommandLoop(cache *lrucache.Cache[string, string], in io.Reader, out io.Writer, onExit func()) *commandLoop {
	return &commandLoop{cache: cache, in: in, out: out, onExit: onExit}
}

// Run implements service.Worker.
func (cl *commandLoop) Run(ctx context.Context) error {
	if cl.onExit != nil {
		defer cl.onExit()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Reading from stdin can't be interrupted, so lines are scanned in a separate goroutine.
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(cl.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			if err != nil {
				return fmt.Errorf("read commands: %w", err)
			}
			return nil
		case line := <-lines:
			output, quit, err := cl.execute(ctx, line)
			if err != nil {
				output = "error: " + err.Error()
			}
			if output != "" {
				if _, wErr := fmt.Fprintln(cl.out, output); wErr != nil {
					return fmt.Errorf("write output: %w", wErr)
				}
			}
			if quit {
				return nil
			}
		}
	}
}

func (cl *commandLoop) execute(ctx context.Context, line string) (output string, quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false, nil
	}
	name, args, _ := strings.Cut(line, " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(name) {
	case "get":
		if args == "" {
			return "", false, fmt.Errorf("usage: get <key>")
		}
		val, err := cl.cache.Get(ctx, args)
		if err != nil {
			if errors.Is(err, lrucache.ErrNotFound) && !errors.Is(err, lrucache.ErrIOFailure) {
				return fmt.Sprintf("%s not found", args), false, nil
			}
			return "", false, err
		}
		return val, false, nil

	case "put":
		key, val, ok := strings.Cut(args, " ")
		if !ok || key == "" {
			return "", false, fmt.Errorf("usage: put <key> <value>")
		}
		if err = cl.cache.Put(ctx, key, strings.TrimSpace(val)); err != nil {
			return "", false, err
		}
		return "ok", false, nil

	case "del":
		if args == "" {
			return "", false, fmt.Errorf("usage: del <key>")
		}
		// The key is removed from the cache even if the backing store can't delete records.
		if err = cl.cache.RemoveAndDelete(ctx, args); err != nil && !errors.Is(err, lrucache.ErrDeleteNotSupported) {
			return "", false, err
		}
		return "ok", false, nil

	case "flush":
		if err = cl.cache.Flush(ctx); err != nil {
			return "", false, err
		}
		return "ok", false, nil

	case "keys":
		return strings.Join(cl.cache.Keys(), " "), false, nil

	case "stats":
		s := cl.cache.Stats()
		return fmt.Sprintf("len=%d cap=%d hits=%d misses=%d hit_ratio=%.2f evictions=%d write_backs=%d "+
			"write_back_failures=%d backing_reads=%d backing_read_failures=%d",
			cl.cache.Len(), cl.cache.Cap(), s.Hits, s.Misses, s.HitRatio(), s.Evictions, s.WriteBacks,
			s.WriteBackFailures, s.BackingReads, s.BackingReadFailures), false, nil

	case "help":
		return helpText, false, nil

	case "quit", "exit":
		return "", true, nil
	}
	return "", false, fmt.Errorf("%w %q, type \"help\" for the list", errUnknownCommand, name)
}
