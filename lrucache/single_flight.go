/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// loadCall is an in-flight or completed load of a single key.
type loadCall[V any] struct {
	done    chan struct{}
	val     V
	err     error
	waiters int
}

// loadGroup collapses concurrent loads of the same key into one call.
// Unlike the leader, waiters stop waiting when their own context is done.
type loadGroup[K comparable, V any] struct {
	mu    sync.Mutex
	calls map[K]*loadCall[V]
}

// Do executes fn for the key unless a call for the same key is already in flight,
// in which case it waits for that call and returns its result. shared reports
// whether the result was (or will be) returned to more than one caller.
func (g *loadGroup[K, V]) Do(ctx context.Context, key K, fn func(ctx context.Context) (V, error)) (val V, shared bool, err error) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[K]*loadCall[V])
	}
	if c, ok := g.calls[key]; ok {
		c.waiters++
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.val, true, c.err
		case <-ctx.Done():
			return val, true, ctx.Err()
		}
	}
	c := &loadCall[V]{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	g.run(ctx, key, c, fn)

	g.mu.Lock()
	shared = c.waiters > 0
	g.mu.Unlock()
	return c.val, shared, c.err
}

func (g *loadGroup[K, V]) run(ctx context.Context, key K, c *loadCall[V], fn func(ctx context.Context) (V, error)) {
	normalReturn := false
	defer func() {
		var panicErr *PanicError
		if !normalReturn {
			if r := recover(); r != nil {
				panicErr = newPanicError(r)
				c.err = panicErr
			} else {
				c.err = ErrGoexit
			}
		}

		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
		close(c.done)

		if panicErr != nil {
			panic(panicErr.Value) // waiters got the error, the leader gets the panic back
		}
	}()
	c.val, c.err = fn(ctx)
	normalReturn = true
}

// ErrGoexit is returned to waiters when the loading goroutine calls runtime.Goexit.
var ErrGoexit = errors.New("runtime.Goexit was called")

// PanicError is returned to waiters when the load panics. It holds the panic value and the stack trace.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("load panicked: %v\n\n%s", p.Value, p.Stack)
}

// Unwrap returns the panic value if it is an error.
func (p *PanicError) Unwrap() error {
	err, _ := p.Value.(error)
	return err
}

func newPanicError(v interface{}) *PanicError {
	stack := debug.Stack()
	// The first line is "goroutine N [status]:", which is misleading once the panic reaches a waiter.
	if line := bytes.IndexByte(stack, '\n'); line >= 0 {
		stack = stack[line+1:]
	}
	return &PanicError{Value: v, Stack: stack}
}
