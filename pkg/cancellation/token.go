// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package cancellation

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrPipelineCancelled is returned by operations that were refused because the pipeline was cancelled.
var ErrPipelineCancelled = errors.New("pipeline was cancelled, aborting")

// IsCancelled determines if the error was caused by a pipeline cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrPipelineCancelled)
}

// Token is the pipeline wide cancellation flag.
// Acquiring and releasing of guests happen inside its critical section,
// so a guest is never created after cancellation was observed and never destroyed while it is being created.
type Token struct {
	mu        sync.Mutex
	cancelled bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewToken creates a new token whose context is derived from the given parent.
func NewToken(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	return &Token{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context is done as soon as the token is cancelled.
// Retry loops of provisioning backends should watch it.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Cancel marks the pipeline as cancelled.
// It waits for a running critical section to finish.
func (t *Token) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	t.cancel()
}

// Cancelled returns true once Cancel has been called.
func (t *Token) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Acquire runs fn inside the critical section unless the pipeline was cancelled.
// ErrPipelineCancelled is returned without calling fn if it was.
func (t *Token) Acquire(fn func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return ErrPipelineCancelled
	}
	return fn()
}

// Do runs fn inside the critical section regardless of the cancellation state.
// It is used for releasing resources, which must happen even after cancellation.
func (t *Token) Do(fn func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn()
}
