// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"context"
	"sync"
)

// AdvancedWaitGroup implements the same interface as sync.WaitGroup.
// In contrast to the sync.WaitGroup, Add may be called concurrently with Wait
// and the wait can be aborted with a context.
type AdvancedWaitGroup struct {
	noCopy

	mut   sync.Mutex
	cond  *sync.Cond
	count int
}

func (wg *AdvancedWaitGroup) init() {
	if wg.cond == nil {
		wg.cond = sync.NewCond(&wg.mut)
	}
}

// Add adds delta to the wait counter.
// delta may be negative but the counter cannot be less then 0.
func (wg *AdvancedWaitGroup) Add(delta int) {
	wg.mut.Lock()
	defer wg.mut.Unlock()
	wg.init()
	wg.count += delta
	if wg.count < 0 {
		wg.count = 0
	}
	if wg.count == 0 {
		wg.cond.Broadcast()
	}
}

// Done removes one element from the wait counter
func (wg *AdvancedWaitGroup) Done() {
	wg.Add(-1)
}

// Count returns the current value of the counter.
func (wg *AdvancedWaitGroup) Count() int {
	wg.mut.Lock()
	defer wg.mut.Unlock()
	return wg.count
}

// Wait waits until the counter is 0
func (wg *AdvancedWaitGroup) Wait() {
	wg.mut.Lock()
	defer wg.mut.Unlock()
	wg.init()
	for wg.count != 0 {
		wg.cond.Wait()
	}
}

// WaitWithContext waits until the counter is 0 or the context is done.
// The context error is returned if the wait was aborted.
func (wg *AdvancedWaitGroup) WaitWithContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// the helper goroutine exits once the counter drops to zero
		return ctx.Err()
	}
}

// noCopy may be embedded into structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
