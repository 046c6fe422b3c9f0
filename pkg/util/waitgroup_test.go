// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package util_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/testing-farm/schedule-runner/pkg/util"
)

var _ = Describe("advanced waitgroup", func() {
	It("should return immediately if the counter is 0", func(sCtx SpecContext) {
		wg := util.AdvancedWaitGroup{}
		wg.Wait()
		Expect(wg.Count()).To(Equal(0))
	}, NodeTimeout(5*time.Second))

	It("should never drop below 0", func() {
		wg := util.AdvancedWaitGroup{}
		wg.Add(1)
		wg.Done()
		wg.Done()
		Expect(wg.Count()).To(Equal(0))
	})

	It("should wait until all elements are done", func(sCtx SpecContext) {
		wg := util.AdvancedWaitGroup{}
		wg.Add(2)
		go func() {
			defer GinkgoRecover()
			time.Sleep(50 * time.Millisecond)
			wg.Done()
			// counter may grow while somebody is waiting
			wg.Add(1)
			wg.Done()
			wg.Done()
		}()
		wg.Wait()
		Expect(wg.Count()).To(Equal(0))
	}, NodeTimeout(5*time.Second))

	It("should abort the wait when the context is done", func(sCtx SpecContext) {
		wg := util.AdvancedWaitGroup{}
		wg.Add(1)
		ctx, cancel := context.WithTimeout(sCtx, 50*time.Millisecond)
		defer cancel()
		Expect(wg.WaitWithContext(ctx)).To(MatchError(context.DeadlineExceeded))
		wg.Done()
	}, NodeTimeout(5*time.Second))
})
