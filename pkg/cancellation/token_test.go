// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package cancellation_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/testing-farm/schedule-runner/pkg/cancellation"
)

var _ = Describe("cancellation token", func() {
	It("should run acquire functions until cancelled", func() {
		token := cancellation.NewToken(context.Background())
		called := 0
		Expect(token.Acquire(func() error { called++; return nil })).To(Succeed())

		token.Cancel()
		err := token.Acquire(func() error { called++; return nil })
		Expect(err).To(MatchError(cancellation.ErrPipelineCancelled))
		Expect(called).To(Equal(1))
		Expect(token.Cancelled()).To(BeTrue())
		Expect(token.Context().Err()).To(MatchError(context.Canceled))
	})

	It("should always run release functions", func() {
		token := cancellation.NewToken(context.Background())
		token.Cancel()
		called := false
		Expect(token.Do(func() error { called = true; return nil })).To(Succeed())
		Expect(called).To(BeTrue())
	})

	It("should wait for a running critical section before cancelling", func(sCtx SpecContext) {
		token := cancellation.NewToken(context.Background())
		entered := make(chan struct{})
		release := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			Expect(token.Acquire(func() error {
				close(entered)
				<-release
				return nil
			})).To(Succeed())
		}()
		<-entered

		cancelled := make(chan struct{})
		go func() {
			token.Cancel()
			close(cancelled)
		}()
		Consistently(cancelled, 100*time.Millisecond).ShouldNot(BeClosed())
		close(release)
		Eventually(cancelled).Should(BeClosed())
	}, NodeTimeout(5*time.Second))

	It("should detect wrapped cancellation errors", func() {
		err := errors.Wrap(cancellation.ErrPipelineCancelled, "provisioning")
		Expect(cancellation.IsCancelled(err)).To(BeTrue())
		Expect(cancellation.IsCancelled(errors.New("other"))).To(BeFalse())
	})
})
