package internal_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-tracker/internal"
)

var _ = Describe("request context", func() {
	It("round trips the request id", func() {
		ctx := internal.WithRequestID(context.Background(), "req-1")
		Expect(internal.RequestID(ctx)).To(Equal("req-1"))
		Expect(internal.RequestID(context.Background())).To(BeEmpty())
	})

	It("falls back to the default query timeout", func() {
		ctx, cancel := internal.QueryContext(context.Background(), 0)
		defer cancel()

		deadline, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
		Expect(time.Until(deadline)).To(BeNumerically("~", internal.DefaultQueryTimeout, time.Second))
	})

	It("keeps a sooner parent deadline", func() {
		parent, cancelParent := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancelParent()

		ctx, cancel := internal.QueryContext(parent, time.Minute)
		defer cancel()

		deadline, _ := ctx.Deadline()
		Expect(time.Until(deadline)).To(BeNumerically("<", time.Second))
	})
})
