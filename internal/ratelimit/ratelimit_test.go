package ratelimit

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRatelimit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ratelimit Suite")
}

// mockClock is a mock implementation of Clock
type mockClock struct {
	now time.Time
}

func (m *mockClock) Now() time.Time { return m.now }

var _ = Describe("Limiter", func() {
	var (
		clock   *mockClock
		limiter *Limiter
	)

	BeforeEach(func() {
		clock = &mockClock{now: time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)}
		limiter = NewLimiterWithClock(3, 10*time.Minute, clock)
	})

	When("requests stay under the limit", func() {
		It("allows them", func() {
			Expect(limiter.Allow("1.2.3.4")).To(BeTrue())
			Expect(limiter.Allow("1.2.3.4")).To(BeTrue())
			Expect(limiter.Allow("1.2.3.4")).To(BeTrue())
		})
	})

	When("an identity exceeds the per-minute limit", func() {
		BeforeEach(func() {
			for i := 0; i < 3; i++ {
				Expect(limiter.Allow("1.2.3.4")).To(BeTrue())
			}
		})

		It("denies the next request", func() {
			Expect(limiter.Allow("1.2.3.4")).To(BeFalse())
		})

		It("does not affect other identities", func() {
			Expect(limiter.Allow("5.6.7.8")).To(BeTrue())
		})

		It("resets when the minute rolls over", func() {
			clock.now = clock.now.Add(time.Minute)
			Expect(limiter.Allow("1.2.3.4")).To(BeTrue())
		})
	})

	When("the limit is zero", func() {
		BeforeEach(func() {
			limiter = NewLimiterWithClock(0, 10*time.Minute, clock)
		})

		It("disables limiting entirely", func() {
			for i := 0; i < 100; i++ {
				Expect(limiter.Allow("1.2.3.4")).To(BeTrue())
			}
		})
	})

	When("an identity goes quiet past the TTL", func() {
		BeforeEach(func() {
			Expect(limiter.Allow("1.2.3.4")).To(BeTrue())
			clock.now = clock.now.Add(11 * time.Minute)
			// A request from another identity triggers the sweep.
			Expect(limiter.Allow("5.6.7.8")).To(BeTrue())
		})

		It("evicts its window state", func() {
			limiter.mu.Lock()
			defer limiter.mu.Unlock()
			Expect(limiter.windows).NotTo(HaveKey("1.2.3.4"))
			Expect(limiter.lastSeen).NotTo(HaveKey("1.2.3.4"))
		})
	})
})
