package expirationcache

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Expiration cache", func() {
	Describe("Put and Get", func() {
		It("should return a stored entry with remaining TTL", func() {
			cache := NewCache[string](WithCleanUpInterval[string](0))

			v := "value"
			cache.Put("key", &v, time.Minute)

			val, ttl := cache.Get("key")
			Expect(val).ShouldNot(BeNil())
			Expect(*val).Should(Equal("value"))
			Expect(ttl).Should(BeNumerically("<=", time.Minute))
			Expect(ttl).Should(BeNumerically(">", 50*time.Second))
		})

		It("should not store entries with expiration <= 0", func() {
			cache := NewCache[string](WithCleanUpInterval[string](0))

			v := "value"
			cache.Put("key", &v, 0)

			val, _ := cache.Get("key")
			Expect(val).Should(BeNil())
			Expect(cache.TotalCount()).Should(BeZero())
		})

		It("should replace an existing entry", func() {
			cache := NewCache[int](WithCleanUpInterval[int](0))

			v1, v2 := 1, 2
			cache.Put("key", &v1, time.Minute)
			cache.Put("key", &v2, time.Minute)

			val, _ := cache.Get("key")
			Expect(*val).Should(Equal(2))
			Expect(cache.TotalCount()).Should(Equal(1))
		})
	})

	Describe("Prune", func() {
		It("should drop expired entries", func() {
			cache := NewCache[string](WithCleanUpInterval[string](0))

			v := "value"
			cache.Put("short", &v, time.Millisecond)
			cache.Put("long", &v, time.Minute)

			time.Sleep(5 * time.Millisecond)
			cache.Prune()

			Expect(cache.TotalCount()).Should(Equal(1))
			Expect(cache.Keys()).Should(Equal([]string{"long"}))
		})

		It("should let the expiration callback rescue entries", func() {
			rescued := "rescued"
			cache := NewCache[string](
				WithCleanUpInterval[string](0),
				WithOnExpiredFn[string](func(key string) (*string, time.Duration) {
					return &rescued, time.Minute
				}),
			)

			v := "value"
			cache.Put("key", &v, time.Millisecond)

			time.Sleep(5 * time.Millisecond)
			cache.Prune()

			val, _ := cache.Get("key")
			Expect(val).ShouldNot(BeNil())
			Expect(*val).Should(Equal("rescued"))
		})
	})

	Describe("maximum size", func() {
		It("should evict the least recently used entry", func() {
			cache := NewCache[int](
				WithCleanUpInterval[int](0),
				WithMaxSize[int](2),
			)

			v := 1
			cache.Put("a", &v, time.Minute)
			cache.Put("b", &v, time.Minute)
			cache.Put("c", &v, time.Minute)

			Expect(cache.TotalCount()).Should(Equal(2))

			val, _ := cache.Get("a")
			Expect(val).Should(BeNil())
		})
	})

	Describe("Remove and Clear", func() {
		It("should remove a single entry", func() {
			cache := NewCache[int](WithCleanUpInterval[int](0))

			v := 1
			cache.Put("a", &v, time.Minute)
			cache.Remove("a")

			Expect(cache.TotalCount()).Should(BeZero())
		})

		It("should clear all entries", func() {
			cache := NewCache[int](WithCleanUpInterval[int](0))

			v := 1
			cache.Put("a", &v, time.Minute)
			cache.Put("b", &v, time.Minute)
			cache.Clear()

			Expect(cache.TotalCount()).Should(BeZero())
		})
	})
})
