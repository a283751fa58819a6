package cache

import (
	"context"
	"runtime"
	"testing"
)

func BenchmarkNewKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewKey(43.6510712, -79.3470154, "America/Toronto")
	}
}

// BenchmarkInMemoryCache_Get_Hit benchmarks Get on a present key.
func BenchmarkInMemoryCache_Get_Hit(b *testing.B) {
	c := NewInMemoryCache()
	ctx := context.Background()
	key := NewKey(43.651, -79.347, "")
	_ = c.Put(ctx, key, sampleForecast(15))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Get(ctx, key)
	}
}

// BenchmarkInMemoryCache_Put benchmarks overwriting one key.
func BenchmarkInMemoryCache_Put(b *testing.B) {
	c := NewInMemoryCache()
	ctx := context.Background()
	key := NewKey(43.651, -79.347, "")
	v := sampleForecast(15)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Put(ctx, key, v)
	}
}

// BenchmarkInMemoryCache_Concurrent benchmarks parallel reads against one writer.
func BenchmarkInMemoryCache_Concurrent(b *testing.B) {
	c := NewInMemoryCache()
	ctx := context.Background()
	key := NewKey(43.651, -79.347, "")
	_ = c.Put(ctx, key, sampleForecast(15))

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%16 == 0 {
				_ = c.Put(ctx, key, sampleForecast(i))
			} else {
				_, _, _ = c.Get(ctx, key)
			}
			i++
		}
	})
}

// BenchmarkInMemoryCache_MemoryPerEntry estimates memory usage per distinct key.
func BenchmarkInMemoryCache_MemoryPerEntry(b *testing.B) {
	c := NewInMemoryCache()
	ctx := context.Background()
	v := sampleForecast(15)

	var m1, m2 runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m1)

	for i := 0; i < b.N; i++ {
		_ = c.Put(ctx, NewKey(float64(i)/1000, 0, ""), v)
	}

	runtime.GC()
	runtime.ReadMemStats(&m2)
	b.ReportMetric(float64(m2.Alloc-m1.Alloc)/float64(b.N), "bytes/entry")
}

// BenchmarkMemcachedCache_Get_Hit requires memcached on localhost:11211.
func BenchmarkMemcachedCache_Get_Hit(b *testing.B) {
	if testing.Short() {
		b.Skip("Skipping Memcached benchmark in short mode")
	}
	c := NewMemcachedCache("localhost:11211", 0, 2)
	defer c.Close()
	ctx := context.Background()
	key := NewKey(43.651, -79.347, "")
	if err := c.Put(ctx, key, sampleForecast(15)); err != nil {
		b.Skipf("Memcached not available: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Get(ctx, key)
	}
}
