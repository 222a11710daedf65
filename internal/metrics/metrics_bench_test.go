package metrics

import (
	"testing"
	"time"
)

func BenchmarkInc(b *testing.B) {
	m := New(Config{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricLoginSuccess)
	}
}

func BenchmarkIncDisabled(b *testing.B) {
	m := New(Config{})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricLoginSuccess)
	}
}

var mixedHotMetricIDs = [...]MetricID{
	MetricGuardAllow,
	MetricRequestAugmented,
	MetricGuardDeny,
	MetricForcedExpiry,
}

func BenchmarkIncMixedParallel(b *testing.B) {
	m := New(Config{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Inc(mixedHotMetricIDs[i&(len(mixedHotMetricIDs)-1)])
			i++
		}
	})
}

func BenchmarkObserveLatencyParallel(b *testing.B) {
	m := New(Config{Enabled: true, EnableLatency: true})
	d := 12 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricLoginLatency, d)
		}
	})
}
