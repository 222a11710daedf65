package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter or histogram slot.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginMissingToken
	MetricLoginSuperseded
	MetricLogout
	MetricForcedExpiry
	MetricForcedExpiryGuard
	MetricForcedExpiryRejected
	MetricForcedExpiryStartup
	MetricForcedExpiryRefresh
	MetricStartupRestored
	MetricStartupHealed
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricSignupSuccess
	MetricSignupFailure
	MetricGuardAllow
	MetricGuardDeny
	MetricRequestAugmented
	MetricLoginLatency
	MetricIDCount
)

const (
	// HistogramBucketCount is the fixed number of latency buckets.
	HistogramBucketCount = 8
	cacheLineSize        = 64
)

type histogram struct {
	buckets [HistogramBucketCount]uint64
	sumNS   uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics holds atomic counters and optional latency histograms. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount]histogram
}

// Snapshot is a point-in-time copy of every slot. Histogram buckets are
// non-cumulative; Sums are in seconds.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	Sums       map[MetricID]float64
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram for id. Only histogram IDs are accepted.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !IsHistogram(id) {
		return
	}
	if d < 0 {
		d = 0
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
	atomic.AddUint64(&m.histograms[id].sumNS, uint64(d))
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
		Sums:       map[MetricID]float64{},
	}
	if m == nil || !m.enabled {
		return s
	}

	for id := MetricID(0); id < MetricIDCount; id++ {
		if IsHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for id := MetricID(0); id < MetricIDCount; id++ {
			if !IsHistogram(id) {
				continue
			}
			buckets := make([]uint64, HistogramBucketCount)
			for i := 0; i < HistogramBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
			s.Sums[id] = time.Duration(atomic.LoadUint64(&m.histograms[id].sumNS)).Seconds()
		}
	}

	return s
}

// IsHistogram reports whether id is a latency histogram slot.
func IsHistogram(id MetricID) bool {
	return id == MetricLoginLatency
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
