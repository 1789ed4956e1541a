package goLogin

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful authentications.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts uniform credential failures.
	MetricLoginFailure
	// MetricLoginLocked counts attempts denied by the hard lock.
	MetricLoginLocked
	// MetricLoginSoftLocked counts attempts denied by the soft lock.
	MetricLoginSoftLocked
	// MetricPasswordUpdated counts credential re-encryptions.
	MetricPasswordUpdated
	// MetricSessionCreated counts sessions issued on login.
	MetricSessionCreated
	// MetricSessionProlonged counts soft-expiry prolongations.
	MetricSessionProlonged
	// MetricSessionExpired counts sessions discarded past their absolute
	// lifetime.
	MetricSessionExpired
	// MetricGotoSaved counts go-to records written before a detour.
	MetricGotoSaved
	// MetricGotoReplayed counts go-to records successfully consumed.
	MetricGotoReplayed
	// MetricGotoCorrupt counts structurally broken go-to records discarded.
	MetricGotoCorrupt
	// MetricLogout counts explicit session discards.
	MetricLogout
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's in-process counters. Counters are padded to
// avoid false sharing on the login path.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates the counter set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counting is active.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
