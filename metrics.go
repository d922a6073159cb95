package shiftAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that created a session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins rejected for unknown users or wrong passwords.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused by the failed-login throttle.
	MetricLoginRateLimited
	// MetricLoginExistingSession counts logins refused because the client already held a live session.
	MetricLoginExistingSession
	// MetricSessionCreated counts sessions written to the store.
	MetricSessionCreated
	// MetricSessionLimitRejected counts session creations refused at the per-user cap.
	MetricSessionLimitRejected
	// MetricLogout counts single-session deletions.
	MetricLogout
	// MetricLogoutAll counts logout-everywhere operations.
	MetricLogoutAll
	// MetricAuthSessionSuccess counts requests authenticated by session cookie.
	MetricAuthSessionSuccess
	// MetricAuthSessionFailure counts failed session cookie authentications.
	MetricAuthSessionFailure
	// MetricAuthAPIKeySuccess counts requests authenticated by API key.
	MetricAuthAPIKeySuccess
	// MetricAuthAPIKeyFailure counts failed API key authentications.
	MetricAuthAPIKeyFailure
	// MetricAuthMissingCredentials counts requests that presented no credential.
	MetricAuthMissingCredentials
	// MetricAuthCacheHit counts gate calls answered from the request scope.
	MetricAuthCacheHit
	// MetricRoleGateAllowed counts role-gated guards that passed.
	MetricRoleGateAllowed
	// MetricRoleGateForbidden counts role-gated guards that refused the caller.
	MetricRoleGateForbidden
	// MetricRoleUpdateSuccess counts applied role changes, hand-offs included.
	MetricRoleUpdateSuccess
	// MetricRoleUpdateForbidden counts role changes refused for lack of authority.
	MetricRoleUpdateForbidden
	// MetricRoleUpdateNoOp counts role changes rejected because nothing would change.
	MetricRoleUpdateNoOp
	// MetricRoleUpdateFailure counts role changes that failed in storage.
	MetricRoleUpdateFailure
	// MetricOwnerHandOff counts owner hand-offs.
	MetricOwnerHandOff
	// MetricAPIKeyIssued counts API keys issued or rotated.
	MetricAPIKeyIssued
	// MetricAPIKeyRevoked counts API key revocations.
	MetricAPIKeyRevoked
	// MetricAccountCreationSuccess counts registered accounts.
	MetricAccountCreationSuccess
	// MetricAccountCreationDuplicate counts registrations rejected as duplicate.
	MetricAccountCreationDuplicate
	// MetricAuthorizeLatency is the latency histogram of Engine.Authorize.
	MetricAuthorizeLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters. A nil or disabled Metrics
// ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds counters according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the authorize latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the latency histogram of id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricAuthorizeLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the histogram when latency is enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthorizeLatency].buckets[i])
		}
		s.Histograms[MetricAuthorizeLatency] = buckets
	}

	return s
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
