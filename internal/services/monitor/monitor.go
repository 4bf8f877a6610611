// Package monitor records security events, raises alerts when an event type
// crosses its threshold and keeps the audit trail.
package monitor

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hxuan190/nft-swap-engine/internal/common"
	"github.com/hxuan190/nft-swap-engine/internal/metrics"
)

type EventType string

const (
	EventFailedTransaction  EventType = "FAILED_TRANSACTION"
	EventSuspiciousActivity EventType = "SUSPICIOUS_ACTIVITY"
	EventUnauthorizedAccess EventType = "UNAUTHORIZED_ACCESS"
	EventAPIAbuse           EventType = "API_ABUSE"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Audit actions.
const (
	AuditSuccessfulSwap      = "SUCCESSFUL_SWAP"
	AuditFailedSwap          = "FAILED_SWAP"
	AuditInvalidFeeCollector = "INVALID_FEE_COLLECTOR"
	AuditSuspiciousBalance   = "SUSPICIOUS_BALANCE"
	AuditPoolCreated         = "POOL_CREATED"
	AuditPoolDeleted         = "POOL_DELETED"
	AuditWalletExported      = "POOL_WALLET_EXPORTED"
	AuditWalletImported      = "POOL_WALLET_IMPORTED"
)

const (
	DefaultEventCapacity = 1000
	limiterCacheSize     = 10_000
	alertSampleSize      = 5
)

type Event struct {
	Type      EventType         `json:"type"`
	Severity  Severity          `json:"severity"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

type Threshold struct {
	Count  int
	Window time.Duration
}

func DefaultThresholds() map[EventType]Threshold {
	return map[EventType]Threshold{
		EventFailedTransaction:  {Count: 5, Window: 60 * time.Second},
		EventSuspiciousActivity: {Count: 3, Window: 30 * time.Second},
		EventUnauthorizedAccess: {Count: 1, Window: time.Second},
		EventAPIAbuse:           {Count: 100, Window: 60 * time.Second},
	}
}

// Alert is produced when the number of events of one type inside its window
// reaches the threshold.
type Alert struct {
	Type       EventType     `json:"alertType"`
	EventCount int           `json:"eventCount"`
	Window     time.Duration `json:"timeWindow"`
	Recent     []Event       `json:"events"`
	Timestamp  time.Time     `json:"timestamp"`
}

type Monitor struct {
	mu         sync.Mutex
	events     []Event // ring buffer
	next       int
	full       bool
	thresholds map[EventType]Threshold
	alerts     []Alert
	now        func() time.Time

	limiters *common.BoundedLRUCache[string, *rate.Limiter]
}

func New() *Monitor {
	return NewWithThresholds(DefaultEventCapacity, DefaultThresholds())
}

func NewWithThresholds(capacity int, thresholds map[EventType]Threshold) *Monitor {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &Monitor{
		events:     make([]Event, capacity),
		thresholds: thresholds,
		now:        time.Now,
		limiters:   common.NewBoundedLRUCache[string, *rate.Limiter](limiterCacheSize, 10*time.Minute),
	}
}

// LogEvent records ev and returns the alert it triggered, if any.
func (m *Monitor) LogEvent(ev Event) *Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev.Timestamp = m.now()
	m.events[m.next] = ev
	m.next = (m.next + 1) % len(m.events)
	if m.next == 0 {
		m.full = true
	}
	metrics.SecurityEvents.WithLabelValues(string(ev.Type), string(ev.Severity)).Inc()

	return m.checkAlert(ev)
}

// checkAlert must be called with mu held.
func (m *Monitor) checkAlert(ev Event) *Alert {
	th, ok := m.thresholds[ev.Type]
	if !ok {
		return nil
	}
	since := ev.Timestamp.Add(-th.Window)
	var recent []Event
	m.each(func(e Event) {
		if e.Type == ev.Type && e.Timestamp.After(since) {
			recent = append(recent, e)
		}
	})
	count := len(recent)
	if count < th.Count {
		return nil
	}

	if len(recent) > alertSampleSize {
		recent = recent[len(recent)-alertSampleSize:]
	}
	alert := Alert{
		Type:       ev.Type,
		EventCount: count,
		Window:     th.Window,
		Recent:     recent,
		Timestamp:  ev.Timestamp,
	}
	m.alerts = append(m.alerts, alert)
	if len(m.alerts) > len(m.events) {
		m.alerts = m.alerts[1:]
	}

	metrics.SecurityAlerts.WithLabelValues(string(ev.Type)).Inc()
	log.Warn().
		Str("alertType", string(ev.Type)).
		Str("severity", string(ev.Severity)).
		Int("threshold", th.Count).
		Dur("window", th.Window).
		Msg("[securityMonitor] SECURITY ALERT")
	return &alert
}

// each visits events oldest first. Must be called with mu held.
func (m *Monitor) each(fn func(Event)) {
	if m.full {
		for _, e := range m.events[m.next:] {
			fn(e)
		}
	}
	for _, e := range m.events[:m.next] {
		fn(e)
	}
}

// Events returns a copy of the retained events, oldest first.
func (m *Monitor) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	m.each(func(e Event) { out = append(out, e) })
	return out
}

func (m *Monitor) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Alert(nil), m.alerts...)
}

func (m *Monitor) LogFailedTransaction(err error, details map[string]string) {
	d := make(map[string]string, len(details)+1)
	for k, v := range details {
		d[k] = v
	}
	if err != nil {
		d["error"] = err.Error()
	}
	m.LogEvent(Event{Type: EventFailedTransaction, Severity: SeverityMedium, Details: d})
}

func (m *Monitor) LogSuspiciousActivity(activity string, details map[string]string) {
	d := make(map[string]string, len(details)+1)
	for k, v := range details {
		d[k] = v
	}
	d["activity"] = activity
	m.LogEvent(Event{Type: EventSuspiciousActivity, Severity: SeverityHigh, Details: d})
}

func (m *Monitor) LogUnauthorizedAccess(details map[string]string) {
	m.LogEvent(Event{Type: EventUnauthorizedAccess, Severity: SeverityCritical, Details: details})
}

// Allow reports whether key may make another call, allowing limit calls per
// window. A rejected call is recorded as API abuse.
func (m *Monitor) Allow(key string, limit int, window time.Duration) bool {
	if limit <= 0 || window <= 0 {
		return true
	}
	if m.limiter(key, limit, window).AllowN(m.now(), 1) {
		return true
	}
	metrics.RateLimited.WithLabelValues("key").Inc()
	m.LogEvent(Event{Type: EventAPIAbuse, Severity: SeverityLow, Details: map[string]string{"key": key}})
	return false
}

// limiter returns the bucket for key, creating it on first use. Concurrent
// first calls share one bucket.
func (m *Monitor) limiter(key string, limit int, window time.Duration) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	lim, ok := m.limiters.Get(key)
	if !ok {
		lim = rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
		m.limiters.Set(key, lim)
	}
	return lim
}

// Audit writes one structured audit record.
func (m *Monitor) Audit(action string, fields map[string]any) {
	log.Info().Str("audit", action).Fields(fields).Msg("[audit]")
}
