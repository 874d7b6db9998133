package usage

import (
	"sync"
	"time"
)

// Totals is one bucket of aggregated usage counters, either fleet-wide or
// scoped to a single model.
type Totals struct {
	Calls               int
	Tasks               int
	CostUSD             float64
	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
}

func (t *Totals) add(call ApiCall) {
	t.Calls++
	t.CostUSD += call.CostUSD
	t.InputTokens += call.InputTokens
	t.OutputTokens += call.OutputTokens
	t.CacheCreationTokens += call.CacheCreationTokens
	t.CacheReadTokens += call.CacheReadTokens
}

// MetricsSnapshot is an immutable copy of the aggregate state, safe to hand
// to any reader.
type MetricsSnapshot struct {
	Totals     Totals
	PerModel   map[string]Totals
	LastUpdate time.Time
}

// RealtimeMetrics aggregates the live ApiCall stream into fleet-wide totals
// and per-model buckets. Tasks counts distinct bead ids observed on calls.
// LastUpdate is monotonically non-decreasing while calls arrive.
type RealtimeMetrics struct {
	mu           sync.Mutex
	totals       Totals
	perModel     map[string]*Totals
	tasks        map[string]bool
	tasksByModel map[string]map[string]bool
	lastUpdate   time.Time
}

// NewRealtimeMetrics creates an empty aggregate.
func NewRealtimeMetrics() *RealtimeMetrics {
	return &RealtimeMetrics{
		perModel:     make(map[string]*Totals),
		tasks:        make(map[string]bool),
		tasksByModel: make(map[string]map[string]bool),
	}
}

// Record folds one call into the aggregate. now advances LastUpdate unless
// it would move it backwards.
func (m *RealtimeMetrics) Record(call ApiCall, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	model := NormalizeModelName(call.Model)

	m.totals.add(call)
	bucket, ok := m.perModel[model]
	if !ok {
		bucket = &Totals{}
		m.perModel[model] = bucket
	}
	bucket.add(call)

	if call.BeadID != "" {
		if !m.tasks[call.BeadID] {
			m.tasks[call.BeadID] = true
			m.totals.Tasks++
		}
		seen := m.tasksByModel[model]
		if seen == nil {
			seen = make(map[string]bool)
			m.tasksByModel[model] = seen
		}
		if !seen[call.BeadID] {
			seen[call.BeadID] = true
			bucket.Tasks++
		}
	}

	if now.After(m.lastUpdate) {
		m.lastUpdate = now
	}
}

// Snapshot returns a copy of the current aggregate state.
func (m *RealtimeMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	perModel := make(map[string]Totals, len(m.perModel))
	for model, bucket := range m.perModel {
		perModel[model] = *bucket
	}
	return MetricsSnapshot{
		Totals:     m.totals,
		PerModel:   perModel,
		LastUpdate: m.lastUpdate,
	}
}
