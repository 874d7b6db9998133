package alert

import (
	"testing"
	"time"
)

func TestRaiseDedupsBumpsOccurrenceCount(t *testing.T) {
	m := NewManager(100)
	now := time.Now()

	first := m.Raise("w1", "high_memory", SeverityWarning, "High memory", "RSS 5GB", now)
	second := m.Raise("w1", "high_memory", SeverityWarning, "High memory", "RSS 6GB", now.Add(time.Minute))

	if first.ID != second.ID {
		t.Fatalf("expected same alert id on dedup, got %d and %d", first.ID, second.ID)
	}
	if second.OccurrenceCount != 2 {
		t.Errorf("OccurrenceCount = %d, want 2", second.OccurrenceCount)
	}
	if second.Message != "RSS 6GB" {
		t.Errorf("Message = %q, want updated message", second.Message)
	}
}

func TestUnacknowledgedCountEqualsCriticalPlusWarning(t *testing.T) {
	m := NewManager(100)
	now := time.Now()

	m.Raise("w1", "a", SeverityCritical, "t", "m", now)
	m.Raise("w2", "b", SeverityWarning, "t", "m", now)
	m.Raise("w3", "c", SeverityInfo, "t", "m", now)

	summary := m.BadgeSummary()
	if summary.Total != summary.Critical+summary.Warning {
		t.Errorf("Total = %d, want Critical(%d)+Warning(%d)", summary.Total, summary.Critical, summary.Warning)
	}
	if summary.Critical != 1 || summary.Warning != 1 {
		t.Errorf("summary = %+v, want Critical=1 Warning=1 (Info excluded)", summary)
	}
}

func TestAcknowledgeDecrementsCounter(t *testing.T) {
	m := NewManager(100)
	now := time.Now()
	a := m.Raise("w1", "a", SeverityCritical, "t", "m", now)

	if !m.Acknowledge(a.ID) {
		t.Fatal("Acknowledge returned false")
	}
	if summary := m.BadgeSummary(); summary.Critical != 0 {
		t.Errorf("Critical = %d after ack, want 0", summary.Critical)
	}
	if m.Acknowledge(a.ID) {
		t.Error("second Acknowledge on same alert should return false")
	}
}

func TestResolveRemovesFromActiveDedup(t *testing.T) {
	m := NewManager(100)
	now := time.Now()
	a := m.Raise("w1", "a", SeverityWarning, "t", "m", now)

	if !m.Resolve(a.ID) {
		t.Fatal("Resolve returned false")
	}
	if summary := m.BadgeSummary(); summary.Warning != 0 {
		t.Errorf("Warning = %d after resolve, want 0", summary.Warning)
	}

	// Raising the same key again after resolve should create a fresh record.
	b := m.Raise("w1", "a", SeverityWarning, "t2", "m2", now.Add(time.Minute))
	if b.ID == a.ID {
		t.Error("expected a new alert id after the previous one resolved")
	}
}

func TestResolveAcknowledgedDoesNotDoubleDecrement(t *testing.T) {
	m := NewManager(100)
	now := time.Now()
	a := m.Raise("w1", "a", SeverityCritical, "t", "m", now)
	m.Acknowledge(a.ID)
	m.Resolve(a.ID)

	if summary := m.BadgeSummary(); summary.Critical != 0 {
		t.Errorf("Critical = %d, want 0 (no double decrement)", summary.Critical)
	}
}

func TestAllSortOrder(t *testing.T) {
	m := NewManager(100)
	now := time.Now()

	low := m.Raise("w1", "a", SeverityInfo, "t", "m", now)
	high := m.Raise("w2", "b", SeverityCritical, "t", "m", now.Add(time.Second))
	m.Acknowledge(high.ID)
	unackedCritical := m.Raise("w3", "c", SeverityCritical, "t", "m", now.Add(2*time.Second))

	all := m.All()
	if all[0].ID != unackedCritical.ID {
		t.Errorf("first = %d, want unacknowledged critical %d", all[0].ID, unackedCritical.ID)
	}
	if all[len(all)-1].ID != low.ID {
		t.Errorf("last = %d, want lowest severity %d", all[len(all)-1].ID, low.ID)
	}
}

func TestPruneDropsOldestResolvedFirst(t *testing.T) {
	m := NewManager(2)
	now := time.Now()

	a := m.Raise("w1", "a", SeverityInfo, "t", "m", now)
	m.Resolve(a.ID)
	b := m.Raise("w2", "b", SeverityInfo, "t", "m", now.Add(time.Minute))
	m.Resolve(b.ID)
	// Third raise exceeds maxActive=2, should prune the oldest resolved (a).
	c := m.Raise("w3", "c", SeverityInfo, "t", "m", now.Add(2*time.Minute))

	all := m.All()
	ids := map[uint64]bool{}
	for _, alrt := range all {
		ids[alrt.ID] = true
	}
	if ids[a.ID] {
		t.Error("oldest resolved alert should have been pruned")
	}
	if !ids[b.ID] || !ids[c.ID] {
		t.Error("newer alerts should survive pruning")
	}
}

func TestNotifierBellCooldown(t *testing.T) {
	n := NewNotifier()
	now := time.Now()
	critical := &Alert{Severity: SeverityCritical}

	n.Notify(critical, now)
	if !n.TakePendingBell() {
		t.Fatal("expected pending bell after first Critical notify")
	}
	if n.TakePendingBell() {
		t.Error("TakePendingBell should be edge-triggered: false on second call")
	}

	n.Notify(critical, now.Add(5*time.Second))
	if n.TakePendingBell() {
		t.Error("bell should be suppressed within the cooldown window")
	}

	n.Notify(critical, now.Add(31*time.Second))
	if !n.TakePendingBell() {
		t.Error("bell should fire again after the cooldown elapses")
	}
}

func TestNotifierFlashWindow(t *testing.T) {
	n := NewNotifier()
	now := time.Now()
	n.Notify(&Alert{Severity: SeverityCritical}, now)

	if !n.IsFlashing(now.Add(100 * time.Millisecond)) {
		t.Error("expected IsFlashing true within the 200ms window")
	}
	if n.IsFlashing(now.Add(250 * time.Millisecond)) {
		t.Error("expected IsFlashing false after the window elapses")
	}
}

func TestNotifierIgnoresBelowMinSeverity(t *testing.T) {
	n := NewNotifier()
	n.Notify(&Alert{Severity: SeverityInfo}, time.Now())
	if n.TakePendingBell() {
		t.Error("Info severity should not arm the bell (min severity is Warning)")
	}
}
