package memory

import (
	"testing"
	"time"
)

func TestRecordDropsSamplesWithinMinInterval(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	base := time.Now()

	tr.Record(100, base)
	tr.Record(200, base.Add(5*time.Second)) // too soon, dropped
	if len(tr.Samples()) != 1 {
		t.Fatalf("len(Samples()) = %d, want 1", len(tr.Samples()))
	}
	if tr.Latest() != 100 {
		t.Errorf("Latest() = %v, want 100 (second sample dropped)", tr.Latest())
	}
}

func TestRecordEvictsOldestAtCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleHistorySize = 2
	cfg.MinSampleInterval = 0
	tr := NewTracker(cfg)

	base := time.Now()
	tr.Record(100, base)
	tr.Record(200, base.Add(time.Minute))
	tr.Record(300, base.Add(2*time.Minute))

	samples := tr.Samples()
	if len(samples) != 2 {
		t.Fatalf("len(Samples()) = %d, want 2", len(samples))
	}
	if samples[0].RSSMb != 200 || samples[1].RSSMb != 300 {
		t.Errorf("samples = %+v, want [200, 300]", samples)
	}
}

func TestGrowthRateBelowMinDurationIsZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSampleInterval = 0
	tr := NewTracker(cfg)
	base := time.Now()

	tr.Record(100, base)
	tr.Record(200, base.Add(10*time.Second))

	if rate := tr.GrowthRateMBPerMin(); rate != 0 {
		t.Errorf("GrowthRateMBPerMin() = %v, want 0 for sub-30s duration", rate)
	}
}

func TestGrowthRateLinearSlope(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSampleInterval = 0
	tr := NewTracker(cfg)
	base := time.Now()

	tr.Record(100, base)
	tr.Record(400, base.Add(1*time.Minute))

	if rate := tr.GrowthRateMBPerMin(); rate != 300 {
		t.Errorf("GrowthRateMBPerMin() = %v, want 300 (300MB over 1 minute)", rate)
	}
}

func TestClassifySeverityTiers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSampleInterval = 0
	tr := NewTracker(cfg)
	base := time.Now()

	cases := []struct {
		rss  float64
		want Severity
	}{
		{1000, SeverityNormal},
		{3000, SeverityElevated},
		{5000, SeverityWarning},
		{9000, SeverityCritical},
	}
	for i, c := range cases {
		tr.Record(c.rss, base.Add(time.Duration(i)*time.Minute))
		if got := tr.Classify(); got != c.want {
			t.Errorf("Classify() at RSS=%v = %v, want %v", c.rss, got, c.want)
		}
	}
}

func TestCheckRunawayOnlyAtCritical(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSampleInterval = 0
	tr := NewTracker(cfg)
	base := time.Now()

	tr.Record(5000, base)
	if tr.CheckRunaway("w1") {
		t.Error("CheckRunaway should be false at Warning severity")
	}

	tr.Record(9000, base.Add(time.Minute))
	if !tr.CheckRunaway("w1") {
		t.Error("CheckRunaway should be true at Critical severity")
	}
}
