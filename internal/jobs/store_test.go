package jobs

import (
	"errors"
	"testing"
)

// TestBackgroundJobCapScenario follows §8 scenario 4 verbatim.
func TestBackgroundJobCapScenario(t *testing.T) {
	m := NewManager(2)

	a, err := m.Spawn("a")
	if err != nil {
		t.Fatalf("spawn a: %v", err)
	}
	if _, err := m.Spawn("b"); err != nil {
		t.Fatalf("spawn b: %v", err)
	}

	_, err = m.Spawn("c")
	var maxExceeded *MaxJobsExceeded
	if !errors.As(err, &maxExceeded) || maxExceeded.Max != 2 {
		t.Fatalf("expected MaxJobsExceeded{max:2}, got %v", err)
	}

	if err := m.Complete(a.ID, "done"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := m.Spawn("c"); err != nil {
		t.Fatalf("expected spawn c to succeed after completion, got %v", err)
	}
}

func TestTerminalTransitionsAreIdempotent(t *testing.T) {
	m := NewManager(5)
	job, _ := m.Spawn("a")

	if err := m.Complete(job.ID, "first"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := m.Fail(job.ID, "second"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	got, _ := m.Get(job.ID)
	if got.Status != StatusCompleted || got.Result != "first" {
		t.Fatalf("expected terminal state to stick, got %+v", got)
	}
}

func TestCleanupFinishedRemovesOnlyTerminalJobs(t *testing.T) {
	m := NewManager(10)
	a, _ := m.Spawn("a")
	_, _ = m.Spawn("b")
	_ = m.Complete(a.ID, "done")

	removed := m.CleanupFinished()
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if len(m.List()) != 1 {
		t.Fatalf("expected 1 remaining job, got %d", len(m.List()))
	}
}

func TestActiveCountNeverExceedsMax(t *testing.T) {
	m := NewManager(3)
	for i := 0; i < 3; i++ {
		if _, err := m.Spawn("job"); err != nil {
			t.Fatalf("spawn: %v", err)
		}
		if m.ActiveCount() > 3 {
			t.Fatalf("active count exceeded max: %d", m.ActiveCount())
		}
	}
}

func TestToJSONFromJSONRoundTrip(t *testing.T) {
	m := NewManager(5)
	a, _ := m.Spawn("a")
	_ = m.Complete(a.ID, "ok")
	_, _ = m.Spawn("b")

	data, err := m.ToJSON()
	if err != nil {
		t.Fatalf("to_json: %v", err)
	}

	loaded := NewManager(0)
	if err := loaded.FromJSON(data); err != nil {
		t.Fatalf("from_json: %v", err)
	}

	if loaded.maxJobs != 5 {
		t.Fatalf("expected max_jobs 5 to round-trip, got %d", loaded.maxJobs)
	}
	got, ok := loaded.Get(a.ID)
	if !ok || got.Status != StatusCompleted || got.Result != "ok" {
		t.Fatalf("round-trip mismatch for job a: %+v", got)
	}
	if len(loaded.List()) != 2 {
		t.Fatalf("expected 2 jobs after round-trip, got %d", len(loaded.List()))
	}
}
