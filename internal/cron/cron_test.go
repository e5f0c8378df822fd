package cron

import (
	"errors"
	"testing"
	"time"
)

func TestAddDuplicateNameFails(t *testing.T) {
	s := NewScheduler()
	if _, err := s.Add("fast", "* * * * * *", "", "noop", true); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err := s.Add("fast", "* * * * * *", "", "noop", true)
	var exists *JobAlreadyExists
	if !errors.As(err, &exists) || exists.Name != "fast" {
		t.Fatalf("expected JobAlreadyExists, got %v", err)
	}
}

func TestAddInvalidExpressionFails(t *testing.T) {
	s := NewScheduler()
	_, err := s.Add("bad", "not a cron expr", "", "noop", true)
	var invalid *InvalidCronExpression
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidCronExpression, got %v", err)
	}
}

// TestCronDueDetection follows §8 scenario 3: a job on a 1-second cadence
// becomes due after its next_run elapses, and mark_executed excludes it
// again for at least 1s.
func TestCronDueDetection(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewScheduler()
	s.Now = func() time.Time { return now }

	if _, err := s.Add("fast", "* * * * * * *", "", "noop", true); err != nil {
		t.Fatalf("add: %v", err)
	}

	now = now.Add(1100 * time.Millisecond)
	due := s.DueJobs()
	if len(due) != 1 || due[0].Name != "fast" {
		t.Fatalf("expected fast to be due, got %+v", due)
	}

	s.MarkExecuted("fast")
	if len(s.DueJobs()) != 0 {
		t.Fatalf("expected no due jobs immediately after mark_executed")
	}

	now = now.Add(999 * time.Millisecond)
	if len(s.DueJobs()) != 0 {
		t.Fatalf("expected still not due before 1s elapses")
	}
}

func TestMarkExecutedNextRunStrictlyAfterLastRun(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewScheduler()
	s.Now = func() time.Time { return now }
	s.Add("fast", "* * * * * *", "", "noop", true)

	now = now.Add(2 * time.Second)
	s.MarkExecuted("fast")
	job, _ := s.Get("fast")
	if !job.NextRun.After(job.LastRun) {
		t.Fatalf("expected next_run > last_run, got next=%v last=%v", job.NextRun, job.LastRun)
	}
	if job.RunCount != 1 {
		t.Fatalf("expected run_count=1, got %d", job.RunCount)
	}
}

func TestDisabledJobNeverDue(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewScheduler()
	s.Now = func() time.Time { return now }
	s.Add("fast", "* * * * * *", "", "noop", false)

	now = now.Add(5 * time.Second)
	if len(s.DueJobs()) != 0 {
		t.Fatalf("expected disabled job to never be due")
	}
}

func TestToJSONFromJSONRoundTrip(t *testing.T) {
	s := NewScheduler()
	s.Add("daily", "0 0 0 * * *", "UTC", "backup", true)

	data, err := s.ToJSON()
	if err != nil {
		t.Fatalf("to_json: %v", err)
	}

	loaded := NewScheduler()
	if err := loaded.FromJSON(data); err != nil {
		t.Fatalf("from_json: %v", err)
	}
	job, ok := loaded.Get("daily")
	if !ok || job.ScheduleExpr != "0 0 0 * * *" || job.Task != "backup" {
		t.Fatalf("round-trip mismatch: %+v", job)
	}
}

func TestRemoveEnableDisable(t *testing.T) {
	s := NewScheduler()
	s.Add("j", "* * * * * *", "", "noop", false)

	s.Enable("j")
	job, _ := s.Get("j")
	if !job.Enabled {
		t.Fatalf("expected job enabled")
	}

	s.Disable("j")
	job, _ = s.Get("j")
	if job.Enabled {
		t.Fatalf("expected job disabled")
	}

	s.Remove("j")
	if _, ok := s.Get("j"); ok {
		t.Fatalf("expected job removed")
	}
}
