// Package cron implements the CronScheduler half of the scheduler
// component (C8, §4.8): a name→CronJob map, independent of the
// BackgroundJob manager in internal/jobs.
package cron

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// JobAlreadyExists is returned by Add when name is already registered.
type JobAlreadyExists struct {
	Name string
}

func (e *JobAlreadyExists) Error() string {
	return "cron: job already exists: " + e.Name
}

// InvalidCronExpression is returned when a schedule expression fails to
// parse.
type InvalidCronExpression struct {
	Expr string
	Err  error
}

func (e *InvalidCronExpression) Error() string {
	return "cron: invalid expression " + e.Expr + ": " + e.Err.Error()
}

func (e *InvalidCronExpression) Unwrap() error { return e.Err }

// Job is a CronJob: a named schedule plus its run bookkeeping.
type Job struct {
	Name         string    `json:"name"`
	ScheduleExpr string    `json:"schedule_expr"`
	Timezone     string    `json:"timezone,omitempty"`
	Task         string    `json:"task"`
	Enabled      bool      `json:"enabled"`
	LastRun      time.Time `json:"last_run,omitempty"`
	NextRun      time.Time `json:"next_run,omitempty"`
	RunCount     int       `json:"run_count"`

	schedule cron.Schedule
}

func (j *Job) location() *time.Location {
	if j.Timezone == "" {
		return time.UTC
	}
	if loc, err := time.LoadLocation(j.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

func (j *Job) recomputeNextRun(base time.Time) {
	j.NextRun = j.schedule.Next(base.In(j.location()))
}

// Due reports whether the job is enabled and its next_run has elapsed.
func (j *Job) Due(now time.Time) bool {
	return j.Enabled && !j.NextRun.IsZero() && !j.NextRun.After(now)
}

// Scheduler owns a name→Job map. Now is injectable for deterministic
// tests; it defaults to time.Now.
type Scheduler struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	Now  func() time.Time
}

func NewScheduler() *Scheduler {
	return &Scheduler{jobs: make(map[string]*Job), Now: time.Now}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Add registers a new job. next_run is computed from last_run∨now as the
// base. Fails with JobAlreadyExists or InvalidCronExpression.
func (s *Scheduler) Add(name, scheduleExpr, timezone, task string, enabled bool) (*Job, error) {
	sched, err := parser.Parse(scheduleExpr)
	if err != nil {
		return nil, &InvalidCronExpression{Expr: scheduleExpr, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return nil, &JobAlreadyExists{Name: name}
	}

	job := &Job{
		Name:         name,
		ScheduleExpr: scheduleExpr,
		Timezone:     timezone,
		Task:         task,
		Enabled:      enabled,
		schedule:     sched,
	}
	base := job.LastRun
	if base.IsZero() {
		base = s.now()
	}
	job.recomputeNextRun(base)
	s.jobs[name] = job
	return job, nil
}

// Remove deletes a job by name. A no-op if absent.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, name)
}

// Enable/Disable flip a job's enabled flag. Both are no-ops if the job
// is absent.
func (s *Scheduler) Enable(name string)  { s.setEnabled(name, true) }
func (s *Scheduler) Disable(name string) { s.setEnabled(name, false) }

func (s *Scheduler) setEnabled(name string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[name]; ok {
		job.Enabled = enabled
	}
}

// DueJobs returns every enabled job whose next_run has elapsed, ordered
// by name for determinism.
func (s *Scheduler) DueJobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var due []Job
	for _, job := range s.jobs {
		if job.Due(now) {
			due = append(due, *job)
		}
	}
	sortJobsByName(due)
	return due
}

// MarkExecuted sets last_run=now, increments run_count, and recomputes
// next_run from the new last_run base. A no-op if the job is absent.
func (s *Scheduler) MarkExecuted(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[name]
	if !ok {
		return
	}
	job.LastRun = s.now()
	job.RunCount++
	job.recomputeNextRun(job.LastRun)
}

// Get returns a snapshot of the named job, if present.
func (s *Scheduler) Get(name string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[name]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns a snapshot of every job, ordered by name.
func (s *Scheduler) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sortJobsByName(out)
	return out
}

func sortJobsByName(jobs []Job) {
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0 && jobs[j-1].Name > jobs[j].Name; j-- {
			jobs[j-1], jobs[j] = jobs[j], jobs[j-1]
		}
	}
}

// ToJSON serializes the scheduler's jobs as {name: CronJob}.
func (s *Scheduler) ToJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Job, len(s.jobs))
	for name, j := range s.jobs {
		out[name] = *j
	}
	return json.Marshal(out)
}

// FromJSON replaces the scheduler's jobs with those decoded from data,
// re-parsing each schedule expression. The first invalid expression
// aborts the load, leaving the scheduler unchanged.
func (s *Scheduler) FromJSON(data []byte) error {
	var in map[string]Job
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	jobs := make(map[string]*Job, len(in))
	for name, j := range in {
		sched, err := parser.Parse(j.ScheduleExpr)
		if err != nil {
			return &InvalidCronExpression{Expr: j.ScheduleExpr, Err: err}
		}
		job := j
		job.Name = name
		job.schedule = sched
		jobs[name] = &job
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = jobs
	return nil
}
