// Package jobs implements the background job manager (C8, §3.7/§4.8):
// an id→BackgroundJob map with a max_jobs cap applied to the active
// (non-terminal) count.
package jobs

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rustant/rustant/internal/errs"
)

// Status is a BackgroundJob's lifecycle state. Completed, Failed, and
// Cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job is a BackgroundJob.
type Job struct {
	ID          string
	Name        string
	Status      Status
	StartedAt   time.Time
	CompletedAt time.Time
	Result      string
	Error       string
}

// MaxJobsExceeded is returned by Spawn when the active-job cap is
// reached.
type MaxJobsExceeded struct {
	Max int
}

func (e *MaxJobsExceeded) Error() string {
	return "jobs: max jobs exceeded"
}

// Manager is an id→Job map with a cap on the active (non-terminal)
// count.
type Manager struct {
	mu      sync.Mutex
	maxJobs int
	jobs    map[string]*Job
	Now     func() time.Time
}

func NewManager(maxJobs int) *Manager {
	return &Manager{maxJobs: maxJobs, jobs: make(map[string]*Job), Now: time.Now}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Manager) activeCountLocked() int {
	n := 0
	for _, j := range m.jobs {
		if !j.Status.Terminal() {
			n++
		}
	}
	return n
}

// ActiveCount reports the current active (non-terminal) job count.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeCountLocked()
}

// Spawn creates a new job with StatusPending, failing with
// MaxJobsExceeded if the active cap is reached.
func (m *Manager) Spawn(name string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeCountLocked() >= m.maxJobs {
		return nil, &MaxJobsExceeded{Max: m.maxJobs}
	}

	job := &Job{ID: uuid.NewString(), Name: name, Status: StatusPending, StartedAt: m.now()}
	m.jobs[job.ID] = job
	return job, nil
}

// Start transitions a pending job to Running.
func (m *Manager) Start(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return &errs.NotFound{What: "job " + id}
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = StatusRunning
	return nil
}

// Complete transitions a job to Completed. A no-op on an already
// terminal job.
func (m *Manager) Complete(id, result string) error {
	return m.finish(id, StatusCompleted, result, "")
}

// Fail transitions a job to Failed. A no-op on an already terminal job.
func (m *Manager) Fail(id, errMsg string) error {
	return m.finish(id, StatusFailed, "", errMsg)
}

// Cancel transitions a job to Cancelled. A no-op on an already terminal
// job.
func (m *Manager) Cancel(id string) error {
	return m.finish(id, StatusCancelled, "", "")
}

func (m *Manager) finish(id string, status Status, result, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return &errs.NotFound{What: "job " + id}
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = status
	job.Result = result
	job.Error = errMsg
	job.CompletedAt = m.now()
	return nil
}

// Get returns a snapshot of the job, if present.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns a snapshot of all jobs.
func (m *Manager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	return out
}

// CleanupFinished removes all jobs in a terminal state, returning the
// count removed.
func (m *Manager) CleanupFinished() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, j := range m.jobs {
		if j.Status.Terminal() {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

// persistedState is the on-disk shape of scheduler/jobs.json.
type persistedState struct {
	MaxJobs int   `json:"max_jobs"`
	Jobs    []Job `json:"jobs"`
}

// ToJSON serializes the manager as {max_jobs, jobs:[...]}, matching
// cron.Scheduler's ToJSON/FromJSON persistence pattern.
func (m *Manager) ToJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := persistedState{MaxJobs: m.maxJobs, Jobs: make([]Job, 0, len(m.jobs))}
	for _, j := range m.jobs {
		state.Jobs = append(state.Jobs, *j)
	}
	return json.Marshal(state)
}

// FromJSON replaces the manager's jobs and max_jobs cap with those
// decoded from data.
func (m *Manager) FromJSON(data []byte) error {
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.maxJobs = state.MaxJobs
	m.jobs = make(map[string]*Job, len(state.Jobs))
	for i := range state.Jobs {
		j := state.Jobs[i]
		m.jobs[j.ID] = &j
	}
	return nil
}
