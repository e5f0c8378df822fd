package safety

import (
	"sync"
	"time"

	"github.com/rustant/rustant/pkg/models"
)

const decisionLogCap = 500

// DecisionOutcome is the disposition of one gate or execution decision.
type DecisionOutcome struct {
	Kind   string // "auto_approved", "user_approved", "user_denied", "safety_denied", "pending", "succeeded", "failed", "cancelled"
	Reason string // populated for safety_denied
	Error  string // populated for failed
}

var (
	OutcomeAutoApproved = DecisionOutcome{Kind: "auto_approved"}
	OutcomeUserApproved = DecisionOutcome{Kind: "user_approved"}
	OutcomeUserDenied   = DecisionOutcome{Kind: "user_denied"}
	OutcomePending      = DecisionOutcome{Kind: "pending"}
	OutcomeSucceeded    = DecisionOutcome{Kind: "succeeded"}
	OutcomeCancelled    = DecisionOutcome{Kind: "cancelled"}
)

func OutcomeSafetyDenied(reason string) DecisionOutcome {
	return DecisionOutcome{Kind: "safety_denied", Reason: reason}
}

func OutcomeFailed(err string) DecisionOutcome {
	return DecisionOutcome{Kind: "failed", Error: err}
}

// DecisionEntry is one record in the decision log (§3.5).
type DecisionEntry struct {
	ID          string
	Timestamp   time.Time
	Iteration   int
	Action      string
	Reasoning   string
	Alternatives []string
	RiskLevel   models.RiskLevel
	Confidence  *float64
	Outcome     DecisionOutcome
	Expert      string
	Persona     string
	Source      string
}

// DecisionLog is a bounded, ordered, append-only log of agent decisions.
// Capacity is fixed at decisionLogCap; oldest entries are evicted FIFO.
// Pending outcomes may be updated in place by id.
type DecisionLog struct {
	mu      sync.Mutex
	entries []DecisionEntry
	byID    map[string]int
}

func NewDecisionLog() *DecisionLog {
	return &DecisionLog{byID: make(map[string]int)}
}

// Append adds an entry, evicting the oldest if at capacity.
func (l *DecisionLog) Append(e DecisionEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) >= decisionLogCap {
		evicted := l.entries[0]
		l.entries = l.entries[1:]
		delete(l.byID, evicted.ID)
		for id, idx := range l.byID {
			l.byID[id] = idx - 1
		}
	}
	l.entries = append(l.entries, e)
	l.byID[e.ID] = len(l.entries) - 1
}

// UpdateOutcome updates a pending entry's outcome in place by id. Reports
// whether the entry was found.
func (l *DecisionLog) UpdateOutcome(id string, outcome DecisionOutcome) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx, ok := l.byID[id]
	if !ok {
		return false
	}
	l.entries[idx].Outcome = outcome
	return true
}

// Entries returns a snapshot of the current log, oldest first.
func (l *DecisionLog) Entries() []DecisionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]DecisionEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the current entry count (never exceeds decisionLogCap).
func (l *DecisionLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
