package safety

import (
	"sync"
	"time"
)

const dataFlowCap = 10_000

// DataSource is a tagged variant identifying where a data-flow fact
// originates.
type DataSource struct {
	Kind string // "user_input", "tool_output", "file_content", "memory_fact", "session_history", "voice_input", "system"
	Tool string // set for tool_output
	Path string // set for file_content
}

// DataDestination is a tagged variant identifying where data flows to.
type DataDestination struct {
	Kind     string // "llm_provider", "local_storage", "tool_execution", "memory"
	Provider string // set for llm_provider
	Model    string // set for llm_provider
	Path     string // set for local_storage
	Tool     string // set for tool_execution
}

// DataFlow records one directed source→destination fact.
type DataFlow struct {
	Source        DataSource
	Destination   DataDestination
	DataType      string
	TokenCount    int
	Redacted      bool
	ConsentStatus string
	Timestamp     time.Time
}

// DataFlowTracker is a bounded, ordered, FIFO-evicting log of data-flow
// facts (§3.4).
type DataFlowTracker struct {
	mu    sync.Mutex
	cap   int
	flows []DataFlow
}

func NewDataFlowTracker() *DataFlowTracker {
	return &DataFlowTracker{cap: dataFlowCap}
}

func (t *DataFlowTracker) Record(f DataFlow) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	if len(t.flows) >= t.cap {
		t.flows = t.flows[1:]
	}
	t.flows = append(t.flows, f)
}

// Flows returns a snapshot of recorded facts, oldest first.
func (t *DataFlowTracker) Flows() []DataFlow {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]DataFlow, len(t.flows))
	copy(out, t.flows)
	return out
}

func (t *DataFlowTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.flows)
}
