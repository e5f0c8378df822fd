// Package multiagent implements the agent spawner (C9, §3.6/§4.9): a
// UUID-keyed map of AgentContext values with a max_agents cap, forming
// a strict ownership forest. The spawner owns agent contexts
// exclusively; it never routes messages between agents — that is the
// channels bridge's job.
package multiagent

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rustant/rustant/internal/errs"
	"github.com/rustant/rustant/internal/safety"
	"github.com/rustant/rustant/internal/tools/policy"
)

// AgentStatus is an AgentContext's lifecycle state.
type AgentStatus string

const (
	StatusIdle       AgentStatus = "idle"
	StatusRunning    AgentStatus = "running"
	StatusSuspended  AgentStatus = "suspended"
	StatusTerminated AgentStatus = "terminated"
)

// ResourceLimits bounds one agent's resource consumption. All fields
// are optional; zero means unbounded.
type ResourceLimits struct {
	MaxMemoryMB      int
	MaxTokensPerTurn int
	MaxToolCalls     int
	MaxRuntimeSecs   int
}

// AgentContext is one node in the spawner's ownership forest.
type AgentContext struct {
	AgentID        string
	Name           string
	ParentID       string
	WindowSize     int
	Safety         *safety.Gate
	WorkspaceDir   string
	LLMOverride    string
	ResourceLimits ResourceLimits
	Status         AgentStatus
	CreatedAt      time.Time

	// Policy scopes which tools this agent may invoke, resolved via
	// the spawner's shared policy.Resolver. Nil means no additional
	// scoping beyond whatever the caller's registry/gate enforce.
	Policy *policy.Policy
}

// MaxAgentsExceeded is returned by Spawn/SpawnChild when the spawner's
// cap on total agent contexts is reached.
type MaxAgentsExceeded struct {
	Max int
}

func (e *MaxAgentsExceeded) Error() string {
	return "multiagent: max agents exceeded"
}

// Options configures an AgentContext at spawn time. WindowSize
// defaults to DefaultWindowSize when zero.
type Options struct {
	WindowSize     int
	Safety         *safety.Gate
	WorkspaceDir   string
	LLMOverride    string
	ResourceLimits ResourceLimits
	Policy         *policy.Policy
}

// DefaultWindowSize is used when Options.WindowSize is unset.
const DefaultWindowSize = 50

// Spawner owns a UUID->AgentContext map with a cap on the total number
// of live (non-deleted) contexts. It also tracks each node's children
// so terminate can cascade in post-order. An optional policy.Resolver
// lets callers ask IsToolAllowed before dispatching a tool call on an
// agent's behalf.
type Spawner struct {
	mu        sync.Mutex
	maxAgents int
	agents    map[string]*AgentContext
	children  map[string][]string
	resolver  *policy.Resolver
	Now       func() time.Time
}

// NewSpawner creates a spawner capped at maxAgents live contexts.
func NewSpawner(maxAgents int) *Spawner {
	return &Spawner{
		maxAgents: maxAgents,
		agents:    make(map[string]*AgentContext),
		children:  make(map[string][]string),
		resolver:  policy.NewResolver(),
		Now:       time.Now,
	}
}

// Resolver returns the spawner's shared tool-policy resolver, so
// callers can register MCP/edge servers and groups once and have them
// apply to every spawned agent's policy.
func (s *Spawner) Resolver() *policy.Resolver {
	return s.resolver
}

// IsToolAllowed reports whether agent id's policy permits invoking
// toolName. An agent with no policy is unrestricted. Unknown agent ids
// are never allowed.
func (s *Spawner) IsToolAllowed(id, toolName string) bool {
	s.mu.Lock()
	ctx, ok := s.agents[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	if ctx.Policy == nil {
		return true
	}
	return s.resolver.IsAllowed(ctx.Policy, toolName)
}

func (s *Spawner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Spawner) newContext(name, parentID string, opts Options) *AgentContext {
	windowSize := opts.WindowSize
	if windowSize == 0 {
		windowSize = DefaultWindowSize
	}
	return &AgentContext{
		AgentID:        uuid.NewString(),
		Name:           name,
		ParentID:       parentID,
		WindowSize:     windowSize,
		Safety:         opts.Safety,
		WorkspaceDir:   opts.WorkspaceDir,
		LLMOverride:    opts.LLMOverride,
		ResourceLimits: opts.ResourceLimits,
		Status:         StatusIdle,
		CreatedAt:      s.now(),
		Policy:         opts.Policy,
	}
}

// Spawn creates a new root-level AgentContext, failing with
// MaxAgentsExceeded if the cap is reached.
func (s *Spawner) Spawn(name string, opts Options) (*AgentContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.agents) >= s.maxAgents {
		return nil, &MaxAgentsExceeded{Max: s.maxAgents}
	}

	ctx := s.newContext(name, "", opts)
	s.agents[ctx.AgentID] = ctx
	return ctx, nil
}

// SpawnChild creates a new AgentContext under parentID, failing with
// MaxAgentsExceeded if the cap is reached or *errs.NotFound if the
// parent id is unknown.
func (s *Spawner) SpawnChild(name, parentID string, opts Options) (*AgentContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[parentID]; !ok {
		return nil, &errs.NotFound{What: "parent agent " + parentID}
	}
	if len(s.agents) >= s.maxAgents {
		return nil, &MaxAgentsExceeded{Max: s.maxAgents}
	}

	ctx := s.newContext(name, parentID, opts)
	s.agents[ctx.AgentID] = ctx
	s.children[parentID] = append(s.children[parentID], ctx.AgentID)
	return ctx, nil
}

// Terminate removes id and, recursively, all of its descendants.
// Children are terminated first (post-order), then the node itself.
// Terminate on an unknown id is a no-op, consistent with the spawner's
// idempotent terminal-transition style elsewhere in this codebase.
func (s *Spawner) Terminate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminateLocked(id)
}

func (s *Spawner) terminateLocked(id string) {
	for _, childID := range s.children[id] {
		s.terminateLocked(childID)
	}
	delete(s.children, id)
	delete(s.agents, id)
}

// SetStatus updates id's status, returning *errs.NotFound if id is
// unknown.
func (s *Spawner) SetStatus(id string, status AgentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.agents[id]
	if !ok {
		return &errs.NotFound{What: "agent " + id}
	}
	ctx.Status = status
	return nil
}

// GetStatus returns id's status, or ok=false if id is unknown.
func (s *Spawner) GetStatus(id string) (AgentStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.agents[id]
	if !ok {
		return "", false
	}
	return ctx.Status, true
}

// Get returns a copy of id's AgentContext, or ok=false if id is
// unknown.
func (s *Spawner) Get(id string) (AgentContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.agents[id]
	if !ok {
		return AgentContext{}, false
	}
	return *ctx, true
}

// ListByStatus returns a snapshot of all contexts with the given
// status.
func (s *Spawner) ListByStatus(status AgentStatus) []AgentContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AgentContext, 0)
	for _, ctx := range s.agents {
		if ctx.Status == status {
			out = append(out, *ctx)
		}
	}
	return out
}

// Count returns the number of live agent contexts.
func (s *Spawner) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.agents)
}

// Children returns the direct child ids of id.
func (s *Spawner) Children(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.children[id]))
	copy(out, s.children[id])
	return out
}
