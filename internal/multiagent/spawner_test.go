package multiagent

import (
	"errors"
	"testing"

	"github.com/rustant/rustant/internal/errs"
	"github.com/rustant/rustant/internal/tools/policy"
)

// TestSpawnerCascadeScenario follows §8 scenario 5 verbatim: spawn
// parent P, children C1,C2 under P; terminate(P) removes all three.
func TestSpawnerCascadeScenario(t *testing.T) {
	s := NewSpawner(10)

	p, err := s.Spawn("P", Options{})
	if err != nil {
		t.Fatalf("spawn P: %v", err)
	}
	if _, err := s.SpawnChild("C1", p.AgentID, Options{}); err != nil {
		t.Fatalf("spawn C1: %v", err)
	}
	if _, err := s.SpawnChild("C2", p.AgentID, Options{}); err != nil {
		t.Fatalf("spawn C2: %v", err)
	}
	if got := s.Count(); got != 3 {
		t.Fatalf("expected 3 live contexts, got %d", got)
	}

	s.Terminate(p.AgentID)
	if got := s.Count(); got != 0 {
		t.Fatalf("expected terminate(P) to remove all three, got %d remaining", got)
	}
}

func TestSpawnChildUnknownParent(t *testing.T) {
	s := NewSpawner(10)
	_, err := s.SpawnChild("orphan", "missing-parent", Options{})

	var notFound *errs.NotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *errs.NotFound, got %v", err)
	}
}

func TestSpawnerMaxAgentsCap(t *testing.T) {
	s := NewSpawner(2)

	if _, err := s.Spawn("a", Options{}); err != nil {
		t.Fatalf("spawn a: %v", err)
	}
	if _, err := s.Spawn("b", Options{}); err != nil {
		t.Fatalf("spawn b: %v", err)
	}

	_, err := s.Spawn("c", Options{})
	var maxExceeded *MaxAgentsExceeded
	if !errors.As(err, &maxExceeded) || maxExceeded.Max != 2 {
		t.Fatalf("expected MaxAgentsExceeded{max:2}, got %v", err)
	}
}

func TestSpawnerStatusQueries(t *testing.T) {
	s := NewSpawner(10)
	a, _ := s.Spawn("a", Options{})
	b, _ := s.Spawn("b", Options{})

	if err := s.SetStatus(a.AgentID, StatusRunning); err != nil {
		t.Fatalf("set status: %v", err)
	}

	status, ok := s.GetStatus(a.AgentID)
	if !ok || status != StatusRunning {
		t.Fatalf("expected a to be running, got %v ok=%v", status, ok)
	}

	idle := s.ListByStatus(StatusIdle)
	if len(idle) != 1 || idle[0].AgentID != b.AgentID {
		t.Fatalf("expected only b idle, got %+v", idle)
	}
}

func TestSpawnerSetStatusUnknownAgent(t *testing.T) {
	s := NewSpawner(10)
	err := s.SetStatus("missing", StatusRunning)

	var notFound *errs.NotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *errs.NotFound, got %v", err)
	}
}

func TestSpawnerPolicyGatesToolAccess(t *testing.T) {
	s := NewSpawner(10)
	s.Resolver().AddGroup("group:fs", []string{"read_file", "write_file"})

	restricted, err := s.Spawn("restricted", Options{
		Policy: &policy.Policy{Allow: []string{"group:fs"}},
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	unrestricted, err := s.Spawn("unrestricted", Options{})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	if !s.IsToolAllowed(restricted.AgentID, "read_file") {
		t.Fatalf("expected read_file allowed via group:fs")
	}
	if s.IsToolAllowed(restricted.AgentID, "run_shell") {
		t.Fatalf("expected run_shell denied for restricted agent")
	}
	if !s.IsToolAllowed(unrestricted.AgentID, "run_shell") {
		t.Fatalf("expected unrestricted agent to allow any tool")
	}
	if s.IsToolAllowed("missing", "read_file") {
		t.Fatalf("expected unknown agent id to be denied")
	}
}
