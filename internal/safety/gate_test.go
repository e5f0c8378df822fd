package safety

import (
	"errors"
	"testing"

	"github.com/rustant/rustant/internal/consent"
	"github.com/rustant/rustant/internal/errs"
	"github.com/rustant/rustant/pkg/models"
)

func TestGateYoloAutoApprovesEverything(t *testing.T) {
	g := NewGate(Yolo, AllowDenyLists{}, nil)
	err := g.Check(CallContext{ToolName: "rm", Risk: models.RiskDestructive})
	if err != nil {
		t.Fatalf("expected yolo to auto-approve, got %v", err)
	}
}

func TestGateSafeRequiresApprovalAboveReadOnly(t *testing.T) {
	g := NewGate(Safe, AllowDenyLists{}, nil)

	err := g.Check(CallContext{ToolName: "read_file", Risk: models.RiskReadOnly})
	if err != nil {
		t.Fatalf("expected read-only to auto-approve under Safe, got %v", err)
	}

	err = g.Check(CallContext{ToolName: "write_file", Risk: models.RiskWrite})
	var np *errs.NotPermitted
	if !errors.As(err, &np) {
		t.Fatalf("expected denial without an approver, got %v", err)
	}

	approved := g.Check(CallContext{
		ToolName: "write_file", Risk: models.RiskWrite,
		RequestApproval: func(string, models.RiskLevel) bool { return true },
	})
	if approved != nil {
		t.Fatalf("expected approval to succeed, got %v", approved)
	}
}

func TestGateCautiousAllowsUpToNetwork(t *testing.T) {
	g := NewGate(Cautious, AllowDenyLists{}, nil)
	if err := g.Check(CallContext{ToolName: "curl", Risk: models.RiskNetwork}); err != nil {
		t.Fatalf("expected network risk to auto-approve under Cautious, got %v", err)
	}
	var np *errs.NotPermitted
	err := g.Check(CallContext{ToolName: "rm", Risk: models.RiskDestructive})
	if !errors.As(err, &np) {
		t.Fatalf("expected destructive to require approval, got %v", err)
	}
}

func TestGateParanoidAlwaysRequiresApproval(t *testing.T) {
	g := NewGate(Paranoid, AllowDenyLists{}, nil)
	err := g.Check(CallContext{ToolName: "read_file", Risk: models.RiskReadOnly})
	var np *errs.NotPermitted
	if !errors.As(err, &np) {
		t.Fatalf("expected paranoid to deny without an approver, got %v", err)
	}
}

func TestGateDeniedPathShortCircuits(t *testing.T) {
	g := NewGate(Yolo, AllowDenyLists{DeniedPaths: []string{"/etc/*"}}, nil)
	err := g.Check(CallContext{ToolName: "read_file", Risk: models.RiskReadOnly, Path: "/etc/passwd"})
	var np *errs.NotPermitted
	if !errors.As(err, &np) {
		t.Fatalf("expected denied path to short-circuit yolo, got %v", err)
	}
}

func TestGateConsentDenied(t *testing.T) {
	c := consent.NewManager(consent.WithDefaultPolicy(consent.RequireExplicit))
	g := NewGate(Yolo, AllowDenyLists{}, c)
	err := g.Check(CallContext{ToolName: "shell", Risk: models.RiskExecute})
	var cd *errs.ConsentDenied
	if !errors.As(err, &cd) {
		t.Fatalf("expected consent denial, got %v", err)
	}
}

func TestGateRecordsEveryDecision(t *testing.T) {
	g := NewGate(Yolo, AllowDenyLists{}, nil)
	for i := 0; i < 3; i++ {
		_ = g.Check(CallContext{ToolName: "noop", Risk: models.RiskReadOnly})
	}
	if g.Decisions.Len() != 3 {
		t.Fatalf("expected 3 decision entries, got %d", g.Decisions.Len())
	}
}

func TestDecisionLogBoundedFIFO(t *testing.T) {
	l := NewDecisionLog()
	for i := 0; i < decisionLogCap+10; i++ {
		l.Append(DecisionEntry{ID: string(rune(i))})
	}
	if l.Len() != decisionLogCap {
		t.Fatalf("expected log capped at %d, got %d", decisionLogCap, l.Len())
	}
}

func TestDataFlowTrackerBoundedFIFO(t *testing.T) {
	tr := NewDataFlowTracker()
	for i := 0; i < dataFlowCap+5; i++ {
		tr.Record(DataFlow{DataType: "text"})
	}
	if tr.Len() != dataFlowCap {
		t.Fatalf("expected tracker capped at %d, got %d", dataFlowCap, tr.Len())
	}
}
