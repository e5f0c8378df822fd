// Package safety implements the policy/safety gate (C3b): approval-mode
// gating, allow/deny lists, consent enforcement, the decision log, and
// the data-flow tracker.
package safety

import (
	"strings"

	"github.com/rustant/rustant/internal/consent"
	"github.com/rustant/rustant/internal/errs"
	"github.com/rustant/rustant/pkg/models"
)

// ApprovalMode controls how aggressively the gate demands human approval.
type ApprovalMode int

const (
	Yolo ApprovalMode = iota
	Safe
	Cautious
	Paranoid
)

// AllowDenyLists holds the path/command/host allow- and deny-lists
// applied during gating.
type AllowDenyLists struct {
	AllowedPaths    []string
	DeniedPaths     []string
	AllowedCommands []string
	DeniedCommands  []string
	AllowedHosts    []string
}

// CallContext carries the facts the gate needs about one proposed tool
// call beyond its name and risk level.
type CallContext struct {
	ToolName string
	Risk     models.RiskLevel
	Path     string // set when the call touches a filesystem path
	Command  string // set when the call shells out
	Host     string // set when the call reaches the network
	// RequestApproval is invoked when the gate determines human approval
	// is required; it returns whether the user approved.
	RequestApproval func(tool string, risk models.RiskLevel) bool
}

// Gate combines approval-mode policy, allow/deny lists, and consent
// checks into the single decision point specified in §4.3.
type Gate struct {
	Mode     ApprovalMode
	Lists    AllowDenyLists
	Consent  *consent.Manager
	Decisions *DecisionLog
	DataFlow *DataFlowTracker
}

func NewGate(mode ApprovalMode, lists AllowDenyLists, c *consent.Manager) *Gate {
	return &Gate{
		Mode:      mode,
		Lists:     lists,
		Consent:   c,
		Decisions: NewDecisionLog(),
		DataFlow:  NewDataFlowTracker(),
	}
}

// Check runs the full gate algorithm for one proposed tool call and
// records the decision before returning. A nil error means AutoApproved
// or UserApproved; a non-nil error is always *errs.NotPermitted or
// *errs.ConsentDenied.
func (g *Gate) Check(cc CallContext) error {
	if err := g.checkLists(cc); err != nil {
		g.Decisions.Append(DecisionEntry{
			Action:    cc.ToolName,
			RiskLevel: cc.Risk,
			Outcome:   OutcomeSafetyDenied(err.Error()),
		})
		return err
	}

	if g.Consent != nil {
		scope := consent.ToolAccessScope(cc.ToolName)
		if !g.Consent.Check(scope) {
			g.Decisions.Append(DecisionEntry{
				Action:    cc.ToolName,
				RiskLevel: cc.Risk,
				Outcome:   OutcomeSafetyDenied("consent denied"),
			})
			return &errs.ConsentDenied{Scope: scope.String()}
		}
	}

	approved, needsApproval := g.evaluateMode(cc)
	if needsApproval && !approved {
		g.Decisions.Append(DecisionEntry{
			Action:    cc.ToolName,
			RiskLevel: cc.Risk,
			Outcome:   OutcomeUserDenied,
		})
		return &errs.NotPermitted{Reason: "user denied approval"}
	}

	outcome := OutcomeAutoApproved
	if needsApproval {
		outcome = OutcomeUserApproved
	}
	g.Decisions.Append(DecisionEntry{
		Action:    cc.ToolName,
		RiskLevel: cc.Risk,
		Outcome:   outcome,
	})
	return nil
}

// evaluateMode implements the per-mode table from §4.3. It returns
// whether the call is approved and whether approval was required at all
// (approved is meaningless when needsApproval is false — AutoApproved).
func (g *Gate) evaluateMode(cc CallContext) (approved, needsApproval bool) {
	switch g.Mode {
	case Yolo:
		return true, false
	case Safe:
		if cc.Risk == models.RiskReadOnly {
			return true, false
		}
		return g.requestApproval(cc), true
	case Cautious:
		if cc.Risk <= models.RiskNetwork {
			return true, false
		}
		return g.requestApproval(cc), true
	case Paranoid:
		return g.requestApproval(cc), true
	default:
		return g.requestApproval(cc), true
	}
}

func (g *Gate) requestApproval(cc CallContext) bool {
	if cc.RequestApproval == nil {
		return false
	}
	return cc.RequestApproval(cc.ToolName, cc.Risk)
}

func (g *Gate) checkLists(cc CallContext) error {
	if cc.Path != "" {
		if matchesAny(g.Lists.DeniedPaths, cc.Path) {
			return &errs.NotPermitted{Reason: "path " + cc.Path + " is denied"}
		}
		if len(g.Lists.AllowedPaths) > 0 && !matchesAny(g.Lists.AllowedPaths, cc.Path) {
			return &errs.NotPermitted{Reason: "path " + cc.Path + " is not in the allow list"}
		}
	}
	if cc.Command != "" {
		if matchesAny(g.Lists.DeniedCommands, cc.Command) {
			return &errs.NotPermitted{Reason: "command " + cc.Command + " is denied"}
		}
		if len(g.Lists.AllowedCommands) > 0 && !matchesAny(g.Lists.AllowedCommands, cc.Command) {
			return &errs.NotPermitted{Reason: "command " + cc.Command + " is not in the allow list"}
		}
	}
	if cc.Host != "" {
		if len(g.Lists.AllowedHosts) > 0 && !matchesAny(g.Lists.AllowedHosts, cc.Host) {
			return &errs.NotPermitted{Reason: "host " + cc.Host + " is not in the allow list"}
		}
	}
	return nil
}

// matchesAny reports whether value matches any pattern, either exactly
// or by prefix (patterns ending in "*" match a prefix).
func matchesAny(patterns []string, value string) bool {
	for _, p := range patterns {
		if strings.HasSuffix(p, "*") {
			if strings.HasPrefix(value, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if p == value {
			return true
		}
	}
	return false
}
