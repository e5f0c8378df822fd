package channels

import "strings"

// RouteRequest describes an inbound message the router must assign to an
// agent. Any field may be empty; rules that reference an empty field
// never match it.
type RouteRequest struct {
	ChannelType ChannelType
	UserID      string
	Message     string
}

// RouteRule is one priority-ordered entry in an AgentRouter. A rule
// matches a RouteRequest when every non-empty predicate on the rule is
// satisfied; empty predicates are wildcards.
type RouteRule struct {
	// Name identifies the rule for logging/debugging.
	Name string

	// ChannelType, if set, requires an exact match.
	ChannelType ChannelType

	// UserID, if set, requires an exact match.
	UserID string

	// MessagePrefix, if set, requires RouteRequest.Message to start with it.
	MessagePrefix string

	// AgentID is the target agent this rule routes to.
	AgentID string
}

func (r RouteRule) matches(req RouteRequest) bool {
	if r.ChannelType != "" && r.ChannelType != req.ChannelType {
		return false
	}
	if r.UserID != "" && r.UserID != req.UserID {
		return false
	}
	if r.MessagePrefix != "" && !strings.HasPrefix(req.Message, r.MessagePrefix) {
		return false
	}
	return true
}

// AgentRouter evaluates a priority-ordered rule list against inbound
// requests. The first matching rule wins; an unmatched request falls
// through to the router's configured default agent.
type AgentRouter struct {
	Rules       []RouteRule
	DefaultAgentID string
}

// NewAgentRouter creates a router with the given default agent.
func NewAgentRouter(defaultAgentID string) *AgentRouter {
	return &AgentRouter{DefaultAgentID: defaultAgentID}
}

// AddRule appends a rule to the end of the priority list (lowest
// priority). Insert earlier entries directly into Rules for higher
// priority.
func (r *AgentRouter) AddRule(rule RouteRule) {
	r.Rules = append(r.Rules, rule)
}

// Route returns the agent id the request should be dispatched to: the
// first matching rule's AgentID, or DefaultAgentID if nothing matches.
func (r *AgentRouter) Route(req RouteRequest) (agentID string, ruleName string) {
	for _, rule := range r.Rules {
		if rule.matches(req) {
			return rule.AgentID, rule.Name
		}
	}
	return r.DefaultAgentID, ""
}
