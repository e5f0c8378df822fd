package channels

import (
	"testing"
	"time"

	"github.com/rustant/rustant/internal/pairing"
)

func TestAgentRouterFirstMatchWins(t *testing.T) {
	router := NewAgentRouter("default-agent")
	router.AddRule(RouteRule{Name: "support", ChannelType: ChannelSlack, AgentID: "support-agent"})
	router.AddRule(RouteRule{Name: "catch-all-slack", ChannelType: ChannelSlack, AgentID: "fallback-slack-agent"})

	agentID, rule := router.Route(RouteRequest{ChannelType: ChannelSlack, UserID: "u1"})
	if agentID != "support-agent" || rule != "support" {
		t.Fatalf("expected first matching rule to win, got agent=%s rule=%s", agentID, rule)
	}
}

func TestAgentRouterFallsThroughToDefault(t *testing.T) {
	router := NewAgentRouter("default-agent")
	router.AddRule(RouteRule{Name: "support", ChannelType: ChannelSlack, AgentID: "support-agent"})

	agentID, rule := router.Route(RouteRequest{ChannelType: ChannelDiscord, UserID: "u1"})
	if agentID != "default-agent" || rule != "" {
		t.Fatalf("expected default agent for unmatched request, got agent=%s rule=%s", agentID, rule)
	}
}

func TestBridgeRoutesToDefaultWithoutPairing(t *testing.T) {
	router := NewAgentRouter("default-agent")
	router.AddRule(RouteRule{Name: "any-imessage", ChannelType: ChannelIMessage, AgentID: "phone-agent"})
	bridge := NewChannelAgentBridge(router, nil)

	msg := &Message{ChannelType: ChannelIMessage, SenderID: "stranger", Text: "hi"}
	agentID, _, err := bridge.RouteMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agentID != "phone-agent" {
		t.Fatalf("expected router rule to apply with no pairing configured, got %s", agentID)
	}
}

func TestBridgeForcesDefaultForUnpairedSender(t *testing.T) {
	dir := t.TempDir()
	store := pairing.NewStore(dir)

	router := NewAgentRouter("default-agent")
	router.AddRule(RouteRule{Name: "any-imessage", ChannelType: ChannelIMessage, AgentID: "phone-agent"})
	bridge := NewChannelAgentBridge(router, store)

	msg := &Message{ChannelType: ChannelIMessage, SenderID: "stranger", Text: "hi"}
	agentID, rule, err := bridge.RouteMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agentID != "default-agent" || rule != "" {
		t.Fatalf("expected unpaired sender routed to default agent, got agent=%s rule=%s", agentID, rule)
	}
}

func TestBridgeRoutesPairedSenderThroughRouter(t *testing.T) {
	dir := t.TempDir()
	store := pairing.NewStore(dir)

	channel := string(ChannelIMessage)
	code, _, err := store.UpsertRequest(channel, "my-phone", nil)
	if err != nil {
		t.Fatalf("UpsertRequest: %v", err)
	}
	if _, _, err := store.ApproveCode(channel, code); err != nil {
		t.Fatalf("ApproveCode: %v", err)
	}

	router := NewAgentRouter("default-agent")
	router.AddRule(RouteRule{Name: "any-imessage", ChannelType: ChannelIMessage, AgentID: "phone-agent"})
	bridge := NewChannelAgentBridge(router, store)

	msg := &Message{ChannelType: ChannelIMessage, SenderID: "my-phone", Text: "hi"}
	agentID, rule, err := bridge.RouteMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agentID != "phone-agent" || rule != "any-imessage" {
		t.Fatalf("expected paired sender routed by rule, got agent=%s rule=%s", agentID, rule)
	}
}

func TestBridgeOutboundUnwrapsResultAndResponse(t *testing.T) {
	bridge := NewChannelAgentBridge(NewAgentRouter("default-agent"), nil)
	now := time.Now()

	resultEnv := &AgentEnvelope{From: "agent", To: "u1", Payload: EnvelopePayload{Result: &TaskResult{Output: "done"}}}
	msg, ok := bridge.Outbound(resultEnv, ChannelSlack, "chan1", now)
	if !ok || msg.Text != "done" || msg.SenderID != "agent" {
		t.Fatalf("expected TaskResult to unwrap to outbound message, got %+v ok=%v", msg, ok)
	}

	answerEnv := &AgentEnvelope{From: "agent", To: "u1", Payload: EnvelopePayload{Answer: &Response{Answer: "42"}}}
	msg, ok = bridge.Outbound(answerEnv, ChannelSlack, "chan1", now)
	if !ok || msg.Text != "42" {
		t.Fatalf("expected Response to unwrap to outbound message, got %+v ok=%v", msg, ok)
	}

	otherEnv := &AgentEnvelope{From: "agent", To: "u1", Payload: EnvelopePayload{Task: &TaskRequest{Description: "noop"}}}
	if _, ok = bridge.Outbound(otherEnv, ChannelSlack, "chan1", now); ok {
		t.Fatalf("expected non-result/response payload to produce no outbound message")
	}
}
