package channels

import (
	"time"

	"github.com/rustant/rustant/internal/errs"
	"github.com/rustant/rustant/internal/pairing"
)

// EnvelopePayload is the sum type carried by an AgentEnvelope: exactly
// one of TaskRequest, TaskResult, or Response is non-nil.
type EnvelopePayload struct {
	Task   *TaskRequest
	Result *TaskResult
	Answer *Response
}

// TaskRequest is an inbound request for an agent to act on.
type TaskRequest struct {
	Description string
	Args        map[string]string
}

// TaskResult is an agent's completed-task output, routed back outbound.
type TaskResult struct {
	Output string
}

// Response is an agent's direct reply, routed back outbound.
type Response struct {
	Answer string
}

// AgentEnvelope wraps a message travelling between a channel and an
// agent. Inbound channel messages are wrapped as envelopes carrying a
// TaskRequest; outbound envelopes carrying a TaskResult or Response are
// unwrapped back into channel messages. Any other payload produces no
// outbound channel message.
type AgentEnvelope struct {
	From    string
	To      string
	Payload EnvelopePayload
}

// ChannelAgentBridge composes an AgentRouter with an optional pairing
// store. It owns only routing configuration: channels hold transport
// state, agents hold conversation state, and the bridge never touches
// either.
type ChannelAgentBridge struct {
	Router  *AgentRouter
	Pairing *pairing.Store
}

// NewChannelAgentBridge builds a bridge around router. pairingStore may
// be nil to disable device pairing enforcement entirely.
func NewChannelAgentBridge(router *AgentRouter, pairingStore *pairing.Store) *ChannelAgentBridge {
	return &ChannelAgentBridge{Router: router, Pairing: pairingStore}
}

// RouteMessage decides which agent an inbound channel message goes to.
// If a pairing store is configured and msg.SenderID is not on the
// channel's allowlist, the message is forced to the router's default
// agent regardless of any matching rule — pairing is the sole
// enforcement point for device authorization. Otherwise the router
// decides, falling through to the default agent when nothing matches.
func (b *ChannelAgentBridge) RouteMessage(msg *Message) (agentID string, ruleName string, err error) {
	if b.Router == nil {
		return "", "", &errs.ChannelError{Kind: "no router configured", Name: string(msg.ChannelType)}
	}

	if b.Pairing != nil {
		allowed, paErr := b.Pairing.IsAllowed(string(msg.ChannelType), msg.SenderID)
		if paErr != nil {
			return "", "", &errs.ChannelError{Kind: paErr.Error(), Name: string(msg.ChannelType)}
		}
		if !allowed {
			return b.Router.DefaultAgentID, "", nil
		}
	}

	req := RouteRequest{
		ChannelType: msg.ChannelType,
		UserID:      msg.SenderID,
		Message:     msg.Text,
	}
	agentID, ruleName = b.Router.Route(req)
	return agentID, ruleName, nil
}

// Inbound wraps a channel message as the envelope an agent consumes.
func (b *ChannelAgentBridge) Inbound(msg *Message, toAgentID string) *AgentEnvelope {
	return &AgentEnvelope{
		From: msg.SenderID,
		To:   toAgentID,
		Payload: EnvelopePayload{
			Task: &TaskRequest{Description: msg.Text},
		},
	}
}

// Outbound unwraps an agent's envelope into a channel message ready to
// send, or returns ok=false if the payload carries neither a
// TaskResult nor a Response (e.g. an intermediate tool or error
// envelope, which produces no outbound channel message).
func (b *ChannelAgentBridge) Outbound(env *AgentEnvelope, channelType ChannelType, channelID string, now time.Time) (*Message, bool) {
	var text string
	switch {
	case env.Payload.Result != nil:
		text = env.Payload.Result.Output
	case env.Payload.Answer != nil:
		text = env.Payload.Answer.Answer
	default:
		return nil, false
	}

	return &Message{
		ChannelType: channelType,
		ChannelID:   channelID,
		SenderID:    "agent",
		SenderName:  "agent",
		Text:        text,
		CreatedAt:   now,
	}, true
}
