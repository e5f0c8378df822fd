// Package models holds the typed value model shared across the runtime:
// messages, tagged content variants, risk levels, tool output, and the
// error taxonomy every component boundary returns.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ContentKind tags the variant held by a Content value.
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentToolCall   ContentKind = "tool_call"
	ContentToolResult ContentKind = "tool_result"
	ContentMultiPart  ContentKind = "multi_part"
)

// Content is a closed tagged union. Exactly the fields matching Kind are
// meaningful; the others are zero. This mirrors the teacher's Message
// struct but replaces its flat string body with the spec's variant set.
type Content struct {
	Kind ContentKind `json:"kind"`

	// ContentText
	Text string `json:"text,omitempty"`

	// ContentToolCall
	ToolCallID   string          `json:"tool_call_id,omitempty"`
	ToolCallName string          `json:"tool_call_name,omitempty"`
	Arguments    json.RawMessage `json:"arguments,omitempty"`

	// ContentToolResult
	ResultCallID string     `json:"result_call_id,omitempty"`
	Output       ToolOutput `json:"output,omitempty"`
	IsError      bool       `json:"is_error,omitempty"`

	// ContentMultiPart
	Parts []Part `json:"parts,omitempty"`
}

// Part is one element of a MultiPart content value: either inline text or
// a reference to a typed binary artifact (image, audio, file, ...).
type Part struct {
	Text         string `json:"text,omitempty"`
	ArtifactType string `json:"artifact_type,omitempty"`
	ArtifactRef  string `json:"artifact_ref,omitempty"`
}

func TextContent(text string) Content {
	return Content{Kind: ContentText, Text: text}
}

func ToolCallContent(id, name string, args json.RawMessage) Content {
	return Content{Kind: ContentToolCall, ToolCallID: id, ToolCallName: name, Arguments: args}
}

func ToolResultContent(callID string, output ToolOutput, isError bool) Content {
	return Content{Kind: ContentToolResult, ResultCallID: callID, Output: output, IsError: isError}
}

// Message is one entry in an agent's conversation history.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   Content   `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate enforces §3.1's role/content-kind consistency invariant:
// Tool role implies ToolResult content, and ToolCall content only ever
// comes from the Assistant role.
func (m Message) Validate() error {
	switch m.Content.Kind {
	case ContentToolResult:
		if m.Role != RoleTool {
			return fmt.Errorf("message %s: tool result content requires Tool role, got %s", m.ID, m.Role)
		}
	case ContentToolCall:
		if m.Role != RoleAssistant {
			return fmt.Errorf("message %s: tool call content requires Assistant role, got %s", m.ID, m.Role)
		}
	}
	return nil
}

// RiskLevel is strictly ordered by ascending severity (§3.2).
type RiskLevel int

const (
	RiskReadOnly RiskLevel = iota
	RiskWrite
	RiskExecute
	RiskNetwork
	RiskDestructive
)

func (r RiskLevel) String() string {
	switch r {
	case RiskReadOnly:
		return "read_only"
	case RiskWrite:
		return "write"
	case RiskExecute:
		return "execute"
	case RiskNetwork:
		return "network"
	case RiskDestructive:
		return "destructive"
	default:
		return "unknown"
	}
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "read_only":
		*r = RiskReadOnly
	case "write":
		*r = RiskWrite
	case "execute":
		*r = RiskExecute
	case "network":
		*r = RiskNetwork
	case "destructive":
		*r = RiskDestructive
	default:
		return fmt.Errorf("unknown risk level %q", s)
	}
	return nil
}

// ToolOutput is a text body plus optional structured payload and artifact
// references, returned by a successful tool execution.
type ToolOutput struct {
	Text      string          `json:"text"`
	Structured json.RawMessage `json:"structured,omitempty"`
	Artifacts []string        `json:"artifacts,omitempty"`
}
