package models

import (
	"encoding/json"
	"testing"
)

func TestMessageValidate(t *testing.T) {
	cases := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"text from user ok", Message{Role: RoleUser, Content: TextContent("hi")}, false},
		{"tool result requires tool role", Message{Role: RoleAssistant, Content: ToolResultContent("c1", ToolOutput{Text: "ok"}, false)}, true},
		{"tool result with tool role ok", Message{Role: RoleTool, Content: ToolResultContent("c1", ToolOutput{Text: "ok"}, false)}, false},
		{"tool call requires assistant role", Message{Role: RoleUser, Content: ToolCallContent("c1", "read_file", nil)}, true},
		{"tool call with assistant role ok", Message{Role: RoleAssistant, Content: ToolCallContent("c1", "read_file", nil)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRiskLevelOrdering(t *testing.T) {
	if !(RiskReadOnly < RiskWrite && RiskWrite < RiskExecute && RiskExecute < RiskNetwork && RiskNetwork < RiskDestructive) {
		t.Fatal("risk levels must be strictly ordered ReadOnly < Write < Execute < Network < Destructive")
	}
}

func TestRiskLevelJSONRoundTrip(t *testing.T) {
	for _, r := range []RiskLevel{RiskReadOnly, RiskWrite, RiskExecute, RiskNetwork, RiskDestructive} {
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var got RiskLevel
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got != r {
			t.Fatalf("round trip: got %v want %v", got, r)
		}
	}
}

func TestToolCallContentPreservesArguments(t *testing.T) {
	args := json.RawMessage(`{"path":"/tmp/x"}`)
	c := ToolCallContent("call-1", "read_file", args)
	if c.Kind != ContentToolCall || c.ToolCallID != "call-1" || c.ToolCallName != "read_file" {
		t.Fatalf("unexpected content: %+v", c)
	}
	if string(c.Arguments) != string(args) {
		t.Fatalf("arguments not preserved: %s", c.Arguments)
	}
}
