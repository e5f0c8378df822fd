package sandbox

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDefaultResourceLimits(t *testing.T) {
	l := DefaultResourceLimits()
	if l.MaxMemoryBytes != 16*1024*1024 {
		t.Fatalf("unexpected default memory: %d", l.MaxMemoryBytes)
	}
	if l.MaxFuel != 1_000_000 {
		t.Fatalf("unexpected default fuel: %d", l.MaxFuel)
	}
	if l.MaxExecutionTime != 30*time.Second {
		t.Fatalf("unexpected default timeout: %v", l.MaxExecutionTime)
	}
}

func TestNewEqualsDefault(t *testing.T) {
	c := New()
	if c.ResourceLimits != DefaultResourceLimits() {
		t.Fatal("New() should match DefaultResourceLimits")
	}
	if len(c.Capabilities) != 0 || c.AllowHostCalls {
		t.Fatal("New() should have no capabilities and host calls disallowed")
	}
}

func TestBuilderChain(t *testing.T) {
	c := New().
		WithMemoryLimit(32 * 1024 * 1024).
		WithFuelLimit(2_000_000).
		WithTimeout(60 * time.Second).
		WithCapability(Stdout()).
		WithCapability(Stderr()).
		WithAllowHostCalls()

	if c.ResourceLimits.MaxMemoryBytes != 32*1024*1024 {
		t.Fatalf("unexpected memory: %d", c.ResourceLimits.MaxMemoryBytes)
	}
	if c.ResourceLimits.MaxFuel != 2_000_000 {
		t.Fatalf("unexpected fuel: %d", c.ResourceLimits.MaxFuel)
	}
	if c.ResourceLimits.MaxExecutionTime != 60*time.Second {
		t.Fatalf("unexpected timeout: %v", c.ResourceLimits.MaxExecutionTime)
	}
	if len(c.Capabilities) != 2 {
		t.Fatalf("unexpected capability count: %d", len(c.Capabilities))
	}
	if !c.AllowHostCalls {
		t.Fatal("expected host calls allowed")
	}
}

func TestWithCapabilitiesBatch(t *testing.T) {
	c := New().WithCapabilities(Stdout(), Stderr(), NetworkAccess("localhost"))
	if len(c.Capabilities) != 3 {
		t.Fatalf("unexpected capability count: %d", len(c.Capabilities))
	}
}

func TestSandboxConfigJSONRoundTrip(t *testing.T) {
	c := New().
		WithMemoryLimit(8 * 1024 * 1024).
		WithFuelLimit(500_000).
		WithTimeout(10 * time.Second).
		WithCapability(Stdout()).
		WithCapability(FileRead("/tmp")).
		WithAllowHostCalls()

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Config
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ResourceLimits != c.ResourceLimits {
		t.Fatalf("resource limits mismatch: %+v vs %+v", decoded.ResourceLimits, c.ResourceLimits)
	}
	if len(decoded.Capabilities) != len(c.Capabilities) || decoded.AllowHostCalls != c.AllowHostCalls {
		t.Fatalf("config mismatch: %+v vs %+v", decoded, c)
	}
}

func TestDurationJSONShape(t *testing.T) {
	l := DefaultResourceLimits()
	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var d duration
	if err := json.Unmarshal(raw["max_execution_time"], &d); err != nil {
		t.Fatalf("unmarshal duration: %v", err)
	}
	if d.Secs != 30 || d.Nanos != 0 {
		t.Fatalf("unexpected duration shape: %+v", d)
	}
}
