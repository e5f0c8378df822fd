package consent

import (
	"testing"
	"time"
)

// TestConsentGateScenario follows §8 scenario 1 verbatim.
func TestConsentGateScenario(t *testing.T) {
	m := NewManager(WithDefaultPolicy(RequireExplicit))

	if m.Check(ProviderScope("openai")) {
		t.Fatal("expected no grant by default")
	}

	m.Grant(GlobalScope(), "ok", 0)
	if !m.Check(ProviderScope("openai")) {
		t.Fatal("expected global grant to cover provider scope")
	}

	m.Revoke(GlobalScope(), "changed my mind")
	if m.Check(ProviderScope("openai")) {
		t.Fatal("expected revoke to remove the grant")
	}
}

// TestOneTimeConsentScenario follows §8 scenario 2 verbatim.
func TestOneTimeConsentScenario(t *testing.T) {
	m := NewManager()
	scope := ToolAccessScope("shell")

	m.GrantOneTime(scope, "single use")
	if !m.ConsumeOneTime(scope) {
		t.Fatal("expected first consume to succeed")
	}
	if m.Check(scope) {
		t.Fatal("expected scope to be invalid after consumption")
	}
	if m.ConsumeOneTime(scope) {
		t.Fatal("expected second consume to fail")
	}
}

func TestGrantExpiry(t *testing.T) {
	now := time.Now()
	m := NewManager()
	m.Now = func() time.Time { return now }

	m.Grant(ProviderScope("anthropic"), "temporary", time.Minute)
	if !m.Check(ProviderScope("anthropic")) {
		t.Fatal("expected grant to be valid before expiry")
	}

	now = now.Add(2 * time.Minute)
	if m.Check(ProviderScope("anthropic")) {
		t.Fatal("expected grant to be invalid after expiry")
	}
}

func TestCheckIsStableWithoutMutation(t *testing.T) {
	m := NewManager(WithDefaultPolicy(ImpliedGrant))
	first := m.Check(ChannelAccessScope("imessage"))
	second := m.Check(ChannelAccessScope("imessage"))
	if first != second {
		t.Fatal("expected repeated checks to agree without mutation")
	}
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/records.json"

	m := NewManager(WithPersistPath(path))
	m.Grant(GlobalScope(), "ok", 0)
	m.GrantOneTime(ToolAccessScope("shell"), "one-off")

	if err := m.Persist(); err != nil {
		t.Fatalf("persist: %v", err)
	}

	loaded := NewManager(WithPersistPath(path))
	if err := loaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Check(GlobalScope()) {
		t.Fatal("expected loaded global grant to be valid")
	}
	if len(loaded.ListActive()) != 2 {
		t.Fatalf("expected 2 active records, got %d", len(loaded.ListActive()))
	}
}
