package secretref

import (
	"errors"
	"os"
	"testing"
)

func TestResolveEnv(t *testing.T) {
	os.Setenv("RUSTANT_TEST_SECRET", "s3cr3t")
	defer os.Unsetenv("RUSTANT_TEST_SECRET")

	val, err := Ref("env:RUSTANT_TEST_SECRET").Resolve(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "s3cr3t" {
		t.Fatalf("got %q", val)
	}
}

func TestResolveEnvMissing(t *testing.T) {
	_, err := Ref("env:RUSTANT_DOES_NOT_EXIST").Resolve(nil)
	var missing *EnvVarMissing
	if !errors.As(err, &missing) {
		t.Fatalf("expected EnvVarMissing, got %v", err)
	}
}

func TestResolveInlineIsIdentity(t *testing.T) {
	val, err := Ref("plain-value").Resolve(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "plain-value" {
		t.Fatalf("expected identity resolution, got %q", val)
	}
}

func TestResolveEmpty(t *testing.T) {
	_, err := Ref("").Resolve(nil)
	if err != ErrEmpty {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestIsInline(t *testing.T) {
	if Ref("keychain:foo").IsInline() {
		t.Fatal("keychain ref should not be inline")
	}
	if Ref("env:FOO").IsInline() {
		t.Fatal("env ref should not be inline")
	}
	if !Ref("plain").IsInline() {
		t.Fatal("plain value should be inline")
	}
}
