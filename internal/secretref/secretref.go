// Package secretref implements the secret reference (C11): a single
// string-typed handle resolved against the OS credential store, an
// environment variable, or treated as inline plaintext.
package secretref

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const keyringService = "rustant"

var ErrEmpty = errors.New("secretref: empty reference")

// KeychainError wraps a failed OS credential-store lookup.
type KeychainError struct {
	Account string
	Err     error
}

func (e *KeychainError) Error() string {
	return fmt.Sprintf("secretref: keychain lookup for %q failed: %v", e.Account, e.Err)
}
func (e *KeychainError) Unwrap() error { return e.Err }

// EnvVarMissing reports a referenced environment variable that is unset.
type EnvVarMissing struct {
	Var string
}

func (e *EnvVarMissing) Error() string {
	return fmt.Sprintf("secretref: environment variable %q is not set", e.Var)
}

// Ref is a secret reference string. It resolves by prefix:
//   - "keychain:<account>" — OS credential store lookup.
//   - "env:<VAR>"          — environment variable read.
//   - anything else        — treated as inline plaintext (with a warning).
type Ref string

// Resolve dispatches on the ref's prefix and returns the plaintext
// secret value.
func (r Ref) Resolve(logger *slog.Logger) (string, error) {
	if r == "" {
		return "", ErrEmpty
	}
	s := string(r)

	if account, ok := strings.CutPrefix(s, "keychain:"); ok {
		val, err := keyring.Get(keyringService, account)
		if err != nil {
			return "", &KeychainError{Account: account, Err: err}
		}
		return val, nil
	}

	if v, ok := strings.CutPrefix(s, "env:"); ok {
		val, ok := os.LookupEnv(v)
		if !ok {
			return "", &EnvVarMissing{Var: v}
		}
		return val, nil
	}

	if logger != nil {
		logger.Warn("secretref: treating reference as inline plaintext", "value_len", len(s))
	}
	return s, nil
}

// IsInline reports whether r would resolve as inline plaintext (used by
// the migration helper to skip already-secure refs).
func (r Ref) IsInline() bool {
	s := string(r)
	return !strings.HasPrefix(s, "keychain:") && !strings.HasPrefix(s, "env:")
}

// FieldValue pairs a config field name with its current secret value,
// input to Migrate.
type FieldValue struct {
	Field string
	Value Ref
}

// MigrationResult summarizes a migration pass.
type MigrationResult struct {
	Migrated      []string
	AlreadySecure []string
	Errors        map[string]error
}

// Migrate writes non-empty inline plaintext values to the keychain under
// a stable account name derived from the field, and leaves refs that are
// already keychain: or env: untouched.
func Migrate(fields []FieldValue) MigrationResult {
	result := MigrationResult{Errors: make(map[string]error)}
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		if !f.Value.IsInline() {
			result.AlreadySecure = append(result.AlreadySecure, f.Field)
			continue
		}
		account := "field-" + f.Field
		if err := keyring.Set(keyringService, account, string(f.Value)); err != nil {
			result.Errors[f.Field] = &KeychainError{Account: account, Err: err}
			continue
		}
		result.Migrated = append(result.Migrated, f.Field)
	}
	return result
}
