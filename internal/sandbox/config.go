// Package sandbox implements the capability + resource-limit config and
// WASM host surface (C7). Configuration types are grounded on the
// original Rust sandbox config; the execution engine is new, backed by
// wazero.
package sandbox

import (
	"encoding/json"
	"time"
)

// CapabilityKind tags the variant held by a Capability value.
type CapabilityKind string

const (
	CapFileRead        CapabilityKind = "file_read"
	CapFileWrite       CapabilityKind = "file_write"
	CapNetworkAccess   CapabilityKind = "network_access"
	CapEnvironmentRead CapabilityKind = "environment_read"
	CapStdout          CapabilityKind = "stdout"
	CapStderr          CapabilityKind = "stderr"
)

// Capability restricts what a sandboxed WASM module may access. Paths,
// hosts, and environment-variable names are allow-lists: only explicitly
// permitted resources are reachable.
type Capability struct {
	Kind  CapabilityKind `json:"kind"`
	Paths []string       `json:"paths,omitempty"` // FileRead / FileWrite
	Hosts []string       `json:"hosts,omitempty"` // NetworkAccess
	Vars  []string       `json:"vars,omitempty"`  // EnvironmentRead
}

func FileRead(paths ...string) Capability        { return Capability{Kind: CapFileRead, Paths: paths} }
func FileWrite(paths ...string) Capability       { return Capability{Kind: CapFileWrite, Paths: paths} }
func NetworkAccess(hosts ...string) Capability   { return Capability{Kind: CapNetworkAccess, Hosts: hosts} }
func EnvironmentRead(vars ...string) Capability  { return Capability{Kind: CapEnvironmentRead, Vars: vars} }
func Stdout() Capability                         { return Capability{Kind: CapStdout} }
func Stderr() Capability                         { return Capability{Kind: CapStderr} }

// duration is ResourceLimits.MaxExecutionTime's wire shape: {secs, nanos},
// matching the original Rust serde helper so configs round-trip through
// JSON the same way across both implementations.
type duration struct {
	Secs  uint64 `json:"secs"`
	Nanos uint32 `json:"nanos"`
}

func toDuration(d time.Duration) duration {
	return duration{Secs: uint64(d / time.Second), Nanos: uint32(d % time.Second)}
}

func fromDuration(d duration) time.Duration {
	return time.Duration(d.Secs)*time.Second + time.Duration(d.Nanos)
}

// ResourceLimits bounds one sandbox execution.
type ResourceLimits struct {
	MaxMemoryBytes    uint64        `json:"-"`
	MaxFuel           uint64        `json:"max_fuel"`
	MaxExecutionTime  time.Duration `json:"-"`
}

const (
	defaultMaxMemoryBytes   = 16 * 1024 * 1024
	defaultMaxFuel          = 1_000_000
	defaultMaxExecutionTime = 30 * time.Second
)

func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxMemoryBytes:   defaultMaxMemoryBytes,
		MaxFuel:          defaultMaxFuel,
		MaxExecutionTime: defaultMaxExecutionTime,
	}
}

type resourceLimitsWire struct {
	MaxMemoryBytes   uint64   `json:"max_memory_bytes"`
	MaxFuel          uint64   `json:"max_fuel"`
	MaxExecutionTime duration `json:"max_execution_time"`
}

func (r ResourceLimits) MarshalJSON() ([]byte, error) {
	return json.Marshal(resourceLimitsWire{
		MaxMemoryBytes:   r.MaxMemoryBytes,
		MaxFuel:          r.MaxFuel,
		MaxExecutionTime: toDuration(r.MaxExecutionTime),
	})
}

func (r *ResourceLimits) UnmarshalJSON(data []byte) error {
	var w resourceLimitsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.MaxMemoryBytes = w.MaxMemoryBytes
	r.MaxFuel = w.MaxFuel
	r.MaxExecutionTime = fromDuration(w.MaxExecutionTime)
	return nil
}

// Config is a value type configuring one WASM sandbox execution.
// Builder methods compose monotonically: capabilities append, limits
// overwrite.
type Config struct {
	ResourceLimits  ResourceLimits `json:"resource_limits"`
	Capabilities    []Capability   `json:"capabilities"`
	AllowHostCalls  bool           `json:"allow_host_calls"`
}

// New returns a Config with default resource limits, no capabilities,
// and host calls disallowed.
func New() Config {
	return Config{ResourceLimits: DefaultResourceLimits()}
}

func (c Config) WithMemoryLimit(bytes uint64) Config {
	c.ResourceLimits.MaxMemoryBytes = bytes
	return c
}

func (c Config) WithFuelLimit(fuel uint64) Config {
	c.ResourceLimits.MaxFuel = fuel
	return c
}

func (c Config) WithTimeout(d time.Duration) Config {
	c.ResourceLimits.MaxExecutionTime = d
	return c
}

func (c Config) WithCapability(cap Capability) Config {
	c.Capabilities = append(c.Capabilities, cap)
	return c
}

func (c Config) WithCapabilities(caps ...Capability) Config {
	c.Capabilities = append(c.Capabilities, caps...)
	return c
}

func (c Config) WithAllowHostCalls() Config {
	c.AllowHostCalls = true
	return c
}
