package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

var (
	ErrMemoryLimitExceeded = errors.New("sandbox: memory limit exceeded")
	ErrFuelExhausted       = errors.New("sandbox: fuel exhausted")
	ErrTimeout             = errors.New("sandbox: execution timed out")
	ErrCapabilityDenied    = errors.New("sandbox: capability denied")
)

// wasmPageSize is the WASM linear-memory page size in bytes.
const wasmPageSize = 64 * 1024

// Executor runs a compiled WASM module under a Config's capability and
// resource-limit surface. wazero has no native instruction-fuel meter
// (unlike wasmtime); fuel is instead charged per host-function call made
// through the capability surface below, which is the only place a
// sandboxed module can observe or affect the outside world.
type Executor struct {
	cfg Config
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{cfg: cfg}
}

// Run instantiates and executes wasmBytes, invoking exportedFunc with no
// arguments. It enforces the memory cap, fuel budget, and wall-clock
// timeout from the Executor's Config.
func (e *Executor) Run(ctx context.Context, wasmBytes []byte, exportedFunc string) ([]uint64, error) {
	limitPages := uint32((e.cfg.ResourceLimits.MaxMemoryBytes + wasmPageSize - 1) / wasmPageSize)

	runtimeCfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(limitPages).
		WithCloseOnContextDone(true)
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	defer runtime.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, fmt.Errorf("sandbox: instantiate wasi: %w", err)
	}

	var fuel int64 = int64(e.cfg.ResourceLimits.MaxFuel)
	host, err := e.buildHostModule(runtime, &fuel)
	if err != nil {
		return nil, err
	}
	if host != nil {
		if _, err := host.Instantiate(ctx); err != nil {
			return nil, fmt.Errorf("sandbox: instantiate host module: %w", err)
		}
	}

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("sandbox: compile module: %w", err)
	}

	modCfg := wazero.NewModuleConfig().WithStartFunctions("_start")
	if e.hasCapability(CapStdout) {
		modCfg = modCfg.WithStdout(os.Stdout)
	}
	if e.hasCapability(CapStderr) {
		modCfg = modCfg.WithStderr(os.Stderr)
	}
	for _, env := range e.envCapabilityVars() {
		if val, ok := os.LookupEnv(env); ok {
			modCfg = modCfg.WithEnv(env, val)
		}
	}

	timeout := e.cfg.ResourceLimits.MaxExecutionTime
	if timeout <= 0 {
		timeout = defaultMaxExecutionTime
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	mod, err := runtime.InstantiateModule(runCtx, compiled, modCfg)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("sandbox: instantiate module: %w", err)
	}
	defer mod.Close(runCtx)

	fn := mod.ExportedFunction(exportedFunc)
	if fn == nil {
		return nil, fmt.Errorf("sandbox: module has no exported function %q", exportedFunc)
	}
	results, err := fn.Call(runCtx)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		if atomic.LoadInt64(&fuel) <= 0 {
			return nil, ErrFuelExhausted
		}
		return nil, err
	}
	return results, nil
}

func (e *Executor) hasCapability(kind CapabilityKind) bool {
	for _, c := range e.cfg.Capabilities {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

func (e *Executor) envCapabilityVars() []string {
	var vars []string
	for _, c := range e.cfg.Capabilities {
		if c.Kind == CapEnvironmentRead {
			vars = append(vars, c.Vars...)
		}
	}
	return vars
}

func (e *Executor) allowedPaths(kind CapabilityKind) []string {
	var paths []string
	for _, c := range e.cfg.Capabilities {
		if c.Kind == kind {
			paths = append(paths, c.Paths...)
		}
	}
	return paths
}

func (e *Executor) allowedHosts() []string {
	var hosts []string
	for _, c := range e.cfg.Capabilities {
		if c.Kind == CapNetworkAccess {
			hosts = append(hosts, c.Hosts...)
		}
	}
	return hosts
}

func pathAllowed(allowed []string, path string) bool {
	for _, p := range allowed {
		if p == path || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

// buildHostModule exposes the capability surface to the guest as host
// functions when AllowHostCalls is set. Every call charges one unit of
// fuel; once exhausted, further host calls trap.
func (e *Executor) buildHostModule(runtime wazero.Runtime, fuel *int64) (wazero.HostModuleBuilder, error) {
	if !e.cfg.AllowHostCalls {
		return nil, nil
	}

	charge := func() bool {
		return atomic.AddInt64(fuel, -1) >= 0
	}

	builder := runtime.NewHostModuleBuilder("env")
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, pathPtr, pathLen uint32) uint32 {
			if !charge() {
				return 0
			}
			path, ok := m.Memory().Read(pathPtr, pathLen)
			if !ok || !pathAllowed(e.allowedPaths(CapFileRead), string(path)) {
				return 0
			}
			return 1
		}).Export("fs_read_allowed")
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, pathPtr, pathLen uint32) uint32 {
			if !charge() {
				return 0
			}
			path, ok := m.Memory().Read(pathPtr, pathLen)
			if !ok || !pathAllowed(e.allowedPaths(CapFileWrite), string(path)) {
				return 0
			}
			return 1
		}).Export("fs_write_allowed")
	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, hostPtr, hostLen uint32) uint32 {
			if !charge() {
				return 0
			}
			host, ok := m.Memory().Read(hostPtr, hostLen)
			if !ok {
				return 0
			}
			for _, h := range e.allowedHosts() {
				if h == string(host) {
					return 1
				}
			}
			return 0
		}).Export("net_connect_allowed")

	return builder, nil
}
