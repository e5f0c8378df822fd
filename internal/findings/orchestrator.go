package findings

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/rustant/rustant/pkg/models"
)

// maxScanFileSize is the per-file size cutoff the orchestrator applies
// when enumerating source files; anything larger is skipped rather
// than handed to scanner leaves.
const maxScanFileSize = 1 << 20 // 1 MiB

// Scanner is one pluggable scanner leaf (SAST, SCA, secrets,
// supply-chain, ...). Rule bodies are out of scope for this package;
// Scanner is the seam a concrete scanner plugs into.
type Scanner interface {
	Name() string
	Scan(ctx context.Context, files []string) ([]Finding, error)
}

// MemoryBridge persists a redacted summary of a scan for later
// recall. It mirrors the narrow shape the orchestrator needs rather
// than importing a concrete memory subsystem, since none is specified
// beyond internal/config's MemoryConfig shape.
type MemoryBridge interface {
	PersistSummary(ctx context.Context, key string, summary string) error
}

// NopMemoryBridge discards summaries; used when no memory bridge is
// configured.
type NopMemoryBridge struct{}

func (NopMemoryBridge) PersistSummary(ctx context.Context, key string, summary string) error {
	return nil
}

// Orchestrator is the security-scan orchestrator (§4.12): it
// enumerates source files under a path, invokes scanner leaves,
// aggregates their findings, persists a redacted summary via the
// memory bridge, and returns a combined markdown report.
type Orchestrator struct {
	Scanners []Scanner
	Memory   MemoryBridge
	Now      func() time.Time
}

// NewOrchestrator creates an Orchestrator over the given scanner
// leaves. A nil memory bridge is replaced with NopMemoryBridge.
func NewOrchestrator(scanners []Scanner, memory MemoryBridge) *Orchestrator {
	if memory == nil {
		memory = NopMemoryBridge{}
	}
	return &Orchestrator{Scanners: scanners, Memory: memory, Now: time.Now}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// enumerateFiles walks root, returning every regular file at or under
// maxScanFileSize.
func enumerateFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxScanFileSize {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// Run scans root, aggregates every scanner's findings, persists a
// redacted summary via the memory bridge keyed by summaryKey, and
// returns a combined markdown report.
func (o *Orchestrator) Run(ctx context.Context, root string, summaryKey string) (string, []Finding, error) {
	files, err := enumerateFiles(root)
	if err != nil {
		return "", nil, err
	}

	var all []Finding
	for _, scanner := range o.Scanners {
		found, err := scanner.Scan(ctx, files)
		if err != nil {
			return "", nil, fmt.Errorf("scanner %s: %w", scanner.Name(), err)
		}
		all = append(all, found...)
	}

	report := ExportMarkdown(all)

	if err := o.Memory.PersistSummary(ctx, summaryKey, redactedSummary(all)); err != nil {
		return "", nil, err
	}

	return report, all, nil
}

// redactedSummary produces a short, content-free-of-detail summary
// safe to persist outside the scan's own report: counts only, never
// finding descriptions or locations (which may themselves contain
// secrets the scan discovered).
func redactedSummary(all []Finding) string {
	counts := CountBySeverity(all)
	return fmt.Sprintf("scan: %d findings (critical=%d high=%d medium=%d low=%d info=%d)",
		counts.Total, counts.Critical, counts.High, counts.Medium, counts.Low, counts.Info)
}

// Tool adapts Orchestrator to internal/toolregistry.Tool so the agent
// control loop can dispatch a scan like any other tool call.
type Tool struct {
	Orchestrator *Orchestrator
}

// NewTool wraps orchestrator as a dispatchable tool.
func NewTool(orchestrator *Orchestrator) *Tool {
	return &Tool{Orchestrator: orchestrator}
}

func (t *Tool) Name() string { return "security_scan" }

func (t *Tool) Description() string {
	return "Scan source files under a path with registered security scanners and return a combined markdown findings report."
}

func (t *Tool) ParametersSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Root path to scan."},
			"summary_key": {"type": "string", "description": "Key under which to persist the redacted scan summary."}
		},
		"required": ["path"]
	}`)
}

func (t *Tool) RiskLevel() models.RiskLevel { return models.RiskReadOnly }

func (t *Tool) Timeout() time.Duration { return 0 }

type scanArgs struct {
	Path       string `json:"path"`
	SummaryKey string `json:"summary_key"`
}

func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (models.ToolOutput, error) {
	var a scanArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return models.ToolOutput{}, err
	}
	if a.Path == "" {
		a.Path = "."
	}
	if a.SummaryKey == "" {
		a.SummaryKey = "security_scan:" + a.Path
	}

	report, _, err := t.Orchestrator.Run(ctx, a.Path, a.SummaryKey)
	if err != nil {
		return models.ToolOutput{}, err
	}
	return models.ToolOutput{Text: report}, nil
}
