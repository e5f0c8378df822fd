package findings

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type stubScanner struct {
	name     string
	findings []Finding
	seen     []string
}

func (s *stubScanner) Name() string { return s.name }

func (s *stubScanner) Scan(ctx context.Context, files []string) ([]Finding, error) {
	s.seen = files
	return s.findings, nil
}

type recordingMemory struct {
	key     string
	summary string
}

func (m *recordingMemory) PersistSummary(ctx context.Context, key string, summary string) error {
	m.key = key
	m.summary = summary
	return nil
}

func TestOrchestratorAggregatesAndPersistsSummary(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "small.go"), []byte("package x"), 0o600); err != nil {
		t.Fatalf("write small file: %v", err)
	}
	big := make([]byte, maxScanFileSize+1)
	if err := os.WriteFile(filepath.Join(dir, "huge.go"), big, 0o600); err != nil {
		t.Fatalf("write huge file: %v", err)
	}

	sast := &stubScanner{name: "sast", findings: []Finding{
		{ID: "f-1", Title: "issue", Severity: SeverityHigh, Status: StatusOpen},
	}}
	secrets := &stubScanner{name: "secrets", findings: []Finding{
		{ID: "f-2", Title: "leak", Severity: SeverityCritical, Status: StatusOpen},
	}}
	memory := &recordingMemory{}

	orch := NewOrchestrator([]Scanner{sast, secrets}, memory)
	report, found, err := orch.Run(context.Background(), dir, "scan:test")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 aggregated findings, got %d", len(found))
	}
	if !strings.Contains(report, "Total: 2") {
		t.Fatalf("expected combined markdown report, got %q", report)
	}
	if memory.key != "scan:test" {
		t.Fatalf("expected summary persisted under scan:test, got %q", memory.key)
	}
	if strings.Contains(memory.summary, "issue") || strings.Contains(memory.summary, "leak") {
		t.Fatalf("expected redacted summary without finding details, got %q", memory.summary)
	}

	for _, scanner := range []*stubScanner{sast, secrets} {
		for _, f := range scanner.seen {
			if strings.HasSuffix(f, "huge.go") {
				t.Fatalf("expected huge.go (> 1 MiB) to be skipped, saw %v", scanner.seen)
			}
		}
	}
}

func TestOrchestratorNopMemoryBridgeByDefault(t *testing.T) {
	dir := t.TempDir()
	orch := NewOrchestrator(nil, nil)
	if _, _, err := orch.Run(context.Background(), dir, "key"); err != nil {
		t.Fatalf("run with nil scanners/memory: %v", err)
	}
}
