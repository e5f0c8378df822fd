package findings

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func sampleFindings() []Finding {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	return []Finding{
		{
			ID: "f-2", Title: "Hardcoded secret", Severity: SeverityLow, Category: "secrets",
			Status: StatusResolved, Provenance: Provenance{Scanner: "secrets", RuleID: "SEC001"},
			Location: &Location{Path: "app/config.go", StartLine: 10}, ContentHash: "h2", CreatedAt: now,
		},
		{
			ID: "f-1", Title: "SQL injection & <script>\"'", Severity: SeverityCritical, Category: "sast",
			Status: StatusOpen, Provenance: Provenance{Scanner: "sast", RuleID: "SAST001"},
			Description: "Unescaped input in query <b>&amp;</b>", Remediation: "Use parameterized queries",
			Location: &Location{Path: "app/db.go", StartLine: 5, EndLine: 8}, ContentHash: "h1", CreatedAt: now,
		},
		{
			ID: "f-3", Title: "Outdated dependency", Severity: SeverityMedium, Category: "sca",
			Status: StatusFalsePositive, Provenance: Provenance{Scanner: "sca"}, ContentHash: "h3", CreatedAt: now,
		},
	}
}

func TestCountBySeverityMatchesTotal(t *testing.T) {
	counts := CountBySeverity(sampleFindings())
	if counts.Total != 3 || counts.Critical != 1 || counts.Low != 1 || counts.Medium != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestSortBySeverityOrdersMostSevereFirst(t *testing.T) {
	sorted := SortBySeverity(sampleFindings())
	if sorted[0].Severity != SeverityCritical || sorted[1].Severity != SeverityMedium || sorted[2].Severity != SeverityLow {
		t.Fatalf("expected critical, medium, low order, got %v, %v, %v", sorted[0].Severity, sorted[1].Severity, sorted[2].Severity)
	}
}

func TestExportMarkdownIncludesSeverityAndTotals(t *testing.T) {
	out := ExportMarkdown(sampleFindings())
	if !strings.Contains(out, "Total: 3") {
		t.Fatalf("expected total in markdown report, got %q", out)
	}
	if !strings.Contains(out, "[CRITICAL]") {
		t.Fatalf("expected critical section, got %q", out)
	}
}

func TestExportHTMLEscapesSpecialCharacters(t *testing.T) {
	out := ExportHTML(sampleFindings())
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected <script> to be escaped, got %q", out)
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Fatalf("expected escaped script tag, got %q", out)
	}
	if !strings.Contains(out, "&#39;") {
		t.Fatalf("expected single quote escaped, got %q", out)
	}
}

func TestExportSARIFMapsSeverityToLevel(t *testing.T) {
	out := ExportSARIF(sampleFindings())

	var doc struct {
		Runs []struct {
			Results []struct {
				Level string `json:"level"`
			} `json:"results"`
		} `json:"runs"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("unmarshal SARIF: %v", err)
	}
	if len(doc.Runs) != 1 || len(doc.Runs[0].Results) != 3 {
		t.Fatalf("expected 1 run with 3 results, got %+v", doc)
	}
	levels := map[string]bool{}
	for _, r := range doc.Runs[0].Results {
		levels[r.Level] = true
	}
	if !levels["error"] || !levels["warning"] || !levels["note"] {
		t.Fatalf("expected error/warning/note levels present, got %+v", levels)
	}
}

func TestExportOCSFMapsStatusAndClass(t *testing.T) {
	out := ExportOCSF(sampleFindings())

	var doc struct {
		Findings []struct {
			ClassUID    int `json:"class_uid"`
			CategoryUID int `json:"category_uid"`
			ActivityID  int `json:"activity_id"`
			StatusID    int `json:"status_id"`
		} `json:"findings"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("unmarshal OCSF: %v", err)
	}
	for _, f := range doc.Findings {
		if f.ClassUID != 2001 || f.CategoryUID != 2 {
			t.Fatalf("expected class_uid=2001 category_uid=2, got %+v", f)
		}
	}
	// f-1 is Open: activity_id=1, status_id=1.
	if doc.Findings[0].ActivityID != 1 || doc.Findings[0].StatusID != 1 {
		t.Fatalf("expected open finding activity_id=1 status_id=1, got %+v", doc.Findings[0])
	}
}

func TestExportVEXMapsStatus(t *testing.T) {
	out := ExportVEX(sampleFindings())

	var doc struct {
		Statements []struct {
			Status string `json:"status"`
		} `json:"statements"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("unmarshal VEX: %v", err)
	}
	if len(doc.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(doc.Statements))
	}
}
