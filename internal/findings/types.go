// Package findings implements the spec's security-finding data model
// and report exporters (C12, §3.9/§4.12): a Finding value type distinct
// from internal/security's filesystem-permission findings, and pure
// [Finding] -> string transforms for Markdown, HTML, SARIF, OCSF, and
// VEX output.
package findings

import "time"

// Severity ranks a Finding's risk, ordered Critical (highest) to Info
// (lowest).
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityOrder ranks severities for stable, most-severe-first sort.
var severityOrder = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Status is a Finding's disposition.
type Status string

const (
	StatusOpen          Status = "open"
	StatusResolved      Status = "resolved"
	StatusSuppressed    Status = "suppressed"
	StatusFalsePositive Status = "false_positive"
)

// Provenance records which scanner produced a Finding and how
// confident it is.
type Provenance struct {
	Scanner    string  `json:"scanner"`
	RuleID     string  `json:"rule_id,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Location pinpoints where a Finding applies, when applicable.
type Location struct {
	Path      string `json:"path,omitempty"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

// Finding is an append-only value object describing one security
// observation. It is distinct from internal/security.Finding (which
// models filesystem-permission audit results only).
type Finding struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity"`
	Category    string     `json:"category"`
	Provenance  Provenance `json:"provenance"`
	Status      Status     `json:"status"`
	Location    *Location  `json:"location,omitempty"`
	References  []string   `json:"references,omitempty"`
	Remediation string     `json:"remediation,omitempty"`
	ContentHash string     `json:"content_hash"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SeverityCounts tallies findings per severity plus a total, used by
// every exporter's summary section.
type SeverityCounts struct {
	Critical int
	High     int
	Medium   int
	Low      int
	Info     int
	Total    int
}

// CountBySeverity tallies findings, preserving the invariant that
// Total equals the sum of the per-severity counts.
func CountBySeverity(findings []Finding) SeverityCounts {
	var c SeverityCounts
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			c.Critical++
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		case SeverityLow:
			c.Low++
		case SeverityInfo:
			c.Info++
		}
	}
	c.Total = c.Critical + c.High + c.Medium + c.Low + c.Info
	return c
}

// SortBySeverity returns findings ordered most-severe-first, stable on
// ties.
func SortBySeverity(findings []Finding) []Finding {
	out := make([]Finding, len(findings))
	copy(out, findings)

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && severityOrder[out[j].Severity] < severityOrder[out[j-1].Severity]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
