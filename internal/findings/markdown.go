package findings

import (
	"fmt"
	"strings"
)

// ExportMarkdown renders findings as a human-readable report: a
// summary table of per-severity counts, then one section per finding
// ordered most-severe-first.
func ExportMarkdown(findingsList []Finding) string {
	sorted := SortBySeverity(findingsList)
	counts := CountBySeverity(sorted)

	var b strings.Builder
	b.WriteString("# Security Findings Report\n\n")
	fmt.Fprintf(&b, "Total: %d (Critical: %d, High: %d, Medium: %d, Low: %d, Info: %d)\n\n",
		counts.Total, counts.Critical, counts.High, counts.Medium, counts.Low, counts.Info)

	if len(sorted) == 0 {
		b.WriteString("No findings.\n")
		return b.String()
	}

	for _, f := range sorted {
		fmt.Fprintf(&b, "## [%s] %s\n\n", strings.ToUpper(string(f.Severity)), f.Title)
		fmt.Fprintf(&b, "- Category: %s\n", f.Category)
		fmt.Fprintf(&b, "- Status: %s\n", f.Status)
		fmt.Fprintf(&b, "- Scanner: %s", f.Provenance.Scanner)
		if f.Provenance.RuleID != "" {
			fmt.Fprintf(&b, " (rule %s)", f.Provenance.RuleID)
		}
		b.WriteString("\n")
		if f.Location != nil {
			fmt.Fprintf(&b, "- Location: %s\n", formatLocation(f.Location))
		}
		if f.Description != "" {
			fmt.Fprintf(&b, "\n%s\n", f.Description)
		}
		if f.Remediation != "" {
			fmt.Fprintf(&b, "\n**Remediation:** %s\n", f.Remediation)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatLocation(loc *Location) string {
	if loc.StartLine == 0 {
		return loc.Path
	}
	if loc.EndLine == 0 || loc.EndLine == loc.StartLine {
		return fmt.Sprintf("%s:%d", loc.Path, loc.StartLine)
	}
	return fmt.Sprintf("%s:%d-%d", loc.Path, loc.StartLine, loc.EndLine)
}
