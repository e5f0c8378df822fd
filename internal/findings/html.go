package findings

import (
	"fmt"
	"html"
	"strings"
)

// ExportHTML renders findings as a standalone HTML report. Every
// interpolated string is escaped (& < > " ') via the standard
// library's html.EscapeString.
func ExportHTML(findingsList []Finding) string {
	sorted := SortBySeverity(findingsList)
	counts := CountBySeverity(sorted)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Security Findings Report</title></head><body>\n")
	b.WriteString("<h1>Security Findings Report</h1>\n")
	fmt.Fprintf(&b, "<p>Total: %d (Critical: %d, High: %d, Medium: %d, Low: %d, Info: %d)</p>\n",
		counts.Total, counts.Critical, counts.High, counts.Medium, counts.Low, counts.Info)

	b.WriteString("<ul>\n")
	for _, f := range sorted {
		fmt.Fprintf(&b, "<li><strong>[%s]</strong> %s", html.EscapeString(strings.ToUpper(string(f.Severity))), html.EscapeString(f.Title))
		fmt.Fprintf(&b, " &mdash; %s", html.EscapeString(f.Category))
		if f.Location != nil {
			fmt.Fprintf(&b, " (%s)", html.EscapeString(formatLocation(f.Location)))
		}
		if f.Description != "" {
			fmt.Fprintf(&b, "<br><span>%s</span>", html.EscapeString(f.Description))
		}
		if f.Remediation != "" {
			fmt.Fprintf(&b, "<br><em>Remediation: %s</em>", html.EscapeString(f.Remediation))
		}
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul>\n</body></html>\n")
	return b.String()
}
