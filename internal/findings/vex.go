package findings

import "encoding/json"

// vexStatus maps a Finding's Status to the OpenVEX vocabulary:
// Open/Resolved map to the two statuses VEX actually distinguishes
// ("affected"/"fixed"); Suppressed and FalsePositive both read as
// "not_affected" since neither represents a real, unaddressed exposure.
func vexStatus(s Status) string {
	switch s {
	case StatusOpen:
		return "affected"
	case StatusResolved:
		return "fixed"
	case StatusSuppressed, StatusFalsePositive:
		return "not_affected"
	default:
		return "under_investigation"
	}
}

type vexStatement struct {
	VulnerabilityID string `json:"vulnerability_id"`
	Status          string `json:"status"`
	Severity        string `json:"severity"`
	ProductName     string `json:"product_name,omitempty"`
	Justification   string `json:"justification,omitempty"`
}

type vexDocument struct {
	Context    string         `json:"@context"`
	Statements []vexStatement `json:"statements"`
}

// ExportVEX renders findings as a minimal OpenVEX-shaped document: one
// statement per finding mapping its Status to VEX's
// affected/not_affected/fixed/under_investigation vocabulary.
func ExportVEX(findingsList []Finding) string {
	statements := make([]vexStatement, 0, len(findingsList))
	for _, f := range SortBySeverity(findingsList) {
		statements = append(statements, vexStatement{
			VulnerabilityID: f.ID,
			Status:          vexStatus(f.Status),
			Severity:        string(f.Severity),
			Justification:   f.Remediation,
		})
	}

	doc := vexDocument{
		Context:    "https://openvex.dev/ns/v0.2.0",
		Statements: statements,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
