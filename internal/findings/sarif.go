package findings

import "encoding/json"

// sarifLevel maps a Finding's Severity to SARIF's level vocabulary:
// {Critical,High}->error, Medium->warning, Low->note, Info->none.
func sarifLevel(s Severity) string {
	switch s {
	case SeverityCritical, SeverityHigh:
		return "error"
	case SeverityMedium:
		return "warning"
	case SeverityLow:
		return "note"
	default:
		return "none"
	}
}

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name string `json:"name"`
}

type sarifResult struct {
	RuleID    string           `json:"ruleId,omitempty"`
	Level     string           `json:"level"`
	Message   sarifMessage     `json:"message"`
	Locations []sarifResultLoc `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResultLoc struct {
	PhysicalLocation sarifPhysicalLoc `json:"physicalLocation"`
}

type sarifPhysicalLoc struct {
	ArtifactLocation sarifArtifactLoc `json:"artifactLocation"`
	Region           *sarifRegion     `json:"region,omitempty"`
}

type sarifArtifactLoc struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine,omitempty"`
}

// ExportSARIF renders findings as a SARIF 2.1.0 log, one run under a
// single synthetic "rustant-findings" tool driver.
func ExportSARIF(findingsList []Finding) string {
	results := make([]sarifResult, 0, len(findingsList))
	for _, f := range SortBySeverity(findingsList) {
		res := sarifResult{
			RuleID:  f.Provenance.RuleID,
			Level:   sarifLevel(f.Severity),
			Message: sarifMessage{Text: f.Description},
		}
		if f.Location != nil {
			res.Locations = []sarifResultLoc{{
				PhysicalLocation: sarifPhysicalLoc{
					ArtifactLocation: sarifArtifactLoc{URI: f.Location.Path},
					Region:           sarifRegionFor(f.Location),
				},
			}}
		}
		results = append(results, res)
	}

	log := sarifLog{
		Version: "2.1.0",
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "rustant-findings"}},
			Results: results,
		}},
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func sarifRegionFor(loc *Location) *sarifRegion {
	if loc.StartLine == 0 {
		return nil
	}
	endLine := loc.EndLine
	if endLine == 0 {
		endLine = loc.StartLine
	}
	return &sarifRegion{StartLine: loc.StartLine, EndLine: endLine}
}
