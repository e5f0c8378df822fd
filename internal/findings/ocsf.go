package findings

import "encoding/json"

const (
	ocsfClassUID    = 2001
	ocsfCategoryUID = 2
)

// ocsfStatusID maps Status to OCSF's status_id vocabulary:
// Open->1, FalsePositive->2, Suppressed->3, Resolved->4.
func ocsfStatusID(s Status) int {
	switch s {
	case StatusOpen:
		return 1
	case StatusFalsePositive:
		return 2
	case StatusSuppressed:
		return 3
	case StatusResolved:
		return 4
	default:
		return 1
	}
}

// ocsfActivityID is 1 for Open findings, 2 otherwise.
func ocsfActivityID(s Status) int {
	if s == StatusOpen {
		return 1
	}
	return 2
}

type ocsfFinding struct {
	ClassUID    int    `json:"class_uid"`
	CategoryUID int    `json:"category_uid"`
	ActivityID  int    `json:"activity_id"`
	StatusID    int    `json:"status_id"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	Title       string `json:"title"`
	FindingUID  string `json:"finding_uid"`
	Time        string `json:"time,omitempty"`
}

type ocsfDocument struct {
	Findings []ocsfFinding `json:"findings"`
}

// ExportOCSF renders findings as an OCSF Detection Finding document
// (class_uid=2001, category_uid=2) per finding, per §4.12's mapping.
func ExportOCSF(findingsList []Finding) string {
	out := make([]ocsfFinding, 0, len(findingsList))
	for _, f := range SortBySeverity(findingsList) {
		entry := ocsfFinding{
			ClassUID:    ocsfClassUID,
			CategoryUID: ocsfCategoryUID,
			ActivityID:  ocsfActivityID(f.Status),
			StatusID:    ocsfStatusID(f.Status),
			Severity:    string(f.Severity),
			Message:     f.Description,
			Title:       f.Title,
			FindingUID:  f.ID,
		}
		if !f.CreatedAt.IsZero() {
			entry.Time = f.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")
		}
		out = append(out, entry)
	}

	data, err := json.MarshalIndent(ocsfDocument{Findings: out}, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
