package models

import "time"

// AI verification states. TrustScore is meaningful only when the state
// is COMPLETED; UNAVAILABLE means the scorer could not be reached at all,
// FAILED means the scorer ran and errored on this image.
const (
	AiStatusPending     = "PENDING"
	AiStatusCompleted   = "COMPLETED"
	AiStatusFailed      = "FAILED"
	AiStatusUnavailable = "UNAVAILABLE"
)

// Priority tiers derived from trust score and base severity.
const (
	PriorityUnknown  = "UNKNOWN"
	PriorityLow      = "LOW"
	PriorityMedium   = "MEDIUM"
	PriorityHigh     = "HIGH"
	PriorityCritical = "CRITICAL"
)

// Authority workflow states, independent of the AI verification axis.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
)

// Report represents a citizen report from the reports table
type Report struct {
	Seq          int       `json:"seq"`
	ComplaintID  string    `json:"complaint_id"`
	Timestamp    time.Time `json:"timestamp"`
	IssueType    string    `json:"issue_type"`
	Description  string    `json:"description,omitempty"`
	Pincode      string    `json:"pincode"`
	Address      string    `json:"address"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	AiStatus     string    `json:"ai_status"`
	TrustScore   *int      `json:"trust_score,omitempty"`
	BaseSeverity int       `json:"base_severity"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
}

// ReportDraft carries the citizen-supplied fields of a new report.
type ReportDraft struct {
	IssueType   string
	Description string
	Pincode     string
	Address     string
	Latitude    *float64
	Longitude   *float64
	Image       []byte
}

// ReportFilter is a conjunction over the optional dashboard filters.
// Empty fields are not applied.
type ReportFilter struct {
	Pincode  string
	Status   string
	Priority string
}

// VerificationPatch is the outcome a verification attempt persists.
// TrustScore and Priority are written only for COMPLETED.
type VerificationPatch struct {
	AiStatus   string
	TrustScore *int
	Priority   string
}

// StatusAudit records a single authority status transition.
type StatusAudit struct {
	Seq        int       `json:"seq"`
	ReportSeq  int       `json:"report_seq"`
	PrevStatus string    `json:"prev_status"`
	NewStatus  string    `json:"new_status"`
	Actor      string    `json:"actor"`
	CreatedAt  time.Time `json:"created_at"`
}

// issueBaseSeverity maps each issue type to its intrinsic severity constant.
var issueBaseSeverity = map[string]int{
	"pothole":    70,
	"road_block": 60,
	"garbage":    40,
	"accident":   90,
	"water_leak": 65,
	"fire":       95,
	"other":      30,
}

// BaseSeverityFor returns the intrinsic severity for an issue type.
// The second return is false for unknown issue types.
func BaseSeverityFor(issueType string) (int, bool) {
	sev, ok := issueBaseSeverity[issueType]
	return sev, ok
}

// IsValidIssueType reports whether issueType is one of the supported kinds.
func IsValidIssueType(issueType string) bool {
	_, ok := issueBaseSeverity[issueType]
	return ok
}

// IsValidStatus reports whether status is one of the three authority states.
func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// IsValidPriority reports whether priority is a known tier.
func IsValidPriority(priority string) bool {
	switch priority {
	case PriorityUnknown, PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
