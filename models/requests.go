package models

import "time"

// SubmitReportResponse is returned to the citizen after a successful submission.
type SubmitReportResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Seq         int    `json:"seq"`
	ComplaintID string `json:"complaint_id"`
}

// UpdateStatusRequest is the authority request to move a report through
// its workflow.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// VerifyReportResponse is returned from the verify endpoint. Message carries
// the human-readable outcome; scorer failures are reported here, never as
// HTTP errors.
type VerifyReportResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Report  *Report `json:"report,omitempty"`
}

// ReportListResponse wraps the dashboard list.
type ReportListResponse struct {
	Success bool     `json:"success"`
	Reports []Report `json:"reports"`
	Count   int      `json:"count"`
}

// ReportEvent is the message published to RabbitMQ when a report is
// created or verified. The image blob is deliberately excluded.
type ReportEvent struct {
	Seq          int       `json:"seq"`
	ComplaintID  string    `json:"complaint_id"`
	Timestamp    time.Time `json:"timestamp"`
	IssueType    string    `json:"issue_type"`
	Pincode      string    `json:"pincode"`
	AiStatus     string    `json:"ai_status"`
	TrustScore   *int      `json:"trust_score,omitempty"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
	BaseSeverity int       `json:"base_severity"`
}

// EventFromReport builds the published event for a report.
func EventFromReport(r *Report) ReportEvent {
	return ReportEvent{
		Seq:          r.Seq,
		ComplaintID:  r.ComplaintID,
		Timestamp:    r.Timestamp,
		IssueType:    r.IssueType,
		Pincode:      r.Pincode,
		AiStatus:     r.AiStatus,
		TrustScore:   r.TrustScore,
		Priority:     r.Priority,
		Status:       r.Status,
		BaseSeverity: r.BaseSeverity,
	}
}
