package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"civiceye/models"

	"github.com/apex/log"
)

const reportColumns = `seq, complaint_id, ts, issue_type, description, pincode, address,
		latitude, longitude, ai_status, trust_score, base_severity, priority, status`

// CreateReport inserts a new report and assigns its seq and complaint ID.
// New reports always start as ai_status=PENDING, priority=UNKNOWN,
// status=Pending.
func (d *Database) CreateReport(ctx context.Context, draft *models.ReportDraft) (*models.Report, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO reports (issue_type, description, pincode, address, latitude, longitude, image, base_severity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.IssueType, draft.Description, draft.Pincode, draft.Address,
		nullFloat(draft.Latitude), nullFloat(draft.Longitude), draft.Image, mustBaseSeverity(draft.IssueType))
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get report seq: %w", err)
	}

	// Human-presentable tracking code, e.g. CIV-1234567890-000042.
	complaintID := fmt.Sprintf("CIV-%d-%06d", time.Now().Unix(), seq)
	if _, err := tx.ExecContext(ctx, "UPDATE reports SET complaint_id = ? WHERE seq = ?", complaintID, seq); err != nil {
		return nil, fmt.Errorf("failed to assign complaint ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit report: %w", err)
	}

	log.Infof("Created report %d (%s), issue_type=%s pincode=%s", seq, complaintID, draft.IssueType, draft.Pincode)

	return d.GetReport(ctx, int(seq))
}

// GetReport fetches a report by seq. The image blob is not included; use
// GetReportImage.
func (d *Database) GetReport(ctx context.Context, seq int) (*models.Report, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE seq = ?", seq)
	return scanReport(row)
}

// GetReportByComplaintID fetches a report by its tracking code.
func (d *Database) GetReportByComplaintID(ctx context.Context, complaintID string) (*models.Report, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE complaint_id = ?", complaintID)
	return scanReport(row)
}

// GetReportImage fetches the stored evidence image for a report.
func (d *Database) GetReportImage(ctx context.Context, seq int) ([]byte, error) {
	var image []byte
	err := d.db.QueryRowContext(ctx, "SELECT image FROM reports WHERE seq = ?", seq).Scan(&image)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report image: %w", err)
	}
	return image, nil
}

// UpdateVerification persists a verification outcome, guarded by the
// report's expected current ai_status. All three verification columns are
// written together so that trust_score and priority can never outlive a
// non-COMPLETED state. Returns ErrConflict if another writer got there
// first.
func (d *Database) UpdateVerification(ctx context.Context, seq int, patch *models.VerificationPatch, expectedAiStatus string) (*models.Report, error) {
	result, err := d.db.ExecContext(ctx, `
		UPDATE reports SET ai_status = ?, trust_score = ?, priority = ?
		WHERE seq = ? AND ai_status = ?`,
		patch.AiStatus, nullInt(patch.TrustScore), patch.Priority, seq, expectedAiStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to update verification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		err := d.db.QueryRowContext(ctx, "SELECT 1 FROM reports WHERE seq = ?", seq).Scan(&exists)
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check report existence: %w", err)
		}
		return nil, ErrConflict
	}

	return d.GetReport(ctx, seq)
}

// UpdateStatus applies an authority status change unconditionally and
// records the transition in the audit trail. Reopening a Resolved report is
// permitted but logged as an anomaly.
func (d *Database) UpdateStatus(ctx context.Context, seq int, newStatus, actor string) (*models.Report, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var prevStatus string
	err = tx.QueryRowContext(ctx, "SELECT status FROM reports WHERE seq = ? FOR UPDATE", seq).Scan(&prevStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read current status: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE reports SET status = ? WHERE seq = ?", newStatus, seq); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO status_audit (report_seq, prev_status, new_status, actor)
		VALUES (?, ?, ?, ?)`, seq, prevStatus, newStatus, actor); err != nil {
		return nil, fmt.Errorf("failed to record status audit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	if prevStatus == models.StatusResolved && newStatus != models.StatusResolved {
		log.Warnf("Report %d reopened from Resolved to %s by %s", seq, newStatus, actor)
	} else {
		log.Infof("Report %d status %s -> %s by %s", seq, prevStatus, newStatus, actor)
	}

	return d.GetReport(ctx, seq)
}

// GetStatusAudit returns the audit trail for a report, oldest first.
func (d *Database) GetStatusAudit(ctx context.Context, reportSeq int) ([]models.StatusAudit, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT seq, report_seq, prev_status, new_status, actor, created_at
		FROM status_audit WHERE report_seq = ? ORDER BY seq`, reportSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to query status audit: %w", err)
	}
	defer rows.Close()

	var audits []models.StatusAudit
	for rows.Next() {
		var a models.StatusAudit
		if err := rows.Scan(&a.Seq, &a.ReportSeq, &a.PrevStatus, &a.NewStatus, &a.Actor, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status audit: %w", err)
		}
		audits = append(audits, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status audit: %w", err)
	}

	return audits, nil
}

// ListReports returns reports matching all supplied filter fields. Empty
// filter fields are ignored; an empty filter returns everything. No ordering
// is guaranteed, callers sort at presentation time.
func (d *Database) ListReports(ctx context.Context, filter *models.ReportFilter) ([]models.Report, error) {
	query := "SELECT " + reportColumns + " FROM reports WHERE 1=1"
	var args []interface{}

	if filter.Pincode != "" {
		query += " AND pincode = ?"
		args = append(args, filter.Pincode)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		query += " AND priority = ?"
		args = append(args, filter.Priority)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		report, err := scanReportRows(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}

// DeleteReport removes a report and its stored image. Audit rows cascade.
func (d *Database) DeleteReport(ctx context.Context, seq int) error {
	result, err := d.db.ExecContext(ctx, "DELETE FROM reports WHERE seq = ?", seq)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	log.Infof("Deleted report %d", seq)
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	report, err := scanReportRows(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return report, err
}

func scanReportRows(row rowScanner) (*models.Report, error) {
	var (
		r           models.Report
		complaintID sql.NullString
		description sql.NullString
		latitude    sql.NullFloat64
		longitude   sql.NullFloat64
		trustScore  sql.NullInt64
	)

	err := row.Scan(&r.Seq, &complaintID, &r.Timestamp, &r.IssueType, &description,
		&r.Pincode, &r.Address, &latitude, &longitude, &r.AiStatus, &trustScore,
		&r.BaseSeverity, &r.Priority, &r.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}

	r.ComplaintID = complaintID.String
	r.Description = description.String
	if latitude.Valid {
		r.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		r.Longitude = &longitude.Float64
	}
	if trustScore.Valid {
		score := int(trustScore.Int64)
		r.TrustScore = &score
	}

	return &r, nil
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func mustBaseSeverity(issueType string) int {
	sev, ok := models.BaseSeverityFor(issueType)
	if !ok {
		// Callers validate issue types before insert; fall back to the
		// lowest severity rather than failing the write.
		return 30
	}
	return sev
}
