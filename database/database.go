package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"civiceye/config"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"
)

// Sentinel errors surfaced by store operations.
var (
	// ErrNotFound means the report id or complaint ID is unknown.
	ErrNotFound = errors.New("report not found")
	// ErrConflict means a conditional update lost an optimistic-concurrency
	// race; the caller must re-fetch and retry.
	ErrConflict = errors.New("report was modified concurrently")
)

// Database handles all database operations
type Database struct {
	db *sql.DB
}

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.Config) (*Database, error) {
	db, err := sql.Open("mysql", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Infof("Database connected successfully to %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)

	return &Database{db: db}, nil
}

// buildDSN builds the MySQL connection string. clientFoundRows makes
// RowsAffected report matched rows rather than changed rows; the optimistic
// guard in UpdateVerification depends on that, since a retry may persist
// values identical to what the row already holds.
func buildDSN(cfg *config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true&clientFoundRows=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

// New wraps an existing connection. Used by tests.
func New(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// EnsureReportsTable creates the reports table if it doesn't exist
func (d *Database) EnsureReportsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS reports (
			seq INT NOT NULL AUTO_INCREMENT,
			complaint_id VARCHAR(64),
			ts TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			issue_type ENUM('pothole', 'road_block', 'garbage', 'accident', 'water_leak', 'fire', 'other') NOT NULL,
			description VARCHAR(1024),
			pincode VARCHAR(16) NOT NULL,
			address VARCHAR(512) NOT NULL,
			latitude FLOAT,
			longitude FLOAT,
			image LONGBLOB NOT NULL,
			ai_status ENUM('PENDING', 'COMPLETED', 'FAILED', 'UNAVAILABLE') NOT NULL DEFAULT 'PENDING',
			trust_score INT,
			base_severity INT NOT NULL,
			priority ENUM('UNKNOWN', 'LOW', 'MEDIUM', 'HIGH', 'CRITICAL') NOT NULL DEFAULT 'UNKNOWN',
			status ENUM('Pending', 'In Progress', 'Resolved') NOT NULL DEFAULT 'Pending',
			PRIMARY KEY (seq),
			UNIQUE INDEX complaint_id_unique (complaint_id),
			INDEX pincode_index (pincode),
			INDEX status_index (status),
			INDEX priority_index (priority)
		)
	`

	_, err := d.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	log.Info("Reports table ensured")
	return nil
}

// EnsureStatusAuditTable creates the status_audit table if it doesn't exist
func (d *Database) EnsureStatusAuditTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS status_audit (
			seq INT NOT NULL AUTO_INCREMENT,
			report_seq INT NOT NULL,
			prev_status ENUM('Pending', 'In Progress', 'Resolved') NOT NULL,
			new_status ENUM('Pending', 'In Progress', 'Resolved') NOT NULL,
			actor VARCHAR(256) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (seq),
			INDEX report_seq_index (report_seq),
			FOREIGN KEY (report_seq) REFERENCES reports(seq) ON DELETE CASCADE
		)
	`

	_, err := d.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create status_audit table: %w", err)
	}

	log.Info("Status audit table ensured")
	return nil
}

// EnsureAuthoritiesTable creates the authorities table if it doesn't exist
func (d *Database) EnsureAuthoritiesTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS authorities (
			id INT NOT NULL AUTO_INCREMENT,
			email VARCHAR(256) NOT NULL,
			password_hash VARCHAR(256) NOT NULL,
			name VARCHAR(256) NOT NULL,
			role VARCHAR(64) NOT NULL DEFAULT 'moderator',
			assigned_pincodes VARCHAR(512) NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (id),
			UNIQUE INDEX email_unique (email)
		)
	`

	_, err := d.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create authorities table: %w", err)
	}

	log.Info("Authorities table ensured")
	return nil
}
