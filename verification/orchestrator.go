// Package verification drives a report through the AI verification state
// machine: PENDING/FAILED/UNAVAILABLE/COMPLETED -> in flight -> COMPLETED,
// FAILED or UNAVAILABLE. At most one attempt runs per report at any time.
package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civiceye/database"
	imageutil "civiceye/image"
	"civiceye/metrics"
	"civiceye/models"
	"civiceye/priority"
	"civiceye/scorer"

	"github.com/apex/log"
)

// ErrAlreadyInFlight means a verification attempt is already running for
// this report. Callers must poll or wait; requests are never queued.
var ErrAlreadyInFlight = errors.New("verification already in flight")

// Store is the slice of the report record store the orchestrator needs.
// *database.Database satisfies it.
type Store interface {
	GetReport(ctx context.Context, seq int) (*models.Report, error)
	GetReportImage(ctx context.Context, seq int) ([]byte, error)
	UpdateVerification(ctx context.Context, seq int, patch *models.VerificationPatch, expectedAiStatus string) (*models.Report, error)
}

// Publisher publishes verification events. A nil Publisher disables
// publishing.
type Publisher interface {
	PublishWithRoutingKey(routingKey string, message interface{}) error
}

// Result is the outcome of a verification attempt. Scorer failures are not
// errors at this level: they are persisted state plus a message.
type Result struct {
	Report  *models.Report
	Message string
}

// Orchestrator runs verification attempts against the trust scorer.
type Orchestrator struct {
	store              Store
	scorer             scorer.Scorer
	inflight           *inflightRegistry
	scorerTimeout      time.Duration
	publisher          Publisher
	verifiedRoutingKey string
}

// NewOrchestrator creates a verification orchestrator. publisher may be nil.
func NewOrchestrator(store Store, sc scorer.Scorer, scorerTimeout time.Duration, publisher Publisher, verifiedRoutingKey string) *Orchestrator {
	return &Orchestrator{
		store:              store,
		scorer:             sc,
		inflight:           newInflightRegistry(),
		scorerTimeout:      scorerTimeout,
		publisher:          publisher,
		verifiedRoutingKey: verifiedRoutingKey,
	}
}

// Verify runs a single verification attempt for the report. It returns
// ErrAlreadyInFlight immediately if one is already running,
// database.ErrNotFound if the report is unknown, and database.ErrConflict
// if the persisted state changed under us. The scorer gets exactly one
// attempt; its failure or unreachability is persisted as FAILED or
// UNAVAILABLE and reported in the Result message.
func (o *Orchestrator) Verify(ctx context.Context, seq int) (*Result, error) {
	if !o.inflight.tryAcquire(seq) {
		return nil, ErrAlreadyInFlight
	}
	// The lock must be released on every exit path, including persistence
	// failures, or the report would be stuck unverifiable.
	defer o.inflight.release(seq)

	metrics.VerificationsInFlight.Inc()
	defer metrics.VerificationsInFlight.Dec()

	start := time.Now()

	report, err := o.store.GetReport(ctx, seq)
	if err != nil {
		return nil, err
	}
	expectedStatus := report.AiStatus

	image, err := o.store.GetReportImage(ctx, seq)
	if err != nil {
		return nil, err
	}

	scoreCtx := ctx
	if o.scorerTimeout > 0 {
		var cancel context.CancelFunc
		scoreCtx, cancel = context.WithTimeout(ctx, o.scorerTimeout)
		defer cancel()
	}

	imageMeta := imageutil.ExtractMetadata(image)
	trustScore, scoreErr := o.scorer.Score(scoreCtx, image, &scorer.Metadata{
		Seq:         report.Seq,
		IssueType:   report.IssueType,
		Pincode:     report.Pincode,
		Latitude:    report.Latitude,
		Longitude:   report.Longitude,
		Width:       imageMeta.Width,
		Height:      imageMeta.Height,
		CapturedAt:  imageMeta.CapturedAt,
		HasExifGPS:  imageMeta.HasGPS,
		Orientation: imageMeta.Orientation,
	})

	var (
		patch   models.VerificationPatch
		message string
		outcome string
	)
	switch {
	case scoreErr == nil:
		tier := priority.Classify(trustScore, report.BaseSeverity)
		patch = models.VerificationPatch{
			AiStatus:   models.AiStatusCompleted,
			TrustScore: &trustScore,
			Priority:   tier,
		}
		message = fmt.Sprintf("AI verification completed: trust score %d, priority %s", trustScore, tier)
		outcome = "completed"
	case errors.Is(scoreErr, scorer.ErrUnavailable):
		patch = models.VerificationPatch{
			AiStatus: models.AiStatusUnavailable,
			Priority: models.PriorityUnknown,
		}
		message = "AI verification unavailable, try again later"
		outcome = "unavailable"
		log.Warnf("Trust scorer unavailable for report %d: %v", seq, scoreErr)
	default:
		patch = models.VerificationPatch{
			AiStatus: models.AiStatusFailed,
			Priority: models.PriorityUnknown,
		}
		message = fmt.Sprintf("AI verification failed: %v", scoreErr)
		outcome = "failed"
		log.Errorf("Trust scorer failed for report %d: %v", seq, scoreErr)
	}

	updated, err := o.store.UpdateVerification(ctx, seq, &patch, expectedStatus)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to persist verification outcome: %w", err)
	}

	metrics.VerificationsTotal.WithLabelValues(outcome).Inc()
	metrics.VerificationDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	o.publishVerified(updated)

	log.Infof("Verification for report %d finished: ai_status=%s", seq, updated.AiStatus)

	return &Result{Report: updated, Message: message}, nil
}

// publishVerified publishes the verification outcome for downstream
// consumers. Publishing is best-effort.
func (o *Orchestrator) publishVerified(report *models.Report) {
	if o.publisher == nil {
		return
	}
	event := models.EventFromReport(report)
	if err := o.publisher.PublishWithRoutingKey(o.verifiedRoutingKey, event); err != nil {
		log.Errorf("Failed to publish verified event for report %d: %v", report.Seq, err)
	}
}

// ensure the concrete store satisfies the interface
var _ Store = (*database.Database)(nil)
