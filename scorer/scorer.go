// Package scorer defines the contract with the external trust-scoring
// collaborator. The engine never implements the authenticity analysis
// itself; it only consumes a score in [0,100].
package scorer

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable means the scorer collaborator is not configured or could
// not be reached at all. Any other error means the scorer ran and rejected
// or errored on this image.
var ErrUnavailable = errors.New("trust scorer unavailable")

// Metadata carries report context and image signals sent alongside the
// image for scoring.
type Metadata struct {
	Seq         int        `json:"seq"`
	IssueType   string     `json:"issue_type"`
	Pincode     string     `json:"pincode"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	CapturedAt  *time.Time `json:"captured_at,omitempty"`
	HasExifGPS  bool       `json:"has_exif_gps"`
	Orientation int        `json:"orientation,omitempty"`
}

// Scorer scores the authenticity of a report image. A single call makes a
// single attempt; retries are always driven by the caller.
type Scorer interface {
	Score(ctx context.Context, image []byte, meta *Metadata) (int, error)
}
