package scorer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls a trust-scoring HTTP service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new scorer client. An empty baseURL produces a client
// whose Score always reports ErrUnavailable; the service keeps running
// without a scorer and reports resolve to UNAVAILABLE until one is
// configured.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type scoreRequest struct {
	Image    string    `json:"image"`
	Metadata *Metadata `json:"metadata"`
}

type scoreResponse struct {
	TrustScore int    `json:"trust_score"`
	Message    string `json:"message,omitempty"`
}

// Score sends the image and metadata to the scoring service and returns the
// trust score. Transport failures map to ErrUnavailable; a timeout or any
// answer the service gives that is not a valid score is a scorer failure.
func (c *Client) Score(ctx context.Context, image []byte, meta *Metadata) (int, error) {
	if c.baseURL == "" {
		return 0, fmt.Errorf("scorer URL not configured: %w", ErrUnavailable)
	}

	requestBody, err := json.Marshal(scoreRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		Metadata: meta,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal score request: %w", err)
	}

	url := fmt.Sprintf("%s/api/score", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// The scorer was reachable but did not answer in time; treated
			// as a failed attempt, not as an unavailable collaborator.
			return 0, fmt.Errorf("scorer timed out: %w", err)
		}
		return 0, fmt.Errorf("failed to reach scorer: %w (%v)", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read scorer response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("scorer returned status %d: %s", resp.StatusCode, string(body))
	}

	var scoreResp scoreResponse
	if err := json.Unmarshal(body, &scoreResp); err != nil {
		return 0, fmt.Errorf("failed to parse scorer response: %w", err)
	}

	if scoreResp.TrustScore < 0 || scoreResp.TrustScore > 100 {
		return 0, fmt.Errorf("scorer returned out-of-range trust score %d", scoreResp.TrustScore)
	}

	return scoreResp.TrustScore, nil
}
