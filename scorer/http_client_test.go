package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreSuccess(t *testing.T) {
	var gotReq scoreRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/score", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(scoreResponse{TrustScore: 72})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	score, err := client.Score(context.Background(), []byte{0xff, 0xd8}, &Metadata{
		Seq:       1,
		IssueType: "pothole",
		Pincode:   "400001",
	})
	require.NoError(t, err)
	assert.Equal(t, 72, score)
	assert.NotEmpty(t, gotReq.Image, "image must be sent base64-encoded")
	assert.Equal(t, "pothole", gotReq.Metadata.IssueType)
}

func TestScoreNotConfigured(t *testing.T) {
	client := NewClient("", 5*time.Second)
	_, err := client.Score(context.Background(), []byte{0xff}, &Metadata{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestScoreUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(server.URL, time.Second)
	_, err := client.Score(context.Background(), []byte{0xff}, &Metadata{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

// A scorer that answers with an error is a failed attempt, not an
// unavailable collaborator.
func TestScoreServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "cannot analyze this image", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Score(context.Background(), []byte{0xff}, &Metadata{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "422")
}

func TestScoreTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Score(ctx, []byte{0xff}, &Metadata{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable), "timeout is a failure, not unavailability")
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestScoreOutOfRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scoreResponse{TrustScore: 140})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	_, err := client.Score(context.Background(), []byte{0xff}, &Metadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out-of-range")
}
