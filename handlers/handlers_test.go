package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"civiceye/config"
	"civiceye/database"
	"civiceye/models"
	"civiceye/scorer"
	"civiceye/verification"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedScorer struct{ score int }

func (f *fixedScorer) Score(ctx context.Context, image []byte, meta *scorer.Metadata) (int, error) {
	return f.score, nil
}

func setupTest(t *testing.T, trustScore int) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	d := database.New(db)
	cfg := &config.Config{RabbitMQSubmittedRoutingKey: "report.submitted"}
	orch := verification.NewOrchestrator(d, &fixedScorer{score: trustScore}, time.Second, nil, "")
	h := NewHandlers(d, nil, orch, nil, cfg)

	router := gin.New()
	router.POST("/api/reports", h.SubmitReport)
	router.GET("/api/reports/:id", h.GetReport)
	router.GET("/api/reports", h.ListReports)
	router.POST("/api/reports/:id/verify", h.VerifyReport)
	router.PUT("/api/reports/:id/status", h.UpdateStatus)
	router.DELETE("/api/reports/:id", h.DeleteReport)

	return router, mock
}

func reportRow(seq int, aiStatus string, trustScore interface{}, priority, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"seq", "complaint_id", "ts", "issue_type", "description", "pincode", "address",
		"latitude", "longitude", "ai_status", "trust_score", "base_severity", "priority", "status",
	}).AddRow(seq, "CIV-1700000000-000001", time.Now(), "accident", "", "400001",
		"MG Road", nil, nil, aiStatus, trustScore, 90, priority, status)
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func multipartReport(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if withImage {
		part, err := writer.CreateFormFile("image", "evidence.jpg")
		require.NoError(t, err)
		_, err = part.Write(testJPEG(t))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestSubmitReportValidation(t *testing.T) {
	testCases := []struct {
		name      string
		fields    map[string]string
		withImage bool
		wantMsg   string
	}{
		{
			name:      "missing issue type",
			fields:    map[string]string{"pincode": "400001", "address": "MG Road"},
			withImage: true,
			wantMsg:   "issue type",
		},
		{
			name:      "missing pincode",
			fields:    map[string]string{"issue_type": "pothole", "address": "MG Road"},
			withImage: true,
			wantMsg:   "Pincode",
		},
		{
			name:      "missing address",
			fields:    map[string]string{"issue_type": "pothole", "pincode": "400001"},
			withImage: true,
			wantMsg:   "Address",
		},
		{
			name:      "missing image",
			fields:    map[string]string{"issue_type": "pothole", "pincode": "400001", "address": "MG Road"},
			withImage: false,
			wantMsg:   "Image",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := setupTest(t, 50)
			body, contentType := multipartReport(t, tc.fields, tc.withImage)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/reports", body)
			req.Header.Set("Content-Type", contentType)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantMsg)
		})
	}
}

func TestSubmitReportRoundTrip(t *testing.T) {
	router, mock := setupTest(t, 50)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reports").WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("UPDATE reports SET complaint_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT (.+) FROM reports WHERE seq = \\?").
		WithArgs(5).
		WillReturnRows(reportRow(5, models.AiStatusPending, nil, models.PriorityUnknown, models.StatusPending))

	body, contentType := multipartReport(t, map[string]string{
		"issue_type": "accident",
		"pincode":    "400001",
		"address":    "MG Road",
	}, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/reports", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.SubmitReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 5, resp.Seq)
	assert.True(t, strings.HasPrefix(resp.ComplaintID, "CIV-"))

	// Round-trip: the new report is PENDING / UNKNOWN / Pending.
	mock.ExpectQuery("SELECT (.+) FROM reports WHERE seq = \\?").
		WithArgs(5).
		WillReturnRows(reportRow(5, models.AiStatusPending, nil, models.PriorityUnknown, models.StatusPending))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/reports/5", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, models.AiStatusPending, report.AiStatus)
	assert.Equal(t, models.PriorityUnknown, report.Priority)
	assert.Equal(t, models.StatusPending, report.Status)
	assert.Nil(t, report.TrustScore)
}

func TestGetReportByComplaintIDNotFound(t *testing.T) {
	router, mock := setupTest(t, 50)

	mock.ExpectQuery("SELECT (.+) FROM reports WHERE complaint_id = \\?").
		WithArgs("CIV-0000000000-999999").
		WillReturnError(sql.ErrNoRows)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/reports/CIV-0000000000-999999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyReportCritical(t *testing.T) {
	router, mock := setupTest(t, 85)

	// resolve, orchestrator load, image fetch, conditional update, re-read
	mock.ExpectQuery("SELECT (.+) FROM reports WHERE seq = \\?").
		WithArgs(5).
		WillReturnRows(reportRow(5, models.AiStatusPending, nil, models.PriorityUnknown, models.StatusPending))
	mock.ExpectQuery("SELECT (.+) FROM reports WHERE seq = \\?").
		WithArgs(5).
		WillReturnRows(reportRow(5, models.AiStatusPending, nil, models.PriorityUnknown, models.StatusPending))
	mock.ExpectQuery("SELECT image FROM reports WHERE seq = \\?").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"image"}).AddRow(testJPEG(t)))
	mock.ExpectExec("UPDATE reports SET ai_status = \\?, trust_score = \\?, priority = \\?").
		WithArgs(models.AiStatusCompleted, 85, models.PriorityCritical, 5, models.AiStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM reports WHERE seq = \\?").
		WithArgs(5).
		WillReturnRows(reportRow(5, models.AiStatusCompleted, 85, models.PriorityCritical, models.StatusPending))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/api/reports/5/verify", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.VerifyReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, models.AiStatusCompleted, resp.Report.AiStatus)
	assert.Equal(t, models.PriorityCritical, resp.Report.Priority)
}

func TestUpdateStatusInvalid(t *testing.T) {
	router, _ := setupTest(t, 50)

	body := bytes.NewBufferString(`{"status": "Verified"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/reports/5/status", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid status")
}

func TestListReportsInvalidPriorityFilter(t *testing.T) {
	router, _ := setupTest(t, 50)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/reports?priority=EXTREME", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListReportsFiltered(t *testing.T) {
	router, mock := setupTest(t, 50)

	rows := reportRow(1, models.AiStatusCompleted, 70, models.PriorityHigh, models.StatusPending)
	mock.ExpectQuery("SELECT (.+) FROM reports WHERE 1=1 AND pincode = \\? AND priority = \\?").
		WithArgs("400001", models.PriorityHigh).
		WillReturnRows(rows)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/reports?pincode=400001&priority=HIGH", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ReportListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "400001", resp.Reports[0].Pincode)
	assert.Equal(t, models.PriorityHigh, resp.Reports[0].Priority)
}

func TestDeleteReportNotFound(t *testing.T) {
	router, mock := setupTest(t, 50)

	mock.ExpectQuery("SELECT (.+) FROM reports WHERE seq = \\?").
		WithArgs(7).
		WillReturnError(sql.ErrNoRows)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/reports/7", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
