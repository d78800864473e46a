package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"civiceye/config"
	"civiceye/database"
	imageutil "civiceye/image"
	"civiceye/metrics"
	"civiceye/models"
	"civiceye/verification"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

const maxImageSize = 10 << 20 // 10MB upload cap

// Publisher publishes report events. A nil Publisher disables publishing.
type Publisher interface {
	PublishWithRoutingKey(routingKey string, message interface{}) error
}

// Handlers holds all HTTP handlers
type Handlers struct {
	db           *database.Database
	auth         *database.AuthService
	orchestrator *verification.Orchestrator
	publisher    Publisher
	cfg          *config.Config
}

// NewHandlers creates a new handlers instance. publisher may be nil.
func NewHandlers(db *database.Database, auth *database.AuthService, orchestrator *verification.Orchestrator, publisher Publisher, cfg *config.Config) *Handlers {
	return &Handlers{
		db:           db,
		auth:         auth,
		orchestrator: orchestrator,
		publisher:    publisher,
		cfg:          cfg,
	}
}

// SubmitReport accepts a citizen report as a multipart form: image file plus
// issue_type, pincode, address, optional description and coordinates.
func (h *Handlers) SubmitReport(c *gin.Context) {
	issueType := c.PostForm("issue_type")
	if !models.IsValidIssueType(issueType) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid or missing issue type"})
		return
	}

	pincode := strings.TrimSpace(c.PostForm("pincode"))
	if pincode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Pincode is required"})
		return
	}

	address := strings.TrimSpace(c.PostForm("address"))
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Address is required"})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Image is required"})
		return
	}
	if fileHeader.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Image size must be less than 10MB"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("Failed to open uploaded image: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to read image"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		log.Errorf("Failed to read uploaded image: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to read image"})
		return
	}

	compressed, err := imageutil.Compress(imageData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Uploaded file is not a valid image"})
		return
	}

	draft := &models.ReportDraft{
		IssueType:   issueType,
		Description: strings.TrimSpace(c.PostForm("description")),
		Pincode:     pincode,
		Address:     address,
		Image:       compressed,
	}

	if lat, ok := parseCoordinate(c.PostForm("latitude")); ok {
		if lng, ok := parseCoordinate(c.PostForm("longitude")); ok {
			draft.Latitude = lat
			draft.Longitude = lng
		}
	}

	report, err := h.db.CreateReport(c.Request.Context(), draft)
	if err != nil {
		log.Errorf("Failed to create report: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save the report"})
		return
	}

	metrics.ReportsSubmittedTotal.Inc()
	h.publishEvent(h.cfg.RabbitMQSubmittedRoutingKey, report)

	c.JSON(http.StatusOK, models.SubmitReportResponse{
		Success:     true,
		Message:     "Report submitted successfully",
		Seq:         report.Seq,
		ComplaintID: report.ComplaintID,
	})
}

// GetReport fetches a report by seq or complaint ID.
func (h *Handlers) GetReport(c *gin.Context) {
	report, err := h.resolveReport(c)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetReportImage serves the stored evidence image.
func (h *Handlers) GetReportImage(c *gin.Context) {
	report, err := h.resolveReport(c)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	image, err := h.db.GetReportImage(c.Request.Context(), report.Seq)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/jpeg", image)
}

// ListReports answers dashboard queries filtered by pincode, status and
// priority. All filters are optional and conjunctive.
func (h *Handlers) ListReports(c *gin.Context) {
	filter := models.ReportFilter{
		Pincode:  c.Query("pincode"),
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
	}

	if filter.Status != "" && !models.IsValidStatus(filter.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid status filter"})
		return
	}
	if filter.Priority != "" && !models.IsValidPriority(filter.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid priority filter"})
		return
	}

	reports, err := h.db.ListReports(c.Request.Context(), &filter)
	if err != nil {
		log.Errorf("Failed to list reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to list reports"})
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}

	c.JSON(http.StatusOK, models.ReportListResponse{
		Success: true,
		Reports: reports,
		Count:   len(reports),
	})
}

// VerifyReport runs a single AI verification attempt for the report.
// A second concurrent request for the same report fails fast with 409.
func (h *Handlers) VerifyReport(c *gin.Context) {
	report, err := h.resolveReport(c)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	result, err := h.orchestrator.Verify(c.Request.Context(), report.Seq)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrAlreadyInFlight):
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Verification already running for this report, try again shortly"})
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Report not found"})
		case errors.Is(err, database.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Report was re-verified concurrently, re-fetch and retry"})
		default:
			log.Errorf("Verification for report %d failed to persist: %v", report.Seq, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to run verification"})
		}
		return
	}

	c.JSON(http.StatusOK, models.VerifyReportResponse{
		Success: result.Report.AiStatus == models.AiStatusCompleted,
		Message: result.Message,
		Report:  result.Report,
	})
}

// UpdateStatus applies an authority workflow transition.
func (h *Handlers) UpdateStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	if !models.IsValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid status, expected Pending, In Progress or Resolved"})
		return
	}

	report, err := h.resolveReport(c)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	actor := c.GetString("authority_email")
	if actor == "" {
		actor = "unknown"
	}

	updated, err := h.db.UpdateStatus(c.Request.Context(), report.Seq, req.Status, actor)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "report": updated})
}

// GetStatusAudit returns the status transition history for a report.
func (h *Handlers) GetStatusAudit(c *gin.Context) {
	report, err := h.resolveReport(c)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	audits, err := h.db.GetStatusAudit(c.Request.Context(), report.Seq)
	if err != nil {
		log.Errorf("Failed to get status audit for report %d: %v", report.Seq, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get audit trail"})
		return
	}
	if audits == nil {
		audits = []models.StatusAudit{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "audit": audits})
}

// DeleteReport removes a report and its image.
func (h *Handlers) DeleteReport(c *gin.Context) {
	report, err := h.resolveReport(c)
	if err != nil {
		h.respondLookupError(c, err)
		return
	}

	if err := h.db.DeleteReport(c.Request.Context(), report.Seq); err != nil {
		h.respondLookupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Report deleted"})
}

// resolveReport looks up the :id path parameter as a numeric seq or, failing
// that, as a complaint ID.
func (h *Handlers) resolveReport(c *gin.Context) (*models.Report, error) {
	id := c.Param("id")
	if seq, err := strconv.Atoi(id); err == nil {
		return h.db.GetReport(c.Request.Context(), seq)
	}
	return h.db.GetReportByComplaintID(c.Request.Context(), id)
}

func (h *Handlers) respondLookupError(c *gin.Context, err error) {
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Report not found"})
		return
	}
	log.Errorf("Report lookup failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal error"})
}

func (h *Handlers) publishEvent(routingKey string, report *models.Report) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishWithRoutingKey(routingKey, models.EventFromReport(report)); err != nil {
		log.Errorf("Failed to publish event for report %d: %v", report.Seq, err)
	}
}

func parseCoordinate(value string) (*float64, bool) {
	if value == "" {
		return nil, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, false
	}
	return &f, true
}
