package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"payslipx/internal/domain"
	"payslipx/internal/middleware"
	"payslipx/internal/port"
	"payslipx/internal/textextract"
)

// JobQueue accepts extractions for background processing.
type JobQueue interface {
	Submit(req domain.ExtractionRequest) (*domain.ExtractionJob, error)
	Get(id uuid.UUID) (*domain.ExtractionJob, error)
}

// ExtractTextInput is the DTO for JSON extraction requests.
type ExtractTextInput struct {
	Text string `json:"text" binding:"required"`
}

// ExtractionHandler handles payslip extraction endpoints.
type ExtractionHandler struct {
	svc          port.ExtractionService
	jobs         JobQueue
	maxFileSize  int64
	maxTextBytes int
}

// NewExtractionHandler creates a new ExtractionHandler.
func NewExtractionHandler(svc port.ExtractionService, jobs JobQueue, maxFileSize int64, maxTextBytes int) *ExtractionHandler {
	return &ExtractionHandler{svc: svc, jobs: jobs, maxFileSize: maxFileSize, maxTextBytes: maxTextBytes}
}

// Extract handles POST /api/v1/extractions
// @Summary Extract a payslip
// @Description Run the extraction pipeline synchronously on JSON text or an uploaded PDF, JPG or PNG.
// @Description A cached result for identical content is returned without an LLM call.
// @Tags extractions
// @Accept json,mpfd
// @Produce json
// @Param request body ExtractTextInput false "Payslip text (JSON requests)"
// @Param file formData file false "Payslip file (multipart requests)"
// @Success 200 {object} APIResponse{data=domain.ExtractionResult} "Extraction result"
// @Failure 400 {object} APIResponse "Invalid request or no text found"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 413 {object} APIResponse "File too large"
// @Failure 422 {object} APIResponse "Response rejected for leaked personal data"
// @Failure 429 {object} APIResponse "Quota exceeded; see Retry-After"
// @Failure 502 {object} APIResponse "LLM provider failure"
// @Security BearerAuth
// @Router /extractions [post]
func (h *ExtractionHandler) Extract(c *gin.Context) {
	req, ok := h.buildRequest(c)
	if !ok {
		return
	}

	result, err := h.svc.Extract(c.Request.Context(), req, nil)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, result)
}

// SubmitJob handles POST /api/v1/extractions/jobs
// @Summary Queue an extraction
// @Description Queue a payslip for background extraction and poll the returned job.
// @Tags extractions
// @Accept json,mpfd
// @Produce json
// @Param request body ExtractTextInput false "Payslip text (JSON requests)"
// @Param file formData file false "Payslip file (multipart requests)"
// @Success 202 {object} APIResponse{data=domain.ExtractionJob} "Job queued"
// @Failure 400 {object} APIResponse "Invalid request"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 503 {object} APIResponse "Queue full"
// @Security BearerAuth
// @Router /extractions/jobs [post]
func (h *ExtractionHandler) SubmitJob(c *gin.Context) {
	req, ok := h.buildRequest(c)
	if !ok {
		return
	}

	job, err := h.jobs.Submit(req)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, job)
}

// GetJob handles GET /api/v1/extractions/jobs/:id
// @Summary Get an extraction job
// @Description Get the status, progress and result of a queued extraction.
// @Tags extractions
// @Produce json
// @Param id path string true "Job ID (UUID)"
// @Success 200 {object} APIResponse{data=domain.ExtractionJob} "Job"
// @Failure 400 {object} APIResponse "Invalid ID"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 404 {object} APIResponse "Job not found"
// @Security BearerAuth
// @Router /extractions/jobs/{id} [get]
func (h *ExtractionHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid job ID")
		return
	}
	deviceID, err := middleware.GetDeviceID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing device context")
		return
	}

	job, err := h.jobs.Get(id)
	if err != nil {
		HandleError(c, err)
		return
	}
	// Jobs of other devices are reported as missing.
	if job.DeviceID != deviceID && middleware.GetRole(c) != string(domain.RoleAdmin) {
		HandleError(c, domain.ErrNotFound)
		return
	}
	RespondOK(c, job)
}

// buildRequest reads either a JSON text payload or a multipart upload. PDFs
// are reduced to their text layer; JPEG and PNG go through vision mode.
func (h *ExtractionHandler) buildRequest(c *gin.Context) (domain.ExtractionRequest, bool) {
	deviceID, err := middleware.GetDeviceID(c)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing device context")
		return domain.ExtractionRequest{}, false
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req, err := h.fromUpload(c)
		if err != nil {
			HandleError(c, err)
			return domain.ExtractionRequest{}, false
		}
		req.DeviceID = deviceID
		return req, true
	}

	var input ExtractTextInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return domain.ExtractionRequest{}, false
	}
	return domain.ExtractionRequest{
		Payload:  []byte(input.Text),
		Mode:     domain.ModeText,
		DeviceID: deviceID,
	}, true
}

func (h *ExtractionHandler) fromUpload(c *gin.Context) (domain.ExtractionRequest, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return domain.ExtractionRequest{}, fmt.Errorf("file field is required: %w", domain.ErrInvalidRequest)
	}
	defer func() { _ = file.Close() }()

	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		return domain.ExtractionRequest{}, domain.ErrFileTooLarge
	}
	var src io.Reader = file
	if h.maxFileSize > 0 {
		src = io.LimitReader(file, h.maxFileSize+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return domain.ExtractionRequest{}, fmt.Errorf("reading upload: %w", err)
	}
	if h.maxFileSize > 0 && int64(len(data)) > h.maxFileSize {
		return domain.ExtractionRequest{}, domain.ErrFileTooLarge
	}

	mimeType := http.DetectContentType(data)
	switch {
	case textextract.IsPDF(data):
		text, err := textextract.PDFText(data, h.maxTextBytes)
		if errors.Is(err, textextract.ErrNoText) {
			return domain.ExtractionRequest{}, fmt.Errorf("%s: %w", header.Filename, domain.ErrNoTextProvided)
		}
		if err != nil {
			return domain.ExtractionRequest{}, fmt.Errorf("%s: %w: %v", header.Filename, domain.ErrInvalidRequest, err)
		}
		return domain.ExtractionRequest{Payload: []byte(text), Mode: domain.ModeText}, nil
	case domain.AllowedImageTypes[mimeType] != "":
		return domain.ExtractionRequest{Payload: data, Mode: domain.ModeVision, MimeType: mimeType}, nil
	default:
		return domain.ExtractionRequest{}, domain.ErrUnsupportedType
	}
}
