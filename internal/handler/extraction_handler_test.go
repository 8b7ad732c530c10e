package handler_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"payslipx/internal/domain"
	"payslipx/internal/handler"
	"payslipx/internal/service"
	"payslipx/mocks"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestExtractionHandler_ExtractText(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	h := handler.NewExtractionHandler(svc, nil, 1<<20, 1000)
	result := &domain.ExtractionResult{SessionID: uuid.New(), Payslip: domain.Payslip{GrossPay: 66400}}

	svc.On("Extract", mock.Anything, mock.MatchedBy(func(req domain.ExtractionRequest) bool {
		return req.Mode == domain.ModeText && req.Text() == "Basic Pay 50000" && req.DeviceID == "device-1"
	}), mock.Anything).Return(result, nil)

	body, _ := json.Marshal(map[string]string{"text": "Basic Pay 50000"})
	c, w := newContext(http.MethodPost, "/api/v1/extractions", bytes.NewReader(body), domain.RoleDevice)
	c.Request.Header.Set("Content-Type", "application/json")

	h.Extract(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, 66400.0, data["payslip"].(map[string]interface{})["grossPay"])
	svc.AssertExpectations(t)
}

func TestExtractionHandler_MissingText(t *testing.T) {
	h := handler.NewExtractionHandler(new(mocks.MockExtractionService), nil, 1<<20, 1000)

	c, w := newContext(http.MethodPost, "/api/v1/extractions", strings.NewReader(`{}`), domain.RoleDevice)
	c.Request.Header.Set("Content-Type", "application/json")
	h.Extract(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
}

func TestExtractionHandler_ImageUpload(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	h := handler.NewExtractionHandler(svc, nil, 1<<20, 1000)

	svc.On("Extract", mock.Anything, mock.MatchedBy(func(req domain.ExtractionRequest) bool {
		return req.Mode == domain.ModeVision && req.MimeType == "image/png" && bytes.Equal(req.Payload, pngHeader)
	}), mock.Anything).Return(&domain.ExtractionResult{}, nil)

	body, contentType := multipartBody(t, "slip.png", pngHeader)
	c, w := newContext(http.MethodPost, "/api/v1/extractions", body, domain.RoleDevice)
	c.Request.Header.Set("Content-Type", contentType)

	h.Extract(c)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestExtractionHandler_UploadRejections(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		max    int64
		status int
		code   string
	}{
		{"unsupported type", []byte("just some text"), 1 << 20, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE"},
		{"too large", pngHeader, 8, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{"malformed pdf", []byte("%PDF-1.4\nnot really"), 1 << 20, http.StatusBadRequest, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mocks.MockExtractionService)
			h := handler.NewExtractionHandler(svc, nil, tt.max, 1000)

			body, contentType := multipartBody(t, "upload.bin", tt.data)
			c, w := newContext(http.MethodPost, "/api/v1/extractions", body, domain.RoleDevice)
			c.Request.Header.Set("Content-Type", contentType)

			h.Extract(c)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Error.Code)
			svc.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestExtractionHandler_ServiceError(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	h := handler.NewExtractionHandler(svc, nil, 1<<20, 1000)
	svc.On("Extract", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrPrivacyViolation)

	c, w := newContext(http.MethodPost, "/api/v1/extractions", strings.NewReader(`{"text":"x"}`), domain.RoleDevice)
	c.Request.Header.Set("Content-Type", "application/json")
	h.Extract(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestExtractionHandler_Jobs(t *testing.T) {
	svc := new(mocks.MockExtractionService)
	queue := service.NewExtractionQueue(svc, service.QueueConfig{BufferSize: 1})
	h := handler.NewExtractionHandler(svc, queue, 1<<20, 1000)

	c, w := newContext(http.MethodPost, "/api/v1/extractions/jobs", strings.NewReader(`{"text":"Basic Pay 50000"}`), domain.RoleDevice)
	c.Request.Header.Set("Content-Type", "application/json")
	h.SubmitJob(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, "queued", data["status"])
	jobID := data["id"].(string)

	// The buffer holds one job and no worker is running.
	c, w = newContext(http.MethodPost, "/api/v1/extractions/jobs", strings.NewReader(`{"text":"again"}`), domain.RoleDevice)
	c.Request.Header.Set("Content-Type", "application/json")
	h.SubmitJob(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c, w = newContext(http.MethodGet, "/api/v1/extractions/jobs/"+jobID, http.NoBody, domain.RoleDevice)
	c.AddParam("id", jobID)
	h.GetJob(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newContext(http.MethodGet, "/api/v1/extractions/jobs/"+jobID, http.NoBody, domain.RoleDevice)
	c.Set("device_id", "device-2")
	c.AddParam("id", jobID)
	h.GetJob(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newContext(http.MethodGet, "/api/v1/extractions/jobs/nope", http.NoBody, domain.RoleDevice)
	c.AddParam("id", "nope")
	h.GetJob(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
