package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bookeval-api/internal/dto"
	"github.com/noah-isme/bookeval-api/internal/extractor"
	"github.com/noah-isme/bookeval-api/internal/handler"
	"github.com/noah-isme/bookeval-api/internal/middleware"
	"github.com/noah-isme/bookeval-api/internal/service"
	"github.com/noah-isme/bookeval-api/pkg/ai"
)

type mockEvaluationService struct {
	lastInput   service.EvaluationInput
	lastUserID  string
	lastLimit   int
	response    dto.EvaluationResponse
	history     dto.HistoryResponse
	err         error
	historyErr  error
	evaluations int
}

func (m *mockEvaluationService) Evaluate(_ context.Context, input service.EvaluationInput) (dto.EvaluationResponse, error) {
	m.evaluations++
	m.lastInput = input
	if m.err != nil {
		return dto.EvaluationResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockEvaluationService) History(_ context.Context, userID string, limit int) (dto.HistoryResponse, error) {
	m.lastUserID = userID
	m.lastLimit = limit
	if m.historyErr != nil {
		return dto.HistoryResponse{}, m.historyErr
	}
	return m.history, nil
}

func sampleEvaluation() dto.EvaluationResponse {
	return dto.EvaluationResponse{
		AccuracyScore:        88,
		Accuracy:             "Accurate.",
		ReadabilityScore:     72,
		Readability:          "Clear.",
		ConsistencyScore:     91,
		Consistency:          "Consistent.",
		OverallRating:        json.Number("4.2"),
		Summary:              "Well written chapter.",
		OverallRatingDisplay: "4.2/5",
		InputType:            "document",
		OriginalFilename:     "chapter.txt",
		FileRef:              "uploads/user-1/chapter.txt",
		RecordID:             "rec-1",
	}
}

func newEvaluationApp(svc service.EvaluationService, authenticated bool, maxBytes int64) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/evaluations", func(c *fiber.Ctx) error {
		if authenticated {
			c.Locals(middleware.LocalUserID, "user-1")
			c.Locals(middleware.LocalUsername, "ada")
		}
		return c.Next()
	})
	handler.NewEvaluationHandler(svc, maxBytes, zerolog.New(io.Discard)).Register(group)
	return app
}

func multipartUpload(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)},
		"Content-Type":        {contentType},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func postUpload(t *testing.T, app *fiber.App, filename, contentType string, content []byte) *http.Response {
	t.Helper()
	body, formType := multipartUpload(t, filename, contentType, content)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluations", body)
	req.Header.Set("Content-Type", formType)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestEvaluationHandler_Success(t *testing.T) {
	svc := &mockEvaluationService{response: sampleEvaluation()}
	app := newEvaluationApp(svc, true, 1024)

	resp := postUpload(t, app, "chapter.txt", "text/plain", []byte("Hello"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	decodeResponse(t, resp, &payload)

	require.True(t, payload.Success)
	require.Equal(t, "4.2/5", payload.Data["overall_rating_display"])
	require.Equal(t, 4.2, payload.Data["overall_rating"])
	require.Equal(t, "rec-1", payload.Data["record_id"])

	require.Equal(t, "user-1", svc.lastInput.UserID)
	require.Equal(t, "ada", svc.lastInput.Username)
	require.Equal(t, "chapter.txt", svc.lastInput.Filename)
	require.Equal(t, "text/plain", svc.lastInput.DeclaredMIME)
	require.Equal(t, []byte("Hello"), svc.lastInput.Data)
}

func TestEvaluationHandler_MissingFile(t *testing.T) {
	svc := &mockEvaluationService{}
	app := newEvaluationApp(svc, true, 1024)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/evaluations", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var payload map[string]interface{}
	decodeResponse(t, resp, &payload)
	require.Equal(t, "No file found in request", payload["error"])
	require.Zero(t, svc.evaluations)
}

func TestEvaluationHandler_Unauthenticated(t *testing.T) {
	svc := &mockEvaluationService{}
	app := newEvaluationApp(svc, false, 1024)

	resp := postUpload(t, app, "chapter.txt", "text/plain", []byte("Hello"))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, svc.evaluations)
}

func TestEvaluationHandler_RejectsOversizedFile(t *testing.T) {
	svc := &mockEvaluationService{}
	app := newEvaluationApp(svc, true, 4)

	resp := postUpload(t, app, "chapter.txt", "text/plain", []byte("more than four bytes"))
	require.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
	require.Zero(t, svc.evaluations)
}

func TestEvaluationHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
		message    string
	}{
		{name: "unsupported", err: extractor.ErrUnsupportedFormat, statusCode: fiber.StatusBadRequest, message: "Please upload PDF, DOCX, or TXT"},
		{name: "empty", err: extractor.ErrEmptyContent, statusCode: fiber.StatusBadRequest, message: "no readable text"},
		{name: "unreadable", err: fmt.Errorf("%w: zip: not a valid zip file", extractor.ErrUnreadableDocument), statusCode: fiber.StatusBadRequest, message: "could not be read"},
		{name: "no_content", err: ai.ErrNoContent, statusCode: fiber.StatusBadRequest, message: "no content"},
		{name: "too_large", err: service.ErrUploadTooLarge, statusCode: fiber.StatusRequestEntityTooLarge, message: "maximum allowed size"},
		{name: "unavailable", err: ai.ErrClientUnavailable, statusCode: fiber.StatusServiceUnavailable, message: "Analysis Error"},
		{name: "invocation", err: fmt.Errorf("%w: timeout", ai.ErrInvocationFailed), statusCode: fiber.StatusBadGateway, message: "timeout"},
		{name: "blob", err: fmt.Errorf("%w: bucket gone", service.ErrBlobStore), statusCode: fiber.StatusInternalServerError, message: "failed to store uploaded file"},
		{name: "validation", err: validator.ValidationErrors{}, statusCode: fiber.StatusUnauthorized, message: "Unauthorized"},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError, message: "evaluation failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockEvaluationService{err: tc.err}
			app := newEvaluationApp(svc, true, 1024)

			resp := postUpload(t, app, "doc.pdf", "application/pdf", []byte("%PDF"))
			require.Equal(t, tc.statusCode, resp.StatusCode)

			var payload struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			decodeResponse(t, resp, &payload)
			require.False(t, payload.Success)
			require.Contains(t, payload.Error, tc.message)
		})
	}
}

func TestEvaluationHandler_History(t *testing.T) {
	svc := &mockEvaluationService{history: dto.HistoryResponse{History: []dto.HistoryEntry{
		{Timestamp: "2025-03-14 09:26:53", OverallRating: "4.2/5", Summary: "Good", OriginalFilename: "a.pdf"},
	}}}
	app := newEvaluationApp(svc, true, 1024)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/evaluations/history?limit=10", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data dto.HistoryResponse `json:"data"`
		Meta struct {
			Count int `json:"count"`
			Limit int `json:"limit"`
		} `json:"meta"`
	}
	decodeResponse(t, resp, &payload)
	require.Len(t, payload.Data.History, 1)
	require.Equal(t, 1, payload.Meta.Count)
	require.Equal(t, 10, payload.Meta.Limit)
	require.Equal(t, "4.2/5", payload.Data.History[0].OverallRating)
	require.Equal(t, "user-1", svc.lastUserID)
	require.Equal(t, 10, svc.lastLimit)
}

func TestEvaluationHandler_HistoryDefaultsToMaximumLimit(t *testing.T) {
	svc := &mockEvaluationService{history: dto.HistoryResponse{History: []dto.HistoryEntry{}}}
	app := newEvaluationApp(svc, true, 1024)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/evaluations/history?limit=500", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Meta struct {
			Limit int `json:"limit"`
		} `json:"meta"`
	}
	decodeResponse(t, resp, &payload)
	require.Equal(t, 50, payload.Meta.Limit)
	require.Equal(t, 500, svc.lastLimit)
}

func TestEvaluationHandler_HistoryRejectsBadLimit(t *testing.T) {
	svc := &mockEvaluationService{}
	app := newEvaluationApp(svc, true, 1024)

	for _, query := range []string{"limit=abc", "limit=-3"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/evaluations/history?"+query, nil), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, query)
	}
}
