package handler

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/bookeval-api/internal/extractor"
	"github.com/noah-isme/bookeval-api/internal/middleware"
	"github.com/noah-isme/bookeval-api/internal/repository"
	"github.com/noah-isme/bookeval-api/internal/service"
	"github.com/noah-isme/bookeval-api/internal/utils"
	"github.com/noah-isme/bookeval-api/pkg/ai"
)

// EvaluationHandler exposes the evaluation pipeline and the history listing.
type EvaluationHandler struct {
	service  service.EvaluationService
	maxBytes int64
	logger   zerolog.Logger
}

// NewEvaluationHandler constructs an evaluation handler.
func NewEvaluationHandler(service service.EvaluationService, maxUploadBytes int64, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service:  service,
		maxBytes: maxUploadBytes,
		logger:   logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires evaluation routes.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Post("", h.evaluate)
	router.Get("/history", h.history)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	principal := middleware.PrincipalFromContext(c)
	if principal.UserID == "" || principal.Username == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "No file found in request")
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, service.ErrUploadTooLarge.Error())
	}

	handle, err := file.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "uploaded file could not be read")
	}
	defer handle.Close()

	reader := io.Reader(handle)
	if h.maxBytes > 0 {
		reader = io.LimitReader(handle, h.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "uploaded file could not be read")
	}

	result, err := h.service.Evaluate(c.UserContext(), service.EvaluationInput{
		UserID:       principal.UserID,
		Username:     principal.Username,
		Filename:     file.Filename,
		DeclaredMIME: file.Header.Get(fiber.HeaderContentType),
		Data:         data,
	})
	if err != nil {
		return h.evaluationError(c, err)
	}

	return utils.SendSuccess(c, "evaluation completed", result)
}

func (h *EvaluationHandler) evaluationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, extractor.ErrUnsupportedFormat),
		errors.Is(err, extractor.ErrEmptyContent),
		errors.Is(err, extractor.ErrUnreadableDocument),
		errors.Is(err, ai.ErrNoContent):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ai.ErrClientUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "Analysis Error: "+err.Error())
	case errors.Is(err, ai.ErrInvocationFailed):
		return utils.SendError(c, fiber.StatusBadGateway, "Analysis Error: "+err.Error())
	case errors.Is(err, service.ErrBlobStore):
		requestLogger(h.logger, c).Error().Err(err).Msg("upload could not be stored")
		return utils.SendError(c, fiber.StatusInternalServerError, service.ErrBlobStore.Error())
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusUnauthorized, "Unauthorized")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("evaluation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "evaluation failed")
	}
}

func (h *EvaluationHandler) history(c *fiber.Ctx) error {
	principal := middleware.PrincipalFromContext(c)
	if principal.UserID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil || limit < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "limit must be a positive integer")
	}

	result, err := h.service.History(c.UserContext(), strings.TrimSpace(principal.UserID), limit)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid history query")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load evaluation history")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load history")
	}

	effective := limit
	if effective == 0 || effective > repository.MaxHistoryLimit {
		effective = repository.MaxHistoryLimit
	}
	return utils.OK(c, result, "history retrieved", fiber.Map{
		"count": len(result.History),
		"limit": effective,
	})
}
