package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/bookeval-api/internal/dto"
	"github.com/noah-isme/bookeval-api/internal/extractor"
	"github.com/noah-isme/bookeval-api/internal/models"
	"github.com/noah-isme/bookeval-api/internal/observability"
	"github.com/noah-isme/bookeval-api/internal/repository"
	"github.com/noah-isme/bookeval-api/pkg/ai"
	"github.com/noah-isme/bookeval-api/pkg/blob"
	"github.com/noah-isme/bookeval-api/pkg/events"
)

const (
	// DefaultCaptureFilename names uploads that arrive without a filename, such as camera captures.
	DefaultCaptureFilename = "camera_capture.jpg"
	// HistoryTimeLayout formats history timestamps.
	HistoryTimeLayout = "2006-01-02 15:04:05"
	// NoRatingDisplay is shown when the model gave no overall rating.
	NoRatingDisplay = "No rating"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrBlobStore indicates the original upload could not be retained.
	ErrBlobStore = errors.New("failed to store uploaded file")
)

// EvaluationInput is one upload submitted by an authenticated user.
type EvaluationInput struct {
	UserID       string `validate:"required"`
	Username     string `validate:"required"`
	Filename     string
	DeclaredMIME string
	Data         []byte
}

// EventPublisher announces stored evaluations.
type EventPublisher interface {
	PublishEvaluationRecorded(ctx context.Context, event events.EvaluationRecorded) error
}

// EvaluationService runs the textbook evaluation pipeline and serves history.
type EvaluationService interface {
	Evaluate(ctx context.Context, input EvaluationInput) (dto.EvaluationResponse, error)
	History(ctx context.Context, userID string, limit int) (dto.HistoryResponse, error)
}

type evaluationService struct {
	repo      repository.EvaluationRepository
	blobs     blob.Store
	evaluator ai.Evaluator
	publisher EventPublisher
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	maxSize   int64
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewEvaluationService wires the pipeline. evaluator and publisher may be nil.
func NewEvaluationService(
	repo repository.EvaluationRepository,
	blobs blob.Store,
	evaluator ai.Evaluator,
	publisher EventPublisher,
	validate *validator.Validate,
	maxUploadBytes int64,
	logger zerolog.Logger,
) EvaluationService {
	if validate == nil {
		validate = validator.New()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 * 1024 * 1024
	}
	return &evaluationService{
		repo:      repo,
		blobs:     blobs,
		evaluator: evaluator,
		publisher: publisher,
		validate:  validate,
		sanitizer: bluemonday.StrictPolicy(),
		maxSize:   maxUploadBytes,
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/bookeval-api/internal/service/evaluation"),
		now:       time.Now,
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, input EvaluationInput) (dto.EvaluationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.run")
	defer span.End()

	if err := s.validate.Struct(input); err != nil {
		return dto.EvaluationResponse{}, fail(span, err)
	}

	filename := strings.TrimSpace(input.Filename)
	if filename == "" {
		filename = DefaultCaptureFilename
	}
	span.SetAttributes(
		attribute.String("upload.filename", filename),
		attribute.Int("upload.size_bytes", len(input.Data)),
	)

	if int64(len(input.Data)) > s.maxSize {
		observability.EvaluationOutcomes().WithLabelValues(observability.OutcomeRejectedInput, "unknown").Inc()
		return dto.EvaluationResponse{}, fail(span, ErrUploadTooLarge)
	}
	observability.UploadSize().Observe(float64(len(input.Data)))

	receivedAt := s.now().UTC()
	logger := s.logger.With().Str("user_id", input.UserID).Str("filename", filename).Logger()

	fileRef, err := s.blobs.Put(ctx, input.Data, blob.Metadata{
		Filename:    filename,
		ContentType: blobContentType(input.DeclaredMIME, input.Data),
		UserID:      input.UserID,
		UploadedAt:  receivedAt,
	})
	if err != nil {
		observability.EvaluationOutcomes().WithLabelValues(observability.OutcomeBlobStoreErr, "unknown").Inc()
		logger.Error().Err(err).Msg("failed to store upload")
		return dto.EvaluationResponse{}, fail(span, fmt.Errorf("%w: %v", ErrBlobStore, err))
	}

	format := extractor.Classify(filename, input.DeclaredMIME)
	payload, err := s.extract(ctx, format, filename, input.DeclaredMIME, input.Data)
	if err != nil {
		observability.EvaluationOutcomes().WithLabelValues(observability.OutcomeRejectedInput, string(format)).Inc()
		logger.Info().Err(err).Str("format", string(format)).Msg("upload rejected")
		return dto.EvaluationResponse{}, fail(span, err)
	}

	var (
		request       ai.EvaluationRequest
		inputType     string
		extractedText *string
	)
	switch p := payload.(type) {
	case extractor.TextPayload:
		inputType = models.InputTypeDocument
		text := p.Text
		extractedText = &text
		request, err = ai.BuildRequest(p.Text, nil, "")
	case extractor.ImagePayload:
		inputType = models.InputTypeImage
		request, err = ai.BuildRequest("", p.Data, p.MIMEType)
	default:
		err = extractor.ErrUnsupportedFormat
	}
	if err != nil {
		observability.EvaluationOutcomes().WithLabelValues(observability.OutcomeRejectedInput, string(format)).Inc()
		return dto.EvaluationResponse{}, fail(span, err)
	}
	span.SetAttributes(attribute.String("evaluation.input_type", inputType))

	// the caller may disconnect; the evaluation and its record still complete
	workCtx := context.WithoutCancel(ctx)

	result, err := s.evaluate(workCtx, request)
	if err != nil {
		observability.EvaluationOutcomes().WithLabelValues(observability.OutcomeEvaluationErr, inputType).Inc()
		logger.Error().Err(err).Str("input_type", inputType).Msg("evaluation failed")
		return dto.EvaluationResponse{}, fail(span, err)
	}

	display := RatingDisplay(result.OverallRating)
	originalFilename := s.cleanFilename(filename)
	record := &models.Evaluation{
		UserID:               input.UserID,
		Username:             input.Username,
		Timestamp:            receivedAt,
		InputType:            inputType,
		FileRef:              fileRef,
		OriginalFilename:     originalFilename,
		DeclaredMimeType:     strings.TrimSpace(input.DeclaredMIME),
		AccuracyScore:        result.AccuracyScore,
		ReadabilityScore:     result.ReadabilityScore,
		ConsistencyScore:     result.ConsistencyScore,
		AccuracyText:         result.Accuracy,
		ReadabilityText:      result.Readability,
		ConsistencyText:      result.Consistency,
		OverallRatingDisplay: display,
		Summary:              result.Summary,
		FullExtractedText:    extractedText,
		RawEvaluation:        rawEvaluation(result),
	}
	if value, ok := result.OverallRatingValue(); ok {
		record.OverallRatingValue = &value
	}

	recordID := s.persist(workCtx, record, logger)

	observability.EvaluationOutcomes().WithLabelValues(observability.OutcomeResponded, inputType).Inc()
	logger.Info().
		Str("record_id", recordID).
		Str("input_type", inputType).
		Str("overall_rating", display).
		Msg("evaluation completed")

	return dto.EvaluationResponse{
		AccuracyScore:        result.AccuracyScore,
		Accuracy:             result.Accuracy,
		ReadabilityScore:     result.ReadabilityScore,
		Readability:          result.Readability,
		ConsistencyScore:     result.ConsistencyScore,
		Consistency:          result.Consistency,
		OverallRating:        result.OverallRating,
		Summary:              result.Summary,
		OverallRatingDisplay: display,
		InputType:            inputType,
		OriginalFilename:     originalFilename,
		FileRef:              fileRef,
		RecordID:             recordID,
	}, nil
}

func (s *evaluationService) History(ctx context.Context, userID string, limit int) (dto.HistoryResponse, error) {
	query := dto.HistoryQuery{UserID: strings.TrimSpace(userID), Limit: limit}
	if err := s.validate.Struct(query); err != nil {
		return dto.HistoryResponse{}, err
	}

	summaries, err := s.repo.ListRecent(ctx, query.UserID, query.Limit)
	if err != nil {
		return dto.HistoryResponse{}, fmt.Errorf("list evaluation history: %w", err)
	}

	entries := make([]dto.HistoryEntry, 0, len(summaries))
	for _, summary := range summaries {
		entries = append(entries, dto.HistoryEntry{
			Timestamp:        summary.Timestamp.UTC().Format(HistoryTimeLayout),
			OverallRating:    summary.OverallRatingDisplay,
			Summary:          summary.Summary,
			OriginalFilename: summary.OriginalFilename,
		})
	}
	return dto.HistoryResponse{History: entries}, nil
}

func (s *evaluationService) extract(ctx context.Context, format extractor.Format, filename, declaredMIME string, data []byte) (extractor.Payload, error) {
	_, span := s.tracer.Start(ctx, "evaluation.extract", trace.WithAttributes(attribute.String("format", string(format))))
	defer span.End()

	start := time.Now()
	payload, err := extractor.Extract(filename, declaredMIME, data)
	observability.ExtractionLatency().WithLabelValues(string(format)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fail(span, err)
	}
	return payload, nil
}

func (s *evaluationService) evaluate(ctx context.Context, request ai.EvaluationRequest) (ai.EvaluationResult, error) {
	if s.evaluator == nil {
		return ai.EvaluationResult{}, ai.ErrClientUnavailable
	}

	result, err := s.evaluator.Evaluate(ctx, request)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, ai.ErrClientUnavailable) || errors.Is(err, ai.ErrInvocationFailed) {
		return ai.EvaluationResult{}, err
	}
	return ai.EvaluationResult{}, fmt.Errorf("%w: %v", ai.ErrInvocationFailed, err)
}

// persist saves the record and announces it. Failures are logged and an empty id is returned.
func (s *evaluationService) persist(ctx context.Context, record *models.Evaluation, logger zerolog.Logger) string {
	ctx, span := s.tracer.Start(ctx, "evaluation.persist")
	defer span.End()

	id, err := s.repo.Create(ctx, record)
	if err != nil {
		observability.PersistenceFailures().Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		logger.Error().Err(err).Msg("failed to save evaluation record")
		return ""
	}

	if s.publisher != nil {
		event := events.EvaluationRecorded{
			RecordID:      id,
			UserID:        record.UserID,
			InputType:     record.InputType,
			FileRef:       record.FileRef,
			OverallRating: record.OverallRatingDisplay,
			RecordedAt:    record.Timestamp,
		}
		if err := s.publisher.PublishEvaluationRecorded(ctx, event); err != nil {
			logger.Warn().Err(err).Str("record_id", id).Msg("failed to publish evaluation event")
		}
	}
	return id
}

// cleanFilename strips markup from the client supplied name before it is stored or echoed.
func (s *evaluationService) cleanFilename(name string) string {
	cleaned := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(name)))
	if cleaned == "" {
		return DefaultCaptureFilename
	}
	return cleaned
}

// RatingDisplay renders an overall rating as "<value>/5", keeping the number as the model wrote it.
func RatingDisplay(rating json.Number) string {
	value := strings.TrimSpace(rating.String())
	if value == "" {
		return NoRatingDisplay
	}
	if _, err := rating.Float64(); err != nil {
		return value
	}
	return value + "/5"
}

func blobContentType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}

func rawEvaluation(result ai.EvaluationResult) datatypes.JSON {
	if len(result.Raw) > 0 {
		return datatypes.JSON(result.Raw)
	}
	encoded, err := json.Marshal(result.EvaluationSchema)
	if err != nil {
		return nil
	}
	return datatypes.JSON(encoded)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
