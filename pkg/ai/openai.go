package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// GeminiBaseURL is Gemini's OpenAI compatible endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.5-flash"

	responseSchemaName = "textbook_evaluation"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bookeval",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of textbook evaluation calls",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookeval",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of failed textbook evaluation calls",
	}, []string{"model", "reason"})
)

// OpenAIConfig defines configuration options for the chat completion evaluator.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// OpenAIEvaluator implements Evaluator against any OpenAI compatible chat
// completion API with structured output support.
type OpenAIEvaluator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEvaluator builds an evaluator. It returns ErrClientUnavailable
// when no API key is configured so callers can start without one.
func NewOpenAIEvaluator(cfg OpenAIConfig) (*OpenAIEvaluator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrClientUnavailable
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = GeminiBaseURL
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Timeout > 0 {
		config.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAIEvaluator{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/bookeval-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "ai_evaluator").Str("model", cfg.Model).Logger(),
	}, nil
}

// Model reports the configured model name.
func (e *OpenAIEvaluator) Model() string {
	if e == nil {
		return ""
	}
	return e.cfg.Model
}

// Evaluate sends the request and validates the answer against the evaluation schema.
func (e *OpenAIEvaluator) Evaluate(parent context.Context, request EvaluationRequest) (EvaluationResult, error) {
	if e == nil || e.client == nil {
		return EvaluationResult{}, ErrClientUnavailable
	}

	ctx, span := e.tracer.Start(parent, "openai.evaluate", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.Int("parts", len(request.Parts)),
	))
	defer span.End()

	chatRequest, err := e.chatRequest(request)
	if err != nil {
		return e.fail(span, "request", err)
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, chatRequest)
	aiDuration.WithLabelValues(e.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return e.fail(span, "transport", fmt.Errorf("%w: %v", ErrInvocationFailed, err))
	}

	if len(resp.Choices) == 0 {
		return e.fail(span, "empty", fmt.Errorf("%w: no choices returned", ErrInvocationFailed))
	}

	result, err := ParseEvaluation([]byte(resp.Choices[0].Message.Content))
	if err != nil {
		return e.fail(span, "schema", err)
	}
	result.Model = e.cfg.Model

	e.logger.Debug().
		Dur("duration", time.Since(start)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("evaluation completed")

	return result, nil
}

func (e *OpenAIEvaluator) chatRequest(request EvaluationRequest) (openai.ChatCompletionRequest, error) {
	if len(request.Parts) == 0 {
		return openai.ChatCompletionRequest{}, ErrNoContent
	}

	parts := make([]openai.ChatMessagePart, 0, len(request.Parts))
	for _, part := range request.Parts {
		if part.Image != nil {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURI(part.Image),
					Detail: openai.ImageURLDetailAuto,
				},
			})
			continue
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: part.Text,
		})
	}

	schema := request.Schema
	if len(schema) == 0 {
		schema = EvaluationSchemaJSON()
	}

	return openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: wireTemperature(request.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   responseSchemaName,
				Schema: schema,
				Strict: true,
			},
		},
	}, nil
}

func (e *OpenAIEvaluator) fail(span trace.Span, reason string, err error) (EvaluationResult, error) {
	aiFailures.WithLabelValues(e.cfg.Model, reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	event := e.logger.Warn().Err(err).Str("reason", reason)
	if errors.Is(err, ErrNoContent) {
		event = e.logger.Debug().Err(err)
	}
	event.Msg("evaluation failed")
	return EvaluationResult{}, err
}

// wireTemperature keeps a zero temperature on the wire; the client omits zero values.
func wireTemperature(value float32) float32 {
	if value <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return value
}

func dataURI(image *ImagePart) string {
	mime := image.MIMEType
	if strings.TrimSpace(mime) == "" {
		mime = DefaultImageMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image.Data)
}
