package ai

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNoContent is returned when a request carries neither text nor an image.
	ErrNoContent = errors.New("no content to analyze")
	// ErrClientUnavailable is returned when the evaluator has no credentials configured.
	ErrClientUnavailable = errors.New("evaluator client not initialized; set the AI API key")
	// ErrInvocationFailed is returned when the model call fails or its answer breaks the evaluation schema.
	ErrInvocationFailed = errors.New("API call failed or returned invalid data")
)

// EvaluationSchema is the structured verdict the model must return.
type EvaluationSchema struct {
	AccuracyScore    float64     `json:"accuracy_score"`
	Accuracy         string      `json:"accuracy"`
	ReadabilityScore float64     `json:"readability_score"`
	Readability      string      `json:"readability"`
	ConsistencyScore float64     `json:"consistency_score"`
	Consistency      string      `json:"consistency"`
	OverallRating    json.Number `json:"overall_rating"`
	Summary          string      `json:"summary"`
}

// OverallRatingValue returns the rating as a number when the model sent one.
func (s EvaluationSchema) OverallRatingValue() (float64, bool) {
	if s.OverallRating == "" {
		return 0, false
	}
	value, err := s.OverallRating.Float64()
	if err != nil {
		return 0, false
	}
	return value, true
}

// EvaluationResult is a validated evaluation together with the model output it was decoded from.
type EvaluationResult struct {
	EvaluationSchema
	Raw   json.RawMessage `json:"-"`
	Model string          `json:"-"`
}

// ImagePart is an inline image attached to a request.
type ImagePart struct {
	Data     []byte
	MIMEType string
}

// Part is one ordered element of the request body. Exactly one field is set.
type Part struct {
	Text  string
	Image *ImagePart
}

// EvaluationRequest is the provider neutral description of one evaluation call.
type EvaluationRequest struct {
	Parts       []Part
	Schema      json.RawMessage
	Temperature float32
}

// Evaluator grades textbook material against EvaluationSchema.
type Evaluator interface {
	Evaluate(ctx context.Context, request EvaluationRequest) (EvaluationResult, error)
}
