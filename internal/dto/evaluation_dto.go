package dto

import "encoding/json"

// EvaluationResponse is returned after a successful evaluation.
type EvaluationResponse struct {
	AccuracyScore        float64     `json:"accuracy_score"`
	Accuracy             string      `json:"accuracy"`
	ReadabilityScore     float64     `json:"readability_score"`
	Readability          string      `json:"readability"`
	ConsistencyScore     float64     `json:"consistency_score"`
	Consistency          string      `json:"consistency"`
	OverallRating        json.Number `json:"overall_rating"`
	Summary              string      `json:"summary"`
	OverallRatingDisplay string      `json:"overall_rating_display"`
	InputType            string      `json:"input_type"`
	OriginalFilename     string      `json:"original_filename"`
	FileRef              string      `json:"file_ref"`
	RecordID             string      `json:"record_id,omitempty"`
}

// HistoryQuery captures the history listing parameters.
type HistoryQuery struct {
	UserID string `validate:"required"`
	Limit  int    `validate:"gte=0"`
}

// HistoryEntry is one row of a user's evaluation history.
type HistoryEntry struct {
	Timestamp        string `json:"timestamp"`
	OverallRating    string `json:"overall_rating"`
	Summary          string `json:"summary"`
	OriginalFilename string `json:"original_filename"`
}

// HistoryResponse lists evaluations newest first.
type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
}
