package models

import (
	"time"

	"gorm.io/datatypes"
)

// Input types recorded for an evaluation.
const (
	InputTypeImage    = "image"
	InputTypeDocument = "document"
)

// Evaluation is the immutable record of one textbook quality evaluation.
type Evaluation struct {
	ID                   string         `gorm:"primaryKey;size:36" json:"id"`
	UserID               string         `gorm:"size:128;not null;index:idx_evaluations_user_timestamp,priority:1" json:"user_id"`
	Username             string         `gorm:"size:255;not null" json:"username"`
	Timestamp            time.Time      `gorm:"not null;index:idx_evaluations_user_timestamp,priority:2,sort:desc" json:"timestamp"`
	InputType            string         `gorm:"size:16;not null" json:"input_type"`
	FileRef              string         `gorm:"size:512;not null" json:"file_ref"`
	OriginalFilename     string         `gorm:"size:255" json:"original_filename"`
	DeclaredMimeType     string         `gorm:"size:128" json:"content_type"`
	AccuracyScore        float64        `json:"accuracy_score"`
	ReadabilityScore     float64        `json:"readability_score"`
	ConsistencyScore     float64        `json:"consistency_score"`
	AccuracyText         string         `gorm:"type:text" json:"accuracy_text"`
	ReadabilityText      string         `gorm:"type:text" json:"readability_text"`
	ConsistencyText      string         `gorm:"type:text" json:"consistency_text"`
	OverallRatingValue   *float64       `json:"overall_rating_value"`
	OverallRatingDisplay string         `gorm:"size:32;not null" json:"overall_rating"`
	Summary              string         `gorm:"type:text" json:"summary"`
	FullExtractedText    *string        `gorm:"type:text" json:"full_extracted_text"`
	RawEvaluation        datatypes.JSON `json:"raw_evaluation"`
	CreatedAt            time.Time      `json:"created_at"`
}

// EvaluationSummary is the history projection of an Evaluation.
type EvaluationSummary struct {
	Timestamp            time.Time
	OverallRatingDisplay string
	Summary              string
	OriginalFilename     string
}
