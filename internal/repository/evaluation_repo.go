package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/bookeval-api/internal/models"
)

// MaxHistoryLimit caps the number of summaries returned by ListRecent.
const MaxHistoryLimit = 50

// EvaluationRepository persists evaluation records.
type EvaluationRepository interface {
	Create(ctx context.Context, record *models.Evaluation) (string, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.EvaluationSummary, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository constructs a repository for evaluation records.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(ctx context.Context, record *models.Evaluation) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", err
	}
	return record.ID, nil
}

// ListRecent returns the newest summaries for a user. A limit outside 1..MaxHistoryLimit means MaxHistoryLimit.
func (r *evaluationRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.EvaluationSummary, error) {
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	var summaries []models.EvaluationSummary
	err := r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Select("timestamp", "overall_rating_display", "summary", "original_filename").
		Where("user_id = ?", userID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Limit(limit).
		Find(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
