package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/axellelanca/shortener/internal/models"
)

// ClickRepository persists resolution counters.
type ClickRepository interface {
	IncrementClickCount(ctx context.Context, shortCode string, at time.Time) error
}

// GormClickRepository est l'implémentation de ClickRepository utilisant GORM.
type GormClickRepository struct {
	db *gorm.DB
}

// NewClickRepository crée et retourne une nouvelle instance de GormClickRepository.
func NewClickRepository(db *gorm.DB) *GormClickRepository {
	return &GormClickRepository{db: db}
}

// IncrementClickCount adds one click and moves last_used_at in a single
// statement, so concurrent workers never lose an increment.
func (r *GormClickRepository) IncrementClickCount(ctx context.Context, shortCode string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Link{}).
		Where("short_code = ?", shortCode).
		Updates(map[string]interface{}{
			"click_count":  gorm.Expr("click_count + ?", 1),
			"last_used_at": at.UTC(),
		})
	if res.Error != nil {
		return convertError(res.Error, "failed to increment clicks for "+shortCode)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
