package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/axellelanca/shortener/internal/models"
)

// LinkRepository est une interface qui définit les méthodes d'accès aux liens.
type LinkRepository interface {
	CreateLink(ctx context.Context, link *models.Link) error
	GetLinkByShortCode(ctx context.Context, shortCode string) (*models.Link, error)
	GetLinkByOriginalURL(ctx context.Context, originalURL string) (*models.Link, error)
	UpdateOriginalURL(ctx context.Context, shortCode string, ownerID uint, originalURL string) (*models.Link, error)
	DeleteLink(ctx context.Context, shortCode string, ownerID uint) error
	DeleteExpiredBefore(ctx context.Context, now time.Time) ([]string, error)
	ClaimAnonymousLinks(ctx context.Context, visitorID string, userID uint) (int64, error)
	CountLinks(ctx context.Context) (int64, error)
}

// GormLinkRepository est l'implémentation de LinkRepository utilisant GORM.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository crée et retourne une nouvelle instance de GormLinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// CreateLink insère un nouveau lien. A short code collision returns ErrDuplicateKey.
func (r *GormLinkRepository) CreateLink(ctx context.Context, link *models.Link) error {
	err := r.db.WithContext(ctx).Create(link).Error
	return convertError(err, "failed to create link")
}

// GetLinkByShortCode récupère un lien en utilisant son shortCode.
func (r *GormLinkRepository) GetLinkByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	var link models.Link
	err := r.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&link).Error
	if err != nil {
		return nil, convertError(err, "failed to get link "+shortCode)
	}
	return &link, nil
}

// GetLinkByOriginalURL returns the oldest link pointing at originalURL.
func (r *GormLinkRepository) GetLinkByOriginalURL(ctx context.Context, originalURL string) (*models.Link, error) {
	var link models.Link
	err := r.db.WithContext(ctx).
		Where("original_url = ?", originalURL).
		Order("id ASC").
		First(&link).Error
	if err != nil {
		return nil, convertError(err, "failed to find link by original url")
	}
	return &link, nil
}

// UpdateOriginalURL changes the target of a link owned by ownerID and returns
// the updated row. A missing link or another owner both give ErrNotFound.
func (r *GormLinkRepository) UpdateOriginalURL(ctx context.Context, shortCode string, ownerID uint, originalURL string) (*models.Link, error) {
	var link models.Link
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Link{}).
			Where("short_code = ? AND user_id = ?", shortCode, ownerID).
			Update("original_url", originalURL)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("short_code = ?", shortCode).First(&link).Error
	})
	if err != nil {
		return nil, convertError(err, "failed to update link "+shortCode)
	}
	return &link, nil
}

// DeleteLink removes a link owned by ownerID.
func (r *GormLinkRepository) DeleteLink(ctx context.Context, shortCode string, ownerID uint) error {
	res := r.db.WithContext(ctx).
		Where("short_code = ? AND user_id = ?", shortCode, ownerID).
		Delete(&models.Link{})
	if res.Error != nil {
		return convertError(res.Error, "failed to delete link "+shortCode)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpiredBefore removes every link whose expiry is at or before now and
// returns their short codes so the caller can evict them from the cache.
func (r *GormLinkRepository) DeleteExpiredBefore(ctx context.Context, now time.Time) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Link{}).
			Where("expires_at <= ?", now.UTC()).
			Pluck("short_code", &codes).Error; err != nil {
			return err
		}
		if len(codes) == 0 {
			return nil
		}
		return tx.Where("short_code IN ?", codes).Delete(&models.Link{}).Error
	})
	if err != nil {
		return nil, convertError(err, "failed to delete expired links")
	}
	return codes, nil
}

// ClaimAnonymousLinks gives userID ownership of every unowned link created by visitorID.
func (r *GormLinkRepository) ClaimAnonymousLinks(ctx context.Context, visitorID string, userID uint) (int64, error) {
	if visitorID == "" {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Link{}).
		Where("user_id IS NULL AND visitor_id = ?", visitorID).
		Update("user_id", userID)
	if res.Error != nil {
		return 0, convertError(res.Error, "failed to claim anonymous links")
	}
	return res.RowsAffected, nil
}

// CountLinks returns the number of stored links.
func (r *GormLinkRepository) CountLinks(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Link{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count links")
	}
	return count, nil
}
