package models

import "time"

// ShortCodeLength is the length of generated short codes.
const ShortCodeLength = 8

// Link représente un lien raccourci dans la base de données.
type Link struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OriginalURL string    `gorm:"not null" json:"original_url"`
	ShortCode   string    `gorm:"uniqueIndex;size:20;not null" json:"short_code"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt   time.Time `gorm:"index;not null" json:"expires_at"`
	UserID      *uint     `gorm:"index" json:"user_id"`
	VisitorID   *string   `gorm:"size:36;index" json:"-"`
	ClickCount  int64     `gorm:"not null;default:0" json:"click_count"`
	LastUsedAt  time.Time `json:"last_used_at"`
}

// IsExpired reports whether the link expiry is at or before now.
func (l *Link) IsExpired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// OwnedBy reports whether userID owns the link. Anonymous links have no owner.
func (l *Link) OwnedBy(userID uint) bool {
	return l.UserID != nil && *l.UserID == userID
}

// Stats projects the fields exposed by the stats endpoint.
func (l *Link) Stats() *LinkStats {
	return &LinkStats{
		OriginalURL: l.OriginalURL,
		CreatedAt:   l.CreatedAt,
		ClickCount:  l.ClickCount,
		LastUsedAt:  l.LastUsedAt,
	}
}

// LinkStats is the usage projection of a link, also stored in the stats cache.
type LinkStats struct {
	OriginalURL string    `json:"original_url"`
	CreatedAt   time.Time `json:"created_at"`
	ClickCount  int64     `json:"click_count"`
	LastUsedAt  time.Time `json:"last_used_at"`
}
