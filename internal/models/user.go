package models

import "time"

// User is an account able to own links.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"-"`
}

// Identity is the minimal view of a user attached to a session.
type Identity struct {
	UserID   uint   `json:"id"`
	Username string `json:"username"`
}
