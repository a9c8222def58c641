package models

import "time"

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
)

type User struct {
	ID           uint       `gorm:"primaryKey"`
	Email        string     `gorm:"uniqueIndex;size:255;not null"`
	Name         string     `gorm:"size:200"`
	PasswordHash string     `gorm:"size:255"`
	Admin        bool       `gorm:"default:false"`
	Status       UserStatus `gorm:"size:16;default:active"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Grants []UserStorageGrant `gorm:"foreignKey:UserID"`
}
