package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID            uint           `gorm:"primaryKey"`
	UserID        uint           `gorm:"index"`             // nullable (system actions possible)
	Action        string         `gorm:"size:200;not null"` // e.g. "storages.create", "filters.save"
	ResourceType  string         `gorm:"size:100"`          // e.g. "storage", "user"
	ResourceID    uint           `gorm:"index"`             // optional link to resource
	Metadata      datatypes.JSON `gorm:"type:json"`         // details of what changed
	IP            string         `gorm:"size:64"`
	InitiatorName string         `gorm:"size:255" json:"initiator_name"`
	UserAgent     string         `gorm:"size:255"`
	CreatedAt     time.Time

	User *User `gorm:"foreignKey:UserID"`
}
