package models

import (
	"time"

	"gorm.io/datatypes"
)

// StorageType identifies a storage backend implementation.
type StorageType string

const (
	StorageTypeLocal         StorageType = "local"
	StorageTypeS3            StorageType = "s3"
	StorageTypeOneDrive      StorageType = "onedrive"
	StorageTypeOneDriveChina StorageType = "onedrive_china"
)

// StorageSource is a configured backend location files are browsed from.
// Params holds per-type settings (local root path, OAuth credentials, ...).
type StorageSource struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:200;not null" json:"name"`
	Key       string         `gorm:"size:100;uniqueIndex;not null" json:"key"`
	Type      StorageType    `gorm:"size:32;not null" json:"type"`
	Params    datatypes.JSON `gorm:"type:json" json:"params"`
	Remark    string         `gorm:"size:500" json:"remark"`
	Enabled   bool           `gorm:"default:true" json:"enabled"`
	SortOrder int            `gorm:"default:0" json:"sort_order"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	FilterRules []FilterRule `gorm:"foreignKey:StorageID" json:"-"`
}
