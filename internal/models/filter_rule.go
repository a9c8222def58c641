package models

import "time"

// RuleMode is the category a filter rule governs.
type RuleMode string

const (
	RuleModeHidden          RuleMode = "hidden"
	RuleModeInaccessible    RuleMode = "inaccessible"
	RuleModeDisableDownload RuleMode = "disable_download"
)

// FilterRule is one glob-style visibility/access rule scoped to a single
// storage source. A rule with an empty expression never matches.
type FilterRule struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	StorageID   uint      `gorm:"index;not null" json:"storage_id"`
	Expression  string    `gorm:"size:500" json:"expression"`
	Description string    `gorm:"size:200" json:"description"`
	Mode        RuleMode  `gorm:"size:32;not null;default:hidden" json:"mode"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Storage *StorageSource `gorm:"foreignKey:StorageID" json:"-"`
}
