package models

import "time"

// Operator permissions a user can hold on a single storage source.
const (
	OperatorIgnoreHidden = "ignore_hidden" // bypasses all filter rules
	OperatorUpload       = "upload"
	OperatorDelete       = "delete"
	OperatorRename       = "rename"
	OperatorNewFolder    = "new_folder"
)

// UserStorageGrant gives one user one operator permission on one storage
// source.
type UserStorageGrant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_user_storage_operator,unique" json:"user_id"`
	StorageID uint      `gorm:"not null;index:idx_user_storage_operator,unique" json:"storage_id"`
	Operator  string    `gorm:"size:32;not null;index:idx_user_storage_operator,unique" json:"operator"`
	CreatedAt time.Time `json:"created_at"`
}
