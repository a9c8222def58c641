package perm

import (
	"context"

	"gorm.io/gorm"

	"filegate/internal/models"
)

// Checker resolves per-user storage operator permissions.
type Checker struct{ DB *gorm.DB }

// HasStoragePermission reports whether the user holds the given operator
// permission on the storage source. Anonymous visitors (userID 0) hold
// nothing.
func (c Checker) HasStoragePermission(ctx context.Context, userID, storageID uint, operator string) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var count int64
	err := c.DB.WithContext(ctx).
		Model(&models.UserStorageGrant{}).
		Where("user_id = ? AND storage_id = ? AND operator = ?", userID, storageID, operator).
		Count(&count).Error
	return count > 0, err
}

// IsAdmin reports whether the user exists, is active and has the admin flag.
func (c Checker) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var count int64
	err := c.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND admin = ? AND status = ?", userID, true, models.UserActive).
		Count(&count).Error
	return count > 0, err
}
