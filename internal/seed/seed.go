package seed

import (
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"filegate/internal/models"
)

// FirstSetup creates the admin account and a demo storage source on an empty
// database. Safe to run on every start.
func FirstSetup(db *gorm.DB, adminEmail, adminPassword string) error {
	// -------------------------
	// 1) Ensure admin user
	// -------------------------
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		if adminPassword == "" {
			adminPassword = "admin123!"
			log.Println("⚠️ ADMIN_PASSWORD not set, using the default — change it")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin := models.User{
			Email:        adminEmail,
			Name:         "Administrator",
			PasswordHash: string(hash),
			Admin:        true,
			Status:       models.UserActive,
		}
		if err := db.Create(&admin).Error; err != nil {
			return err
		}
		log.Printf("✅ Admin account %s created", adminEmail)
	}

	// -------------------------
	// 2) Ensure demo storage source
	// -------------------------
	demo := models.StorageSource{
		Name:   "Local files",
		Key:    "local",
		Type:   models.StorageTypeLocal,
		Params: datatypes.JSON(`{"root":"./data"}`),
	}
	if err := db.Where("`key` = ?", demo.Key).FirstOrCreate(&demo).Error; err != nil {
		return err
	}

	// -------------------------
	// 3) Sensible default filter rules for the demo source
	// -------------------------
	if err := db.Model(&models.FilterRule{}).Where("storage_id = ?", demo.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		defaults := []models.FilterRule{
			{StorageID: demo.ID, Expression: ".*", Mode: models.RuleModeHidden, Description: "dotfiles"},
			{StorageID: demo.ID, Expression: "*.tmp", Mode: models.RuleModeHidden, Description: "temp files"},
		}
		if err := db.Create(&defaults).Error; err != nil {
			return err
		}
	}

	return nil
}
