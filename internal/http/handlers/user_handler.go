package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"filegate/internal/auth"
	"filegate/internal/models"
)

// ListUsers returns all users from DB
func ListUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []models.User
		if err := db.Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		type userResp struct {
			ID     uint              `json:"id"`
			Email  string            `json:"email"`
			Name   string            `json:"name"`
			Admin  bool              `json:"admin"`
			Status models.UserStatus `json:"status"`
		}
		out := make([]userResp, 0, len(users))
		for _, u := range users {
			out = append(out, userResp{ID: u.ID, Email: u.Email, Name: u.Name, Admin: u.Admin, Status: u.Status})
		}
		c.JSON(http.StatusOK, gin.H{"users": out})
	}
}

// CreateUser inserts a new user
func CreateUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required,email"`
			Name     string `json:"name" binding:"required"`
			Password string `json:"password" binding:"required"`
			Admin    bool   `json:"admin"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		input.Email = strings.TrimSpace(strings.ToLower(input.Email))
		input.Name = strings.TrimSpace(input.Name)

		if len(input.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
			return
		}

		var existing int64
		if err := db.Model(&models.User{}).Where("email = ?", input.Email).Count(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if existing > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}

		user := models.User{
			Email:        input.Email,
			Name:         input.Name,
			Admin:        input.Admin,
			Status:       models.UserActive,
			PasswordHash: string(hash),
		}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		record(db, c, "users.create", "user", user.ID, map[string]any{"email": user.Email})
		c.JSON(http.StatusCreated, gin.H{"user": gin.H{
			"id": user.ID, "email": user.Email, "name": user.Name, "admin": user.Admin,
		}})
	}
}

// MeHandler returns the current user together with their storage grants.
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.UserID(c)

		var user models.User
		if err := db.Preload("Grants").First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":     user.ID,
			"email":  user.Email,
			"name":   user.Name,
			"admin":  user.Admin,
			"grants": user.Grants,
		})
	}
}

// SaveUserGrants replaces one user's operator grants on one storage source.
func SaveUserGrants(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := pathID(c, "id")
		if !ok {
			return
		}

		var input struct {
			StorageID uint     `json:"storage_id" binding:"required"`
			Operators []string `json:"operators" binding:"required,dive,oneof=ignore_hidden upload delete rename new_folder"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ? AND storage_id = ?", userID, input.StorageID).
				Delete(&models.UserStorageGrant{}).Error; err != nil {
				return err
			}
			for _, op := range input.Operators {
				grant := models.UserStorageGrant{UserID: userID, StorageID: input.StorageID, Operator: op}
				if err := tx.Create(&grant).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		record(db, c, "users.grants", "user", userID, map[string]any{
			"storage_id": input.StorageID, "operators": input.Operators,
		})
		c.JSON(http.StatusOK, gin.H{"saved": len(input.Operators)})
	}
}
