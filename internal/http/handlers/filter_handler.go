package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"filegate/internal/filter"
	"filegate/internal/models"
)

// ListFilterRules returns every rule of a storage source in storage order.
func ListFilterRules(svc *filter.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		storageID, ok := pathID(c, "id")
		if !ok {
			return
		}
		rules, err := svc.FindByStorageID(storageID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rules": rules})
	}
}

// SaveFilterRules replaces the rule set of a storage source atomically.
func SaveFilterRules(db *gorm.DB, svc *filter.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		storageID, ok := pathID(c, "id")
		if !ok {
			return
		}

		var input struct {
			Rules []struct {
				Expression  string `json:"expression"`
				Description string `json:"description"`
				Mode        string `json:"mode" binding:"required,oneof=hidden inaccessible disable_download"`
			} `json:"rules" binding:"dive"` // empty list clears the rule set
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// The source must exist; rules of unknown sources are unreachable
		// anyway but saving them would leak orphan rows.
		var count int64
		if err := db.Model(&models.StorageSource{}).Where("id = ?", storageID).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if count == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "storage source not found"})
			return
		}

		rules := make([]models.FilterRule, 0, len(input.Rules))
		for _, r := range input.Rules {
			rules = append(rules, models.FilterRule{
				Expression:  r.Expression,
				Description: r.Description,
				Mode:        models.RuleMode(r.Mode),
			})
		}

		if err := svc.BatchSave(storageID, rules); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		record(db, c, "filters.save", "storage", storageID, map[string]any{"rules": len(rules)})
		c.JSON(http.StatusOK, gin.H{"saved": len(rules)})
	}
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
