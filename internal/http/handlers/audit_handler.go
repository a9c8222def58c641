package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"filegate/internal/auth"
	"filegate/internal/models"
)

// record writes an audit log entry for an admin mutation. Failures are
// swallowed; auditing must never fail the request.
func record(db *gorm.DB, c *gin.Context, action, resourceType string, resourceID uint, meta map[string]any) {
	var metaJSON datatypes.JSON
	if meta != nil {
		if data, err := json.Marshal(meta); err == nil {
			metaJSON = data
		}
	}

	entry := models.AuditLog{
		UserID:       auth.UserID(c),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metaJSON,
		IP:           c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	}
	if claimsI, ok := c.Get("claims"); ok {
		entry.InitiatorName = claimsI.(*auth.Claims).Email
	}
	db.Create(&entry)
}

// ListAudit returns the audit trail, newest first, cursor-paginated.
func ListAudit(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 20
		if limitStr := c.Query("limit"); limitStr != "" {
			if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
				limit = parsed
			}
		}

		var afterID uint64
		if cursorStr := c.Query("after_id"); cursorStr != "" {
			if parsed, err := strconv.ParseUint(cursorStr, 10, 64); err == nil && parsed > 0 {
				afterID = parsed
			}
		}

		search := strings.TrimSpace(c.Query("q"))

		query := db.Model(&models.AuditLog{}).Order("id DESC")
		if afterID > 0 {
			query = query.Where("id < ?", afterID)
		}
		if search != "" {
			like := "%" + search + "%"
			query = query.Where("(initiator_name LIKE ? OR action LIKE ? OR resource_type LIKE ? OR ip LIKE ?)",
				like, like, like, like)
		}

		var logs []models.AuditLog
		if err := query.Limit(limit + 1).Find(&logs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var nextCursor *uint
		if len(logs) > limit {
			next := logs[limit].ID
			logs = logs[:limit]
			nextCursor = &next
		}

		c.JSON(http.StatusOK, gin.H{
			"logs":        logs,
			"next_cursor": nextCursor,
		})
	}
}
