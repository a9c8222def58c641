package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"filegate/internal/models"
	"filegate/internal/storage"
)

// ListStorages returns the enabled storage sources in display order, without
// their params — this is the public listing, params carry credentials.
func ListStorages(svc *storage.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sources, err := svc.List(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		type storageResp struct {
			ID   uint               `json:"id"`
			Name string             `json:"name"`
			Key  string             `json:"key"`
			Type models.StorageType `json:"type"`
		}
		out := make([]storageResp, 0, len(sources))
		for _, s := range sources {
			if !s.Enabled {
				continue
			}
			out = append(out, storageResp{ID: s.ID, Name: s.Name, Key: s.Key, Type: s.Type})
		}
		c.JSON(http.StatusOK, gin.H{"storages": out})
	}
}

// ListStoragesAdmin returns every source with full configuration.
func ListStoragesAdmin(svc *storage.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sources, err := svc.List(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"storages": sources})
	}
}

// CreateStorage registers a new storage source.
func CreateStorage(db *gorm.DB, svc *storage.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name      string         `json:"name" binding:"required"`
			Key       string         `json:"key" binding:"required"`
			Type      string         `json:"type" binding:"required,oneof=local s3 onedrive onedrive_china"`
			Params    datatypes.JSON `json:"params"`
			Remark    string         `json:"remark"`
			Enabled   *bool          `json:"enabled"`
			SortOrder int            `json:"sort_order"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		src := models.StorageSource{
			Name:      input.Name,
			Key:       input.Key,
			Type:      models.StorageType(input.Type),
			Params:    input.Params,
			Remark:    input.Remark,
			Enabled:   input.Enabled == nil || *input.Enabled,
			SortOrder: input.SortOrder,
		}
		if err := svc.Create(c, &src); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		record(db, c, "storages.create", "storage", src.ID, map[string]any{"key": src.Key, "type": src.Type})
		c.JSON(http.StatusCreated, gin.H{"storage": src})
	}
}

// UpdateStorage updates name/params/flags of an existing source.
func UpdateStorage(db *gorm.DB, svc *storage.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		src, err := svc.Get(c, id)
		if err != nil {
			storageError(c, err)
			return
		}

		var input struct {
			Name      *string         `json:"name"`
			Params    *datatypes.JSON `json:"params"`
			Remark    *string         `json:"remark"`
			Enabled   *bool           `json:"enabled"`
			SortOrder *int            `json:"sort_order"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if input.Name != nil {
			src.Name = *input.Name
		}
		if input.Params != nil {
			src.Params = *input.Params
		}
		if input.Remark != nil {
			src.Remark = *input.Remark
		}
		if input.Enabled != nil {
			src.Enabled = *input.Enabled
		}
		if input.SortOrder != nil {
			src.SortOrder = *input.SortOrder
		}

		if err := svc.Update(c, src); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		record(db, c, "storages.update", "storage", src.ID, nil)
		c.JSON(http.StatusOK, gin.H{"storage": src})
	}
}

// DeleteStorage removes a source; filter rules cascade through the delete
// subscription.
func DeleteStorage(db *gorm.DB, svc *storage.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := svc.Delete(c, id); err != nil {
			storageError(c, err)
			return
		}

		record(db, c, "storages.delete", "storage", id, nil)
		c.JSON(http.StatusOK, gin.H{"deleted": id})
	}
}

// CopyStorage duplicates a source together with its dependent configuration.
func CopyStorage(db *gorm.DB, svc *storage.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		newID, err := svc.Copy(c, id)
		if err != nil {
			storageError(c, err)
			return
		}

		record(db, c, "storages.copy", "storage", id, map[string]any{"new_id": newID})
		c.JSON(http.StatusCreated, gin.H{"from": id, "new_id": newID})
	}
}

func storageError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "storage source not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
