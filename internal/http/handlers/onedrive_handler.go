package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"filegate/internal/config"
	"filegate/internal/models"
	"filegate/internal/storage"
	"filegate/internal/storage/onedrive"
)

// OneDriveAuthorizeURL returns the OAuth authorization URL for a OneDrive
// type storage source. The storage id travels in the state parameter so the
// callback can find the source again.
func OneDriveAuthorizeURL(storages *storage.Service, providers config.Providers) gin.HandlerFunc {
	return func(c *gin.Context) {
		src, params, ok := onedriveSource(c, storages)
		if !ok {
			return
		}
		client := onedriveClient(src.Type, params, providers)
		c.JSON(http.StatusOK, gin.H{
			"authorize_url": client.AuthorizeURL(strconv.FormatUint(uint64(src.ID), 10)),
		})
	}
}

// OneDriveCallback exchanges the OAuth code and stores the token pair in the
// source's params.
func OneDriveCallback(db *gorm.DB, storages *storage.Service, providers config.Providers) gin.HandlerFunc {
	return func(c *gin.Context) {
		src, params, ok := onedriveSource(c, storages)
		if !ok {
			return
		}

		var input struct {
			Code string `json:"code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		client := onedriveClient(src.Type, params, providers)
		token, err := client.ExchangeCode(c, input.Code)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		params.AccessToken = token.AccessToken
		params.RefreshToken = token.RefreshToken
		data, err := json.Marshal(params)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		src.Params = data
		if err := storages.Update(c, src); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		record(db, c, "storages.onedrive_connect", "storage", src.ID, nil)
		c.JSON(http.StatusOK, gin.H{"connected": true})
	}
}

func onedriveSource(c *gin.Context, storages *storage.Service) (*models.StorageSource, onedrive.Params, bool) {
	var params onedrive.Params

	id, ok := pathID(c, "id")
	if !ok {
		return nil, params, false
	}
	src, err := storages.Get(c, id)
	if err != nil {
		storageError(c, err)
		return nil, params, false
	}
	if src.Type != models.StorageTypeOneDrive && src.Type != models.StorageTypeOneDriveChina {
		c.JSON(http.StatusBadRequest, gin.H{"error": "not a onedrive storage source"})
		return nil, params, false
	}
	if len(src.Params) > 0 {
		if err := json.Unmarshal(src.Params, &params); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return nil, params, false
		}
	}
	return src, params, true
}
