package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"filegate/internal/auth"
	"filegate/internal/config"
	"filegate/internal/filter"
	"filegate/internal/models"
	"filegate/internal/storage"
	"filegate/internal/storage/onedrive"
)

// localParams is the params JSON of a local-type storage source.
type localParams struct {
	Root string `json:"root"`
}

type fileEntry struct {
	Name             string    `json:"name"`
	Size             int64     `json:"size"`
	Dir              bool      `json:"dir"`
	ModifiedAt       time.Time `json:"modified_at"`
	DownloadDisabled bool      `json:"download_disabled"`
}

// BrowseStorage lists a folder of a storage source with the filter rules
// applied: hidden entries are dropped, inaccessible paths return 403 and
// download-blocked files are flagged.
func BrowseStorage(storages *storage.Service, filters *filter.Service, providers config.Providers) gin.HandlerFunc {
	return func(c *gin.Context) {
		src, ok := browseSource(c, storages)
		if !ok {
			return
		}
		userID := auth.UserID(c)
		reqPath := cleanPath(c.Param("path"))

		if denied, err := filters.CheckInaccessible(c, userID, src.ID, strings.TrimPrefix(reqPath, "/")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		} else if denied && reqPath != "/" {
			c.JSON(http.StatusForbidden, gin.H{"error": "path is not accessible"})
			return
		}

		var (
			entries []fileEntry
			err     error
		)
		switch src.Type {
		case models.StorageTypeLocal:
			entries, err = listLocal(src, reqPath)
		case models.StorageTypeOneDrive, models.StorageTypeOneDriveChina:
			entries, err = listOneDrive(c, src, reqPath, providers)
		default:
			c.JSON(http.StatusNotImplemented, gin.H{"error": "browsing not supported for storage type " + string(src.Type)})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		out := make([]fileEntry, 0, len(entries))
		for _, e := range entries {
			hidden, err := filters.CheckHidden(c, userID, src.ID, e.Name)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if hidden {
				continue
			}
			if !e.Dir {
				rel := strings.TrimPrefix(path.Join(reqPath, e.Name), "/")
				e.DownloadDisabled, err = filters.CheckDisableDownload(c, userID, src.ID, rel)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
			}
			out = append(out, e)
		}

		c.JSON(http.StatusOK, gin.H{"path": reqPath, "entries": out})
	}
}

// DownloadFile serves a file of a local storage source after checking the
// inaccessible and disable-download rules against it.
func DownloadFile(storages *storage.Service, filters *filter.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		src, ok := browseSource(c, storages)
		if !ok {
			return
		}
		if src.Type != models.StorageTypeLocal {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "direct download only supported for local storage"})
			return
		}
		userID := auth.UserID(c)
		reqPath := cleanPath(c.Param("path"))
		rel := strings.TrimPrefix(reqPath, "/")

		if denied, err := filters.CheckInaccessible(c, userID, src.ID, rel); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		} else if denied {
			c.JSON(http.StatusForbidden, gin.H{"error": "path is not accessible"})
			return
		}
		if blocked, err := filters.CheckDisableDownload(c, userID, src.ID, rel); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		} else if blocked {
			c.JSON(http.StatusForbidden, gin.H{"error": "download is disabled for this file"})
			return
		}

		var params localParams
		if err := json.Unmarshal(src.Params, &params); err != nil || params.Root == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage source has no root path configured"})
			return
		}
		c.File(path.Join(params.Root, rel))
	}
}

func browseSource(c *gin.Context, storages *storage.Service) (*models.StorageSource, bool) {
	src, err := storages.GetByKey(c, c.Param("key"))
	if err != nil {
		storageError(c, err)
		return nil, false
	}
	if !src.Enabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "storage source is disabled"})
		return nil, false
	}
	return src, true
}

// cleanPath normalizes the wildcard path param and refuses traversal.
func cleanPath(p string) string {
	p = path.Clean("/" + p)
	return p
}

func listLocal(src *models.StorageSource, reqPath string) ([]fileEntry, error) {
	var params localParams
	if err := json.Unmarshal(src.Params, &params); err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(path.Join(params.Root, strings.TrimPrefix(reqPath, "/")))
	if err != nil {
		return nil, err
	}

	entries := make([]fileEntry, 0, len(dirents))
	for _, d := range dirents {
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, fileEntry{
			Name:       d.Name(),
			Size:       info.Size(),
			Dir:        d.IsDir(),
			ModifiedAt: info.ModTime(),
		})
	}
	return entries, nil
}

func listOneDrive(c *gin.Context, src *models.StorageSource, reqPath string, providers config.Providers) ([]fileEntry, error) {
	var params onedrive.Params
	if err := json.Unmarshal(src.Params, &params); err != nil {
		return nil, err
	}

	client := onedriveClient(src.Type, params, providers)
	items, err := client.ListChildren(c, reqPath)
	if err != nil {
		return nil, err
	}

	entries := make([]fileEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, fileEntry{
			Name:       it.Name,
			Size:       it.Size,
			Dir:        it.IsFolder(),
			ModifiedAt: it.LastModified,
		})
	}
	return entries, nil
}

func onedriveClient(t models.StorageType, params onedrive.Params, providers config.Providers) *onedrive.Client {
	if t == models.StorageTypeOneDriveChina {
		return onedrive.NewChina(params, providers.OneDriveChina)
	}
	return onedrive.New(params, providers.OneDrive)
}
