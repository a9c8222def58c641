package httpserver

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"filegate/internal/auth"
	"filegate/internal/config"
	"filegate/internal/filter"
	"filegate/internal/http/handlers"
	"filegate/internal/storage"
)

func NewRouter(db *gorm.DB, cfg config.Config, providers config.Providers,
	storages *storage.Service, filters *filter.Service) *gin.Engine {

	r := gin.Default()

	// Public routes
	r.POST("/api/v1/auth/login", handlers.LoginHandler(db, cfg.JWTSecret))
	r.GET("/logout", handlers.LogoutHandler())

	// Browse routes: anonymous visitors allowed, filter rules still apply
	// (visitors never hold the ignore_hidden bypass).
	visitor := auth.Visitor(db, cfg.JWTSecret)
	browse := r.Group("/api/v1", visitor)
	{
		browse.GET("/storages", handlers.ListStorages(storages))
		browse.GET("/browse/:key/*path", handlers.BrowseStorage(storages, filters, providers))
		browse.GET("/download/:key/*path", handlers.DownloadFile(storages, filters))
	}

	// Protected API routes
	authMW := auth.JWT(db, cfg.JWTSecret)
	api := r.Group("/api/v1", authMW)
	{
		api.GET("/me", handlers.MeHandler(db))
	}

	// Admin routes
	admin := r.Group("/api/v1/admin", authMW, auth.AdminOnly())
	{
		// Storage sources
		admin.GET("/storages", handlers.ListStoragesAdmin(storages))
		admin.POST("/storages", handlers.CreateStorage(db, storages))
		admin.PUT("/storages/:id", handlers.UpdateStorage(db, storages))
		admin.DELETE("/storages/:id", handlers.DeleteStorage(db, storages))
		admin.POST("/storages/:id/copy", handlers.CopyStorage(db, storages))

		// Filter rules
		admin.GET("/storages/:id/filters", handlers.ListFilterRules(filters))
		admin.PUT("/storages/:id/filters", handlers.SaveFilterRules(db, filters))

		// OneDrive connect flow
		admin.GET("/storages/:id/onedrive/authorize-url", handlers.OneDriveAuthorizeURL(storages, providers))
		admin.POST("/storages/:id/onedrive/callback", handlers.OneDriveCallback(db, storages, providers))

		// Users & grants
		admin.GET("/users", handlers.ListUsers(db))
		admin.POST("/users", handlers.CreateUser(db))
		admin.PUT("/users/:id/grants", handlers.SaveUserGrants(db))

		// Audit trail
		admin.GET("/audit", handlers.ListAudit(db))
	}

	return r
}
