package main

import (
	"fmt"
	"log"

	"filegate/internal/config"
	"filegate/internal/db"
	"filegate/internal/filter"
	httpserver "filegate/internal/http"
	"filegate/internal/models"
	"filegate/internal/perm"
	"filegate/internal/seed"
	"filegate/internal/storage"
)

func main() {
	cfg := config.Load()
	providers := config.LoadProviders(cfg.ProvidersFile)

	gdb := db.Connect(cfg.DSN)
	db.AutoMigrate(gdb,
		&models.User{},
		&models.StorageSource{},
		&models.FilterRule{},
		&models.UserStorageGrant{},
		&models.AuditLog{},
	)

	if err := seed.FirstSetup(gdb, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("❌ First setup failed: %v", err)
	}

	storages := storage.NewService(gdb)
	filters := filter.NewService(gdb, perm.Checker{DB: gdb})

	// Filter rules follow their storage source through delete and copy.
	storages.SubscribeDelete(filters.OnStorageDelete)
	storages.SubscribeCopy(filters.OnStorageCopy)

	r := httpserver.NewRouter(gdb, cfg, providers, storages, filters)
	log.Printf("🚀 Server listening on :%s\n", cfg.AppPort)
	r.Run(fmt.Sprintf(":%s", cfg.AppPort))
}
