package main

import (
	"time"

	"github.com/campushare/noteshelf/config"
	"github.com/campushare/noteshelf/models"
	"github.com/campushare/noteshelf/routes"
	"github.com/campushare/noteshelf/storage"
	"github.com/campushare/noteshelf/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Note{})

	store, err := storage.NewDiskStore(cfg.StorageDir)
	if err != nil {
		utils.Sugar.Fatalf("failed to prepare storage directory: %v", err)
	}

	r := routes.SetupRouter(db, store)

	// Best-effort cleanup of files left behind by crashes mid-upload
	utils.StartOrphanSweeper(time.Duration(cfg.OrphanSweepMinutes) * time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
