package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gitlab.com/dirk.krummacker/membership-service/internal/config"
	"gitlab.com/dirk.krummacker/membership-service/internal/logger"
	"gitlab.com/dirk.krummacker/membership-service/internal/service"
	"gitlab.com/dirk.krummacker/membership-service/internal/storage"
	"gitlab.com/dirk.krummacker/membership-service/internal/store"
)

// Usage example on the command line:
// > PORT=8080 STORAGE=mysql DBUSER=dirk DBPWD=bullo92 GIN_MODE=release GIN_LOGGING=OFF go run main.go
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("could not load configuration", err)
		panic(err)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx := context.Background()
	slot, closeSlot, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Error("could not open storage", "storage", cfg.Storage, "error", err)
		os.Exit(1)
	}
	defer closeSlot()
	log.Info("storage opened", "storage", cfg.Storage, "key", cfg.SlotKey)

	members := store.Open(ctx, slot, store.WithLogger(log))
	router := service.New(members, log).SetupHttpRouter(cfg.GinLogging)
	if err := router.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
