package main

import (
	"log"
	"net/http"
	"time"

	"startupconnect/internal/common"
	"startupconnect/internal/config"
	"startupconnect/internal/di"
)

func main() {
	cfg := config.LoadConfig()
	logFile, err := common.SetupLogging(cfg.Logging.OutputPath)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	app, cleanup, err := di.InitializeMediaServer(cfg)
	if err != nil {
		log.Fatalf("Failed to connect attachment storage: %v", err)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.MediaServerPort,
		Handler:           app.Media,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Media HTTP Server starting on port %s", cfg.Server.MediaServerPort)
	log.Printf("Serving files at: %s/{fileId}", cfg.Server.MediaBaseURL)

	if err := srv.ListenAndServe(); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
