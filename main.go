package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tern-robotics/episode.report/api"
	"github.com/tern-robotics/episode.report/internal/config"
	"github.com/tern-robotics/episode.report/internal/db"
	"github.com/tern-robotics/episode.report/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "reports.db", "Path to the reports database")
	dataRoot   = flag.String("data-root", "", "Directory holding datasets; labels outside it are rejected")
	tuningFile = flag.String("tuning", "", "Optional JSON tuning config for the quality engine")
	migrations = flag.String("migrations", "db/migrations", "Path to migration files")
	devMode    = flag.Bool("dev", false, "Run in dev mode (verbose logging)")
)

func main() {
	flag.Parse()

	if !*devMode {
		log.SetFlags(log.LstdFlags)
	}
	log.Printf("episode-quality-server %s", version.String())

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database %s: %v", *dbFile, err)
	}
	defer database.Close()

	if _, err := os.Stat(*migrations); err == nil {
		if err := database.MigrateUp(*migrations); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}

	tuning, err := config.LoadTuningConfig(*tuningFile)
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}

	server := api.NewServer(database, nil, tuning)
	if *dataRoot != "" {
		server.SetDataRoot(*dataRoot)
	}
	mux := server.ServeMux()
	database.AttachAdminRoutes(mux)

	httpServer := &http.Server{
		Addr:    *listen,
		Handler: mux,
	}

	go func() {
		log.Printf("listening on %s", *listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
