package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jengzang/greenarea-go/internal/app"
	"github.com/jengzang/greenarea-go/internal/config"
	"github.com/jengzang/greenarea-go/internal/database"
	"github.com/jengzang/greenarea-go/internal/repository"
	"github.com/jengzang/greenarea-go/internal/service"
)

// ShutdownTimeout bounds the graceful stop of the server and its runs
const ShutdownTimeout = 30 * time.Second

// Serve runs the API until ctx is cancelled
func Serve(ctx context.Context, cfg *config.Config) error {
	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()
	db := database.GetDB()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	runs := service.NewRunService(
		repository.NewRunRepository(db),
		repository.NewRunTaskRepository(db),
		repository.NewAreaRecordRepository(db),
		a.Runner(),
		cfg.Plan(),
	)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           SetupRouter(cfg, runs, a.Registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	return runs.Shutdown(shutdownCtx)
}
