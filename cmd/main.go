package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Covidash/config"
	"github.com/Alias1177/Covidash/internal/dataset"
	"github.com/Alias1177/Covidash/internal/forecast"
	"github.com/Alias1177/Covidash/internal/server"
	"github.com/Alias1177/Covidash/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration failed")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	var source models.ObservationSource
	if cfg.DatabaseURL != "" {
		pg, err := dataset.NewPostgresSource(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Connecting to the observation database failed")
		}
		defer pg.Close()
		source = pg
		log.Info().Msg("Using postgres observation source")
	} else {
		source = dataset.NewXLSXSource(cfg.DatasetPath, cfg.DatasetSheet)
		log.Info().Str("path", cfg.DatasetPath).Msg("Using workbook observation source")
	}

	loader := dataset.New(source)
	adapter := forecast.NewAdapter(
		forecast.NewLinearBackend(),
		cfg.MinHorizonDays,
		cfg.MaxHorizonDays,
		time.Duration(cfg.ForecastCacheTTL)*time.Minute,
	)

	// Warm the dataset cache up front so a broken store fails the process
	// at startup instead of on the first request.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if _, err := loader.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Initial dataset load failed")
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.New(cfg, loader, adapter).Router(),
		ReadTimeout:  time.Duration(cfg.RequestTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Dashboard API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown did not finish cleanly")
	}
}
