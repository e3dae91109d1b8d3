// One-shot forecast: load the dataset, filter to a location and range, fit,
// and write the forecast CSV to a file or stdout.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Covidash/config"
	"github.com/Alias1177/Covidash/internal/dataset"
	"github.com/Alias1177/Covidash/internal/export"
	"github.com/Alias1177/Covidash/internal/filter"
	"github.com/Alias1177/Covidash/internal/forecast"
	"github.com/Alias1177/Covidash/models"
)

func main() {
	location := flag.String("location", "", "location to forecast (required)")
	measureName := flag.String("measure", string(models.MeasureNewCases), "measure to forecast")
	horizon := flag.Int("horizon", 0, "forecast horizon in days (0 = configured default)")
	from := flag.String("from", "", "history start date (YYYY-MM-DD, default: configured trailing range)")
	to := flag.String("to", "", "history end date (YYYY-MM-DD, default: dataset max)")
	output := flag.String("o", "", "output file (default: stdout)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration failed")
	}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	if *location == "" {
		log.Fatal().Msg("-location is required")
	}
	measure, err := models.ParseMeasure(*measureName)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid measure")
	}
	if *horizon == 0 {
		*horizon = cfg.DefaultHorizon
	}

	ctx := context.Background()
	loader := dataset.New(dataset.NewXLSXSource(cfg.DatasetPath, cfg.DatasetSheet))
	ds, err := loader.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Dataset load failed")
	}
	if !ds.HasMeasure(measure) {
		log.Fatal().Str("measure", string(measure)).Msg("Measure not present in this dataset")
	}

	start := models.AddDays(ds.MaxDate(), -cfg.DefaultRangeDays)
	end := ds.MaxDate()
	if *from != "" {
		if start, err = models.ParseDay(*from); err != nil {
			log.Fatal().Err(err).Msg("Invalid -from date")
		}
	}
	if *to != "" {
		if end, err = models.ParseDay(*to); err != nil {
			log.Fatal().Err(err).Msg("Invalid -to date")
		}
	}
	rng, err := models.NewDateRange(start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid date range")
	}
	rng = rng.ClampTo(ds)

	sub := filter.ByLocation(filter.ByDateRange(ds, rng), []string{*location})
	series, err := sub.Series(*location, measure)
	if err != nil {
		log.Fatal().Err(err).Msg("No data for selection")
	}

	adapter := forecast.NewAdapter(
		forecast.NewLinearBackend(),
		cfg.MinHorizonDays,
		cfg.MaxHorizonDays,
		time.Duration(cfg.ForecastCacheTTL)*time.Minute,
	)
	resp, err := adapter.ForecastSeries(ctx, series, *horizon)
	if err != nil {
		log.Fatal().Err(err).Msg("Forecast failed")
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatal().Err(err).Msg("Creating output file failed")
		}
		defer f.Close()
		w = f
	}
	if err := export.ForecastCSV(w, resp); err != nil {
		log.Fatal().Err(err).Msg("Writing forecast CSV failed")
	}

	log.Info().
		Str("location", *location).
		Str("measure", string(measure)).
		Int("horizon_days", *horizon).
		Int("rows", resp.Len()).
		Msg("Forecast written")
}
