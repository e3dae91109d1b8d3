// Package forecast shapes per-location series into the history contract the
// forecasting backend expects, validates the horizon, and caches fits.
package forecast

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Covidash/models"
)

// PrepareForForecast drops absent points and reshapes the series into the
// (timestamp, value) history contract. Fitting degrades badly below two
// points, so shorter histories are rejected with ErrInsufficientHistory.
func PrepareForForecast(s models.TimeSeries) (models.ForecastInput, error) {
	var input models.ForecastInput
	for _, p := range s {
		if !p.Valid {
			continue
		}
		input.Times = append(input.Times, p.Date)
		input.Values = append(input.Values, p.Value)
	}
	if len(input.Times) < 2 {
		return models.ForecastInput{}, fmt.Errorf("%d usable points: %w", len(input.Times), models.ErrInsufficientHistory)
	}
	return input, nil
}

// Adapter drives the forecasting backend. A model fit is the one expensive
// step of the pipeline, so results are held in a TTL cache; the dataset is
// immutable after load, which keeps cached fits valid for a process's life.
type Adapter struct {
	backend    models.ForecastBackend
	minHorizon int
	maxHorizon int
	cache      *gocache.Cache
	logger     zerolog.Logger
}

// NewAdapter creates an adapter with the configured horizon bounds. A zero
// or negative cacheTTL disables fit caching.
func NewAdapter(backend models.ForecastBackend, minHorizon, maxHorizon int, cacheTTL time.Duration) *Adapter {
	a := &Adapter{
		backend:    backend,
		minHorizon: minHorizon,
		maxHorizon: maxHorizon,
		logger:     log.With().Str("component", "forecast_adapter").Logger(),
	}
	if cacheTTL > 0 {
		a.cache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return a
}

// Forecast validates the horizon, delegates to the backend and checks that
// the response honors the contract. Out-of-bounds horizons are rejected, not
// clamped.
func (a *Adapter) Forecast(ctx context.Context, input models.ForecastInput, horizonDays int) (*models.ForecastResponse, error) {
	if horizonDays < a.minHorizon || horizonDays > a.maxHorizon {
		return nil, fmt.Errorf("horizon %d outside [%d, %d]: %w",
			horizonDays, a.minHorizon, a.maxHorizon, models.ErrInvalidHorizon)
	}
	if len(input.Times) != len(input.Values) {
		return nil, fmt.Errorf("history has %d timestamps and %d values", len(input.Times), len(input.Values))
	}

	key := fingerprint(input, horizonDays)
	if a.cache != nil {
		if cached, ok := a.cache.Get(key); ok {
			a.logger.Debug().Str("key", key).Msg("Forecast served from cache")
			return cached.(*models.ForecastResponse), nil
		}
	}

	started := time.Now()
	resp, err := a.backend.Forecast(ctx, input, horizonDays)
	if err != nil {
		return nil, fmt.Errorf("forecast backend: %w", err)
	}
	if err := validateResponse(resp, len(input.Times)+horizonDays); err != nil {
		return nil, err
	}

	a.logger.Info().
		Int("history", len(input.Times)).
		Int("horizon_days", horizonDays).
		Dur("took", time.Since(started)).
		Msg("Forecast fitted")

	if a.cache != nil {
		a.cache.Set(key, resp, gocache.DefaultExpiration)
	}
	return resp, nil
}

// ForecastSeries prepares a raw series and forecasts it in one step.
func (a *Adapter) ForecastSeries(ctx context.Context, s models.TimeSeries, horizonDays int) (*models.ForecastResponse, error) {
	input, err := PrepareForForecast(s)
	if err != nil {
		return nil, err
	}
	return a.Forecast(ctx, input, horizonDays)
}

// validateResponse enforces the backend contract: one row per historical
// date plus the horizon, parallel slices, ordered bounds on every row.
func validateResponse(resp *models.ForecastResponse, wantLen int) error {
	if resp.Len() != wantLen ||
		len(resp.Forecast) != wantLen || len(resp.Lower) != wantLen || len(resp.Upper) != wantLen {
		return fmt.Errorf("backend returned %d rows, want %d", resp.Len(), wantLen)
	}
	for i := range resp.Dates {
		if resp.Lower[i] > resp.Forecast[i] || resp.Forecast[i] > resp.Upper[i] {
			return fmt.Errorf("backend bounds out of order at %s", resp.Dates[i].Format(models.DateLayout))
		}
	}
	return nil
}

// fingerprint keys a fit by its full history and horizon. Equal inputs hit
// the same cache entry regardless of which location produced them.
func fingerprint(input models.ForecastInput, horizonDays int) string {
	h := fnv.New64a()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(horizonDays))
	h.Write(buf[:])
	for i := range input.Times {
		binary.LittleEndian.PutUint64(buf[:], uint64(input.Times[i].Unix()))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(input.Values[i]))
		h.Write(buf[:])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
