package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Covidash/models"
)

func dailySeries(n int, value func(i int) float64) models.TimeSeries {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.TimeSeries, n)
	for i := 0; i < n; i++ {
		series[i] = models.Point{Date: start.AddDate(0, 0, i), Value: value(i), Valid: true}
	}
	return series
}

func TestPrepareForForecast(t *testing.T) {
	series := dailySeries(5, func(i int) float64 { return float64(i) })
	series[1].Valid = false
	series[3].Valid = false

	input, err := PrepareForForecast(series)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 2, 4}, input.Values, "absent points are dropped")
	require.Len(t, input.Times, 3)
	assert.Equal(t, series[2].Date, input.Times[1])
}

func TestPrepareForForecastInsufficientHistory(t *testing.T) {
	short := dailySeries(4, func(i int) float64 { return 1 })
	for i := 1; i < 4; i++ {
		short[i].Valid = false
	}

	_, err := PrepareForForecast(short)
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)

	_, err = PrepareForForecast(nil)
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)
}

// countingBackend wraps the real backend and counts fits, for cache tests.
type countingBackend struct {
	inner models.ForecastBackend
	fits  int
}

func (c *countingBackend) Forecast(ctx context.Context, input models.ForecastInput, horizonDays int) (*models.ForecastResponse, error) {
	c.fits++
	return c.inner.Forecast(ctx, input, horizonDays)
}

func TestAdapterHorizonBounds(t *testing.T) {
	adapter := NewAdapter(NewLinearBackend(), 7, 90, 0)
	series := dailySeries(30, func(i int) float64 { return float64(i) })
	input, err := PrepareForForecast(series)
	require.NoError(t, err)

	for _, horizon := range []int{-1, 0, 6, 91, 1000} {
		_, err := adapter.Forecast(context.Background(), input, horizon)
		assert.ErrorIs(t, err, models.ErrInvalidHorizon, "horizon %d", horizon)
	}

	for _, horizon := range []int{7, 30, 90} {
		resp, err := adapter.Forecast(context.Background(), input, horizon)
		require.NoError(t, err, "horizon %d", horizon)
		assert.Equal(t, len(input.Times)+horizon, resp.Len())
	}
}

func TestAdapterCachesFits(t *testing.T) {
	backend := &countingBackend{inner: NewLinearBackend()}
	adapter := NewAdapter(backend, 7, 90, time.Minute)
	series := dailySeries(30, func(i int) float64 { return float64(i * i) })
	input, err := PrepareForForecast(series)
	require.NoError(t, err)

	first, err := adapter.Forecast(context.Background(), input, 14)
	require.NoError(t, err)
	second, err := adapter.Forecast(context.Background(), input, 14)
	require.NoError(t, err)

	assert.Same(t, first, second, "identical request should hit the cache")
	assert.Equal(t, 1, backend.fits)

	// A different horizon is a different fit.
	_, err = adapter.Forecast(context.Background(), input, 21)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.fits)
}

func TestAdapterForecastSeries(t *testing.T) {
	adapter := NewAdapter(NewLinearBackend(), 7, 90, 0)

	resp, err := adapter.ForecastSeries(context.Background(), dailySeries(50, func(i int) float64 { return 100 + float64(i) }), 10)
	require.NoError(t, err)
	assert.Equal(t, 60, resp.Len())

	// The empty-selection pipeline ends up here with no points.
	_, err = adapter.ForecastSeries(context.Background(), nil, 10)
	assert.ErrorIs(t, err, models.ErrInsufficientHistory)
}

// brokenBackend returns bounds that violate the contract.
type brokenBackend struct{}

func (brokenBackend) Forecast(ctx context.Context, input models.ForecastInput, horizonDays int) (*models.ForecastResponse, error) {
	n := len(input.Times) + horizonDays
	resp := &models.ForecastResponse{
		Dates:    make([]time.Time, n),
		Forecast: make([]float64, n),
		Lower:    make([]float64, n),
		Upper:    make([]float64, n),
	}
	resp.Lower[0] = 1 // lower > forecast
	return resp, nil
}

func TestAdapterRejectsContractViolations(t *testing.T) {
	adapter := NewAdapter(brokenBackend{}, 7, 90, 0)
	input, err := PrepareForForecast(dailySeries(10, func(i int) float64 { return 1 }))
	require.NoError(t, err)

	_, err = adapter.Forecast(context.Background(), input, 7)
	assert.ErrorContains(t, err, "bounds out of order")
}
