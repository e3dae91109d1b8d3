package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Alias1177/Covidash/models"
)

// Weekday offsets need at least two observations per weekday to mean
// anything; below this many points the seasonal term is left at zero.
const minSeasonalPoints = 14

// LinearBackend is the default forecasting collaborator: an ordinary
// least-squares trend with a day-of-week seasonal component and uncertainty
// bands derived from the residual spread. Bands widen with distance past the
// end of the history.
type LinearBackend struct {
	z float64 // band half-width in residual standard deviations
}

// NewLinearBackend returns a backend with ~95% bands.
func NewLinearBackend() *LinearBackend {
	return &LinearBackend{z: 1.96}
}

// Forecast fits the history and emits one row per historical date plus
// horizonDays consecutive daily dates after the last one.
func (b *LinearBackend) Forecast(ctx context.Context, input models.ForecastInput, horizonDays int) (*models.ForecastResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(input.Times)
	if n < 2 || len(input.Values) != n {
		return nil, fmt.Errorf("history of %d points: %w", n, models.ErrInsufficientHistory)
	}
	if horizonDays < 0 {
		return nil, fmt.Errorf("negative horizon %d: %w", horizonDays, models.ErrInvalidHorizon)
	}

	base := models.Day(input.Times[0])
	xs := make([]float64, n)
	for i, t := range input.Times {
		xs[i] = models.Day(t).Sub(base).Hours() / 24
	}
	alpha, beta := stat.LinearRegression(xs, input.Values, nil, false)

	// Day-of-week offsets from the detrended residuals.
	var offsets [7]float64
	if n >= minSeasonalPoints {
		var sums [7]float64
		var counts [7]int
		for i, t := range input.Times {
			w := models.Day(t).Weekday()
			sums[w] += input.Values[i] - (alpha + beta*xs[i])
			counts[w]++
		}
		for w := range offsets {
			if counts[w] > 0 {
				offsets[w] = sums[w] / float64(counts[w])
			}
		}
	}

	residuals := make([]float64, n)
	for i, t := range input.Times {
		fitted := alpha + beta*xs[i] + offsets[models.Day(t).Weekday()]
		residuals[i] = input.Values[i] - fitted
	}
	sd := stat.StdDev(residuals, nil)
	if math.IsNaN(sd) {
		sd = 0
	}

	last := models.Day(input.Times[n-1])
	total := n + horizonDays
	resp := &models.ForecastResponse{
		Dates:    make([]time.Time, 0, total),
		Forecast: make([]float64, 0, total),
		Lower:    make([]float64, 0, total),
		Upper:    make([]float64, 0, total),
	}

	emit := func(date time.Time) {
		x := date.Sub(base).Hours() / 24
		point := alpha + beta*x + offsets[date.Weekday()]

		spread := b.z * sd
		if date.After(last) {
			ahead := date.Sub(last).Hours() / 24
			spread *= math.Sqrt(1 + ahead/float64(n))
		}

		resp.Dates = append(resp.Dates, date)
		resp.Forecast = append(resp.Forecast, point)
		resp.Lower = append(resp.Lower, point-spread)
		resp.Upper = append(resp.Upper, point+spread)
	}

	for _, t := range input.Times {
		emit(models.Day(t))
	}
	for d := 1; d <= horizonDays; d++ {
		emit(models.AddDays(last, d))
	}
	return resp, nil
}
