// Package trend derives moving-average and growth-rate series from a raw
// per-location time series. Both transforms keep the input's dates and
// length exactly; only values (and their validity) change.
package trend

import (
	"github.com/Alias1177/Covidash/models"
)

// MovingAverage computes a strict trailing rolling mean: the output at index
// i is the mean of the window values ending at i. Positions without a full
// window of defined values stay undefined; no partial windows are computed.
func MovingAverage(s models.TimeSeries, window int) models.TimeSeries {
	if window < 1 {
		window = 1
	}

	out := make(models.TimeSeries, len(s))
	for i, p := range s {
		out[i] = models.Point{Date: p.Date}

		if i+1 < window {
			continue
		}
		sum := 0.0
		full := true
		for j := i - window + 1; j <= i; j++ {
			if !s[j].Valid {
				full = false
				break
			}
			sum += s[j].Value
		}
		if full {
			out[i].Value = sum / float64(window)
			out[i].Valid = true
		}
	}
	return out
}

// GrowthRate computes the period-over-period percentage change. The output
// is 0 at index 0 and wherever the previous value is zero or either neighbor
// is absent, so the result never carries Inf or NaN.
func GrowthRate(s models.TimeSeries) models.TimeSeries {
	out := make(models.TimeSeries, len(s))
	for i, p := range s {
		out[i] = models.Point{Date: p.Date, Valid: true}

		if i == 0 {
			continue
		}
		prev := s[i-1]
		if !prev.Valid || prev.Value == 0 || !p.Valid {
			continue
		}
		out[i].Value = (p.Value - prev.Value) / prev.Value * 100
	}
	return out
}
