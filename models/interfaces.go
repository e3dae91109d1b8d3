package models

import "context"

// ObservationSource reads raw rows from a backing store. It returns the rows
// restricted to the recognized column set together with the measures the
// store's schema actually carried.
type ObservationSource interface {
	Observations(ctx context.Context) ([]Observation, []Measure, error)
}

// ForecastBackend fits a model on the history and produces point estimates
// with lower/upper bounds for every historical timestamp plus horizonDays
// consecutive daily steps after the last one. Any implementation honoring
// this contract is substitutable.
type ForecastBackend interface {
	Forecast(ctx context.Context, input ForecastInput, horizonDays int) (*ForecastResponse, error)
}
