// Package filter narrows a dataset by date range and location. Both filters
// are pure projections and commute with each other.
package filter

import (
	"github.com/Alias1177/Covidash/models"
)

// ByDateRange keeps rows whose date falls inside the range, bounds included.
func ByDateRange(ds *models.Dataset, r models.DateRange) *models.Dataset {
	var kept []models.Observation
	for _, o := range ds.Observations {
		if r.Contains(o.Date) {
			kept = append(kept, o)
		}
	}
	return models.NewDataset(kept, ds.Measures())
}

// ByLocation keeps rows whose location is a member of the set. An empty set
// yields an empty dataset, not an error.
func ByLocation(ds *models.Dataset, locations []string) *models.Dataset {
	member := make(map[string]bool, len(locations))
	for _, l := range locations {
		member[l] = true
	}

	var kept []models.Observation
	for _, o := range ds.Observations {
		if member[o.Location] {
			kept = append(kept, o)
		}
	}
	return models.NewDataset(kept, ds.Measures())
}
