package dataset

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Covidash/models"
)

// Loader reads the backing store at most once per process and hands the same
// immutable dataset to every caller. A failed load is not cached, so the
// next caller hits the store again.
type Loader struct {
	source models.ObservationSource
	logger zerolog.Logger

	mu      sync.Mutex
	dataset *models.Dataset
}

// New creates a loader over the given source.
func New(source models.ObservationSource) *Loader {
	return &Loader{
		source: source,
		logger: log.With().Str("component", "dataset_loader").Logger(),
	}
}

// Load returns the cached dataset, reading the backing store on first use.
// Concurrent first calls are serialized so the store is read once.
func (l *Loader) Load(ctx context.Context) (*models.Dataset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dataset != nil {
		return l.dataset, nil
	}

	observations, measures, err := l.source.Observations(ctx)
	if err != nil {
		return nil, err
	}
	if len(observations) == 0 {
		return nil, fmt.Errorf("backing store holds no observations: %w", models.ErrDataUnavailable)
	}

	l.dataset = models.NewDataset(observations, measures)
	l.logger.Info().
		Int("observations", l.dataset.Len()).
		Int("locations", len(l.dataset.Locations())).
		Str("min_date", l.dataset.MinDate().Format(models.DateLayout)).
		Str("max_date", l.dataset.MaxDate().Format(models.DateLayout)).
		Msg("Dataset loaded and cached")

	return l.dataset, nil
}
