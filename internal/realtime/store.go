package realtime

import (
	"sync/atomic"
	"time"

	"github.com/the-lmc-group/trainflow/internal/models"
)

// Snapshot is one generation of live journeys. It is immutable once stored.
type Snapshot struct {
	Generation  uint64
	LastUpdated time.Time
	Journeys    []models.VehicleJourney
	Providers   []models.ProviderStatus
}

// Store holds the latest snapshot. Readers never block the writer and see
// either the previous or the next generation, never a mix.
type Store struct {
	latest atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	return &Store{}
}

// Latest returns the current snapshot, or nil before the first population.
func (s *Store) Latest() *Snapshot {
	return s.latest.Load()
}

func (s *Store) SetLatest(snapshot *Snapshot) {
	s.latest.Store(snapshot)
}
