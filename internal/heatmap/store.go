package heatmap

import (
	"context"
	"sync"

	"github.com/wms-platform/heatmap-portal/internal/domain"
	"github.com/wms-platform/heatmap-portal/pkg/errors"
	"github.com/wms-platform/heatmap-portal/pkg/logging"
)

// ZoneLister retrieves the zone directory for a warehouse
type ZoneLister interface {
	ListZones(ctx context.Context, warehouseID int64) ([]domain.Zone, error)
}

// StoreMetrics records store-level aggregation outcomes
type StoreMetrics interface {
	RecordAggregationSuperseded()
}

// FilterUpdate is a partial change to the filter state. Nil fields are left
// unchanged; ClearShelfType removes the shelf-type filter.
type FilterUpdate struct {
	TimeRange      *domain.TimeRange `json:"time_range,omitempty" binding:"omitempty,time_range"`
	ShelfType      *domain.ShelfType `json:"shelf_type,omitempty" binding:"omitempty,shelf_type"`
	ClearShelfType bool              `json:"clear_shelf_type,omitempty"`
	StartDate      *string           `json:"start_date,omitempty" binding:"omitempty,date"`
	EndDate        *string           `json:"end_date,omitempty" binding:"omitempty,date"`
}

// Snapshot is the externally visible state of the store at one instant
type Snapshot struct {
	Data         *domain.HeatmapData `json:"data"`
	FailedZones  []string            `json:"failed_zones,omitempty"`
	Partial      bool                `json:"partial"`
	Loading      bool                `json:"loading"`
	Filter       domain.FilterParams `json:"filter"`
	SelectedZone *int64              `json:"selected_zone,omitempty"`
}

// Store holds the filter state, the zone directory and the currently
// displayed heat dataset. Every filter or zone change triggers a reload;
// overlapping reloads are resolved latest-wins: each reload takes a
// generation, and a completed reload whose generation is no longer the
// latest is discarded without touching the displayed dataset.
type Store struct {
	mu          sync.Mutex
	aggregator  *Aggregator
	zoneLister  ZoneLister
	logger      *logging.Logger
	metrics     StoreMetrics
	warehouseID int64

	params       domain.FilterParams
	selectedZone *int64
	zones        []domain.Zone
	current      *domain.HeatmapData
	failedZones  []string
	loading      bool
	generation   uint64
}

// NewStore creates a heatmap store for one warehouse
func NewStore(aggregator *Aggregator, zoneLister ZoneLister, warehouseID int64, logger *logging.Logger, m StoreMetrics) *Store {
	return &Store{
		aggregator:  aggregator,
		zoneLister:  zoneLister,
		logger:      logger.WithComponent("heatmap-store"),
		metrics:     m,
		warehouseID: warehouseID,
		params:      domain.DefaultFilterParams(),
	}
}

// LoadZones refreshes the zone directory. The selection defaults to the
// first zone only when nothing is selected yet; an explicit prior selection
// is never overridden, so repeated calls are idempotent once selected.
func (s *Store) LoadZones(ctx context.Context) ([]domain.Zone, error) {
	zones, err := s.zoneLister.ListZones(ctx, s.warehouseID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.zones = zones
	needsLoad := false
	if s.selectedZone == nil && len(zones) > 0 {
		id := zones[0].ID
		s.selectedZone = &id
		needsLoad = true
	}
	s.mu.Unlock()

	if needsLoad {
		if err := s.Reload(ctx); err != nil {
			s.logger.WithError(err).Warn("initial heat load failed")
		}
	}
	return zones, nil
}

// Zones returns the cached zone directory
func (s *Store) Zones() []domain.Zone {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Zone, len(s.zones))
	copy(out, s.zones)
	return out
}

// UpdateFilter merges the partial update into the filter state and reloads
func (s *Store) UpdateFilter(ctx context.Context, update FilterUpdate) error {
	s.mu.Lock()
	if update.TimeRange != nil {
		s.params.TimeRange = *update.TimeRange
	}
	if update.ClearShelfType {
		s.params.ShelfType = nil
	} else if update.ShelfType != nil {
		st := *update.ShelfType
		s.params.ShelfType = &st
	}
	if update.StartDate != nil {
		s.params.StartDate = *update.StartDate
	}
	if update.EndDate != nil {
		s.params.EndDate = *update.EndDate
	}
	s.mu.Unlock()

	return s.Reload(ctx)
}

// SetTimeRange switches the time range and reloads.
func (s *Store) SetTimeRange(ctx context.Context, tr domain.TimeRange) error {
	return s.UpdateFilter(ctx, FilterUpdate{TimeRange: &tr})
}

// SetShelfType narrows the view to one shelf type, or clears the
// narrowing when st is nil.
func (s *Store) SetShelfType(ctx context.Context, st *domain.ShelfType) error {
	if st == nil {
		return s.UpdateFilter(ctx, FilterUpdate{ClearShelfType: true})
	}
	return s.UpdateFilter(ctx, FilterUpdate{ShelfType: st})
}

// SetDateRange sets the custom date window and reloads.
func (s *Store) SetDateRange(ctx context.Context, start, end string) error {
	return s.UpdateFilter(ctx, FilterUpdate{StartDate: &start, EndDate: &end})
}

// SetZone changes the zone selection and reloads. Zone 0 selects the
// merged all-zones view; any other id must be in the loaded directory.
func (s *Store) SetZone(ctx context.Context, zoneID int64) error {
	s.mu.Lock()
	if zoneID != domain.AllZonesID && len(s.zones) > 0 {
		found := false
		for _, z := range s.zones {
			if z.ID == zoneID {
				found = true
				break
			}
		}
		if !found {
			s.mu.Unlock()
			return errors.ErrNotFound("zone")
		}
	}
	s.selectedZone = &zoneID
	s.mu.Unlock()

	return s.Reload(ctx)
}

// Reload re-aggregates heat data for the current selection. Safe for
// concurrent calls: the latest call wins, earlier in-flight results are
// discarded when they complete.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	if s.selectedZone == nil {
		s.mu.Unlock()
		return nil
	}
	s.generation++
	gen := s.generation
	zoneID := *s.selectedZone
	params := s.params
	zones := make([]domain.Zone, len(s.zones))
	copy(zones, s.zones)
	s.loading = true
	s.mu.Unlock()

	result, err := s.aggregator.Aggregate(ctx, zoneID, zones, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// A newer reload superseded this one. Its loading flag is not
		// ours to clear.
		s.metrics.RecordAggregationSuperseded()
		s.logger.WithFields(map[string]any{"zone_id": zoneID}).Debug("stale heat load discarded")
		return nil
	}
	s.loading = false
	if err != nil {
		return err
	}
	s.current = result.Data
	s.failedZones = result.FailedZones
	return nil
}

// Snapshot returns the current state for the rendering layer
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Data:    s.current,
		Partial: len(s.failedZones) > 0,
		Loading: s.loading,
		Filter:  s.params,
	}
	if len(s.failedZones) > 0 {
		snap.FailedZones = make([]string, len(s.failedZones))
		copy(snap.FailedZones, s.failedZones)
	}
	if s.selectedZone != nil {
		id := *s.selectedZone
		snap.SelectedZone = &id
	}
	return snap
}

// IsLoading reports whether the latest reload is still in flight
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}
