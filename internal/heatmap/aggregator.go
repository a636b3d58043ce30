package heatmap

import (
	"context"
	"math"
	"time"

	"github.com/wms-platform/heatmap-portal/internal/domain"
	"github.com/wms-platform/heatmap-portal/pkg/errors"
	"github.com/wms-platform/heatmap-portal/pkg/logging"
)

// Merged "all zones" result identity
const (
	allZonesCode = "ALL"
	allZonesName = "全部库区"
)

// Fetcher retrieves heat data for a single zone from the heat data service
type Fetcher interface {
	GetHeatmap(ctx context.Context, zoneID int64, params domain.FilterParams) (*domain.HeatmapData, error)
}

// AggregationMetrics records aggregation outcomes
type AggregationMetrics interface {
	RecordAggregation(scope, status string, duration time.Duration)
	RecordAggregationZoneFailures(count int)
}

// Result is an aggregation outcome. FailedZones lists the codes of zones
// skipped during an "all zones" merge; empty for complete results.
type Result struct {
	Data        *domain.HeatmapData
	FailedZones []string
}

// Partial reports whether some zones were skipped during the merge
func (r *Result) Partial() bool {
	return len(r.FailedZones) > 0
}

// Aggregator merges per-zone heat datasets into a unified view
type Aggregator struct {
	fetcher Fetcher
	logger  *logging.Logger
	metrics AggregationMetrics
}

// NewAggregator creates a heat aggregator backed by the given fetcher
func NewAggregator(fetcher Fetcher, logger *logging.Logger, metrics AggregationMetrics) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		logger:  logger.WithComponent("heat-aggregator"),
		metrics: metrics,
	}
}

// Aggregate produces the heat dataset for the given zone selection. A
// concrete zone id delegates to a single fetch; domain.AllZonesID merges
// every zone in zones. A zone that fails during the merge is skipped and
// recorded in the result; only a fully failed merge returns an error.
func (a *Aggregator) Aggregate(ctx context.Context, zoneID int64, zones []domain.Zone, params domain.FilterParams) (*Result, error) {
	start := time.Now()

	if zoneID != domain.AllZonesID {
		data, err := a.fetcher.GetHeatmap(ctx, zoneID, params)
		if err != nil {
			a.metrics.RecordAggregation("zone", "error", time.Since(start))
			return nil, err
		}
		a.metrics.RecordAggregation("zone", "success", time.Since(start))
		a.logger.AggregationCycle(ctx, zoneID, 1, 0, false, time.Since(start))
		return &Result{Data: data}, nil
	}

	merged := newAllZonesData(params)
	var failed []string
	mergedCount := 0

	// Sequential by design: later zones' time fields are authoritative
	// for the merged result.
	for _, zone := range zones {
		data, err := a.fetcher.GetHeatmap(ctx, zone.ID, params)
		if err != nil {
			a.logger.WithError(err).WithFields(map[string]any{
				"zone_id":   zone.ID,
				"zone_code": zone.Code,
			}).Warn("zone heat fetch failed, skipping")
			failed = append(failed, zone.Code)
			continue
		}
		mergeInto(merged, zone, data)
		mergedCount++
	}

	if math.IsInf(merged.MinHeat, 1) {
		merged.MinHeat = 0
	}

	a.metrics.RecordAggregationZoneFailures(len(failed))
	if mergedCount == 0 && len(zones) > 0 {
		a.metrics.RecordAggregation("all", "error", time.Since(start))
		return nil, errors.ErrPartialAggregation(failed)
	}

	status := "success"
	if len(failed) > 0 {
		status = "partial"
	}
	a.metrics.RecordAggregation("all", status, time.Since(start))
	a.logger.AggregationCycle(ctx, domain.AllZonesID, mergedCount, len(failed), false, time.Since(start))

	return &Result{Data: merged, FailedZones: failed}, nil
}

// newAllZonesData returns an empty merged dataset. MinHeat starts at +Inf
// and must be resolved to zero if nothing contributes.
func newAllZonesData(params domain.FilterParams) *domain.HeatmapData {
	return &domain.HeatmapData{
		ZoneID:    domain.AllZonesID,
		ZoneCode:  allZonesCode,
		ZoneName:  allZonesName,
		Aisles:    []domain.AisleHeatData{},
		MinHeat:   math.Inf(1),
		MaxHeat:   0,
		TimeRange: params.TimeRange,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
	}
}

// mergeInto folds one zone's dataset into the accumulator. Aisles are
// concatenated, not re-indexed; each gains the contributing zone's name so
// the unified view can disambiguate aisles sharing coordinate space.
func mergeInto(acc *domain.HeatmapData, zone domain.Zone, data *domain.HeatmapData) {
	for _, aisle := range data.Aisles {
		aisle.ZoneName = zone.Name
		acc.Aisles = append(acc.Aisles, aisle)
	}
	if data.MaxHeat > acc.MaxHeat {
		acc.MaxHeat = data.MaxHeat
	}
	if data.MinHeat < acc.MinHeat {
		acc.MinHeat = data.MinHeat
	}
	acc.TimeRange = data.TimeRange
	acc.StartDate = data.StartDate
	acc.EndDate = data.EndDate
}
