package heatmap

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/heatmap-portal/internal/domain"
	"github.com/wms-platform/heatmap-portal/internal/testutil"
	"github.com/wms-platform/heatmap-portal/pkg/errors"
)

// stubFetcher serves canned per-zone datasets and records call order
type stubFetcher struct {
	data    map[int64]*domain.HeatmapData
	errs    map[int64]error
	fetched []int64
}

func (f *stubFetcher) GetHeatmap(_ context.Context, zoneID int64, _ domain.FilterParams) (*domain.HeatmapData, error) {
	f.fetched = append(f.fetched, zoneID)
	if err, ok := f.errs[zoneID]; ok {
		return nil, err
	}
	if d, ok := f.data[zoneID]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("no fixture for zone %d", zoneID)
}

func newTestAggregator(f *stubFetcher) *Aggregator {
	return NewAggregator(f, testutil.NewLogger(), testutil.NewMetrics())
}

func TestAggregateSingleZonePassesThrough(t *testing.T) {
	zone := testutil.Zone(3, "C", "C区")
	want := testutil.ZoneHeatmap(zone, 2, 40)
	f := &stubFetcher{data: map[int64]*domain.HeatmapData{3: want}}

	result, err := newTestAggregator(f).Aggregate(context.Background(), 3, nil, domain.DefaultFilterParams())

	require.NoError(t, err)
	assert.Same(t, want, result.Data)
	assert.False(t, result.Partial())
	assert.Equal(t, []int64{3}, f.fetched)
}

func TestAggregateSingleZoneFetchError(t *testing.T) {
	f := &stubFetcher{errs: map[int64]error{3: errors.ErrNetworkFailure("heatmap-service")}}

	result, err := newTestAggregator(f).Aggregate(context.Background(), 3, nil, domain.DefaultFilterParams())

	require.Error(t, err)
	assert.Nil(t, result)
}

func TestAggregateAllZonesMergesExtrema(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	zoneB := testutil.Zone(2, "B", "B区")
	f := &stubFetcher{data: map[int64]*domain.HeatmapData{
		1: testutil.ZoneHeatmap(zoneA, 1, 5),
		2: testutil.ZoneHeatmap(zoneB, 0, 9),
	}}

	result, err := newTestAggregator(f).Aggregate(context.Background(), domain.AllZonesID,
		[]domain.Zone{zoneA, zoneB}, domain.DefaultFilterParams())

	require.NoError(t, err)
	assert.Equal(t, 9.0, result.Data.MaxHeat)
	assert.Equal(t, 0.0, result.Data.MinHeat)
	assert.Equal(t, domain.AllZonesID, result.Data.ZoneID)
	assert.Equal(t, "ALL", result.Data.ZoneCode)
	assert.Equal(t, "全部库区", result.Data.ZoneName)
}

func TestAggregateAllZonesConcatenatesAislesWithZoneName(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	zoneB := testutil.Zone(2, "B", "B区")
	f := &stubFetcher{data: map[int64]*domain.HeatmapData{
		1: testutil.ZoneHeatmap(zoneA, 1, 5),
		2: testutil.ZoneHeatmap(zoneB, 0, 9),
	}}

	result, err := newTestAggregator(f).Aggregate(context.Background(), domain.AllZonesID,
		[]domain.Zone{zoneA, zoneB}, domain.DefaultFilterParams())

	require.NoError(t, err)
	require.Len(t, result.Data.Aisles, 2)
	assert.Equal(t, "A区", result.Data.Aisles[0].ZoneName)
	assert.Equal(t, "B区", result.Data.Aisles[1].ZoneName)
	// order follows the zone list, fetched sequentially
	assert.Equal(t, []int64{1, 2}, f.fetched)
}

func TestAggregateAllZonesEmptyList(t *testing.T) {
	f := &stubFetcher{}

	result, err := newTestAggregator(f).Aggregate(context.Background(), domain.AllZonesID,
		nil, domain.DefaultFilterParams())

	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Data.MinHeat)
	assert.Equal(t, 0.0, result.Data.MaxHeat)
	assert.Empty(t, result.Data.Aisles)
}

func TestAggregateAllZonesSkipsFailedZone(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	zoneB := testutil.Zone(2, "B", "B区")
	zoneC := testutil.Zone(3, "C", "C区")
	f := &stubFetcher{
		data: map[int64]*domain.HeatmapData{
			1: testutil.ZoneHeatmap(zoneA, 1, 5),
			3: testutil.ZoneHeatmap(zoneC, 2, 7),
		},
		errs: map[int64]error{2: errors.ErrNetworkFailure("heatmap-service")},
	}

	result, err := newTestAggregator(f).Aggregate(context.Background(), domain.AllZonesID,
		[]domain.Zone{zoneA, zoneB, zoneC}, domain.DefaultFilterParams())

	require.NoError(t, err)
	assert.True(t, result.Partial())
	assert.Equal(t, []string{"B"}, result.FailedZones)
	assert.Len(t, result.Data.Aisles, 2)
	assert.Equal(t, 7.0, result.Data.MaxHeat)
	assert.Equal(t, 1.0, result.Data.MinHeat)
}

func TestAggregateAllZonesAllFailed(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	zoneB := testutil.Zone(2, "B", "B区")
	f := &stubFetcher{errs: map[int64]error{
		1: errors.ErrNetworkFailure("heatmap-service"),
		2: errors.ErrNetworkFailure("heatmap-service"),
	}}

	result, err := newTestAggregator(f).Aggregate(context.Background(), domain.AllZonesID,
		[]domain.Zone{zoneA, zoneB}, domain.DefaultFilterParams())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.HasCode(err, errors.CodePartialAggregation))
}

func TestAggregateAllZonesLastTimeFieldsWin(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	zoneB := testutil.Zone(2, "B", "B区")
	dataA := testutil.ZoneHeatmap(zoneA, 1, 5)
	dataA.TimeRange = domain.TimeRange7Days
	dataA.StartDate = "2026-08-01"
	dataA.EndDate = "2026-08-07"
	dataB := testutil.ZoneHeatmap(zoneB, 0, 9)
	dataB.TimeRange = domain.TimeRange7Days
	dataB.StartDate = "2026-08-21"
	dataB.EndDate = "2026-08-28"
	f := &stubFetcher{data: map[int64]*domain.HeatmapData{1: dataA, 2: dataB}}

	params := domain.FilterParams{TimeRange: domain.TimeRange7Days}
	result, err := newTestAggregator(f).Aggregate(context.Background(), domain.AllZonesID,
		[]domain.Zone{zoneA, zoneB}, params)

	require.NoError(t, err)
	assert.Equal(t, "2026-08-21", result.Data.StartDate)
	assert.Equal(t, "2026-08-28", result.Data.EndDate)
}

func TestMergeIntoIsOrderIndependentForExtrema(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	zoneB := testutil.Zone(2, "B", "B区")
	dataA := testutil.ZoneHeatmap(zoneA, 1, 5)
	dataB := testutil.ZoneHeatmap(zoneB, 0, 9)

	forward := newAllZonesData(domain.DefaultFilterParams())
	mergeInto(forward, zoneA, dataA)
	mergeInto(forward, zoneB, dataB)

	reverse := newAllZonesData(domain.DefaultFilterParams())
	mergeInto(reverse, zoneB, dataB)
	mergeInto(reverse, zoneA, dataA)

	assert.Equal(t, forward.MinHeat, reverse.MinHeat)
	assert.Equal(t, forward.MaxHeat, reverse.MaxHeat)
	assert.Len(t, reverse.Aisles, len(forward.Aisles))
}
