package heatmap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/heatmap-portal/internal/domain"
	"github.com/wms-platform/heatmap-portal/internal/testutil"
	"github.com/wms-platform/heatmap-portal/pkg/errors"
)

type stubZoneLister struct {
	zones []domain.Zone
	err   error
	calls int
}

func (l *stubZoneLister) ListZones(context.Context, int64) ([]domain.Zone, error) {
	l.calls++
	return l.zones, l.err
}

type countingStoreMetrics struct {
	mu         sync.Mutex
	superseded int
}

func (m *countingStoreMetrics) RecordAggregationSuperseded() {
	m.mu.Lock()
	m.superseded++
	m.mu.Unlock()
}

// blockingFetcher parks fetches for zones listed in gate until released
type blockingFetcher struct {
	mu      sync.Mutex
	data    map[int64]*domain.HeatmapData
	gate    map[int64]chan struct{}
	started chan int64
}

func (f *blockingFetcher) GetHeatmap(_ context.Context, zoneID int64, _ domain.FilterParams) (*domain.HeatmapData, error) {
	f.mu.Lock()
	gate := f.gate[zoneID]
	data := f.data[zoneID]
	f.mu.Unlock()
	if f.started != nil {
		f.started <- zoneID
	}
	if gate != nil {
		<-gate
	}
	return data, nil
}

func newTestStore(f Fetcher, zones []domain.Zone) (*Store, *countingStoreMetrics) {
	agg := NewAggregator(f, testutil.NewLogger(), testutil.NewMetrics())
	sm := &countingStoreMetrics{}
	store := NewStore(agg, &stubZoneLister{zones: zones}, 1, testutil.NewLogger(), sm)
	return store, sm
}

func TestLoadZonesDefaultsSelectionToFirstZone(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	zoneB := testutil.Zone(2, "B", "B区")
	f := &stubFetcher{data: map[int64]*domain.HeatmapData{
		1: testutil.ZoneHeatmap(zoneA, 1, 5),
	}}
	store, _ := newTestStore(f, []domain.Zone{zoneA, zoneB})

	zones, err := store.LoadZones(context.Background())

	require.NoError(t, err)
	assert.Len(t, zones, 2)
	snap := store.Snapshot()
	require.NotNil(t, snap.SelectedZone)
	assert.Equal(t, int64(1), *snap.SelectedZone)
	require.NotNil(t, snap.Data)
	assert.Equal(t, int64(1), snap.Data.ZoneID)
	assert.False(t, snap.Loading)
}

func TestLoadZonesNeverOverridesExplicitSelection(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	zoneB := testutil.Zone(2, "B", "B区")
	f := &stubFetcher{data: map[int64]*domain.HeatmapData{
		1: testutil.ZoneHeatmap(zoneA, 1, 5),
		2: testutil.ZoneHeatmap(zoneB, 0, 9),
	}}
	store, _ := newTestStore(f, []domain.Zone{zoneA, zoneB})

	_, err := store.LoadZones(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.SetZone(context.Background(), 2))

	_, err = store.LoadZones(context.Background())
	require.NoError(t, err)

	snap := store.Snapshot()
	require.NotNil(t, snap.SelectedZone)
	assert.Equal(t, int64(2), *snap.SelectedZone)
}

func TestUpdateFilterMergesPartialState(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	f := &stubFetcher{data: map[int64]*domain.HeatmapData{
		1: testutil.ZoneHeatmap(zoneA, 1, 5),
	}}
	store, _ := newTestStore(f, []domain.Zone{zoneA})
	_, err := store.LoadZones(context.Background())
	require.NoError(t, err)

	tr := domain.TimeRange7Days
	st := domain.ShelfTypeHighRack
	require.NoError(t, store.UpdateFilter(context.Background(), FilterUpdate{TimeRange: &tr}))
	require.NoError(t, store.UpdateFilter(context.Background(), FilterUpdate{ShelfType: &st}))

	snap := store.Snapshot()
	assert.Equal(t, domain.TimeRange7Days, snap.Filter.TimeRange)
	require.NotNil(t, snap.Filter.ShelfType)
	assert.Equal(t, domain.ShelfTypeHighRack, *snap.Filter.ShelfType)

	require.NoError(t, store.UpdateFilter(context.Background(), FilterUpdate{ClearShelfType: true}))
	assert.Nil(t, store.Snapshot().Filter.ShelfType)
	// unrelated fields survive the partial update
	assert.Equal(t, domain.TimeRange7Days, store.Snapshot().Filter.TimeRange)
}

func TestFocusedSettersReload(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	f := &stubFetcher{data: map[int64]*domain.HeatmapData{
		1: testutil.ZoneHeatmap(zoneA, 1, 5),
	}}
	store, _ := newTestStore(f, []domain.Zone{zoneA})
	_, err := store.LoadZones(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.SetTimeRange(context.Background(), domain.TimeRange30Days))
	assert.Equal(t, domain.TimeRange30Days, store.Snapshot().Filter.TimeRange)

	st := domain.ShelfTypeGroundStack
	require.NoError(t, store.SetShelfType(context.Background(), &st))
	require.NotNil(t, store.Snapshot().Filter.ShelfType)
	require.NoError(t, store.SetShelfType(context.Background(), nil))
	assert.Nil(t, store.Snapshot().Filter.ShelfType)

	require.NoError(t, store.SetDateRange(context.Background(), "2026-08-01", "2026-08-28"))
	snap := store.Snapshot()
	assert.Equal(t, "2026-08-01", snap.Filter.StartDate)
	assert.Equal(t, "2026-08-28", snap.Filter.EndDate)
}

func TestSetZoneUnknownZoneRejected(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	f := &stubFetcher{data: map[int64]*domain.HeatmapData{
		1: testutil.ZoneHeatmap(zoneA, 1, 5),
	}}
	store, _ := newTestStore(f, []domain.Zone{zoneA})
	_, err := store.LoadZones(context.Background())
	require.NoError(t, err)

	err = store.SetZone(context.Background(), 99)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestSetZoneAllZonesAlwaysAllowed(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	f := &stubFetcher{data: map[int64]*domain.HeatmapData{
		1: testutil.ZoneHeatmap(zoneA, 1, 5),
	}}
	store, _ := newTestStore(f, []domain.Zone{zoneA})
	_, err := store.LoadZones(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.SetZone(context.Background(), domain.AllZonesID))

	snap := store.Snapshot()
	require.NotNil(t, snap.Data)
	assert.Equal(t, domain.AllZonesID, snap.Data.ZoneID)
	assert.Equal(t, "ALL", snap.Data.ZoneCode)
}

func TestReloadWithoutSelectionIsNoOp(t *testing.T) {
	f := &stubFetcher{}
	store, _ := newTestStore(f, nil)

	require.NoError(t, store.Reload(context.Background()))

	assert.Nil(t, store.Snapshot().Data)
	assert.Empty(t, f.fetched)
}

func TestReloadClearsLoadingOnFailure(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	f := &stubFetcher{errs: map[int64]error{1: errors.ErrNetworkFailure("heatmap-service")}}
	store, _ := newTestStore(f, []domain.Zone{zoneA})
	require.NoError(t, store.SetZone(context.Background(), 1))
	// SetZone's reload fails but must leave the store idle, not stuck loading
	assert.False(t, store.IsLoading())
	assert.Nil(t, store.Snapshot().Data)
}

func TestStaleReloadIsDiscarded(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	zoneB := testutil.Zone(2, "B", "B区")
	gate := make(chan struct{})
	started := make(chan int64, 2)
	f := &blockingFetcher{
		data: map[int64]*domain.HeatmapData{
			1: testutil.ZoneHeatmap(zoneA, 1, 5),
			2: testutil.ZoneHeatmap(zoneB, 0, 9),
		},
		gate:    map[int64]chan struct{}{1: gate},
		started: started,
	}
	agg := NewAggregator(f, testutil.NewLogger(), testutil.NewMetrics())
	sm := &countingStoreMetrics{}
	store := NewStore(agg, &stubZoneLister{zones: []domain.Zone{zoneA, zoneB}}, 1, testutil.NewLogger(), sm)
	store.zones = []domain.Zone{zoneA, zoneB}

	// First reload for zone 1 parks inside the fetch
	firstDone := make(chan error, 1)
	id := int64(1)
	store.selectedZone = &id
	go func() { firstDone <- store.Reload(context.Background()) }()
	<-started

	// Zone 2 selection supersedes it and completes immediately
	require.NoError(t, store.SetZone(context.Background(), 2))
	<-started

	// Release the stale fetch; its result must be discarded
	close(gate)
	require.NoError(t, <-firstDone)

	snap := store.Snapshot()
	require.NotNil(t, snap.Data)
	assert.Equal(t, int64(2), snap.Data.ZoneID)
	assert.False(t, snap.Loading)
	sm.mu.Lock()
	assert.Equal(t, 1, sm.superseded)
	sm.mu.Unlock()
}

func TestStaleReloadDoesNotClearNewerLoadingFlag(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	zoneB := testutil.Zone(2, "B", "B区")
	gateA := make(chan struct{})
	gateB := make(chan struct{})
	started := make(chan int64, 2)
	f := &blockingFetcher{
		data: map[int64]*domain.HeatmapData{
			1: testutil.ZoneHeatmap(zoneA, 1, 5),
			2: testutil.ZoneHeatmap(zoneB, 0, 9),
		},
		gate:    map[int64]chan struct{}{1: gateA, 2: gateB},
		started: started,
	}
	agg := NewAggregator(f, testutil.NewLogger(), testutil.NewMetrics())
	sm := &countingStoreMetrics{}
	store := NewStore(agg, &stubZoneLister{zones: []domain.Zone{zoneA, zoneB}}, 1, testutil.NewLogger(), sm)
	store.zones = []domain.Zone{zoneA, zoneB}
	id := int64(1)
	store.selectedZone = &id

	firstDone := make(chan error, 1)
	go func() { firstDone <- store.Reload(context.Background()) }()
	<-started

	secondDone := make(chan error, 1)
	go func() { secondDone <- store.SetZone(context.Background(), 2) }()
	<-started

	// Stale reload finishes while the newer one is still in flight
	close(gateA)
	require.NoError(t, <-firstDone)
	assert.True(t, store.IsLoading())

	close(gateB)
	require.NoError(t, <-secondDone)
	waitUntil(t, func() bool { return !store.IsLoading() })
	assert.Equal(t, int64(2), store.Snapshot().Data.ZoneID)
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
