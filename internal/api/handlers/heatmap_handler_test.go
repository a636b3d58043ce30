package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/heatmap-portal/internal/domain"
	"github.com/wms-platform/heatmap-portal/internal/heatmap"
	"github.com/wms-platform/heatmap-portal/internal/testutil"
	"github.com/wms-platform/heatmap-portal/pkg/errors"
	"github.com/wms-platform/heatmap-portal/pkg/middleware"
)

type stubFetcher struct {
	data map[int64]*domain.HeatmapData
	errs map[int64]error
}

func (f *stubFetcher) GetHeatmap(_ context.Context, zoneID int64, _ domain.FilterParams) (*domain.HeatmapData, error) {
	if err, ok := f.errs[zoneID]; ok {
		return nil, err
	}
	if d, ok := f.data[zoneID]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("no fixture for zone %d", zoneID)
}

type stubZoneLister struct {
	zones []domain.Zone
	err   error
}

func (l *stubZoneLister) ListZones(context.Context, int64) ([]domain.Zone, error) {
	return l.zones, l.err
}

func newHeatmapRouter(f heatmap.Fetcher, zones []domain.Zone) *gin.Engine {
	logger := testutil.NewLogger()
	m := testutil.NewMetrics()
	agg := heatmap.NewAggregator(f, logger, m)
	store := heatmap.NewStore(agg, &stubZoneLister{zones: zones}, 1, logger, m)

	r := gin.New()
	r.Use(middleware.ErrorHandler(logger.Logger))
	api := r.Group("/api/v1")
	NewHeatmapHandler(store, heatmap.NewScale(0), logger).RegisterRoutes(api)
	return r
}

func twoZoneRouter() *gin.Engine {
	zoneA := testutil.Zone(1, "A", "A区")
	zoneB := testutil.Zone(2, "B", "B区")
	f := &stubFetcher{data: map[int64]*domain.HeatmapData{
		1: testutil.ZoneHeatmap(zoneA, 1, 5),
		2: testutil.ZoneHeatmap(zoneB, 0, 9),
	}}
	return newHeatmapRouter(f, []domain.Zone{zoneA, zoneB})
}

func TestZonesEndpointLoadsAndSelectsFirstZone(t *testing.T) {
	r := twoZoneRouter()

	w := do(r, http.MethodGet, "/api/v1/zones", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/heatmap", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap heatmap.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.NotNil(t, snap.SelectedZone)
	assert.Equal(t, int64(1), *snap.SelectedZone)
	require.NotNil(t, snap.Data)
	assert.Equal(t, int64(1), snap.Data.ZoneID)
	assert.False(t, snap.Loading)
}

func TestZonesEndpointPropagatesDirectoryFailure(t *testing.T) {
	logger := testutil.NewLogger()
	agg := heatmap.NewAggregator(&stubFetcher{}, logger, testutil.NewMetrics())
	store := heatmap.NewStore(agg, &stubZoneLister{err: errors.ErrNetworkFailure("warehouse-service")}, 1,
		logger, testutil.NewMetrics())

	r := gin.New()
	r.Use(middleware.ErrorHandler(logger.Logger))
	NewHeatmapHandler(store, heatmap.NewScale(0), logger).RegisterRoutes(r.Group("/api/v1"))

	w := do(r, http.MethodGet, "/api/v1/zones", "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), errors.CodeNetworkFailure)
}

func TestSetZoneEndpointSwitchesToMergedView(t *testing.T) {
	r := twoZoneRouter()
	do(r, http.MethodGet, "/api/v1/zones", "")

	w := do(r, http.MethodPut, "/api/v1/heatmap/zone/0", "")

	require.Equal(t, http.StatusOK, w.Code)
	var snap heatmap.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.NotNil(t, snap.Data)
	assert.Equal(t, "ALL", snap.Data.ZoneCode)
	assert.Equal(t, 9.0, snap.Data.MaxHeat)
	assert.Equal(t, 0.0, snap.Data.MinHeat)
	assert.Len(t, snap.Data.Aisles, 2)
}

func TestSetZoneEndpointRejectsUnknownZone(t *testing.T) {
	r := twoZoneRouter()
	do(r, http.MethodGet, "/api/v1/zones", "")

	w := do(r, http.MethodPut, "/api/v1/heatmap/zone/99", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetZoneEndpointRejectsMalformedID(t *testing.T) {
	r := twoZoneRouter()

	w := do(r, http.MethodPut, "/api/v1/heatmap/zone/abc", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFilterEndpointUpdatesAndReloads(t *testing.T) {
	r := twoZoneRouter()
	do(r, http.MethodGet, "/api/v1/zones", "")

	w := do(r, http.MethodPut, "/api/v1/heatmap/filter", `{"time_range":"7days","shelf_type":"high_rack"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var snap heatmap.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, domain.TimeRange7Days, snap.Filter.TimeRange)
	require.NotNil(t, snap.Filter.ShelfType)
	assert.Equal(t, domain.ShelfTypeHighRack, *snap.Filter.ShelfType)
}

func TestFilterEndpointRejectsUnknownTimeRange(t *testing.T) {
	r := twoZoneRouter()

	w := do(r, http.MethodPut, "/api/v1/heatmap/filter", `{"time_range":"yearly"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHeatmapEndpointMarksPartialResults(t *testing.T) {
	zoneA := testutil.Zone(1, "A", "A区")
	zoneB := testutil.Zone(2, "B", "B区")
	f := &stubFetcher{
		data: map[int64]*domain.HeatmapData{1: testutil.ZoneHeatmap(zoneA, 1, 5)},
		errs: map[int64]error{2: errors.ErrNetworkFailure("heatmap-service")},
	}
	r := newHeatmapRouter(f, []domain.Zone{zoneA, zoneB})
	do(r, http.MethodGet, "/api/v1/zones", "")

	w := do(r, http.MethodPut, "/api/v1/heatmap/zone/0", "")

	require.Equal(t, http.StatusOK, w.Code)
	var snap heatmap.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.True(t, snap.Partial)
	assert.Equal(t, []string{"B"}, snap.FailedZones)
}

func TestColorEndpoint(t *testing.T) {
	r := twoZoneRouter()

	w := do(r, http.MethodGet, "/api/v1/heatmap/colors?value=0", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Hex string `json:"hex"`
		RGB string `json:"rgb"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "#ffffcc", resp.Hex)
	assert.Equal(t, "rgb(255,255,204)", resp.RGB)
}

func TestColorEndpointValidatesValue(t *testing.T) {
	r := twoZoneRouter()

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/heatmap/colors", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/heatmap/colors?value=hot", "").Code)
}

func TestLegendEndpoint(t *testing.T) {
	r := twoZoneRouter()

	w := do(r, http.MethodGet, "/api/v1/heatmap/legend", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Cap   float64 `json:"cap"`
		Stops []struct {
			Position float64 `json:"position"`
			Hex      string  `json:"hex"`
		} `json:"stops"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, heatmap.DefaultHeatCap, resp.Cap)
	require.Len(t, resp.Stops, 5)
	assert.Equal(t, "#ffffcc", resp.Stops[0].Hex)
	assert.Equal(t, "#800026", resp.Stops[4].Hex)
}
