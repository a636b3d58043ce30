package testutil

import (
	"io"

	"github.com/wms-platform/heatmap-portal/internal/domain"
	"github.com/wms-platform/heatmap-portal/pkg/logging"
	"github.com/wms-platform/heatmap-portal/pkg/metrics"
)

// NewLogger returns a logger that discards all output
func NewLogger() *logging.Logger {
	return logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "test",
		Environment: "test",
		Version:     "test",
		Output:      io.Discard,
	})
}

// NewMetrics returns a metrics instance with its own registry, safe for
// parallel tests
func NewMetrics() *metrics.Metrics {
	return metrics.New(metrics.DefaultConfig("test"))
}

// Zone returns a zone fixture
func Zone(id int64, code, name string) domain.Zone {
	return domain.Zone{
		ID:          id,
		WarehouseID: 1,
		Code:        code,
		Name:        name,
		SortOrder:   int(id),
		IsActive:    true,
	}
}

// ZoneHeatmap returns a single-zone heat dataset fixture with one aisle
// holding one shelf and the given heat extrema
func ZoneHeatmap(zone domain.Zone, minHeat, maxHeat float64) *domain.HeatmapData {
	return &domain.HeatmapData{
		ZoneID:   zone.ID,
		ZoneCode: zone.Code,
		ZoneName: zone.Name,
		Aisles: []domain.AisleHeatData{
			{
				AisleID:   zone.ID * 100,
				AisleCode: zone.Code + "-A1",
				AisleName: zone.Name + " aisle 1",
				Shelves: []domain.ShelfHeatData{
					{
						ShelfID:   zone.ID*1000 + 1,
						ShelfCode: zone.Code + "-A1-S1",
						ShelfType: domain.ShelfTypeNormal,
						Rows:      4,
						Columns:   6,
						Layers:    1,
						Locations: []domain.LocationHeatItem{
							{
								LocationID:   zone.ID*10000 + 1,
								LocationCode: "01-01",
								RowIndex:     0,
								ColumnIndex:  0,
								HeatValue:    maxHeat,
							},
							{
								LocationID:   zone.ID*10000 + 2,
								LocationCode: "01-02",
								RowIndex:     0,
								ColumnIndex:  1,
								HeatValue:    minHeat,
							},
						},
					},
				},
			},
		},
		MinHeat:   minHeat,
		MaxHeat:   maxHeat,
		TimeRange: domain.TimeRangeAll,
	}
}

// User returns a user fixture with the given role
func User(role domain.Role) *domain.User {
	return &domain.User{
		ID:       42,
		Username: "zhang.wei",
		Nickname: "张伟",
		Role:     role,
		IsActive: true,
	}
}
