package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wms-platform/heatmap-portal/internal/domain"
	"github.com/wms-platform/heatmap-portal/pkg/logging"
	"github.com/wms-platform/heatmap-portal/pkg/resilience"
)

// HeatmapClient talks to the heat data service
type HeatmapClient struct {
	serviceClient
}

// NewHeatmapClient creates a heat data client
func NewHeatmapClient(baseURL string, breaker *resilience.CircuitBreaker, logger *logging.Logger, m DownstreamMetrics) *HeatmapClient {
	return &HeatmapClient{
		serviceClient: newServiceClient("heatmap-service", baseURL, breaker, logger, m),
	}
}

// GetHeatmap fetches one zone's heat dataset for the given filter
func (c *HeatmapClient) GetHeatmap(ctx context.Context, zoneID int64, params domain.FilterParams) (*domain.HeatmapData, error) {
	query := url.Values{}
	query.Set("time_range", string(params.TimeRange))
	if params.ShelfType != nil {
		query.Set("shelf_type", string(*params.ShelfType))
	}
	if params.TimeRange == domain.TimeRangeCustom {
		query.Set("start_date", params.StartDate)
		query.Set("end_date", params.EndDate)
	}

	var data domain.HeatmapData
	path := fmt.Sprintf("/api/v1/zones/%d/heatmap?%s", zoneID, query.Encode())
	if err := c.doRequest(ctx, "get_heatmap", http.MethodGet, path, "", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
