package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/wms-platform/heatmap-portal/internal/domain"
	"github.com/wms-platform/heatmap-portal/pkg/logging"
	"github.com/wms-platform/heatmap-portal/pkg/resilience"
)

// WarehouseClient talks to the warehouse directory service
type WarehouseClient struct {
	serviceClient
}

// NewWarehouseClient creates a warehouse directory client
func NewWarehouseClient(baseURL string, breaker *resilience.CircuitBreaker, logger *logging.Logger, m DownstreamMetrics) *WarehouseClient {
	return &WarehouseClient{
		serviceClient: newServiceClient("warehouse-service", baseURL, breaker, logger, m),
	}
}

// ListZones returns the zones of a warehouse in display order
func (c *WarehouseClient) ListZones(ctx context.Context, warehouseID int64) ([]domain.Zone, error) {
	var zones []domain.Zone
	path := fmt.Sprintf("/api/v1/warehouses/%d/zones", warehouseID)
	if err := c.doRequest(ctx, "list_zones", http.MethodGet, path, "", nil, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}
