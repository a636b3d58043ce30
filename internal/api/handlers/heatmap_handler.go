package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/heatmap-portal/internal/heatmap"
	"github.com/wms-platform/heatmap-portal/pkg/errors"
	"github.com/wms-platform/heatmap-portal/pkg/logging"
	"github.com/wms-platform/heatmap-portal/pkg/middleware"
)

// HeatmapHandler exposes the heat aggregation engine and the color scale
type HeatmapHandler struct {
	store  *heatmap.Store
	scale  *heatmap.Scale
	logger *logging.Logger
}

// NewHeatmapHandler creates a heatmap handler
func NewHeatmapHandler(store *heatmap.Store, scale *heatmap.Scale, logger *logging.Logger) *HeatmapHandler {
	return &HeatmapHandler{
		store:  store,
		scale:  scale,
		logger: logger.WithComponent("heatmap-handler"),
	}
}

// RegisterRoutes registers the heatmap endpoints
func (h *HeatmapHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/zones", h.ListZones)
	hm := api.Group("/heatmap")
	{
		hm.GET("", h.GetHeatmap)
		hm.PUT("/filter", h.UpdateFilter)
		hm.PUT("/zone/:id", h.SetZone)
		hm.GET("/colors", h.GetColor)
		hm.GET("/legend", h.GetLegend)
	}
}

// ListZones refreshes and returns the zone directory
func (h *HeatmapHandler) ListZones(c *gin.Context) {
	zones, err := h.store.LoadZones(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zones": zones})
}

// GetHeatmap returns the currently displayed dataset together with the
// loading flag and, for merged views, the partial-result warning
func (h *HeatmapHandler) GetHeatmap(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

// UpdateFilter merges a partial filter change and reloads
func (h *HeatmapHandler) UpdateFilter(c *gin.Context) {
	var update heatmap.FilterUpdate
	if appErr := middleware.BindAndValidate(c, &update); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	if err := h.store.UpdateFilter(c.Request.Context(), update); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.store.Snapshot())
}

// SetZone switches the zone selection. Zone 0 selects the merged
// all-zones view.
func (h *HeatmapHandler) SetZone(c *gin.Context) {
	zoneID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || zoneID < 0 {
		middleware.AbortWithAppError(c, errors.ErrBadRequest("zone id must be a non-negative integer"))
		return
	}

	if err := h.store.SetZone(c.Request.Context(), zoneID); err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.store.Snapshot())
}

type colorResponse struct {
	Value float64       `json:"value"`
	Color heatmap.Color `json:"color"`
	Hex   string        `json:"hex"`
	RGB   string        `json:"rgb"`
}

// GetColor maps a heat value to its display color
func (h *HeatmapHandler) GetColor(c *gin.Context) {
	raw := c.Query("value")
	if raw == "" {
		middleware.AbortWithAppError(c, errors.ErrBadRequest("value query parameter is required"))
		return
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		middleware.AbortWithAppError(c, errors.ErrBadRequest("value must be a number"))
		return
	}

	color := h.scale.ColorOf(value)
	c.JSON(http.StatusOK, colorResponse{
		Value: value,
		Color: color,
		Hex:   color.Hex(),
		RGB:   color.RGB(),
	})
}

type legendStop struct {
	Position float64 `json:"position"`
	Hex      string  `json:"hex"`
}

// GetLegend returns the gradient stops for legend rendering
func (h *HeatmapHandler) GetLegend(c *gin.Context) {
	stops := h.scale.Stops()
	out := make([]legendStop, len(stops))
	for i, s := range stops {
		out[i] = legendStop{Position: s.Position, Hex: s.Color.Hex()}
	}
	c.JSON(http.StatusOK, gin.H{"cap": h.scale.Cap(), "stops": out})
}
