package domain

// ShelfType enumerates the physical shelf construction types
type ShelfType string

const (
	ShelfTypeNormal      ShelfType = "normal"
	ShelfTypeHighRack    ShelfType = "high_rack"
	ShelfTypeGroundStack ShelfType = "ground_stack"
	ShelfTypeMezzanine   ShelfType = "mezzanine"
	ShelfTypeCantilever  ShelfType = "cantilever"
)

// IsValid checks whether the shelf type is a known value
func (s ShelfType) IsValid() bool {
	switch s {
	case ShelfTypeNormal, ShelfTypeHighRack, ShelfTypeGroundStack, ShelfTypeMezzanine, ShelfTypeCantilever:
		return true
	}
	return false
}

// TimeRange selects the observation window for heat data
type TimeRange string

const (
	TimeRangeAll    TimeRange = "all"
	TimeRangeToday  TimeRange = "today"
	TimeRange7Days  TimeRange = "7days"
	TimeRange30Days TimeRange = "30days"
	TimeRangeCustom TimeRange = "custom"
)

// IsValid checks whether the time range is a known value
func (t TimeRange) IsValid() bool {
	switch t {
	case TimeRangeAll, TimeRangeToday, TimeRange7Days, TimeRange30Days, TimeRangeCustom:
		return true
	}
	return false
}

// AllZonesID is the reserved zone identifier meaning "all zones, merged".
const AllZonesID int64 = 0

// Zone represents a storage zone within a warehouse
type Zone struct {
	ID          int64  `json:"id"`
	WarehouseID int64  `json:"warehouse_id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SortOrder   int    `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

// LocationHeatItem is the heat reading for a single storage location
type LocationHeatItem struct {
	LocationID    int64   `json:"location_id"`
	LocationCode  string  `json:"location_code"`
	FullCode      string  `json:"full_code"`
	RowLabel      string  `json:"row_label"`
	ColumnNumber  int     `json:"column_number"`
	RowIndex      int     `json:"row_index"`
	ColumnIndex   int     `json:"column_index"`
	HeatValue     float64 `json:"heat_value"`
	PickFrequency int64   `json:"pick_frequency"`
	TurnoverRate  float64 `json:"turnover_rate"`
	InventoryQty  int64   `json:"inventory_qty"`
}

// ShelfHeatData groups location heat readings for one shelf.
// Locations is sparse: at most rows*columns entries, one per occupied position.
type ShelfHeatData struct {
	ShelfID      int64              `json:"shelf_id"`
	ShelfCode    string             `json:"shelf_code"`
	ShelfName    string             `json:"shelf_name"`
	DisplayLabel string             `json:"display_label,omitempty"`
	ShelfType    ShelfType          `json:"shelf_type"`
	XCoordinate  float64            `json:"x_coordinate"`
	Rows         int                `json:"rows"`
	Columns      int                `json:"columns"`
	Layers       int                `json:"layers"`
	Locations    []LocationHeatItem `json:"locations"`
}

// AisleHeatData groups shelf heat data for one aisle. ZoneName is only set
// on merged "all zones" results to disambiguate aisles sharing coordinates.
type AisleHeatData struct {
	AisleID     int64           `json:"aisle_id"`
	AisleCode   string          `json:"aisle_code"`
	AisleName   string          `json:"aisle_name"`
	ZoneName    string          `json:"zone_name,omitempty"`
	YCoordinate float64         `json:"y_coordinate"`
	Shelves     []ShelfHeatData `json:"shelves"`
}

// HeatmapData is a complete heat dataset for one zone, or for all zones
// merged (ZoneID == AllZonesID). MinHeat/MaxHeat are the observed extrema
// of the dataset, not the color-scale cap.
type HeatmapData struct {
	ZoneID    int64           `json:"zone_id"`
	ZoneCode  string          `json:"zone_code"`
	ZoneName  string          `json:"zone_name"`
	Aisles    []AisleHeatData `json:"aisles"`
	MinHeat   float64         `json:"min_heat"`
	MaxHeat   float64         `json:"max_heat"`
	TimeRange TimeRange       `json:"time_range"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
}

// FilterParams selects which heat data to load. StartDate/EndDate are
// only meaningful when TimeRange is TimeRangeCustom.
type FilterParams struct {
	TimeRange TimeRange  `json:"time_range"`
	ShelfType *ShelfType `json:"shelf_type,omitempty"`
	StartDate string     `json:"start_date,omitempty"`
	EndDate   string     `json:"end_date,omitempty"`
}

// DefaultFilterParams returns the initial filter state
func DefaultFilterParams() FilterParams {
	return FilterParams{TimeRange: TimeRangeAll}
}
