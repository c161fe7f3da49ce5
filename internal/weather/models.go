package weather

import (
	"time"
)

// TimeMode selects which upstream data a plan asks for.
type TimeMode string

const (
	ModeCurrent    TimeMode = "current"
	ModeForecast   TimeMode = "forecast"
	ModeHistorical TimeMode = "historical"
	ModeClimate    TimeMode = "climate"
)

// Geometry types.
const (
	GeometryPoint = "Point"
	GeometryBBox  = "BBox"
)

// Geometry is either a Point (Lat/Lon) or a BBox ([south, west, north, east]).
// Exactly one variant is populated; Type says which.
type Geometry struct {
	Type string    `json:"type"`
	Lat  *float64  `json:"lat,omitempty"`
	Lon  *float64  `json:"lon,omitempty"`
	BBox []float64 `json:"bbox,omitempty"`
}

// PointGeometry builds a Point geometry.
func PointGeometry(lat, lon float64) Geometry {
	return Geometry{Type: GeometryPoint, Lat: &lat, Lon: &lon}
}

// BBoxGeometry builds a BBox geometry.
func BBoxGeometry(south, west, north, east float64) Geometry {
	return Geometry{Type: GeometryBBox, BBox: []float64{south, west, north, east}}
}

// BBox is a validated bounding box.
type BBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// Bounds returns the geometry's bounding box. ok is false unless this is a
// BBox geometry with four values.
func (g Geometry) Bounds() (BBox, bool) {
	if g.Type != GeometryBBox || len(g.BBox) != 4 {
		return BBox{}, false
	}
	return BBox{South: g.BBox[0], West: g.BBox[1], North: g.BBox[2], East: g.BBox[3]}, true
}

// Validate checks coordinate ranges and bbox ordering. Missing point
// coordinates are not an error here.
func (g Geometry) Validate() error {
	switch g.Type {
	case GeometryPoint:
		if g.Lat != nil && (*g.Lat < -90 || *g.Lat > 90) {
			return &ValidationError{Field: "place_geometry.lat", Message: "must be within [-90, 90]"}
		}
		if g.Lon != nil && (*g.Lon < -180 || *g.Lon > 180) {
			return &ValidationError{Field: "place_geometry.lon", Message: "must be within [-180, 180]"}
		}
		return nil
	case GeometryBBox:
		if len(g.BBox) != 4 {
			return &ValidationError{Field: "place_geometry.bbox", Message: "must be [south, west, north, east]"}
		}
		s, w, n, e := g.BBox[0], g.BBox[1], g.BBox[2], g.BBox[3]
		if s < -90 || n > 90 || w < -180 || e > 180 {
			return &ValidationError{Field: "place_geometry.bbox", Message: "coordinates out of range"}
		}
		if s > n || w > e {
			return &ValidationError{Field: "place_geometry.bbox", Message: "south must not exceed north and west must not exceed east"}
		}
		return nil
	default:
		return &ValidationError{Field: "place_geometry.type", Message: "must be one of [Point BBox]"}
	}
}

// Coord is a single sampled coordinate.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CapabilityVariable is one entry of the canonical variable catalog.
type CapabilityVariable struct {
	ID      string     `json:"id" validate:"required"`
	Label   string     `json:"label"`
	Unit    string     `json:"unit"`
	Modes   []TimeMode `json:"modes"`
	Aliases []string   `json:"aliases"`
}

// Capabilities is a published catalog snapshot. It is replaced wholesale on
// refresh, never merged.
type Capabilities struct {
	Provider    string               `json:"provider"`
	RefreshedAt time.Time            `json:"refreshed_at"`
	Variables   []CapabilityVariable `json:"variables" validate:"dive"`
}

// Lookup finds a variable by canonical id.
func (c Capabilities) Lookup(id string) (CapabilityVariable, bool) {
	for _, v := range c.Variables {
		if v.ID == id {
			return v, true
		}
	}
	return CapabilityVariable{}, false
}

// SnapshotStatus tells a caller how current a capability snapshot is.
type SnapshotStatus string

const (
	SnapshotFresh    SnapshotStatus = "fresh"
	SnapshotCached   SnapshotStatus = "cached"
	SnapshotDegraded SnapshotStatus = "degraded"
)

// CapabilitySnapshot is what the registry hands out. A degraded snapshot is
// the previous catalog returned after a failed refresh; Err carries the cause.
type CapabilitySnapshot struct {
	Capabilities Capabilities
	Status       SnapshotStatus
	Err          error
}

// PlanOptions are the caller-tunable knobs of a plan.
type PlanOptions struct {
	HistoricalDepth string `json:"historical_depth,omitempty" validate:"omitempty,oneof=recent deep"`
	HistoricalYears *int   `json:"historical_years,omitempty" validate:"omitempty,min=1,max=50"`
	ForecastDays    *int   `json:"forecast_days,omitempty" validate:"omitempty,min=1,max=16"`
}

// HistoricalWindow is an inclusive range of UTC calendar dates.
type HistoricalWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Years int    `json:"years"`
}

// PlanMeta carries derived plan data.
type PlanMeta struct {
	HistoricalWindow *HistoricalWindow `json:"historical_window,omitempty"`
}

// PlanRequest is the raw input to planning.
type PlanRequest struct {
	Capabilities  *Capabilities `json:"capabilities,omitempty"`
	PlaceGeometry *Geometry     `json:"place_geometry" validate:"required"`
	TimeMode      TimeMode      `json:"time_mode" validate:"required,oneof=current forecast historical climate"`
	Variables     []string      `json:"variables"`
	Options       *PlanOptions  `json:"options,omitempty"`
}

// Item statuses.
const (
	ItemResolved   = "resolved"
	ItemUnresolved = "unresolved"
)

// FallbackSuggestion points at an alternate provider for an unresolved item.
type FallbackSuggestion struct {
	Provider string `json:"provider"`
	Kind     string `json:"kind"`
}

// PlanItem is one requested phrase and what it resolved to. Canonical, Unit
// and Provider are set only when Status is resolved; Fallbacks only when not.
type PlanItem struct {
	Requested string               `json:"requested"`
	Status    string               `json:"status"`
	Score     float64              `json:"score"`
	Canonical string               `json:"canonical,omitempty"`
	Label     string               `json:"label,omitempty"`
	Unit      string               `json:"unit,omitempty"`
	Provider  string               `json:"provider,omitempty"`
	Fallbacks []FallbackSuggestion `json:"fallbacks,omitempty"`
}

// Resolved reports whether the item matched a catalog entry.
func (it PlanItem) Resolved() bool {
	return it.Status == ItemResolved && it.Canonical != ""
}

// Plan is the fully resolved description of what to fetch.
type Plan struct {
	ID            string       `json:"id"`
	PlaceGeometry Geometry     `json:"place_geometry"`
	TimeMode      TimeMode     `json:"time_mode"`
	Items         []PlanItem   `json:"items"`
	Citations     []string     `json:"citations"`
	Options       *PlanOptions `json:"options,omitempty"`
	Meta          *PlanMeta    `json:"meta,omitempty"`
}

// Window returns the historical window, if any.
func (p *Plan) Window() *HistoricalWindow {
	if p.Meta == nil {
		return nil
	}
	return p.Meta.HistoricalWindow
}

// ResolvedVariables returns the de-duplicated canonical ids in plan order
// together with the item that first named each.
func (p *Plan) ResolvedVariables() []PlanItem {
	seen := make(map[string]bool)
	var out []PlanItem
	for _, it := range p.Items {
		if !it.Resolved() || seen[it.Canonical] {
			continue
		}
		seen[it.Canonical] = true
		out = append(out, it)
	}
	return out
}

// Provenance records which upstream produced a result.
type Provenance struct {
	Provider  string `json:"provider"`
	Endpoint  string `json:"endpoint"`
	ProxyUsed bool   `json:"proxy_used"`
	Note      string `json:"note,omitempty"`
}

// SeriesResult is a raw point time series. Missing upstream values stay null.
type SeriesResult struct {
	Variable   string     `json:"variable"`
	Unit       string     `json:"unit"`
	Times      []string   `json:"times"`
	Values     []*float64 `json:"values"`
	Provenance Provenance `json:"provenance"`
}

// HourSummary is a bucketed mean/IQR summary; Index names the buckets.
type HourSummary struct {
	Index []int      `json:"index"`
	Mean  []*float64 `json:"mean"`
	IQR   []*float64 `json:"iqr"`
}

// AggregationResult is a regional hour-of-day summary for one variable.
type AggregationResult struct {
	Variable    string      `json:"variable"`
	Unit        string      `json:"unit"`
	Aggregation HourSummary `json:"aggregation"`
	SampleCount int         `json:"sample_count"`
	Provenance  Provenance  `json:"provenance"`
}

// LongTermStats pools every finite value of a matrix.
type LongTermStats struct {
	Mean  *float64 `json:"mean"`
	P10   *float64 `json:"p10"`
	P90   *float64 `json:"p90"`
	IQR   *float64 `json:"iqr"`
	Count int      `json:"count"`
}

// SpatialStats summarizes per-point means by latitude band.
type SpatialStats struct {
	Bands []string   `json:"bands"`
	Mean  []*float64 `json:"mean"`
	IQR   []*float64 `json:"iqr"`
	Count []int      `json:"count"`
}

// ClimateBlock is the four-part climate summary.
type ClimateBlock struct {
	LongTerm LongTermStats `json:"long_term"`
	Seasonal HourSummary   `json:"seasonal"`
	Diurnal  HourSummary   `json:"diurnal"`
	Spatial  SpatialStats  `json:"spatial"`
}

// Climatology attaches a climate block to a variable.
type Climatology struct {
	Variable   string       `json:"variable"`
	Unit       string       `json:"unit"`
	Blocks     ClimateBlock `json:"blocks"`
	Provenance Provenance   `json:"provenance"`
}

// Result modes.
const (
	ResultPoint  = "point"
	ResultRegion = "region"
)

// ExecuteResult is the output of executing a plan.
type ExecuteResult struct {
	Mode          string              `json:"mode"`
	Series        []SeriesResult      `json:"series,omitempty"`
	Aggregates    []AggregationResult `json:"aggregates,omitempty"`
	Climatologies []Climatology       `json:"climatologies,omitempty"`
	Window        *HistoricalWindow   `json:"window,omitempty"`
	Citations     []string            `json:"citations"`
	Limitations   []string            `json:"limitations"`
}

// ResolvedLocation is the output of geocoding a free-text place.
type ResolvedLocation struct {
	Name     string    `json:"name"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	BBox     []float64 `json:"bbox,omitempty"`
	AreaKm2  float64   `json:"area_km2"`
	Geometry Geometry  `json:"geometry"`
	Source   string    `json:"source"`
}
