// Package planner turns free-text variable requests into executable plans.
package planner

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/i474232898/weather-planner/internal/common"
	"github.com/i474232898/weather-planner/internal/weather"
)

const (
	// DefaultYears is the archive depth for "recent" or unspecified depth.
	DefaultYears = 1
	// DeepYears is the archive depth for historical_depth "deep".
	DeepYears = 10

	dateLayout = "2006-01-02"
)

// climateHints force historical mode when they appear in any phrase.
var climateHints = []string{"typical", "climatology", "normal", "long-term"}

// fallbacks is attached, in this order, to every unresolved item.
var fallbacks = []weather.FallbackSuggestion{
	{Provider: "meteostat", Kind: "station-based"},
	{Provider: "chirps", Kind: "precipitation land-only"},
	{Provider: "nasa-power", Kind: "radiation"},
	{Provider: "openaq", Kind: "air quality"},
	{Provider: "nsidc", Kind: "sea ice"},
}

var (
	forecastCitations = []string{
		"Open-Meteo Forecast API: https://open-meteo.com/en/docs",
	}
	historicalCitations = []string{
		"Open-Meteo Historical Weather API (ERA5 reanalysis): https://open-meteo.com/en/docs/historical-weather-api",
		"Open-Meteo: https://open-meteo.com/",
	}
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CapabilitySource provides the catalog snapshot used when a request does not
// carry its own.
type CapabilitySource interface {
	Capabilities(ctx context.Context) weather.Capabilities
}

// Planner builds plans against a capability catalog.
type Planner struct {
	caps CapabilitySource
	now  func() time.Time
}

// New creates a Planner.
func New(caps CapabilitySource) *Planner {
	return &Planner{caps: caps, now: time.Now}
}

// Plan validates req and resolves it into a Plan. Items keep the order of
// req.Variables, unresolved phrases included.
func (p *Planner) Plan(ctx context.Context, req weather.PlanRequest) (*weather.Plan, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	caps := p.snapshot(ctx, req)
	mode := EffectiveMode(req.TimeMode, req.Variables)

	plan := &weather.Plan{
		ID:            uuid.NewString(),
		PlaceGeometry: *req.PlaceGeometry,
		TimeMode:      mode,
		Items:         Resolve(req.Variables, caps),
		Citations:     citations(mode),
		Options:       req.Options,
	}
	if mode == weather.ModeHistorical {
		w := Window(p.now(), Years(req.Options))
		plan.Meta = &weather.PlanMeta{HistoricalWindow: &w}
	}
	return plan, nil
}

func (p *Planner) snapshot(ctx context.Context, req weather.PlanRequest) weather.Capabilities {
	if req.Capabilities != nil && len(req.Capabilities.Variables) > 0 {
		return *req.Capabilities
	}
	if p.caps == nil {
		return weather.Capabilities{}
	}
	return p.caps.Capabilities(ctx)
}

// Resolve matches every phrase against the catalog.
func Resolve(phrases []string, caps weather.Capabilities) []weather.PlanItem {
	items := make([]weather.PlanItem, 0, len(phrases))
	for _, phrase := range phrases {
		v, score, ok := BestMatch(phrase, caps.Variables)
		if !ok || score < MatchThreshold {
			items = append(items, weather.PlanItem{
				Requested: phrase,
				Status:    weather.ItemUnresolved,
				Score:     score,
				Fallbacks: append([]weather.FallbackSuggestion(nil), fallbacks...),
			})
			continue
		}

		provider := caps.Provider
		if provider == "" {
			provider = "open-meteo"
		}
		items = append(items, weather.PlanItem{
			Requested: phrase,
			Status:    weather.ItemResolved,
			Score:     score,
			Canonical: v.ID,
			Label:     v.Label,
			Unit:      v.Unit,
			Provider:  provider,
		})
	}
	return items
}

// EffectiveMode applies the climate-hint override. Climate mode is answered
// from the archive, so it is planned as historical too.
func EffectiveMode(requested weather.TimeMode, phrases []string) weather.TimeMode {
	if common.MentionsAny(phrases, climateHints...) || requested == weather.ModeClimate {
		return weather.ModeHistorical
	}
	return requested
}

// Years picks the archive depth: explicit years, else 10 for "deep", else 1.
func Years(opts *weather.PlanOptions) int {
	if opts == nil {
		return DefaultYears
	}
	if opts.HistoricalYears != nil {
		return *opts.HistoricalYears
	}
	if opts.HistoricalDepth == "deep" {
		return DeepYears
	}
	return DefaultYears
}

// Window is the range of UTC calendar dates ending today and starting years
// calendar years earlier. Feb 29 maps to Feb 28 in a non-leap start year.
func Window(now time.Time, years int) weather.HistoricalWindow {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Date(end.Year()-years, end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if start.Month() != end.Month() {
		// Day 0 of a month is the last day of the one before.
		start = time.Date(start.Year(), start.Month(), 0, 0, 0, 0, 0, time.UTC)
	}
	return weather.HistoricalWindow{
		Start: start.Format(dateLayout),
		End:   end.Format(dateLayout),
		Years: years,
	}
}

func citations(mode weather.TimeMode) []string {
	if mode == weather.ModeHistorical {
		return append([]string(nil), historicalCitations...)
	}
	return append([]string(nil), forecastCitations...)
}

// Validate checks the request shape. Missing point coordinates are accepted
// here and rejected at execution time.
func Validate(req weather.PlanRequest) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &weather.ValidationError{Field: fieldPath(fe.Namespace()), Message: describe(fe)}
		}
		return &weather.ValidationError{Message: err.Error()}
	}
	return req.PlaceGeometry.Validate()
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed '%s' validation", fe.Tag())
	}
}
