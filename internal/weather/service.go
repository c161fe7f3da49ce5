package weather

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/weather-planner/internal/log"
)

// ErrGeocodingDisabled is returned by ResolveLocation when no resolver is
// configured.
var ErrGeocodingDisabled = errors.New("location resolving is not configured")

// Service exposes the four operations served over HTTP.
type Service struct {
	caps     CapabilityDescriber
	resolver LocationResolver
	planner  QueryPlanner
	executor PlanExecutor
}

// NewService creates a new Service. resolver may be nil.
func NewService(caps CapabilityDescriber, resolver LocationResolver, planner QueryPlanner, executor PlanExecutor) *Service {
	return &Service{
		caps:     caps,
		resolver: resolver,
		planner:  planner,
		executor: executor,
	}
}

// DescribeCapabilities returns the current catalog. A failed refresh still
// returns the previous catalog; it is only logged.
func (s *Service) DescribeCapabilities(ctx context.Context) Capabilities {
	snap := s.caps.Describe(ctx)
	if snap.Status == SnapshotDegraded {
		log.Warnw("capability refresh failed; serving previous catalog",
			"refreshed_at", snap.Capabilities.RefreshedAt, "error", snap.Err)
	} else {
		log.Debugw("capabilities described", "status", snap.Status, "variables", len(snap.Capabilities.Variables))
	}
	return snap.Capabilities
}

// ResolveLocation geocodes query.
func (s *Service) ResolveLocation(ctx context.Context, query string) (*ResolvedLocation, error) {
	if s.resolver == nil {
		return nil, ErrGeocodingDisabled
	}
	loc, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		log.Infow("resolve location failed", "query", query, "error", err)
		return nil, err
	}
	log.Debugw("location resolved", "query", query, "source", loc.Source, "area_km2", loc.AreaKm2)
	return loc, nil
}

// PlanQuery builds a plan for req.
func (s *Service) PlanQuery(ctx context.Context, req PlanRequest) (*Plan, error) {
	plan, err := s.planner.Plan(ctx, req)
	if err != nil {
		return nil, err
	}

	unresolved := 0
	for _, it := range plan.Items {
		if !it.Resolved() {
			unresolved++
		}
	}
	log.Infow("plan built",
		"plan_id", plan.ID,
		"time_mode", plan.TimeMode,
		"geometry", plan.PlaceGeometry.Type,
		"items", len(plan.Items),
		"unresolved", unresolved,
	)
	return plan, nil
}

// ExecutePlan runs plan.
func (s *Service) ExecutePlan(ctx context.Context, plan *Plan) (*ExecuteResult, error) {
	start := time.Now()

	res, err := s.executor.Execute(ctx, plan)
	if err != nil {
		var upErr *UpstreamFetchError
		if errors.As(err, &upErr) {
			log.Errorw("plan execution failed upstream", "plan_id", planID(plan), "status", upErr.StatusCode, "url", upErr.URL, "error", err)
		} else {
			log.Infow("plan execution rejected", "plan_id", planID(plan), "error", err)
		}
		return nil, err
	}

	log.Infow("plan executed",
		"plan_id", planID(plan),
		"mode", res.Mode,
		"series", len(res.Series),
		"aggregates", len(res.Aggregates),
		"climatologies", len(res.Climatologies),
		"elapsed", time.Since(start),
	)
	return res, nil
}

func planID(p *Plan) string {
	if p == nil {
		return ""
	}
	return p.ID
}
