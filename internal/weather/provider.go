package weather

import "context"

// CapabilityDescriber serves capability snapshots.
type CapabilityDescriber interface {
	Describe(ctx context.Context) CapabilitySnapshot
}

// LocationResolver geocodes a free-text place.
type LocationResolver interface {
	Resolve(ctx context.Context, query string) (*ResolvedLocation, error)
}

// QueryPlanner turns a raw request into a Plan.
type QueryPlanner interface {
	Plan(ctx context.Context, req PlanRequest) (*Plan, error)
}

// PlanExecutor fetches and reduces the data a Plan describes.
type PlanExecutor interface {
	Execute(ctx context.Context, plan *Plan) (*ExecuteResult, error)
}
