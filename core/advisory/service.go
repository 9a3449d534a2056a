package advisory

import (
	"context"

	"github.com/kilianp07/evdash/core/factory"
)

// Service is the external advisory collaborator. Implementations must honour
// ctx cancellation and return an error for any malformed response.
type Service interface {
	DrivingRecommendation(ctx context.Context, req RecommendationRequest) (RecommendationResponse, error)
	DrivingStyle(ctx context.Context, req DrivingStyleRequest) (DrivingStyleResponse, error)
	PredictRange(ctx context.Context, req RangeRequest) (RangeResponse, error)
	ForecastSOH(ctx context.Context, req SOHForecastRequest) ([]ForecastPoint, error)
	Fatigue(ctx context.Context, req FatigueRequest) (FatigueResponse, error)
}

// Registry holds the advisory service factories by type name.
var Registry = factory.NewRegistry[Service]()

// New builds the service described by cfg.
func New(cfg factory.ModuleConfig) (Service, error) {
	if cfg.Type == "" {
		cfg.Type = "mock"
	}
	return Registry.Create(cfg)
}
