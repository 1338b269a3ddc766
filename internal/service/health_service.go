package service

import (
	"context"
	"fmt"
	"net/http"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/gateway"
)

// HealthService is the client for the /health prediction endpoints.
type HealthService interface {
	PredictHeart(ctx context.Context, input domain.HeartInput) (*domain.RiskAssessment, error)
	PredictDiabetes(ctx context.Context, input domain.DiabetesInput) (*domain.RiskAssessment, error)
	PredictMentalHealth(ctx context.Context, answers domain.Payload) (domain.Payload, error)
	History(ctx context.Context, kind domain.AssessmentKind) ([]domain.Payload, error)
	Test(ctx context.Context) (domain.Payload, error)
}

type healthService struct {
	api *gateway.Client
}

func NewHealthService(api *gateway.Client) HealthService {
	return &healthService{api: api}
}

func (s *healthService) PredictHeart(ctx context.Context, input domain.HeartInput) (*domain.RiskAssessment, error) {
	return s.predictRisk(ctx, "/health/heart-predict", input)
}

func (s *healthService) PredictDiabetes(ctx context.Context, input domain.DiabetesInput) (*domain.RiskAssessment, error) {
	return s.predictRisk(ctx, "/health/diabetes-predict", input)
}

func (s *healthService) PredictMentalHealth(ctx context.Context, answers domain.Payload) (domain.Payload, error) {
	out, err := gateway.Do[domain.Payload](ctx, s.api, "/health/mental-health-predict", gateway.Request{
		Method: http.MethodPost,
		Body:   answers,
	})
	if err != nil {
		return nil, fmt.Errorf("predict mental health: %w", err)
	}
	return out, nil
}

func (s *healthService) History(ctx context.Context, kind domain.AssessmentKind) ([]domain.Payload, error) {
	switch kind {
	case domain.AssessmentHeart, domain.AssessmentDiabetes, domain.AssessmentMentalHealth:
	default:
		return nil, fmt.Errorf("no health history for %q", kind)
	}

	out, err := gateway.Do[[]domain.Payload](ctx, s.api, "/health/"+string(kind)+"-history", gateway.Request{})
	if err != nil {
		return nil, fmt.Errorf("%s history: %w", kind, err)
	}
	return out, nil
}

// Test pings the unauthenticated health endpoint.
func (s *healthService) Test(ctx context.Context) (domain.Payload, error) {
	out, err := gateway.Do[domain.Payload](ctx, s.api, "/health/test", gateway.Request{SkipAuth: true})
	if err != nil {
		return nil, fmt.Errorf("health test: %w", err)
	}
	return out, nil
}

func (s *healthService) predictRisk(ctx context.Context, endpoint string, input any) (*domain.RiskAssessment, error) {
	out, err := gateway.Do[domain.RiskAssessment](ctx, s.api, endpoint, gateway.Request{
		Method: http.MethodPost,
		Body:   input,
	})
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", endpoint, err)
	}
	return &out, nil
}
