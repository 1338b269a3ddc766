package service

import (
	"context"
	"fmt"
	"net/http"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/gateway"
)

// WellnessService is the client for the general wellness questionnaire.
type WellnessService interface {
	Assess(ctx context.Context, input domain.WellnessInput) (domain.Payload, error)
	History(ctx context.Context) ([]domain.Payload, error)
}

type wellnessService struct {
	api *gateway.Client
}

func NewWellnessService(api *gateway.Client) WellnessService {
	return &wellnessService{api: api}
}

func (s *wellnessService) Assess(ctx context.Context, input domain.WellnessInput) (domain.Payload, error) {
	out, err := gateway.Do[domain.Payload](ctx, s.api, "/wellness/assess", gateway.Request{
		Method: http.MethodPost,
		Body:   input,
	})
	if err != nil {
		return nil, fmt.Errorf("wellness assess: %w", err)
	}
	return out, nil
}

func (s *wellnessService) History(ctx context.Context) ([]domain.Payload, error) {
	out, err := gateway.Do[[]domain.Payload](ctx, s.api, "/wellness/history", gateway.Request{})
	if err != nil {
		return nil, fmt.Errorf("wellness history: %w", err)
	}
	return out, nil
}
