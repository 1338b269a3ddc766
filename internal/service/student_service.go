package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/gateway"
)

// StudentService is the client for the /student endpoints.
type StudentService interface {
	SubmitStress(ctx context.Context, entry domain.StressEntry) (*domain.Submission, error)
	SubmitSleep(ctx context.Context, entry domain.SleepEntry) (*domain.Submission, error)
	SubmitProcrastination(ctx context.Context, form domain.Payload) (*domain.Submission, error)
	SubmitConfidence(ctx context.Context, form domain.Payload) (*domain.Submission, error)
	SubmitCareer(ctx context.Context, form domain.Payload) (*domain.Submission, error)
	Resources(ctx context.Context) (domain.Payload, error)
	StressHistory(ctx context.Context) ([]domain.Payload, error)
	WeeklySleep(ctx context.Context) ([]domain.Payload, error)
}

type resourcesEnvelope struct {
	Resources domain.Payload `json:"resources"`
}

type studentService struct {
	api *gateway.Client
}

func NewStudentService(api *gateway.Client) StudentService {
	return &studentService{api: api}
}

func (s *studentService) SubmitStress(ctx context.Context, entry domain.StressEntry) (*domain.Submission, error) {
	return s.submit(ctx, "stress", entry)
}

func (s *studentService) SubmitSleep(ctx context.Context, entry domain.SleepEntry) (*domain.Submission, error) {
	return s.submit(ctx, "sleep", entry)
}

func (s *studentService) SubmitProcrastination(ctx context.Context, form domain.Payload) (*domain.Submission, error) {
	return s.submit(ctx, "procrastination", form)
}

func (s *studentService) SubmitConfidence(ctx context.Context, form domain.Payload) (*domain.Submission, error) {
	return s.submit(ctx, "confidence", form)
}

func (s *studentService) SubmitCareer(ctx context.Context, form domain.Payload) (*domain.Submission, error) {
	return s.submit(ctx, "career", form)
}

func (s *studentService) Resources(ctx context.Context) (domain.Payload, error) {
	out, err := gateway.Do[resourcesEnvelope](ctx, s.api, "/student/resources", gateway.Request{SkipAuth: true})
	if err != nil {
		return nil, fmt.Errorf("student resources: %w", err)
	}
	return out.Resources, nil
}

func (s *studentService) StressHistory(ctx context.Context) ([]domain.Payload, error) {
	return s.list(ctx, "/student/stress/history", "history")
}

func (s *studentService) WeeklySleep(ctx context.Context) ([]domain.Payload, error) {
	return s.list(ctx, "/student/sleep/weekly", "weeklyData")
}

func (s *studentService) submit(ctx context.Context, form string, body any) (*domain.Submission, error) {
	out, err := gateway.Do[domain.Submission](ctx, s.api, "/student/"+form, gateway.Request{
		Method: http.MethodPost,
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", form, err)
	}
	return &out, nil
}

// list unwraps the array stored under field.
func (s *studentService) list(ctx context.Context, endpoint, field string) ([]domain.Payload, error) {
	envelope, err := gateway.Do[map[string]json.RawMessage](ctx, s.api, endpoint, gateway.Request{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", endpoint, err)
	}

	raw, ok := envelope[field]
	if !ok || string(raw) == "null" {
		return []domain.Payload{}, nil
	}
	var items []domain.Payload
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", field, err)
	}
	return items, nil
}
