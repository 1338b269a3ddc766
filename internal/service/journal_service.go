package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/gateway"
)

// JournalService is the client for the /journals endpoints.
type JournalService interface {
	List(ctx context.Context) ([]domain.Journal, error)
	Get(ctx context.Context, id string) (*domain.Journal, error)
	Create(ctx context.Context, journal domain.Journal) (*domain.Journal, error)
	Update(ctx context.Context, id string, journal domain.Journal) (*domain.Journal, error)
	Delete(ctx context.Context, id string) error
}

type journalService struct {
	api *gateway.Client
}

func NewJournalService(api *gateway.Client) JournalService {
	return &journalService{api: api}
}

func (s *journalService) List(ctx context.Context) ([]domain.Journal, error) {
	journals, err := gateway.Do[[]domain.Journal](ctx, s.api, "/journals", gateway.Request{})
	if err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}
	return journals, nil
}

func (s *journalService) Get(ctx context.Context, id string) (*domain.Journal, error) {
	if id == "" {
		return nil, errors.New("journal id is required")
	}
	journal, err := gateway.Do[domain.Journal](ctx, s.api, journalPath(id), gateway.Request{})
	if err != nil {
		return nil, fmt.Errorf("get journal %s: %w", id, err)
	}
	return &journal, nil
}

func (s *journalService) Create(ctx context.Context, journal domain.Journal) (*domain.Journal, error) {
	created, err := gateway.Do[domain.Journal](ctx, s.api, "/journals", gateway.Request{
		Method: http.MethodPost,
		Body:   journal,
	})
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}
	return &created, nil
}

func (s *journalService) Update(ctx context.Context, id string, journal domain.Journal) (*domain.Journal, error) {
	if id == "" {
		return nil, errors.New("journal id is required")
	}
	updated, err := gateway.Do[domain.Journal](ctx, s.api, journalPath(id), gateway.Request{
		Method: http.MethodPut,
		Body:   journal,
	})
	if err != nil {
		return nil, fmt.Errorf("update journal %s: %w", id, err)
	}
	return &updated, nil
}

func (s *journalService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("journal id is required")
	}
	res, err := s.api.Delete(ctx, journalPath(id))
	if err != nil {
		return fmt.Errorf("delete journal %s: %w", id, err)
	}
	return res.Close()
}

func journalPath(id string) string {
	return "/journals/" + url.PathEscape(id)
}
