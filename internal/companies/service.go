package companies

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service contains business logic for companies.
type Service struct {
	Repo Repo
}

// Create registers a new company.
func (s *Service) Create(ctx context.Context, name, sector, description string) (Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Company{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	company := Company{
		ID:          uuid.NewString(),
		Name:        name,
		Sector:      strings.TrimSpace(sector),
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Repo.Create(ctx, company); err != nil {
		return Company{}, err
	}
	return company, nil
}

// Get returns a company by id.
func (s *Service) Get(ctx context.Context, id string) (Company, error) {
	if strings.TrimSpace(id) == "" {
		return Company{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns all companies, newest first.
func (s *Service) List(ctx context.Context) ([]Company, error) {
	return s.Repo.List(ctx)
}
