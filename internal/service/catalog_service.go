package service

import (
	"context"
	"strings"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/repository"
)

type ServiceInput struct {
	Name        string
	Description string
	Type        domain.ServiceType
}

// CatalogService manages the services billed on invoice lines
type CatalogService interface {
	List(ctx context.Context) ([]*domain.Service, error)
	Create(ctx context.Context, input ServiceInput) (*domain.Service, error)
	Edit(ctx context.Context, id int64, input ServiceInput) (*domain.Service, error)
	Delete(ctx context.Context, id int64) error
}

type catalogService struct {
	serviceRepo repository.ServiceRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(serviceRepo repository.ServiceRepository) CatalogService {
	return &catalogService{serviceRepo: serviceRepo}
}

func (s *catalogService) List(ctx context.Context) ([]*domain.Service, error) {
	return s.serviceRepo.List(ctx, false)
}

func (s *catalogService) Create(ctx context.Context, input ServiceInput) (*domain.Service, error) {
	service := domain.NewService(input.Name, input.Description, input.Type)
	if err := service.Validate(); err != nil {
		return nil, err
	}
	if err := s.serviceRepo.Create(ctx, service); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *catalogService) Edit(ctx context.Context, id int64, input ServiceInput) (*domain.Service, error) {
	if err := requireID(id, "service"); err != nil {
		return nil, err
	}
	service, err := s.serviceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	service.Name = strings.TrimSpace(input.Name)
	service.Description = strings.TrimSpace(input.Description)
	service.Type = input.Type
	if err := service.Validate(); err != nil {
		return nil, err
	}
	if err := s.serviceRepo.Update(ctx, service); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *catalogService) Delete(ctx context.Context, id int64) error {
	if err := requireID(id, "service"); err != nil {
		return err
	}
	return s.serviceRepo.Remove(ctx, id)
}
