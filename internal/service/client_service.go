package service

import (
	"context"
	"strings"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/repository"
)

// ClientInput holds the editable client fields. Empty optional fields are stored as NULL.
type ClientInput struct {
	Name          string
	Firstname     string
	Lastname      string
	Email         string
	PhoneNumber   string
	Remark        string
	Address       string
	AddressNumber string
	PostalCode    string
	City          string
}

func (in ClientInput) apply(c *domain.Client) {
	c.Name = strings.TrimSpace(in.Name)
	c.Firstname = strings.TrimSpace(in.Firstname)
	c.Lastname = strings.TrimSpace(in.Lastname)
	c.Email = optional(in.Email)
	c.PhoneNumber = optional(in.PhoneNumber)
	c.Remark = optional(in.Remark)
	c.Address = optional(in.Address)
	c.AddressNumber = optional(in.AddressNumber)
	c.PostalCode = optional(in.PostalCode)
	c.City = optional(in.City)
}

// ClientService manages clients
type ClientService interface {
	List(ctx context.Context) ([]*domain.Client, error)
	Create(ctx context.Context, input ClientInput) (*domain.Client, error)
	Edit(ctx context.Context, id int64, input ClientInput) (*domain.Client, error)
	Delete(ctx context.Context, id int64) error
}

type clientService struct {
	clientRepo repository.ClientRepository
}

// NewClientService creates a new client service
func NewClientService(clientRepo repository.ClientRepository) ClientService {
	return &clientService{clientRepo: clientRepo}
}

func (s *clientService) List(ctx context.Context) ([]*domain.Client, error) {
	return s.clientRepo.List(ctx, false)
}

func (s *clientService) Create(ctx context.Context, input ClientInput) (*domain.Client, error) {
	client := domain.NewClient(input.Name, input.Firstname, input.Lastname)
	input.apply(client)
	if err := client.Validate(); err != nil {
		return nil, err
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) Edit(ctx context.Context, id int64, input ClientInput) (*domain.Client, error) {
	if err := requireID(id, "client"); err != nil {
		return nil, err
	}
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	input.apply(client)
	if err := client.Validate(); err != nil {
		return nil, err
	}
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *clientService) Delete(ctx context.Context, id int64) error {
	if err := requireID(id, "client"); err != nil {
		return err
	}
	return s.clientRepo.Remove(ctx, id)
}
