package domain

import (
	"strings"

	"github.com/cockroachdb/errors"
)

const TableServices = "services"

// ServiceType is the billing period of a catalog service
type ServiceType string

const (
	ServiceTypeYearly  ServiceType = "YEARLY"
	ServiceTypeMonthly ServiceType = "MONTHLY"
	ServiceTypeUnique  ServiceType = "UNIQUE"
)

// Valid reports whether t is a known service type
func (t ServiceType) Valid() bool {
	switch t {
	case ServiceTypeYearly, ServiceTypeMonthly, ServiceTypeUnique:
		return true
	}
	return false
}

// Service is an entry of the catalog billed on invoice lines
type Service struct {
	Audit
	Name        string
	Description string
	Type        ServiceType
	Archived    bool
}

// NewService creates a catalog service
func NewService(name, description string, serviceType ServiceType) *Service {
	return &Service{
		Audit:       newAudit(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Type:        serviceType,
	}
}

// Validate returns an error if the service is invalid
func (s *Service) Validate() error {
	if s.Name == "" {
		return errors.Wrap(BadParameterError, "service name is required")
	}
	if !s.Type.Valid() {
		return errors.Wrapf(BadParameterError, "unknown service type %q", s.Type)
	}
	return nil
}

func (s *Service) HistoryTable() string { return TableServices }

func (s *Service) HistoryValues() map[string]any {
	v := s.Audit.values()
	v["name"] = s.Name
	v["description"] = s.Description
	v["type"] = s.Type
	v["archived"] = s.Archived
	return v
}
