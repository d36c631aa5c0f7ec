package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/domain"
)

// ServiceRepo is a SQLite implementation of ServiceRepository
type ServiceRepo struct {
	db   *db.DB
	hook ChangeHook
}

// NewServiceRepo creates a new ServiceRepo; hook may be nil
func NewServiceRepo(database *db.DB, hook ChangeHook) *ServiceRepo {
	return &ServiceRepo{db: database, hook: hookOrNoop(hook)}
}

const serviceColumns = `id, name, description, type, is_archived, created_at, updated_at`

func scanService(row scanner) (*domain.Service, error) {
	service := &domain.Service{}
	var serviceType, createdAt, updatedAt string

	err := row.Scan(
		&service.ID,
		&service.Name,
		&service.Description,
		&serviceType,
		&service.Archived,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	service.Type = domain.ServiceType(serviceType)
	if err := parseAudit(createdAt, updatedAt, &service.CreatedAt, &service.UpdatedAt); err != nil {
		return nil, err
	}
	return service, nil
}

// Create inserts a new service into the catalog
func (r *ServiceRepo) Create(ctx context.Context, service *domain.Service) error {
	if err := service.Validate(); err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	query := `
		INSERT INTO services (name, description, type, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		service.Name,
		service.Description,
		string(service.Type),
		service.Archived,
		formatTime(service.CreatedAt),
		formatTime(service.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get service ID: %w", err)
	}

	service.ID = id
	r.hook.Created(ctx, service)
	return nil
}

// GetByID retrieves a service by ID
func (r *ServiceRepo) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = ?`

	service, err := scanService(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrServiceNotFound, id)
		}
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	return service, nil
}

// List retrieves the catalog ordered by name
func (r *ServiceRepo) List(ctx context.Context, includeArchived bool) ([]*domain.Service, error) {
	query := `
		SELECT ` + serviceColumns + `
		FROM services
		WHERE is_archived = 0 OR ? = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	services := make([]*domain.Service, 0)
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, service)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating services: %w", err)
	}

	return services, nil
}

// Update updates an existing service
func (r *ServiceRepo) Update(ctx context.Context, service *domain.Service) error {
	if err := service.Validate(); err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	previous, err := r.GetByID(ctx, service.ID)
	if err != nil {
		return err
	}

	updatedAt := service.Touched()
	query := `
		UPDATE services
		SET name = ?, description = ?, type = ?, is_archived = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query,
		service.Name,
		service.Description,
		string(service.Type),
		service.Archived,
		formatTime(updatedAt),
		service.ID,
	); err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}
	service.UpdatedAt = updatedAt

	r.hook.Updated(ctx, service, previous)
	return nil
}

// Remove archives a service
func (r *ServiceRepo) Remove(ctx context.Context, id int64) error {
	service, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if service.Archived {
		return nil
	}

	service.Archived = true
	return r.Update(ctx, service)
}

// Count returns the number of active services
func (r *ServiceRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM services WHERE is_archived = 0`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count services: %w", err)
	}
	return count, nil
}
