package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/domain"
)

// ClientRepo is a SQLite implementation of ClientRepository
type ClientRepo struct {
	db   *db.DB
	hook ChangeHook
}

// NewClientRepo creates a new ClientRepo; hook may be nil
func NewClientRepo(database *db.DB, hook ChangeHook) *ClientRepo {
	return &ClientRepo{db: database, hook: hookOrNoop(hook)}
}

const clientColumns = `id, name, firstname, lastname, email, phone_number, remark,
	address, address_number, postal_code, city, is_archived, created_at, updated_at`

func scanClient(row scanner) (*domain.Client, error) {
	client := &domain.Client{}
	var createdAt, updatedAt string

	err := row.Scan(
		&client.ID,
		&client.Name,
		&client.Firstname,
		&client.Lastname,
		&client.Email,
		&client.PhoneNumber,
		&client.Remark,
		&client.Address,
		&client.AddressNumber,
		&client.PostalCode,
		&client.City,
		&client.Archived,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := parseAudit(createdAt, updatedAt, &client.CreatedAt, &client.UpdatedAt); err != nil {
		return nil, err
	}
	return client, nil
}

// Create inserts a new client into the database
func (r *ClientRepo) Create(ctx context.Context, client *domain.Client) error {
	if err := client.Validate(); err != nil {
		return fmt.Errorf("invalid client: %w", err)
	}

	query := `
		INSERT INTO clients (name, firstname, lastname, email, phone_number, remark,
			address, address_number, postal_code, city, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		client.Name,
		client.Firstname,
		client.Lastname,
		client.Email,
		client.PhoneNumber,
		client.Remark,
		client.Address,
		client.AddressNumber,
		client.PostalCode,
		client.City,
		client.Archived,
		formatTime(client.CreatedAt),
		formatTime(client.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get client ID: %w", err)
	}

	client.ID = id
	r.hook.Created(ctx, client)
	return nil
}

// GetByID retrieves a client by ID, archived or not
func (r *ClientRepo) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = ?`

	client, err := scanClient(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrClientNotFound, id)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

// List retrieves all clients, optionally including archived ones
func (r *ClientRepo) List(ctx context.Context, includeArchived bool) ([]*domain.Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE is_archived = 0 OR ? = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]*domain.Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}

	return clients, nil
}

// Update updates an existing client
func (r *ClientRepo) Update(ctx context.Context, client *domain.Client) error {
	if err := client.Validate(); err != nil {
		return fmt.Errorf("invalid client: %w", err)
	}

	previous, err := r.GetByID(ctx, client.ID)
	if err != nil {
		return err
	}

	updatedAt := client.Touched()
	query := `
		UPDATE clients
		SET name = ?, firstname = ?, lastname = ?, email = ?, phone_number = ?, remark = ?,
			address = ?, address_number = ?, postal_code = ?, city = ?, is_archived = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query,
		client.Name,
		client.Firstname,
		client.Lastname,
		client.Email,
		client.PhoneNumber,
		client.Remark,
		client.Address,
		client.AddressNumber,
		client.PostalCode,
		client.City,
		client.Archived,
		formatTime(updatedAt),
		client.ID,
	); err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	client.UpdatedAt = updatedAt

	r.hook.Updated(ctx, client, previous)
	return nil
}

// Remove archives a client
func (r *ClientRepo) Remove(ctx context.Context, id int64) error {
	client, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if client.Archived {
		return nil
	}

	client.Archived = true
	return r.Update(ctx, client)
}

// Count returns the number of active clients
func (r *ClientRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients WHERE is_archived = 0`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return count, nil
}
