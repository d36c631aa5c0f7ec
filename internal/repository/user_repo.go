package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/domain"
	"github.com/guregu/null/v5"
)

// UserRepo is a SQLite implementation of UserRepository
type UserRepo struct {
	db   *db.DB
	hook ChangeHook
}

// NewUserRepo creates a new UserRepo; hook may be nil
func NewUserRepo(database *db.DB, hook ChangeHook) *UserRepo {
	return &UserRepo{db: database, hook: hookOrNoop(hook)}
}

const userColumns = `id, firstname, lastname, email, password, last_connexion_at, created_at, updated_at`

func scanUser(row scanner) (*domain.User, error) {
	user := &domain.User{}
	var lastConnexion null.String
	var createdAt, updatedAt string

	err := row.Scan(
		&user.ID,
		&user.Firstname,
		&user.Lastname,
		&user.Email,
		&user.Password,
		&lastConnexion,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if user.LastConnexionAt, err = parseNullTime(lastConnexion); err != nil {
		return nil, fmt.Errorf("failed to parse last_connexion_at: %w", err)
	}
	if err := parseAudit(createdAt, updatedAt, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts a new user into the database
func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}

	query := `
		INSERT INTO users (firstname, lastname, email, password, last_connexion_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		user.Firstname,
		user.Lastname,
		user.Email,
		user.Password,
		nullTimeValue(user.LastConnexionAt),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user ID: %w", err)
	}

	user.ID = id
	r.hook.Created(ctx, user)
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by normalized email
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, domain.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// List retrieves all users ordered by lastname
func (r *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY lastname, firstname`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Update updates an existing user
func (r *UserRepo) Update(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}

	previous, err := r.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}

	updatedAt := user.Touched()
	query := `
		UPDATE users
		SET firstname = ?, lastname = ?, email = ?, password = ?, last_connexion_at = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query,
		user.Firstname,
		user.Lastname,
		user.Email,
		user.Password,
		nullTimeValue(user.LastConnexionAt),
		formatTime(updatedAt),
		user.ID,
	); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	user.UpdatedAt = updatedAt

	r.hook.Updated(ctx, user, previous)
	return nil
}

// Delete removes a user. History rows written by the user are kept.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	r.hook.Removed(ctx, user)
	return nil
}

// ActorExists reports whether a user with id exists
func (r *UserRepo) ActorExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}
