package service

import (
	"context"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/repository"
	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserInput struct {
	Firstname string
	Lastname  string
	Email     string
	Password  string
}

// UserService manages back-office accounts
type UserService interface {
	Create(ctx context.Context, input CreateUserInput) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	userRepo repository.UserRepository
	cost     int
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo, cost: bcrypt.DefaultCost}
}

func (s *userService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if len(input.Password) < 8 {
		return nil, domain.BadParameterf("password must be at least 8 characters")
	}

	existing, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Wrapf(domain.ErrEmailTaken, "%s", existing.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := domain.NewUser(input.Firstname, input.Lastname, input.Email, string(hash))
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) List(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.List(ctx)
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	if err := requireID(id, "user"); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, id)
}
