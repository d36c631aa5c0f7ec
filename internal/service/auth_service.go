package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/repository"
	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"
	"golang.org/x/crypto/bcrypt"
)

// LockoutError is returned while an email is blocked after too many failures
type LockoutError struct {
	Until time.Time
	now   time.Time
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account temporarily blocked until %s", e.Until.Format(time.RFC3339))
}

func (e *LockoutError) Unwrap() error {
	return domain.ErrAccountBlocked
}

// RemainingMinutes is the number of whole minutes left on the lockout
func (e *LockoutError) RemainingMinutes() int {
	now := e.now
	if now.IsZero() {
		now = time.Now()
	}
	return int(math.Max(0, math.Floor(e.Until.Sub(now).Minutes())))
}

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

type Session struct {
	User  *domain.User
	Token string
}

// AuthService authenticates back-office users
type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*Session, error)
}

// LoginPolicy throttles failed logins per email
type LoginPolicy struct {
	MaxFailedAttempts int
	Lockout           time.Duration
}

type authService struct {
	userRepo       repository.UserRepository
	connexionRepo  repository.ConnexionLogRepository
	tokens         TokenIssuer
	policy         LoginPolicy
	now            func() time.Time
	dummyHashOnce  sync.Once
	dummyHash      []byte
	dummyHashError error
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	connexionRepo repository.ConnexionLogRepository,
	tokens TokenIssuer,
	policy LoginPolicy,
) AuthService {
	if policy.MaxFailedAttempts <= 0 {
		policy.MaxFailedAttempts = 5
	}
	if policy.Lockout <= 0 {
		policy.Lockout = 30 * time.Minute
	}
	return &authService{
		userRepo:      userRepo,
		connexionRepo: connexionRepo,
		tokens:        tokens,
		policy:        policy,
		now:           time.Now,
	}
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, domain.BadParameterf("email and password are required")
	}

	log, err := s.connexionRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = domain.NewConnexionLog(email)
	}

	now := s.now()
	if log.Blocked(now) {
		return nil, &LockoutError{Until: log.BlockedUntil.Time, now: now}
	}

	log.IP = input.IP
	log.UserAgent = input.UserAgent
	if log.UserAgent == "" {
		log.UserAgent = "unknown"
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash := ""
	if user != nil {
		hash = user.Password
	}
	if !s.passwordMatches(hash, input.Password) {
		log.RegisterFailure(now, s.policy.MaxFailedAttempts, s.policy.Lockout)
		if err := s.connexionRepo.Save(ctx, log); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidCredentials
	}

	log.Reset()
	if err := s.connexionRepo.Save(ctx, log); err != nil {
		return nil, err
	}

	user.LastConnexionAt = null.TimeFrom(now.UTC().Truncate(time.Second))
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	return &Session{User: user, Token: token}, nil
}

// passwordMatches compares against a dummy hash for unknown users so both
// paths cost one bcrypt comparison.
func (s *authService) passwordMatches(hash, password string) bool {
	if hash == "" {
		s.dummyHashOnce.Do(func() {
			s.dummyHash, s.dummyHashError = bcrypt.GenerateFromPassword([]byte("invalid_password"), bcrypt.DefaultCost)
		})
		if s.dummyHashError == nil {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		}
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
