// Package reqctx carries the acting user and request id of one logical request
// through context.Context.
package reqctx

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// AnonymousUserID identifies requests made without a session.
const AnonymousUserID int64 = 0

// ErrMissingIdentityContext is returned when no identity was attached to the context.
var ErrMissingIdentityContext = errors.New("no active request identity context")

// Identity is the ambient identity of a request.
type Identity struct {
	UserID    int64
	RequestID string
}

// Anonymous reports whether no user is logged in.
func (i Identity) Anonymous() bool {
	return i.UserID == AnonymousUserID
}

type contextKey int

const (
	identityKey contextKey = iota
	loggerKey
)

// With returns a child context carrying a fresh identity for userID.
func With(ctx context.Context, userID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey, Identity{
		UserID:    userID,
		RequestID: uuid.NewString(),
	})
}

// Run executes fn under a new identity scope for userID.
func Run(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	return fn(With(ctx, userID))
}

// Current returns the identity attached to ctx.
func Current(ctx context.Context) (Identity, error) {
	if ctx == nil {
		return Identity{}, ErrMissingIdentityContext
	}
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return Identity{}, ErrMissingIdentityContext
	}
	return id, nil
}

// UserID returns the acting user id.
func UserID(ctx context.Context) (int64, error) {
	id, err := Current(ctx)
	if err != nil {
		return 0, err
	}
	return id.UserID, nil
}

// RequestID returns the per-invocation request identifier.
func RequestID(ctx context.Context) (string, error) {
	id, err := Current(ctx)
	if err != nil {
		return "", err
	}
	return id.RequestID, nil
}

// WithLogger stores a request scoped logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the logger stored in ctx, tagged with the request id when one is set.
func Logger(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if id, err := Current(ctx); err == nil {
		return slog.Default().With("request_id", id.RequestID)
	}
	return slog.Default()
}
