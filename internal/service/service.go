package service

import (
	"context"
	"strings"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/repository"
	"github.com/andy/invoicer/internal/reqctx"
	"github.com/guregu/null/v5"
)

// systemActor names changes made without an authenticated user
const systemActor = "system"

// actorName returns the full name of the user acting in ctx
func actorName(ctx context.Context, users repository.UserRepository) string {
	id, err := reqctx.UserID(ctx)
	if err != nil || id == reqctx.AnonymousUserID || users == nil {
		return systemActor
	}
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return systemActor
	}
	return user.FullName()
}

// optional maps an empty form value to NULL
func optional(s string) null.String {
	s = strings.TrimSpace(s)
	return null.NewString(s, s != "")
}

func requireID(id int64, what string) error {
	if id <= 0 {
		return domain.BadParameterf("%s id is required", what)
	}
	return nil
}
