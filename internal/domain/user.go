package domain

import (
	"net/mail"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"
)

const TableUsers = "users"

type User struct {
	Audit
	Firstname       string
	Lastname        string
	Email           string
	Password        string // bcrypt hash, never serialized nor audited
	LastConnexionAt null.Time
}

// NewUser creates a user; password must already be hashed
func NewUser(firstname, lastname, email, passwordHash string) *User {
	return &User{
		Audit:     newAudit(),
		Firstname: strings.TrimSpace(firstname),
		Lastname:  strings.TrimSpace(lastname),
		Email:     NormalizeEmail(email),
		Password:  passwordHash,
	}
}

// FullName returns "Firstname Lastname"
func (u *User) FullName() string {
	return strings.TrimSpace(u.Firstname + " " + u.Lastname)
}

// Validate returns an error if the user is invalid
func (u *User) Validate() error {
	if u.Firstname == "" || u.Lastname == "" {
		return errors.Wrap(BadParameterError, "firstname and lastname are required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return errors.Wrap(BadParameterError, "a valid email is required")
	}
	if u.Password == "" {
		return errors.Wrap(BadParameterError, "password is required")
	}
	return nil
}

func (u *User) HistoryTable() string { return TableUsers }

func (u *User) HistoryValues() map[string]any {
	v := u.Audit.values()
	v["firstname"] = u.Firstname
	v["lastname"] = u.Lastname
	v["email"] = u.Email
	v["password"] = u.Password
	v["lastConnexionAt"] = u.LastConnexionAt.Ptr()
	return v
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
