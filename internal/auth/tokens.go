// Package auth issues and verifies session tokens and signs API packets.
package auth

import (
	"time"

	"github.com/andy/invoicer/internal/domain"
	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
)

// SessionUser is the user payload carried by a session token
type SessionUser struct {
	ID        int64  `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
}

// NewSessionUser projects a user onto its token payload
func NewSessionUser(user *domain.User) SessionUser {
	return SessionUser{
		ID:        user.ID,
		Firstname: user.Firstname,
		Lastname:  user.Lastname,
		Email:     user.Email,
	}
}

// Claims embeds jwt.RegisteredClaims to provide the expiry time
type Claims struct {
	User SessionUser `json:"user"`
	jwt.RegisteredClaims
}

var ValidationAlgo = jwt.SigningMethodHS256

const issuer = "invoicer"

// Tokens signs session tokens with a shared secret
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for user
func (t *Tokens) Issue(user *domain.User) (string, error) {
	now := t.now()
	claims := &Claims{
		User: NewSessionUser(user),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(ValidationAlgo, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session token")
	}
	return signed, nil
}

// Verify parses a token and returns its user
func (t *Tokens) Verify(raw string) (SessionUser, error) {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		method, ok := token.Method.(*jwt.SigningMethodHMAC)
		if !ok || method != ValidationAlgo {
			return nil, errors.Wrapf(domain.UnAuthorizedError,
				"unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, keyFunc,
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return SessionUser{}, errors.Join(
			domain.UnAuthorizedError,
			errors.Wrap(err, "error parsing jwt token claims"),
		)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.User.ID > 0 {
		return claims.User, nil
	}
	return SessionUser{}, errors.Wrap(domain.UnAuthorizedError, "invalid session token")
}
