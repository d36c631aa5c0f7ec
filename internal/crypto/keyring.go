package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Secret names a value kept in the keyring
type Secret string

const (
	DBKey     Secret = "db-encryption-key"
	JWTSecret Secret = "jwt-secret"
)

const ServiceName = "invoicer"

// ErrSecretNotFound is returned when a secret was never stored
var ErrSecretNotFound = errors.New("secret not found")

// EnvVar is the environment variable holding the secret on platforms without a keyring
func (s Secret) EnvVar() string {
	switch s {
	case DBKey:
		return "INVOICER_DB_KEY"
	case JWTSecret:
		return "INVOICER_JWT_SECRET"
	default:
		return "INVOICER_" + strings.ToUpper(strings.ReplaceAll(string(s), "-", "_"))
	}
}

// Keyring provides secure key storage abstraction
type Keyring interface {
	Get(secret Secret) (string, error)
	Set(secret Secret, value string) error
	Delete(secret Secret) error
	IsAvailable() bool
}

// NewKeyring returns the best available keyring implementation
func NewKeyring() Keyring {
	return newPlatformKeyring()
}

// GenerateSecret returns 32 random bytes, hex encoded
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// EnsureSecret returns the stored secret, generating and storing one when
// missing. When storing fails the generated value is still returned along
// with the error so the caller can decide to run with it.
func EnsureSecret(k Keyring, secret Secret) (string, error) {
	value, err := k.Get(secret)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrSecretNotFound) {
		return "", err
	}

	value, err = GenerateSecret()
	if err != nil {
		return "", err
	}
	if err := k.Set(secret, value); err != nil {
		return value, err
	}
	return value, nil
}
