//go:build !darwin

package crypto

import (
	"errors"
	"fmt"
	"os"
)

type fallbackKeyring struct{}

func newPlatformKeyring() Keyring {
	return &fallbackKeyring{}
}

// Get reads the secret from its INVOICER_* environment variable
func (k *fallbackKeyring) Get(secret Secret) (string, error) {
	value := os.Getenv(secret.EnvVar())
	if value == "" {
		return "", fmt.Errorf("%s environment variable not set: %w", secret.EnvVar(), ErrSecretNotFound)
	}

	return value, nil
}

// Set returns an error suggesting to set the environment variable
func (k *fallbackKeyring) Set(secret Secret, value string) error {
	if value == "" {
		return errors.New("secret cannot be empty")
	}

	return fmt.Errorf("keyring not available on this platform: please set the %s environment variable", secret.EnvVar())
}

// Delete returns an error suggesting to unset the environment variable
func (k *fallbackKeyring) Delete(secret Secret) error {
	return fmt.Errorf("keyring not available on this platform: please unset %s manually", secret.EnvVar())
}

// IsAvailable checks if the database key is provided through the environment
func (k *fallbackKeyring) IsAvailable() bool {
	return os.Getenv(DBKey.EnvVar()) != ""
}
