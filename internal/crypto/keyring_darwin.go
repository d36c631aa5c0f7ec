//go:build darwin

package crypto

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

type darwinKeyring struct{}

func newPlatformKeyring() Keyring {
	return &darwinKeyring{}
}

// Get retrieves a secret from macOS Keychain
func (k *darwinKeyring) Get(secret Secret) (string, error) {
	value, err := keyring.Get(ServiceName, string(secret))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%s not found in keychain: %w", secret, ErrSecretNotFound)
		}
		return "", fmt.Errorf("failed to retrieve %s from keychain: %w", secret, err)
	}

	if value == "" {
		return "", fmt.Errorf("%s is empty: %w", secret, ErrSecretNotFound)
	}

	return value, nil
}

// Set stores a secret in macOS Keychain
func (k *darwinKeyring) Set(secret Secret, value string) error {
	if value == "" {
		return errors.New("secret cannot be empty")
	}

	if err := keyring.Set(ServiceName, string(secret), value); err != nil {
		return fmt.Errorf("failed to store %s in keychain: %w", secret, err)
	}

	return nil
}

// Delete removes a secret from macOS Keychain
func (k *darwinKeyring) Delete(secret Secret) error {
	err := keyring.Delete(ServiceName, string(secret))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%s not found in keychain: %w", secret, ErrSecretNotFound)
		}
		return fmt.Errorf("failed to delete %s from keychain: %w", secret, err)
	}

	return nil
}

// IsAvailable checks if the macOS Keychain is accessible
func (k *darwinKeyring) IsAvailable() bool {
	testKey := "__invoicer_availability_test__"
	if err := keyring.Set(ServiceName, testKey, "test"); err != nil {
		return false
	}

	_ = keyring.Delete(ServiceName, testKey)
	return true
}
