package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "diatrack-cli"
)

// getKeyringKey returns a unique key for storing session tokens per server
func getKeyringKey(origin string) string {
	return fmt.Sprintf("session-%s", origin)
}

// SaveToken persists the session token securely in the OS keychain/credential manager
func SaveToken(origin, token string) error {
	key := getKeyringKey(origin)
	if err := keyring.Set(service, key, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken retrieves the session token from the OS keychain/credential manager
func LoadToken(origin string) (string, error) {
	key := getKeyringKey(origin)
	token, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("not authenticated. Please run 'diatrack login' first")
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// DeleteToken removes the session token from the OS keychain/credential manager
func DeleteToken(origin string) error {
	key := getKeyringKey(origin)
	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
