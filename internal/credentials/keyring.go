package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/habitual/internal/constants"
)

// ErrKeyringUnavailable is returned when the OS keyring is not available
var ErrKeyringUnavailable = errors.New("OS keyring is not available")

// KeyringBackend keeps credentials in the OS keyring under the application service name
type KeyringBackend struct {
	service string
}

// NewKeyringBackend creates a backend scoped to service. An empty service uses the app name.
func NewKeyringBackend(service string) *KeyringBackend {
	if service == "" {
		service = constants.AppName
	}
	return &KeyringBackend{service: service}
}

func (b *KeyringBackend) Get(key string) (string, error) {
	value, err := keyring.Get(b.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return value, nil
}

func (b *KeyringBackend) Set(key, value string) error {
	if err := keyring.Set(b.service, key, value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", key, err)
	}
	return nil
}

func (b *KeyringBackend) Delete(key string) error {
	if err := keyring.Delete(b.service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}
	return nil
}

// KeyringAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func KeyringAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
