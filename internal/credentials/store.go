// Package credentials persists the session tokens and user profile. It has no logic beyond
// get/set; the session manager decides when credentials change.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/storage"
)

// ErrNotFound is returned by a backend when a key has no value
var ErrNotFound = errors.New("credential not found")

// Backend is durable string storage for credentials
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Store reads and writes the session through a Backend
type Store struct {
	backend Backend
}

// NewStore creates a credential store over backend
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) get(key string) string {
	value, err := s.backend.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("Failed to read credential", "key", key, "error", err)
		}
		return ""
	}
	return value
}

// AccessToken returns the stored access token, or "" when there is none.
func (s *Store) AccessToken() string {
	return s.get(constants.KeyAccessToken)
}

// RefreshToken returns the stored refresh token, or "" when there is none.
func (s *Store) RefreshToken() string {
	return s.get(constants.KeyRefreshToken)
}

// User returns the stored profile, or nil when no user is stored.
func (s *Store) User() (*models.User, error) {
	raw := s.get(constants.KeyUser)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("failed to decode stored user: %w", err)
	}
	return &user, nil
}

// Save writes the access token, refresh token and user together. Empty fields remove the
// stored key. If any write fails every session key is cleared, so the store never pairs the new
// tokens with a previous session.
func (s *Store) Save(session models.Session) error {
	if session.AccessToken == "" {
		return errors.New("access token cannot be empty")
	}

	var user string
	if session.User != nil {
		data, err := json.Marshal(session.User)
		if err != nil {
			return fmt.Errorf("failed to encode user: %w", err)
		}
		user = string(data)
	}

	entries := [][2]string{
		{constants.KeyAccessToken, session.AccessToken},
		{constants.KeyRefreshToken, session.RefreshToken},
		{constants.KeyUser, user},
	}
	for _, entry := range entries {
		var err error
		if entry[1] == "" {
			err = s.delete(entry[0])
		} else {
			err = s.backend.Set(entry[0], entry[1])
		}
		if err != nil {
			s.discard()
			return fmt.Errorf("failed to save session: %w", err)
		}
	}
	return nil
}

func (s *Store) discard() {
	if err := s.Clear(); err != nil {
		logger.Error("Failed to clear partial session", "error", err)
	}
}

// SetAccessToken replaces the access token and leaves the refresh token untouched.
func (s *Store) SetAccessToken(token string) error {
	if token == "" {
		return errors.New("access token cannot be empty")
	}
	if err := s.backend.Set(constants.KeyAccessToken, token); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	return nil
}

// Clear removes every session key. Missing keys are not an error.
func (s *Store) Clear() error {
	var errs []error
	for _, key := range []string{constants.KeyAccessToken, constants.KeyRefreshToken, constants.KeyUser} {
		if err := s.delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) delete(key string) error {
	if err := s.backend.Delete(key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// StorageBackend keeps credentials in the preference database. It is the fallback for
// systems without an OS keyring.
type StorageBackend struct {
	provider storage.Provider
}

// NewStorageBackend adapts a preference store to the Backend interface
func NewStorageBackend(provider storage.Provider) *StorageBackend {
	return &StorageBackend{provider: provider}
}

func (b *StorageBackend) Get(key string) (string, error) {
	value, err := b.provider.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNotFound
	}
	return value, err
}

func (b *StorageBackend) Set(key, value string) error {
	return b.provider.Set(key, value)
}

func (b *StorageBackend) Delete(key string) error {
	err := b.provider.Delete(key)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
