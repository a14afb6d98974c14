package storage

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by Get and Delete when a key has no value
var ErrNotFound = errors.New("preference not found")

// Provider is durable string key/value storage for client-side state.
// Values carry no schema version; callers own their encoding.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Key/value
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	All() (map[string]string, error)

	// Utils
	GetConfigPath() string
	SchemaVersion() (current, latest int, err error)
}

// IsPostgres reports whether target is a PostgreSQL connection string (URI or key=value DSN)
// rather than a file path.
func IsPostgres(target string) bool {
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") {
		return true
	}
	for _, field := range strings.Fields(target) {
		key, _, ok := strings.Cut(field, "=")
		if ok && (strings.EqualFold(key, "host") || strings.EqualFold(key, "dbname")) {
			return true
		}
	}
	return false
}
