package constants

import "time"

// MetricType is the kind of value a habit records for a day
type MetricType string

// SyncStatus tracks the lifecycle of a local mutation against the server
type SyncStatus string

// SessionState is the authentication state of the current user
type SessionState int

const (
	AppName           = "habitual"
	Version           = "v0.1.0"
	DefaultConfigDir  = "~/.config/habitual"
	DefaultConfigFile = "config.yaml"
	DefaultStorage    = "~/.config/habitual/habitual.db"
	DefaultAPIURL     = "http://127.0.0.1:8000/api/"
	DefaultTimeout    = 15 * time.Second

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// SavingIndicatorDelay is how long a habit keeps its saving flag after a completion resolves.
	SavingIndicatorDelay = 500 * time.Millisecond

	// Durable client-side keys
	KeyAccessToken   = "access_token"
	KeyRefreshToken  = "refresh_token"
	KeyUser          = "user"
	KeyCategoryOrder = "categoryOrder"
	KeyLanguage      = "language"
	KeyDarkMode      = "darkMode"

	// Credential backends
	CredentialsKeyring = "keyring"
	CredentialsStorage = "storage"

	// UncategorizedID is the trailing sentinel of the category order list. It is never sent to the server.
	UncategorizedID = "uncategorized"

	// DefaultTagColor is a neutral gray
	DefaultTagColor = "#6B7280"

	DefaultLanguage = "en"

	// LoginCommand is the entry point a user is sent to when the session can't be recovered.
	LoginCommand = "habitual login"

	RequestIDHeader = "X-Request-ID"

	// Metric types
	MetricBoolean MetricType = "boolean"
	MetricCounter MetricType = "counter"
	MetricValue   MetricType = "value"
	MetricRating  MetricType = "rating"

	// Sync statuses
	StatusNone      SyncStatus = ""
	StatusPending   SyncStatus = "pending"
	StatusCommitted SyncStatus = "committed"
	StatusFailed    SyncStatus = "failed"
)

// Session states
const (
	StateUnauthenticated SessionState = iota
	StateAuthenticated
	StateRefreshing
)

func (s SessionState) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

// Valid reports whether m is a metric type the API understands.
func (m MetricType) Valid() bool {
	switch m {
	case MetricBoolean, MetricCounter, MetricValue, MetricRating:
		return true
	}
	return false
}
