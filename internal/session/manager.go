// Package session owns the authenticated session: login, registration, token refresh and
// logout. It is the only writer of the credential store.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/julianstephens/habitual/internal/api"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/credentials"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
)

const (
	loginPath        = "auth/login/"
	registrationPath = "auth/registration/"
	refreshPath      = "auth/token/refresh/"
)

var (
	// ErrNoRefreshToken is returned by Refresh when there is nothing to refresh with
	ErrNoRefreshToken = errors.New("no refresh token stored")
	// ErrRefreshRejected is returned by Refresh when the server refuses the refresh token
	ErrRefreshRejected = errors.New("refresh token rejected")
	// ErrNoAccessToken is returned when an auth response carries no access token
	ErrNoAccessToken = errors.New("response did not include an access token")
)

// Poster sends unauthenticated JSON requests. api.RawClient implements it.
type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Manager implements api.Authenticator over a credential store
type Manager struct {
	mu    sync.Mutex
	store *credentials.Store
	auth  Poster
	state constants.SessionState
}

// NewManager creates a manager and derives the initial state from the stored access token
func NewManager(store *credentials.Store, auth Poster) *Manager {
	m := &Manager{
		store: store,
		auth:  auth,
		state: constants.StateUnauthenticated,
	}
	if store.AccessToken() != "" {
		m.state = constants.StateAuthenticated
	}
	return m
}

// Login exchanges credentials for tokens and stores the session. Server errors are returned as
// *api.Error.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.User, error) {
	var resp models.AuthResponse
	if err := m.auth.Post(ctx, loginPath, models.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		logger.Warn("Login failed", "email", email, "error", err)
		return nil, err
	}
	if !resp.HasTokens() {
		return nil, fmt.Errorf("login: %w", ErrNoAccessToken)
	}
	if err := m.establish(resp); err != nil {
		return nil, err
	}
	logger.Info("Logged in", "email", email)
	return resp.User, nil
}

// Register creates an account. When the server returns tokens inline the session is stored
// exactly like Login; otherwise the response is returned and the caller must log in.
func (m *Manager) Register(ctx context.Context, email, password1, password2 string) (*models.AuthResponse, error) {
	req := models.RegistrationRequest{Email: email, Password1: password1, Password2: password2}
	var resp models.AuthResponse
	if err := m.auth.Post(ctx, registrationPath, req, &resp); err != nil {
		logger.Warn("Registration failed", "email", email, "error", err)
		return nil, err
	}
	if resp.HasTokens() {
		if err := m.establish(resp); err != nil {
			return nil, err
		}
	}
	return &resp, nil
}

func (m *Manager) establish(resp models.AuthResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(models.Session{
		AccessToken:  resp.Access,
		RefreshToken: resp.Refresh,
		User:         resp.User,
	}); err != nil {
		logger.Error("Failed to persist session", "error", err)
		return err
	}
	m.state = constants.StateAuthenticated
	return nil
}

// Logout clears the stored session. It never fails; backend errors are logged.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear()
}

func (m *Manager) clear() {
	if err := m.store.Clear(); err != nil {
		logger.Error("Failed to clear session", "error", err)
	}
	m.state = constants.StateUnauthenticated
}

// Refresh obtains a new access token using the stored refresh token. Any failure clears the
// session. Concurrent calls are not merged; the last successful write wins.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	refresh := m.store.RefreshToken()
	if refresh == "" {
		m.clear()
		m.mu.Unlock()
		return "", ErrNoRefreshToken
	}
	m.state = constants.StateRefreshing
	m.mu.Unlock()

	var resp models.AuthResponse
	err := m.auth.Post(ctx, refreshPath, models.RefreshRequest{Refresh: refresh}, &resp)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.clear()
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %w", ErrRefreshRejected, err)
		}
		return "", err
	}
	if resp.Access == "" {
		m.clear()
		return "", fmt.Errorf("%w: %w", ErrRefreshRejected, ErrNoAccessToken)
	}
	if err := m.store.SetAccessToken(resp.Access); err != nil {
		m.clear()
		return "", err
	}
	m.state = constants.StateAuthenticated
	logger.Debug("Access token refreshed")
	return resp.Access, nil
}

// AccessToken returns the stored access token, or "" when logged out.
func (m *Manager) AccessToken() string {
	return m.store.AccessToken()
}

// CurrentUser returns the stored profile, or nil when logged out.
func (m *Manager) CurrentUser() *models.User {
	user, err := m.store.User()
	if err != nil {
		logger.Warn("Failed to read stored user", "error", err)
		return nil
	}
	return user
}

func (m *Manager) State() constants.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsAuthenticated() bool {
	return m.AccessToken() != ""
}

// TokenExpiry reads the exp claim of the stored access token without verifying its signature.
// The zero time is returned when the token has no exp claim.
func (m *Manager) TokenExpiry() (time.Time, error) {
	token := m.AccessToken()
	if token == "" {
		return time.Time{}, errors.New("not logged in")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read token expiry: %w", err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

var _ api.Authenticator = (*Manager)(nil)
