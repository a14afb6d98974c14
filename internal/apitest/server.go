// Package apitest provides an in-memory fake of the habit tracker REST API for tests.
package apitest

import (
	"fmt"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/julianstephens/habitual/internal/models"
)

var signingKey = []byte("apitest-signing-key")

// Recorded is a request as seen by the fake server
type Recorded struct {
	Method        string
	Path          string
	Query         url.Values
	Authorization string
	RequestID     string
	Body          []byte
	Status        int
}

type account struct {
	user     models.User
	password string
}

// Server is a fake API rooted at URL()+"/api/"
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	nextID      int64
	accounts    map[string]*account
	access      map[string]string // token -> email
	refresh     map[string]string // token -> email
	habits      []*models.Habit
	completions map[int64]map[string]float64
	categories  []*models.Category
	tags        []*models.Tag
	requests    []Recorded
	gates       map[string]chan struct{}
	failures    map[string]int

	force401        int
	rejectRefresh   bool
	tokensOnSignup  bool
	tokenTTL        time.Duration
	useTokenAliases bool
}

// New starts a fake server and closes it when the test ends
func New(t testing.TB) *Server {
	s := &Server{
		nextID:      100,
		accounts:    make(map[string]*account),
		access:      make(map[string]string),
		refresh:     make(map[string]string),
		completions: make(map[int64]map[string]float64),
		gates:       make(map[string]chan struct{}),
		failures:    make(map[string]int),
		tokenTTL:    5 * time.Minute,
	}
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)
	return s
}

// BaseURL is the API root clients should be configured with.
func (s *Server) BaseURL() string {
	return s.srv.URL + "/api/"
}

// Close stops the server early, making subsequent requests fail at the transport.
func (s *Server) Close() {
	s.srv.Close()
}

// AddUser registers an account that can log in.
func (s *Server) AddUser(email, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password)
}

func (s *Server) addUserLocked(email, password string) models.User {
	s.nextID++
	user := models.User{ID: s.nextID, Email: email}
	s.accounts[email] = &account{user: user, password: password}
	return user
}

// IssueTokens creates a valid token pair for email, as a login would.
func (s *Server) IssueTokens(email string) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(email)
}

func (s *Server) issueLocked(email string) (string, string) {
	access := s.accessTokenLocked(email)
	s.nextID++
	refresh := fmt.Sprintf("refresh-%d", s.nextID)
	s.refresh[refresh] = email
	return access, refresh
}

func (s *Server) accessTokenLocked(email string) string {
	s.nextID++
	claims := jwt.RegisteredClaims{
		Subject:   email,
		ID:        fmt.Sprintf("%d", s.nextID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL).Truncate(time.Second)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	s.access[token] = email
	return token
}

// RevokeAccess invalidates every issued access token, forcing the next request to refresh.
func (s *Server) RevokeAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]string)
}

// Force401 makes the next n authenticated requests fail with 401 regardless of the token.
func (s *Server) Force401(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.force401 = n
}

// RejectRefresh makes the refresh endpoint answer 401.
func (s *Server) RejectRefresh(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectRefresh = reject
}

// TokensOnRegistration makes registration return a token pair inline.
func (s *Server) TokensOnRegistration(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokensOnSignup = enabled
}

// UseTokenAliases makes auth endpoints answer with access_token/refresh_token field names.
func (s *Server) UseTokenAliases(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useTokenAliases = enabled
}

// FailNext makes the next n requests matching "METHOD /path" answer 500.
// The path is relative to the API root, e.g. "POST habits/1/complete/".
func (s *Server) FailNext(route string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = n
}

// Gate holds habit list requests for date until the returned release func is called.
func (s *Server) Gate(date string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[date] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Requests returns every request received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// RequestsTo returns the recorded requests whose path, relative to the API root, equals path.
func (s *Server) RequestsTo(method, path string) []Recorded {
	var matched []Recorded
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			matched = append(matched, r)
		}
	}
	return matched
}

// SeedCategory stores a category directly. A nil order is kept as null.
func (s *Server) SeedCategory(name string, order *int) models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := &models.Category{ID: s.nextID, Name: name, Order: order}
	s.categories = append(s.categories, c)
	return *c
}

// SeedCategoryWithID stores a category with a fixed identifier.
func (s *Server) SeedCategoryWithID(id int64, name string, order *int) models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &models.Category{ID: id, Name: name, Order: order}
	s.categories = append(s.categories, c)
	return *c
}

// SeedTag stores a tag directly.
func (s *Server) SeedTag(name, color string) models.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := &models.Tag{ID: s.nextID, Name: name, Color: color}
	s.tags = append(s.tags, t)
	return *t
}

// SeedHabit stores a habit directly and returns its identifier.
func (s *Server) SeedHabit(h models.Habit) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == 0 {
		s.nextID++
		h.ID = s.nextID
	}
	if h.MetricType == "" {
		h.MetricType = "boolean"
	}
	if h.Tags == nil {
		h.Tags = []models.TagRef{}
	}
	stored := h.Clone()
	s.habits = append(s.habits, &stored)
	return stored.ID
}

// SetCompletion records value for habit id on date.
func (s *Server) SetCompletion(id int64, date string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completions[id] == nil {
		s.completions[id] = make(map[string]float64)
	}
	s.completions[id][date] = value
}

// Completion returns the value recorded for habit id on date.
func (s *Server) Completion(id int64, date string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completions[id][date]
}

// Habit returns the stored habit, if any.
func (s *Server) Habit(id int64) (models.Habit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.habits {
		if h.ID == id {
			return h.Clone(), true
		}
	}
	return models.Habit{}, false
}

// Categories returns the stored categories in insertion order.
func (s *Server) Categories() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, *c)
	}
	return out
}

// Tags returns the stored tags in insertion order.
func (s *Server) Tags() []models.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, *t)
	}
	return out
}

// Order is a convenience for seeding explicit category orders.
func Order(n int) *int {
	return &n
}
