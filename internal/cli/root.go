package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/habitual/internal/api"
	"github.com/julianstephens/habitual/internal/categories"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/credentials"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/preferences"
	"github.com/julianstephens/habitual/internal/session"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/tags"
)

// ErrNotSignedIn is returned by commands that need a session when none is stored
var ErrNotSignedIn = fmt.Errorf("not signed in, run `%s` first", constants.LoginCommand)

type Context struct {
	Config      config.Config
	Store       storage.Provider
	Credentials credentials.Backend
	Prefs       *preferences.Preferences
	Raw         *api.RawClient
	Session     *session.Manager
	Client      *api.Client
	Habits      *habits.Collection
	Categories  *categories.Collection
	Tags        *tags.Collection
}

// NewContext wires the session, the request gateway and the collections over an opened store.
func NewContext(cfg config.Config, store storage.Provider, backend credentials.Backend, opts ...api.Option) (*Context, error) {
	apiCfg := api.Config{BaseURL: cfg.APIURL, Timeout: cfg.Timeout}

	raw, err := api.NewRawClient(apiCfg)
	if err != nil {
		return nil, err
	}
	mgr := session.NewManager(credentials.NewStore(backend), raw)
	client, err := api.NewClient(apiCfg, mgr, opts...)
	if err != nil {
		return nil, err
	}
	prefs := preferences.New(store)

	return &Context{
		Config:      cfg,
		Store:       store,
		Credentials: backend,
		Prefs:       prefs,
		Raw:         raw,
		Session:     mgr,
		Client:      client,
		Habits:      habits.NewCollection(client, habits.WithSavingDelay(cfg.SavingDelay)),
		Categories:  categories.NewCollection(client, prefs),
		Tags:        tags.NewCollection(client),
	}, nil
}

// RequireSession fails fast when no credentials are stored.
func (c *Context) RequireSession() error {
	if !c.Session.IsAuthenticated() {
		return ErrNotSignedIn
	}
	return nil
}

// ParseDate validates a YYYY-MM-DD argument. An empty string means today.
func ParseDate(s string) (string, error) {
	if s == "" {
		return time.Now().Format(constants.DateFormat), nil
	}
	if _, err := time.Parse(constants.DateFormat, s); err != nil {
		return "", fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", s)
	}
	return s, nil
}

// ParseIDs parses a comma-separated id list. An empty string yields an empty, non-nil slice.
func ParseIDs(s string) ([]int64, error) {
	ids := []int64{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := models.ParseID(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FormatValue renders a habit value without a trailing ".0" for whole numbers.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatHabit renders one line of a habit listing
func FormatHabit(h models.Habit) string {
	mark := " "
	if h.IsCompletedToday {
		mark = "x"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %d  %s", mark, h.ID, h.Name)

	switch h.MetricType {
	case constants.MetricBoolean:
	default:
		value := FormatValue(h.TodayValue)
		if h.MaxValue != nil {
			value += "/" + FormatValue(*h.MaxValue)
		}
		if h.Unit != "" {
			value += " " + h.Unit
		}
		fmt.Fprintf(&b, " (%s)", value)
	}

	if h.Category != nil && h.Category.Name != "" {
		fmt.Fprintf(&b, " @%s", h.Category.Name)
	}
	for _, t := range h.Tags {
		if t.Name != "" {
			fmt.Fprintf(&b, " #%s", t.Name)
		}
	}
	if h.Archived {
		b.WriteString(" [ARCHIVED]")
	}
	return b.String()
}

// IsNotFound reports whether err is a missing habit locally or on the server.
func IsNotFound(err error) bool {
	return errors.Is(err, habits.ErrNotFound) || errors.Is(err, api.ErrNotFound)
}
