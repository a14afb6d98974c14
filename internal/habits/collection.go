// Package habits holds the client-side view of today's habits and the mutations on them.
package habits

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
)

const basePath = "habits/"

// ErrNotFound is returned for a habit id missing from the local collection
var ErrNotFound = errors.New("habit not found")

// Requester is the subset of api.Client the collection needs
type Requester interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Collection owns the active and archived habit lists. Operations are not serialized: concurrent
// loads race and the last response to arrive wins.
type Collection struct {
	api         Requester
	savingDelay time.Duration

	mu       sync.Mutex
	active   []models.Habit
	archived []models.Habit
	loading  int
	onChange func()
}

// Option configures a Collection
type Option func(*Collection)

// WithSavingDelay sets how long IsSaving stays set after a completion settles.
func WithSavingDelay(d time.Duration) Option {
	return func(c *Collection) {
		c.savingDelay = d
	}
}

func NewCollection(api Requester, opts ...Option) *Collection {
	c := &Collection{
		api:         api,
		savingDelay: constants.SavingIndicatorDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers fn to run after every local state change. fn runs outside the lock.
func (c *Collection) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Collection) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func habitPath(id int64, action string) string {
	if action == "" {
		return fmt.Sprintf("%s%d/", basePath, id)
	}
	return fmt.Sprintf("%s%d/%s/", basePath, id, action)
}

func annotate(list []models.Habit) []models.Habit {
	if list == nil {
		list = []models.Habit{}
	}
	for i := range list {
		list[i].Annotate()
	}
	return list
}

func indexOf(list []models.Habit, id int64) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func without(list []models.Habit, id int64) []models.Habit {
	if i := indexOf(list, id); i >= 0 {
		return append(list[:i:i], list[i+1:]...)
	}
	return list
}

func snapshot(list []models.Habit) []models.Habit {
	out := make([]models.Habit, len(list))
	for i := range list {
		out[i] = list[i].Clone()
	}
	return out
}

// Load replaces the active habits with the server view for date (YYYY-MM-DD); an empty date means today.
func (c *Collection) Load(ctx context.Context, date string) error {
	if date == "" {
		date = time.Now().Format(constants.DateFormat)
	}

	c.mu.Lock()
	c.loading++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loading--
		c.mu.Unlock()
		c.notify()
	}()

	var list []models.Habit
	if err := c.api.Get(ctx, basePath, url.Values{"date": {date}}, &list); err != nil {
		logger.Error("Failed to load habits", "date", date, "error", err)
		return err
	}

	c.mu.Lock()
	c.active = annotate(list)
	c.mu.Unlock()
	return nil
}

// LoadArchived replaces the archived habits.
func (c *Collection) LoadArchived(ctx context.Context) error {
	var list []models.Habit
	if err := c.api.Get(ctx, basePath, url.Values{"archived_only": {"true"}}, &list); err != nil {
		logger.Error("Failed to load archived habits", "error", err)
		return err
	}

	c.mu.Lock()
	c.archived = annotate(list)
	c.mu.Unlock()
	c.notify()
	return nil
}

// Create submits def and appends the created habit to the active list.
func (c *Collection) Create(ctx context.Context, def models.HabitDefinition) (models.Habit, error) {
	var created models.Habit
	if err := c.api.Post(ctx, basePath, def, &created); err != nil {
		logger.Error("Failed to create habit", "name", def.Name, "error", err)
		return models.Habit{}, err
	}
	created.Annotate()

	c.mu.Lock()
	c.active = append(c.active, created)
	c.mu.Unlock()
	c.notify()
	return created.Clone(), nil
}

// Archive moves the habit out of the active list and reloads the archived list.
// A failed archived reload is logged and does not fail the archive.
func (c *Collection) Archive(ctx context.Context, id int64) error {
	if err := c.api.Post(ctx, habitPath(id, "archive"), nil, nil); err != nil {
		logger.Error("Failed to archive habit", "habit", id, "error", err)
		return err
	}

	c.mu.Lock()
	c.active = without(c.active, id)
	c.mu.Unlock()
	c.notify()

	if err := c.LoadArchived(ctx); err != nil {
		logger.Warn("Archived habits not refreshed after archive", "habit", id, "error", err)
	}
	return nil
}

// Unarchive restores the habit on the server and drops it from the archived list. The active
// list is left alone until the next Load.
func (c *Collection) Unarchive(ctx context.Context, id int64) error {
	if err := c.api.Post(ctx, habitPath(id, "unarchive"), nil, nil); err != nil {
		logger.Error("Failed to unarchive habit", "habit", id, "error", err)
		return err
	}

	c.mu.Lock()
	c.archived = without(c.archived, id)
	c.mu.Unlock()
	c.notify()
	return nil
}

// Remove deletes the habit permanently.
func (c *Collection) Remove(ctx context.Context, id int64) error {
	if err := c.api.Delete(ctx, habitPath(id, "")); err != nil {
		logger.Error("Failed to delete habit", "habit", id, "error", err)
		return err
	}

	c.mu.Lock()
	c.active = without(c.active, id)
	c.archived = without(c.archived, id)
	c.mu.Unlock()
	c.notify()
	return nil
}

// Update sends patch and merges the submitted fields into the local habit on success.
func (c *Collection) Update(ctx context.Context, id int64, patch models.HabitPatch) error {
	if patch.Empty() {
		return nil
	}
	c.setStatus(id, constants.StatusPending, nil)

	if err := c.api.Patch(ctx, habitPath(id, ""), patch, nil); err != nil {
		logger.Error("Failed to update habit", "habit", id, "error", err)
		c.setStatus(id, constants.StatusFailed, err)
		return err
	}

	c.mu.Lock()
	for _, list := range [][]models.Habit{c.active, c.archived} {
		if i := indexOf(list, id); i >= 0 {
			patch.ApplyTo(&list[i])
			list[i].Status = constants.StatusCommitted
			list[i].StatusErr = nil
		}
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Collection) setStatus(id int64, status constants.SyncStatus, err error) {
	c.mu.Lock()
	for _, list := range [][]models.Habit{c.active, c.archived} {
		if i := indexOf(list, id); i >= 0 {
			list[i].Status = status
			list[i].StatusErr = err
		}
	}
	c.mu.Unlock()
	c.notify()
}

// LogCompletion records value for the habit on date (YYYY-MM-DD; empty means today). The staged
// value and the saving marker are visible before the request is sent. IsSaving stays set for the
// configured delay after the request settles, whatever the outcome.
func (c *Collection) LogCompletion(ctx context.Context, id int64, value float64, date string) error {
	if date == "" {
		date = time.Now().Format(constants.DateFormat)
	}

	c.mutate(id, func(h *models.Habit) {
		h.IsSaving = true
		h.TempValue = value
		h.Status = constants.StatusPending
		h.StatusErr = nil
	})
	defer c.clearSavingAfterDelay(id)

	err := c.api.Post(ctx, habitPath(id, "complete"), models.CompletionRequest{Value: value, Date: date}, nil)
	if err != nil {
		logger.Error("Failed to log completion", "habit", id, "value", value, "date", date, "error", err)
		c.mutate(id, func(h *models.Habit) {
			h.Status = constants.StatusFailed
			h.StatusErr = err
		})
		return err
	}

	c.mutate(id, func(h *models.Habit) {
		h.TodayValue = value
		h.IsCompletedToday = value > 0
		h.Status = constants.StatusCommitted
	})
	return nil
}

func (c *Collection) clearSavingAfterDelay(id int64) {
	time.AfterFunc(c.savingDelay, func() {
		c.mutate(id, func(h *models.Habit) { h.IsSaving = false })
	})
}

func (c *Collection) mutate(id int64, fn func(*models.Habit)) {
	c.mu.Lock()
	i := indexOf(c.active, id)
	if i >= 0 {
		fn(&c.active[i])
	}
	c.mu.Unlock()
	if i >= 0 {
		c.notify()
	}
}

// Revert discards the staged value of a habit whose last mutation failed.
func (c *Collection) Revert(id int64) error {
	c.mu.Lock()
	i := indexOf(c.active, id)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	h := &c.active[i]
	if h.Status != constants.StatusFailed {
		c.mu.Unlock()
		return nil
	}
	h.TempValue = h.TodayValue
	h.Status = constants.StatusNone
	h.StatusErr = nil
	c.mu.Unlock()
	c.notify()
	return nil
}

// Active returns a copy of the active habits in server order.
func (c *Collection) Active() []models.Habit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshot(c.active)
}

// Archived returns a copy of the archived habits.
func (c *Collection) Archived() []models.Habit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshot(c.archived)
}

// Get returns the active or archived habit with id.
func (c *Collection) Get(id int64) (models.Habit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, list := range [][]models.Habit{c.active, c.archived} {
		if i := indexOf(list, id); i >= 0 {
			return list[i].Clone(), true
		}
	}
	return models.Habit{}, false
}

// Loading reports whether an active-list load is in flight.
func (c *Collection) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading > 0
}
