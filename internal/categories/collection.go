// Package categories holds the ordered category list. The order list always ends with the
// uncategorized sentinel unless a user moved it; it is never missing.
package categories

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
)

const (
	basePath   = "categories/"
	layoutPath = "categories/update_layout/"
)

// ErrUnknownKey is returned when an order key is not part of the current order
var ErrUnknownKey = errors.New("unknown category")

// ErrReloadFailed wraps a failed reload after the server already accepted a mutation
var ErrReloadFailed = errors.New("change saved, but reloading categories failed")

type Requester interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// OrderMirror keeps a durable copy of the order list. preferences.Preferences implements it.
type OrderMirror interface {
	CategoryOrder() ([]string, error)
	SetCategoryOrder(order []string) error
}

type Collection struct {
	api    Requester
	mirror OrderMirror

	mu         sync.Mutex
	categories []models.Category
	order      []string
	saving     bool
	deletingID int64
}

func NewCollection(api Requester, mirror OrderMirror) *Collection {
	return &Collection{api: api, mirror: mirror}
}

func categoryPath(id int64) string {
	return fmt.Sprintf("%s%d/", basePath, id)
}

func sortCategories(list []models.Category) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].SortOrder() != list[j].SortOrder() {
			return list[i].SortOrder() < list[j].SortOrder()
		}
		return list[i].ID < list[j].ID
	})
}

func withSentinel(order []string) []string {
	out := make([]string, 0, len(order)+1)
	seen := make(map[string]bool, len(order))
	for _, key := range order {
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	if !seen[constants.UncategorizedID] {
		out = append(out, constants.UncategorizedID)
	}
	return out
}

// Load fetches the categories sorted by order (null as 0) then id. When the request fails and
// nothing is cached in memory, the order list is restored from the mirror; the error is still
// returned.
func (c *Collection) Load(ctx context.Context) error {
	var list []models.Category
	if err := c.api.Get(ctx, basePath, nil, &list); err != nil {
		logger.Error("Failed to load categories", "error", err)
		c.restoreFromMirror()
		return err
	}
	sortCategories(list)

	order := make([]string, 0, len(list)+1)
	for _, cat := range list {
		order = append(order, models.FormatID(cat.ID))
	}

	c.mu.Lock()
	c.categories = list
	c.order = withSentinel(order)
	c.mu.Unlock()
	return nil
}

func (c *Collection) restoreFromMirror() {
	if c.mirror == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.categories) > 0 || len(c.order) > 0 {
		return
	}
	order, err := c.mirror.CategoryOrder()
	if err != nil {
		logger.Warn("Failed to read mirrored category order", "error", err)
		return
	}
	if order != nil {
		c.order = withSentinel(order)
	}
}

// Create adds a category at the end of the current order and reloads the list.
func (c *Collection) Create(ctx context.Context, name string) error {
	c.mu.Lock()
	c.saving = true
	next := len(c.categories)
	c.mu.Unlock()
	defer c.setSaving(false)

	if err := c.api.Post(ctx, basePath, models.CategoryRequest{Name: name, Order: &next}, nil); err != nil {
		logger.Error("Failed to create category", "name", name, "error", err)
		return err
	}
	return c.reload(ctx)
}

func (c *Collection) reload(ctx context.Context) error {
	if err := c.Load(ctx); err != nil {
		logger.Warn("Categories not refreshed after a saved change", "error", err)
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return nil
}

func (c *Collection) setSaving(saving bool) {
	c.mu.Lock()
	c.saving = saving
	c.mu.Unlock()
}

// Remove deletes a category and reloads the list. Its habits become uncategorized on the server.
func (c *Collection) Remove(ctx context.Context, id int64) error {
	c.mu.Lock()
	c.deletingID = id
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.deletingID = 0
		c.mu.Unlock()
	}()

	if err := c.api.Delete(ctx, categoryPath(id)); err != nil {
		logger.Error("Failed to delete category", "category", id, "error", err)
		return err
	}
	return c.reload(ctx)
}

// Rename changes the name on the server only; call Load to see it locally.
func (c *Collection) Rename(ctx context.Context, id int64, name string) error {
	if err := c.api.Patch(ctx, categoryPath(id), models.CategoryRequest{Name: name}, nil); err != nil {
		logger.Error("Failed to rename category", "category", id, "error", err)
		return err
	}
	return nil
}

// SetOrder replaces the local order list. Duplicates are dropped and the sentinel is kept.
func (c *Collection) SetOrder(order []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = withSentinel(order)
}

// Move places key at index in the local order list, clamping index to the list bounds.
func (c *Collection) Move(key string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from := -1
	for i, k := range c.order {
		if k == key {
			from = i
			break
		}
	}
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	order := append(append([]string(nil), c.order[:from]...), c.order[from+1:]...)
	if index < 0 {
		index = 0
	}
	if index > len(order) {
		index = len(order)
	}
	order = append(order[:index], append([]string{key}, order[index:]...)...)
	c.order = order
	return nil
}

// PersistOrder mirrors the order list locally and submits the layout once. The sentinel is
// mirrored but never sent; positions are renumbered from 0 without it.
func (c *Collection) PersistOrder(ctx context.Context) error {
	c.mu.Lock()
	order := withSentinel(c.order)
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.SetCategoryOrder(order); err != nil {
			logger.Warn("Failed to mirror category order", "error", err)
		}
	}

	layout := make([]models.LayoutEntry, 0, len(order))
	for _, key := range order {
		if key == constants.UncategorizedID {
			continue
		}
		id, err := models.ParseID(key)
		if err != nil {
			return err
		}
		layout = append(layout, models.LayoutEntry{ID: id, Order: len(layout)})
	}

	if err := c.api.Post(ctx, layoutPath, models.LayoutRequest{Layout: layout}, nil); err != nil {
		logger.Error("Failed to save category layout", "error", err)
		return err
	}
	return nil
}

// Categories returns the categories in server order.
func (c *Collection) Categories() []models.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Category(nil), c.categories...)
}

// Order returns the order keys, sentinel included.
func (c *Collection) Order() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

func (c *Collection) Get(id int64) (models.Category, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return models.Category{}, false
}

// Saving reports whether a create is in flight.
func (c *Collection) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving
}

// DeletingID returns the category being deleted, or 0.
func (c *Collection) DeletingID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletingID
}
