package tags

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
)

const basePath = "tags/"

// ErrReloadFailed wraps a failed reload after the server already accepted a mutation
var ErrReloadFailed = errors.New("change saved, but reloading tags failed")

type Requester interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Collection is the tag list. Every mutation reloads the whole list.
type Collection struct {
	api Requester

	mu         sync.Mutex
	tags       []models.Tag
	saving     bool
	deletingID int64
}

func NewCollection(api Requester) *Collection {
	return &Collection{api: api}
}

func tagPath(id int64) string {
	return fmt.Sprintf("%s%d/", basePath, id)
}

func (c *Collection) Load(ctx context.Context) error {
	var list []models.Tag
	if err := c.api.Get(ctx, basePath, nil, &list); err != nil {
		logger.Error("Failed to load tags", "error", err)
		return err
	}
	c.mu.Lock()
	c.tags = list
	c.mu.Unlock()
	return nil
}

// Create adds a tag. An empty color uses the default gray.
func (c *Collection) Create(ctx context.Context, name, color string) error {
	if color == "" {
		color = constants.DefaultTagColor
	}
	c.setSaving(true)
	defer c.setSaving(false)

	if err := c.api.Post(ctx, basePath, models.TagRequest{Name: name, Color: color}, nil); err != nil {
		logger.Error("Failed to create tag", "name", name, "error", err)
		return err
	}
	return c.reload(ctx)
}

func (c *Collection) Update(ctx context.Context, id int64, patch models.TagPatch) error {
	c.setSaving(true)
	defer c.setSaving(false)

	if err := c.api.Patch(ctx, tagPath(id), patch, nil); err != nil {
		logger.Error("Failed to update tag", "tag", id, "error", err)
		return err
	}
	return c.reload(ctx)
}

func (c *Collection) Remove(ctx context.Context, id int64) error {
	c.mu.Lock()
	c.deletingID = id
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.deletingID = 0
		c.mu.Unlock()
	}()

	if err := c.api.Delete(ctx, tagPath(id)); err != nil {
		logger.Error("Failed to delete tag", "tag", id, "error", err)
		return err
	}
	return c.reload(ctx)
}

func (c *Collection) reload(ctx context.Context) error {
	if err := c.Load(ctx); err != nil {
		logger.Warn("Tags not refreshed after a saved change", "error", err)
		return fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	return nil
}

func (c *Collection) setSaving(saving bool) {
	c.mu.Lock()
	c.saving = saving
	c.mu.Unlock()
}

func (c *Collection) Tags() []models.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Tag(nil), c.tags...)
}

// Find returns the tag with the given name, case-sensitively.
func (c *Collection) Find(name string) (models.Tag, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tags {
		if t.Name == name {
			return t, true
		}
	}
	return models.Tag{}, false
}

func (c *Collection) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving
}

func (c *Collection) DeletingID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletingID
}
