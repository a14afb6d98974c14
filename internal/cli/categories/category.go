package categories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/habitual/internal/categories"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
)

type CategoryCmd struct {
	List   CategoryListCmd   `cmd:"" help:"List categories in display order." default:"1"`
	Add    CategoryAddCmd    `cmd:"" help:"Create a category."`
	Rename CategoryRenameCmd `cmd:"" help:"Rename a category."`
	Delete CategoryDeleteCmd `cmd:"" help:"Delete a category. Its habits become uncategorized."`
	Move   CategoryMoveCmd   `cmd:"" help:"Move a category to a new position."`
}

type CategoryListCmd struct{}

func (c *CategoryListCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	if err := ctx.Categories.Load(context.Background()); err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	fmt.Println("Categories:")
	for i, key := range ctx.Categories.Order() {
		fmt.Printf("  %d. %s\n", i+1, label(ctx, key))
	}
	return nil
}

func label(ctx *cli.Context, key string) string {
	if key == constants.UncategorizedID {
		return "Uncategorized"
	}
	id, err := models.ParseID(key)
	if err != nil {
		return key
	}
	if cat, ok := ctx.Categories.Get(id); ok {
		return fmt.Sprintf("%s (ID: %d)", cat.Name, cat.ID)
	}
	return fmt.Sprintf("ID %d", id)
}

type CategoryAddCmd struct {
	Name string `arg:"" help:"Category name."`
}

func (c *CategoryAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	bg := context.Background()
	// New categories are appended after the ones already known
	if err := ctx.Categories.Load(bg); err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	name := strings.TrimSpace(c.Name)
	err := ctx.Categories.Create(bg, name)
	if err != nil && !errors.Is(err, categories.ErrReloadFailed) {
		return fmt.Errorf("failed to create category: %w", err)
	}
	fmt.Printf("Added category: %s\n", name)
	warnStale(err)
	return nil
}

// warnStale reports a saved change whose follow-up reload failed.
func warnStale(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

type CategoryRenameCmd struct {
	ID   int64  `arg:"" help:"Category ID."`
	Name string `arg:"" help:"New name."`
}

func (c *CategoryRenameCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	name := strings.TrimSpace(c.Name)
	if err := ctx.Categories.Rename(context.Background(), c.ID, name); err != nil {
		return fmt.Errorf("failed to rename category %d: %w", c.ID, err)
	}
	fmt.Printf("Renamed category %d to %s\n", c.ID, name)
	return nil
}

type CategoryDeleteCmd struct {
	ID int64 `arg:"" help:"Category ID."`
}

func (c *CategoryDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	err := ctx.Categories.Remove(context.Background(), c.ID)
	if err != nil && !errors.Is(err, categories.ErrReloadFailed) {
		return fmt.Errorf("failed to delete category %d: %w", c.ID, err)
	}
	fmt.Printf("Deleted category %d\n", c.ID)
	warnStale(err)
	return nil
}

type CategoryMoveCmd struct {
	Key      string `arg:"" help:"Category ID, or 'uncategorized'."`
	Position int    `arg:"" help:"New 1-based position."`
}

func (c *CategoryMoveCmd) Validate() error {
	if c.Position < 1 {
		return fmt.Errorf("position must be at least 1")
	}
	return nil
}

func (c *CategoryMoveCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	bg := context.Background()
	if err := ctx.Categories.Load(bg); err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	if err := ctx.Categories.Move(c.Key, c.Position-1); err != nil {
		return err
	}
	if err := ctx.Categories.PersistOrder(bg); err != nil {
		return fmt.Errorf("failed to save category order: %w", err)
	}
	fmt.Printf("Moved %s to position %d\n", label(ctx, c.Key), c.Position)
	return nil
}
