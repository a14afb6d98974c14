package tags

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/models"
	"github.com/julianstephens/habitual/internal/tags"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type TagCmd struct {
	List   TagListCmd   `cmd:"" help:"List tags." default:"1"`
	Add    TagAddCmd    `cmd:"" help:"Create a tag."`
	Edit   TagEditCmd   `cmd:"" help:"Rename or recolor a tag."`
	Delete TagDeleteCmd `cmd:"" help:"Delete a tag."`
}

// saved reports whether err still means the server accepted the change.
func saved(err error) bool {
	return err == nil || errors.Is(err, tags.ErrReloadFailed)
}

func warnStale(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func validColor(color string) error {
	if color != "" && !hexColor.MatchString(color) {
		return fmt.Errorf("invalid color %q (expected #RRGGBB)", color)
	}
	return nil
}

type TagListCmd struct{}

func (c *TagListCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	if err := ctx.Tags.Load(context.Background()); err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	list := ctx.Tags.Tags()
	if len(list) == 0 {
		fmt.Println("No tags found.")
		return nil
	}
	fmt.Println("Tags:")
	for _, t := range list {
		fmt.Printf("  %d  %s  %s\n", t.ID, t.Color, t.Name)
	}
	return nil
}

type TagAddCmd struct {
	Name  string `arg:"" help:"Tag name."`
	Color string `help:"Color as #RRGGBB (default: gray)."`
}

func (c *TagAddCmd) Validate() error {
	return validColor(c.Color)
}

func (c *TagAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	name := strings.TrimSpace(c.Name)
	err := ctx.Tags.Create(context.Background(), name, c.Color)
	if !saved(err) {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	defer warnStale(err)
	if tag, ok := ctx.Tags.Find(name); ok {
		fmt.Printf("Added tag: %s (ID: %d)\n", tag.Name, tag.ID)
		return nil
	}
	fmt.Printf("Added tag: %s\n", name)
	return nil
}

type TagEditCmd struct {
	ID    int64   `arg:"" help:"Tag ID."`
	Name  *string `help:"New name."`
	Color *string `help:"New color as #RRGGBB."`
}

func (c *TagEditCmd) Validate() error {
	if c.Color != nil {
		return validColor(*c.Color)
	}
	return nil
}

func (c *TagEditCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	if c.Name == nil && c.Color == nil {
		fmt.Println("No changes specified.")
		return nil
	}
	err := ctx.Tags.Update(context.Background(), c.ID, models.TagPatch{Name: c.Name, Color: c.Color})
	if !saved(err) {
		return fmt.Errorf("failed to update tag %d: %w", c.ID, err)
	}
	fmt.Printf("Updated tag %d\n", c.ID)
	warnStale(err)
	return nil
}

type TagDeleteCmd struct {
	ID int64 `arg:"" help:"Tag ID."`
}

func (c *TagDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	err := ctx.Tags.Remove(context.Background(), c.ID)
	if !saved(err) {
		return fmt.Errorf("failed to delete tag %d: %w", c.ID, err)
	}
	fmt.Printf("Deleted tag %d\n", c.ID)
	warnStale(err)
	return nil
}
