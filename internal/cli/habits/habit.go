package habits

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/models"
)

type HabitCmd struct {
	List      HabitListCmd      `cmd:"" help:"List habits for a day." default:"1"`
	Add       HabitAddCmd       `cmd:"" help:"Create a habit."`
	Edit      HabitEditCmd      `cmd:"" help:"Edit a habit."`
	Log       HabitLogCmd       `cmd:"" help:"Record a value for a habit."`
	Archive   HabitArchiveCmd   `cmd:"" help:"Archive a habit."`
	Unarchive HabitUnarchiveCmd `cmd:"" help:"Restore an archived habit."`
	Delete    HabitDeleteCmd    `cmd:"" help:"Delete a habit permanently."`
}

type HabitListCmd struct {
	Date     string `help:"Date in YYYY-MM-DD format (default: today)."`
	Archived bool   `help:"Show archived habits instead."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	bg := context.Background()

	if c.Archived {
		if err := ctx.Habits.LoadArchived(bg); err != nil {
			return fmt.Errorf("failed to load archived habits: %w", err)
		}
		list := ctx.Habits.Archived()
		if len(list) == 0 {
			fmt.Println("No archived habits.")
			return nil
		}
		fmt.Println("Archived habits:")
		for _, h := range list {
			fmt.Printf("  %s\n", cli.FormatHabit(h))
		}
		return nil
	}

	date, err := cli.ParseDate(c.Date)
	if err != nil {
		return err
	}
	if err := ctx.Habits.Load(bg, date); err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}
	// Grouping falls back to the mirrored order when categories can't be fetched
	if err := ctx.Categories.Load(bg); err != nil {
		logger.Warn("Listing habits without fresh categories", "error", err)
	}

	list := ctx.Habits.Active()
	if len(list) == 0 {
		fmt.Printf("No habits for %s.\n", date)
		return nil
	}

	fmt.Printf("Habits for %s:\n", date)
	for _, group := range GroupByCategory(list, ctx.Categories.Order()) {
		fmt.Printf("\n%s\n", group.Title)
		for _, h := range group.Habits {
			fmt.Printf("  %s\n", cli.FormatHabit(h))
		}
	}
	return nil
}

// Group is a run of habits sharing a category
type Group struct {
	Key    string
	Title  string
	Habits []models.Habit
}

// GroupByCategory buckets habits by category following order. Categories missing from order are
// appended in first-seen order so no habit is dropped.
func GroupByCategory(list []models.Habit, order []string) []Group {
	buckets := make(map[string]*Group)
	var seen []string
	for _, h := range list {
		key := h.CategoryKey()
		g, ok := buckets[key]
		if !ok {
			title := "Uncategorized"
			if h.Category != nil {
				title = h.Category.Name
				if title == "" {
					title = "Category " + key
				}
			}
			g = &Group{Key: key, Title: title}
			buckets[key] = g
			seen = append(seen, key)
		}
		g.Habits = append(g.Habits, h)
	}

	groups := make([]Group, 0, len(buckets))
	for _, key := range order {
		if g, ok := buckets[key]; ok {
			groups = append(groups, *g)
			delete(buckets, key)
		}
	}
	for _, key := range seen {
		if g, ok := buckets[key]; ok {
			groups = append(groups, *g)
		}
	}
	return groups
}

type HabitAddCmd struct {
	Name     string   `arg:"" help:"Habit name."`
	Metric   string   `short:"m" help:"Metric type (boolean|counter|value|rating)." default:"boolean"`
	Unit     string   `short:"u" help:"Unit label for counter and value habits."`
	Max      *float64 `help:"Maximum value (target for counters, scale for ratings)."`
	Category *int64   `short:"c" help:"Category ID."`
	Tags     string   `short:"t" help:"Comma-separated tag IDs."`
	Icon     string   `help:"Icon."`
	Color    string   `help:"Color as #RRGGBB."`
}

func (c *HabitAddCmd) Validate() error {
	if !constants.MetricType(c.Metric).Valid() {
		return fmt.Errorf("invalid metric type: %s", c.Metric)
	}
	if c.Max != nil && *c.Max <= 0 {
		return fmt.Errorf("max must be positive")
	}
	return nil
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	tagIDs, err := cli.ParseIDs(c.Tags)
	if err != nil {
		return err
	}

	def := models.HabitDefinition{
		Name:       strings.TrimSpace(c.Name),
		MetricType: constants.MetricType(c.Metric),
		Unit:       c.Unit,
		MaxValue:   c.Max,
		CategoryID: c.Category,
		TagIDs:     tagIDs,
		Icon:       c.Icon,
		Color:      c.Color,
	}
	created, err := ctx.Habits.Create(context.Background(), def)
	if err != nil {
		return fmt.Errorf("failed to create habit: %w", err)
	}

	fmt.Printf("Added habit: %s (ID: %d)\n", created.Name, created.ID)
	return nil
}

type HabitEditCmd struct {
	ID       int64    `arg:"" help:"Habit ID."`
	Name     *string  `help:"New name."`
	Metric   *string  `short:"m" help:"New metric type (boolean|counter|value|rating)."`
	Unit     *string  `short:"u" help:"New unit label."`
	Max      *float64 `help:"New maximum value."`
	Category *int64   `short:"c" help:"New category ID (0 removes the category)."`
	Tags     *string  `short:"t" help:"Replace tags with a comma-separated list of tag IDs (empty clears)."`
	Icon     *string  `help:"New icon."`
	Color    *string  `help:"New color."`
}

func (c *HabitEditCmd) Patch() (models.HabitPatch, error) {
	patch := models.HabitPatch{
		Name:       c.Name,
		Unit:       c.Unit,
		MaxValue:   c.Max,
		CategoryID: c.Category,
		Icon:       c.Icon,
		Color:      c.Color,
	}
	if c.Metric != nil {
		metric := constants.MetricType(*c.Metric)
		if !metric.Valid() {
			return models.HabitPatch{}, fmt.Errorf("invalid metric type: %s", *c.Metric)
		}
		patch.MetricType = &metric
	}
	if c.Tags != nil {
		ids, err := cli.ParseIDs(*c.Tags)
		if err != nil {
			return models.HabitPatch{}, err
		}
		patch.TagIDs = ids
	}
	return patch, nil
}

func (c *HabitEditCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	patch, err := c.Patch()
	if err != nil {
		return err
	}
	if patch.Empty() {
		fmt.Println("No changes specified.")
		return nil
	}

	if err := ctx.Habits.Update(context.Background(), c.ID, patch); err != nil {
		return fmt.Errorf("failed to update habit %d: %w", c.ID, err)
	}
	fmt.Printf("Updated habit %d\n", c.ID)
	return nil
}

type HabitLogCmd struct {
	ID    int64    `arg:"" help:"Habit ID."`
	Value *float64 `arg:"" optional:"" help:"Value to record. Boolean habits toggle and counters increment when omitted."`
	Date  string   `help:"Date in YYYY-MM-DD format (default: today)."`
}

func (c *HabitLogCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	date, err := cli.ParseDate(c.Date)
	if err != nil {
		return err
	}
	bg := context.Background()

	if err := ctx.Habits.Load(bg, date); err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}
	habit, ok := ctx.Habits.Get(c.ID)
	if !ok || habit.Archived {
		return fmt.Errorf("habit %d is not an active habit", c.ID)
	}

	var value float64
	if c.Value != nil {
		value = *c.Value
	} else {
		next, ok := habit.Step(1)
		if !ok {
			return fmt.Errorf("%s habits need an explicit value", habit.MetricType)
		}
		value = next
	}
	if value < 0 {
		return fmt.Errorf("value must not be negative")
	}

	if err := ctx.Habits.LogCompletion(bg, c.ID, value, date); err != nil {
		return fmt.Errorf("failed to log %s: %w", habit.Name, err)
	}
	fmt.Printf("Logged %s = %s for %s\n", habit.Name, cli.FormatValue(value), date)
	return nil
}

type HabitArchiveCmd struct {
	ID int64 `arg:"" help:"Habit ID."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	if err := ctx.Habits.Archive(context.Background(), c.ID); err != nil {
		if cli.IsNotFound(err) {
			return fmt.Errorf("habit %d does not exist", c.ID)
		}
		return fmt.Errorf("failed to archive habit: %w", err)
	}
	fmt.Printf("Archived habit %d\n", c.ID)
	return nil
}

type HabitUnarchiveCmd struct {
	ID int64 `arg:"" help:"Habit ID."`
}

func (c *HabitUnarchiveCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	if err := ctx.Habits.Unarchive(context.Background(), c.ID); err != nil {
		if cli.IsNotFound(err) {
			return fmt.Errorf("habit %d does not exist", c.ID)
		}
		return fmt.Errorf("failed to unarchive habit: %w", err)
	}
	fmt.Printf("Restored habit %d\n", c.ID)
	return nil
}

type HabitDeleteCmd struct {
	ID  int64 `arg:"" help:"Habit ID."`
	Yes bool  `short:"y" help:"Skip the confirmation prompt."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	if !c.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete habit %d and its history?", c.ID)).
			Affirmative("Delete").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := ctx.Habits.Remove(context.Background(), c.ID); err != nil {
		if cli.IsNotFound(err) {
			return fmt.Errorf("habit %d does not exist", c.ID)
		}
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	fmt.Printf("Deleted habit %d\n", c.ID)
	return nil
}
