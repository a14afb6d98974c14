package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/habits"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/tui"
)

var _ tui.HabitStore = (*habits.Collection)(nil)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}

	logger.Debug("Starting dashboard", "server", ctx.Config.APIURL)
	if err := tui.Run(context.Background(), ctx.Habits, ctx.Prefs.UseDarkMode()); err != nil {
		return fmt.Errorf("dashboard exited: %w", err)
	}
	return nil
}
