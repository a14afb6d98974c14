package system

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/constants"
)

type DebugCmd struct {
	StoragePath     DebugStoragePathCmd     `cmd:"" help:"Show the local storage location."`
	DumpConfig      DebugDumpConfigCmd      `cmd:"" help:"Dump the resolved configuration as JSON."`
	DumpPreferences DebugDumpPreferencesCmd `cmd:"" help:"Dump stored preferences as JSON (tokens redacted)."`
	DumpHabits      DebugDumpHabitsCmd      `cmd:"" help:"Dump the server's habits for a date as JSON."`
}

const redacted = "<redacted>"

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

type DebugStoragePathCmd struct{}

func (cmd *DebugStoragePathCmd) Run(ctx *cli.Context) error {
	return printJSON(map[string]string{"path": ctx.Store.GetConfigPath()})
}

type DebugDumpConfigCmd struct{}

func (cmd *DebugDumpConfigCmd) Run(ctx *cli.Context) error {
	cfg := ctx.Config
	return printJSON(map[string]any{
		"path":         cfg.Path,
		"api_url":      cfg.APIURL,
		"timeout":      cfg.Timeout.String(),
		"storage":      ctx.Store.GetConfigPath(),
		"credentials":  cfg.Credentials,
		"saving_delay": cfg.SavingDelay.String(),
		"debug":        cfg.Debug,
		"log_level":    cfg.LogLevel,
		"log_file":     cfg.Logger().Path(),
	})
}

type DebugDumpPreferencesCmd struct{}

func (cmd *DebugDumpPreferencesCmd) Run(ctx *cli.Context) error {
	all, err := ctx.Store.All()
	if err != nil {
		return fmt.Errorf("failed to read preferences: %w", err)
	}
	for _, key := range []string{constants.KeyAccessToken, constants.KeyRefreshToken} {
		if _, ok := all[key]; ok {
			all[key] = redacted
		}
	}
	return printJSON(all)
}

type DebugDumpHabitsCmd struct {
	Date     string `arg:"" optional:"" help:"Date to load (YYYY-MM-DD, default today)."`
	Archived bool   `help:"Dump archived habits instead."`
}

func (cmd *DebugDumpHabitsCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	date, err := cli.ParseDate(cmd.Date)
	if err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), 2*ctx.Config.Timeout)
	defer cancel()

	if cmd.Archived {
		if err := ctx.Habits.LoadArchived(reqCtx); err != nil {
			return fmt.Errorf("failed to load archived habits: %w", err)
		}
		return printJSON(map[string]any{
			"archived": ctx.Habits.Archived(),
			"at":       time.Now().Format(time.RFC3339),
		})
	}

	if err := ctx.Habits.Load(reqCtx, date); err != nil {
		return fmt.Errorf("failed to load habits: %w", err)
	}
	return printJSON(map[string]any{
		"date":   date,
		"habits": ctx.Habits.Active(),
	})
}
