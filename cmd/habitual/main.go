package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitual/internal/api"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/cli/auth"
	"github.com/julianstephens/habitual/internal/cli/categories"
	"github.com/julianstephens/habitual/internal/cli/habits"
	"github.com/julianstephens/habitual/internal/cli/settings"
	"github.com/julianstephens/habitual/internal/cli/system"
	"github.com/julianstephens/habitual/internal/cli/tags"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/credentials"
	"github.com/julianstephens/habitual/internal/errors"
	"github.com/julianstephens/habitual/internal/logger"
	"github.com/julianstephens/habitual/internal/storage"
	"github.com/julianstephens/habitual/internal/storage/postgres"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
)

var version = "v0.1.0"

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"~/.config/habitual/config.yaml"`
	APIURL  string `name:"api-url" help:"API base URL (overrides api_url)."`
	Storage string `help:"SQLite file path or PostgreSQL connection string (overrides storage). Credentials must NOT be embedded in a PostgreSQL connection string."`
	Debug   bool   `help:"Log debug output to stderr."`

	Login    auth.LoginCmd         `cmd:"" help:"Sign in to your account."`
	Register auth.RegisterCmd      `cmd:"" help:"Create an account."`
	Logout   auth.LogoutCmd        `cmd:"" help:"Sign out and forget stored credentials."`
	Status   auth.StatusCmd        `cmd:"" help:"Show the current session."`
	Habit    habits.HabitCmd       `cmd:"" help:"Manage habits and log completions."`
	Category categories.CategoryCmd `cmd:"" help:"Manage and order categories."`
	Tag      tags.TagCmd           `cmd:"" help:"Manage tags."`
	Settings settings.SettingsCmd  `cmd:"" help:"Manage local preferences."`
	Doctor   system.DoctorCmd      `cmd:"" help:"Run health checks and diagnostics."`
	Debug    system.DebugCmd       `cmd:"" help:"Debug commands for troubleshooting."`
	Tui      system.TuiCmd         `cmd:"" help:"Launch the interactive dashboard." default:"1"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracking client"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": version},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}
	if CLI.APIURL != "" {
		cfg.APIURL = CLI.APIURL
	}
	if CLI.Storage != "" {
		cfg.Storage = CLI.Storage
	}
	if CLI.Debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		errors.Fatalf("invalid configuration: %v", err)
	}

	if err := logger.Init(cfg.Logger()); err != nil {
		fmt.Fprintln(os.Stderr, errors.Formatf("failed to initialize logger: %v", err))
	}

	var store storage.Provider
	if storage.IsPostgres(cfg.Storage) {
		store = postgres.New(cfg.Storage)
	} else {
		store = sqlite.NewStore(cfg.Storage)
	}
	if err := store.Init(); err != nil {
		errors.Fatalf("failed to initialize storage: %v", err)
	}

	appCtx, err := cli.NewContext(cfg, store, selectBackend(cfg, store),
		api.WithSessionExpiredHook(func(err error) {
			logger.Info("Session expired, stored credentials cleared", "error", err)
		}),
	)
	if err != nil {
		store.Close()
		errors.Fatal(err)
	}

	err = ctx.Run(appCtx)
	if cerr := store.Close(); cerr != nil {
		logger.Warn("Failed to close storage", "error", cerr)
	}
	if err != nil {
		errors.Fatal(err)
	}
}

// selectBackend honors the credentials setting, falling back to storage when no keyring is reachable.
func selectBackend(cfg config.Config, store storage.Provider) credentials.Backend {
	if cfg.Credentials == constants.CredentialsKeyring {
		if credentials.KeyringAvailable() {
			return credentials.NewKeyringBackend(constants.AppName)
		}
		logger.Warn("System keyring unavailable, storing credentials in local storage", "storage", store.GetConfigPath())
	}
	return credentials.NewStorageBackend(store)
}
