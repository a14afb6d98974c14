package settings

import (
	"fmt"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/constants"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	Language  *string `help:"Interface language code (en, fr, es, de, pt, zh, ja)."`
	DarkMode  *bool   `help:"Force the dark or light theme."`
	AutoTheme bool    `help:"Follow the terminal background instead of a forced theme."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	if c.List {
		lang := ctx.Prefs.Language()
		theme := "auto (terminal background)"
		if enabled, set := ctx.Prefs.DarkMode(); set {
			theme = "light"
			if enabled {
				theme = "dark"
			}
		}

		fmt.Println("Current Settings:")
		fmt.Printf("  Language:    %s %s (%s)\n", lang.Flag, lang.Name, lang.Code)
		fmt.Printf("  Theme:       %s\n", theme)
		fmt.Printf("  Server:      %s\n", ctx.Config.APIURL)
		fmt.Printf("  Storage:     %s\n", ctx.Store.GetConfigPath())
		fmt.Printf("  Credentials: %s\n", ctx.Config.Credentials)

		fmt.Println("\nAvailable languages:")
		for _, l := range constants.Languages {
			fmt.Printf("  %s  %s %s\n", l.Code, l.Flag, l.Name)
		}
		return nil
	}

	if c.DarkMode != nil && c.AutoTheme {
		return fmt.Errorf("--dark-mode and --auto-theme cannot be combined")
	}

	updated := false
	if c.Language != nil {
		if err := ctx.Prefs.SetLanguage(*c.Language); err != nil {
			return fmt.Errorf("failed to set language: %w", err)
		}
		updated = true
	}
	if c.DarkMode != nil {
		if err := ctx.Prefs.SetDarkMode(*c.DarkMode); err != nil {
			return fmt.Errorf("failed to set theme: %w", err)
		}
		updated = true
	}
	if c.AutoTheme {
		if err := ctx.Prefs.ResetDarkMode(); err != nil {
			return fmt.Errorf("failed to reset theme: %w", err)
		}
		updated = true
	}

	if updated {
		fmt.Println("Settings updated successfully.")
	} else {
		fmt.Println("No changes specified. Use --list to view settings or flags to update them.")
	}
	return nil
}
