package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/api"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/credentials"
)

// ErrChecksFailed is returned when at least one non-warning check fails
var ErrChecksFailed = errors.New("one or more health checks failed")

type DoctorCmd struct {
	Offline bool `help:"Skip checks that contact the server."`
}

func pass(name string) {
	fmt.Printf("✓ %s: OK\n", name)
}

func fail(name string, err error) {
	fmt.Printf("❌ %s: FAIL\n", name)
	fmt.Printf("   Error: %v\n", err)
}

func warn(name string, err error) {
	fmt.Printf("⚠ %s: WARNING\n", name)
	fmt.Printf("   %v\n", err)
}

func skip(name, reason string) {
	fmt.Printf("⊘ %s: SKIPPED (%s)\n", name, reason)
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	storeReachable := false

	if err := checkStorage(ctx); err != nil {
		fail("Storage reachable", err)
		hasError = true
	} else {
		pass("Storage reachable")
		storeReachable = true
	}

	if storeReachable {
		if err := checkSchemaVersion(ctx); err != nil {
			fail("Schema version", err)
			hasError = true
		} else {
			pass("Schema version")
		}
	} else {
		skip("Schema version", "storage not reachable")
	}

	// Warning only, storage can hold credentials instead
	if err := checkKeyring(ctx); err != nil {
		warn("System keyring", err)
	} else {
		pass("System keyring")
	}

	if err := checkClockTimezone(); err != nil {
		fail("Clock/timezone", err)
		hasError = true
	} else {
		pass("Clock/timezone")
	}

	apiReachable := false
	switch {
	case cmd.Offline:
		skip("API reachable", "offline")
	default:
		if err := checkAPIReachable(ctx); err != nil {
			fail("API reachable", err)
			hasError = true
		} else {
			pass("API reachable")
			apiReachable = true
		}
	}

	switch {
	case !ctx.Session.IsAuthenticated():
		warn("Session", fmt.Errorf("not signed in, run `%s`", constants.LoginCommand))
	case !apiReachable:
		skip("Session", "API not reachable")
	default:
		if err := checkSession(ctx); err != nil {
			fail("Session", err)
			hasError = true
		} else {
			pass("Session")
		}
	}

	fmt.Println()
	if hasError {
		return ErrChecksFailed
	}
	fmt.Println("All checks passed.")
	return nil
}

func checkStorage(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to open %s: %w", ctx.Store.GetConfigPath(), err)
	}
	if _, err := ctx.Store.All(); err != nil {
		return fmt.Errorf("failed to read preferences: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	current, latest, err := ctx.Store.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("schema version %d is newer than this build supports (%d), upgrade %s", current, latest, constants.AppName)
	}
	if current < latest {
		return fmt.Errorf("schema version %d is behind latest %d, pending migrations", current, latest)
	}
	return nil
}

func checkKeyring(ctx *cli.Context) error {
	if credentials.KeyringAvailable() {
		return nil
	}
	if ctx.Config.Credentials == constants.CredentialsKeyring {
		return fmt.Errorf("system keyring unavailable, credentials fall back to %s", ctx.Store.GetConfigPath())
	}
	return fmt.Errorf("system keyring unavailable")
}

func checkClockTimezone() error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkAPIReachable(ctx *cli.Context) error {
	reqCtx, cancel := context.WithTimeout(context.Background(), ctx.Config.Timeout)
	defer cancel()

	status, err := ctx.Raw.Ping(reqCtx)
	if err != nil {
		return fmt.Errorf("%s: %w", ctx.Raw.BaseURL(), err)
	}
	if status >= 500 {
		return fmt.Errorf("%s answered with status %d", ctx.Raw.BaseURL(), status)
	}
	return nil
}

func checkSession(ctx *cli.Context) error {
	if expiry, err := ctx.Session.TokenExpiry(); err == nil && !expiry.IsZero() && time.Until(expiry) < 0 {
		fmt.Printf("   access token expired at %s, it will be refreshed\n", expiry.Local().Format(time.RFC3339))
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), ctx.Config.Timeout)
	defer cancel()

	var out []map[string]any
	if err := ctx.Client.Get(reqCtx, "categories/", nil, &out); err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			return fmt.Errorf("session expired, run `%s`", constants.LoginCommand)
		}
		return err
	}
	return nil
}
