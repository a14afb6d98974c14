package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitual/internal/cli"
)

type LoginCmd struct {
	Email    string `short:"e" help:"Account email (prompted when omitted)."`
	Password string `short:"p" help:"Account password (prompted when omitted)." env:"HABITUAL_PASSWORD"`
}

func (c *LoginCmd) Run(ctx *cli.Context) error {
	email, password := c.Email, c.Password
	if email == "" || password == "" {
		if err := newLoginForm(&email, &password).Run(); err != nil {
			return err
		}
	}

	user, err := ctx.Session.Login(context.Background(), strings.TrimSpace(email), password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	name := email
	if user != nil {
		name = user.DisplayName()
	}
	fmt.Printf("✓ Signed in as %s\n", name)
	return nil
}

type RegisterCmd struct {
	Email    string `short:"e" help:"Account email (prompted when omitted)."`
	Password string `short:"p" help:"Account password (prompted when omitted)."`
	Confirm  string `help:"Password confirmation (prompted when omitted)."`
}

func (c *RegisterCmd) Run(ctx *cli.Context) error {
	email, password, confirm := c.Email, c.Password, c.Confirm
	if email == "" || password == "" || confirm == "" {
		if err := newRegisterForm(&email, &password, &confirm).Run(); err != nil {
			return err
		}
	}

	resp, err := ctx.Session.Register(context.Background(), strings.TrimSpace(email), password, confirm)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	if resp.HasTokens() {
		fmt.Printf("✓ Account created, signed in as %s\n", email)
		return nil
	}
	fmt.Printf("✓ Account created for %s\n", email)
	if resp.Detail != "" {
		fmt.Printf("  %s\n", resp.Detail)
	}
	fmt.Println("  Sign in with `habitual login` once the account is active.")
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *cli.Context) error {
	wasSignedIn := ctx.Session.IsAuthenticated()
	ctx.Session.Logout()
	if wasSignedIn {
		fmt.Println("✓ Signed out")
	} else {
		fmt.Println("Not signed in.")
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func newLoginForm(email, password *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(email).
				Validate(required("email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password).
				Validate(required("password")),
		),
	).WithTheme(huh.ThemeDracula())
}

func newRegisterForm(email, password, confirm *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(email).
				Validate(required("email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password).
				Validate(required("password")),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(confirm).
				Validate(func(s string) error {
					if s != *password {
						return errors.New("passwords do not match")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())
}
