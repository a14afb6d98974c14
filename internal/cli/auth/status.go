package auth

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitual/internal/cli"
)

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	fmt.Printf("Server:      %s\n", ctx.Client.BaseURL())
	fmt.Printf("Credentials: %s\n", ctx.Config.Credentials)

	if !ctx.Session.IsAuthenticated() {
		fmt.Println("Session:     not signed in")
		return nil
	}

	fmt.Printf("Session:     %s\n", ctx.Session.State())
	if user := ctx.Session.CurrentUser(); user != nil {
		fmt.Printf("User:        %s\n", user.DisplayName())
	}

	expiry, err := ctx.Session.TokenExpiry()
	switch {
	case err != nil:
		fmt.Printf("Expires:     unknown (%v)\n", err)
	case expiry.IsZero():
		fmt.Println("Expires:     never")
	case time.Until(expiry) <= 0:
		fmt.Printf("Expires:     %s (expired, renewed on next request)\n", expiry.Local().Format(time.RFC1123))
	default:
		fmt.Printf("Expires:     %s (in %s)\n", expiry.Local().Format(time.RFC1123), time.Until(expiry).Round(time.Second))
	}
	return nil
}
