package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/julianstephens/habitual/internal/api"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/logger"
)

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Describe renders err for a terminal. API validation errors list one field per line, and an
// expired session points at the login command.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	if stderrors.Is(err, api.ErrSessionExpired) {
		return fmt.Sprintf("Error: your session has expired, run `%s` to sign in again", constants.LoginCommand)
	}
	if stderrors.Is(err, api.ErrTransport) {
		return fmt.Sprintf("Error: could not reach the server (%v)", err)
	}

	var apiErr *api.Error
	if !stderrors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return Format(err)
	}

	keys := make([]string, 0, len(apiErr.Fields))
	for k := range apiErr.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Error: the server rejected the request")
	if apiErr.Detail != "" {
		fmt.Fprintf(&b, ": %s", apiErr.Detail)
	}
	for _, k := range keys {
		label := k
		if k == "non_field_errors" {
			label = "request"
		}
		fmt.Fprintf(&b, "\n  %s: %s", label, strings.Join(apiErr.Fields[k], " "))
	}
	return b.String()
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Describe(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
