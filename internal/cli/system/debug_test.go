package system

import (
	"errors"
	"testing"

	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/cli/clitest"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
)

func TestDebugStoragePathAndConfig(t *testing.T) {
	env := clitest.New(t)

	if err := (&DebugStoragePathCmd{}).Run(env.Ctx); err != nil {
		t.Errorf("storage-path failed: %v", err)
	}
	if err := (&DebugDumpConfigCmd{}).Run(env.Ctx); err != nil {
		t.Errorf("dump-config failed: %v", err)
	}
}

func TestDebugDumpPreferences_RedactsTokens(t *testing.T) {
	env := clitest.New(t)
	env.SignIn(t, "ada@example.com")

	if err := (&DebugDumpPreferencesCmd{}).Run(env.Ctx); err != nil {
		t.Fatalf("dump-preferences failed: %v", err)
	}

	// The dump must not rewrite the stored tokens
	stored, err := env.Store.Get(constants.KeyAccessToken)
	if err != nil || stored == redacted || stored == "" {
		t.Errorf("stored access token = %q, %v", stored, err)
	}
}

func TestDebugDumpHabits(t *testing.T) {
	env := clitest.New(t)
	if err := (&DebugDumpHabitsCmd{}).Run(env.Ctx); !errors.Is(err, cli.ErrNotSignedIn) {
		t.Errorf("err = %v, want ErrNotSignedIn", err)
	}

	env.SignIn(t, "ada@example.com")
	env.Server.SeedHabit(models.Habit{Name: "Read", MetricType: constants.MetricBoolean})

	if err := (&DebugDumpHabitsCmd{Date: "2024-03-01"}).Run(env.Ctx); err != nil {
		t.Fatalf("dump-habits failed: %v", err)
	}
	if len(env.Ctx.Habits.Active()) != 1 {
		t.Errorf("active = %+v", env.Ctx.Habits.Active())
	}
	if err := (&DebugDumpHabitsCmd{Archived: true}).Run(env.Ctx); err != nil {
		t.Errorf("dump-habits --archived failed: %v", err)
	}
	if err := (&DebugDumpHabitsCmd{Date: "03/01/2024"}).Run(env.Ctx); err == nil {
		t.Error("expected an error for a malformed date")
	}
}
