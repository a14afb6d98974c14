package habits

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/julianstephens/habitual/internal/apitest"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/cli/clitest"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
)

func signedIn(t *testing.T) *clitest.Env {
	env := clitest.New(t)
	env.SignIn(t, "ada@example.com")
	return env
}

func f(v float64) *float64 { return &v }

func TestCommandsRequireSession(t *testing.T) {
	env := clitest.New(t)
	commands := map[string]interface{ Run(*cli.Context) error }{
		"list":    &HabitListCmd{},
		"add":     &HabitAddCmd{Name: "Read", Metric: "boolean"},
		"log":     &HabitLogCmd{ID: 1},
		"archive": &HabitArchiveCmd{ID: 1},
		"delete":  &HabitDeleteCmd{ID: 1, Yes: true},
	}
	for name, cmd := range commands {
		if err := cmd.Run(env.Ctx); !errors.Is(err, cli.ErrNotSignedIn) {
			t.Errorf("%s: err = %v, want ErrNotSignedIn", name, err)
		}
	}
	if n := len(env.Server.Requests()); n != 0 {
		t.Errorf("requests sent without a session: %d", n)
	}
}

func TestHabitAddCmd(t *testing.T) {
	env := signedIn(t)
	cat := env.Server.SeedCategory("Fitness", apitest.Order(0))
	tag := env.Server.SeedTag("morning", "#FFAA00")

	cmd := &HabitAddCmd{
		Name:     "Push-ups",
		Metric:   "counter",
		Unit:     "reps",
		Max:      f(50),
		Category: &cat.ID,
		Tags:     models.FormatID(tag.ID),
	}
	if err := cmd.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if err := cmd.Run(env.Ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	active := env.Ctx.Habits.Active()
	if len(active) != 1 {
		t.Fatalf("active = %+v, want one habit", active)
	}
	stored, ok := env.Server.Habit(active[0].ID)
	if !ok {
		t.Fatal("habit not stored on the server")
	}
	if stored.MetricType != constants.MetricCounter || stored.Unit != "reps" || *stored.MaxValue != 50 {
		t.Errorf("stored = %+v", stored)
	}
	if stored.Category == nil || stored.Category.ID != cat.ID || len(stored.Tags) != 1 {
		t.Errorf("stored refs = %+v / %+v", stored.Category, stored.Tags)
	}
}

func TestHabitAddCmd_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cmd     HabitAddCmd
		wantErr bool
	}{
		{name: "boolean", cmd: HabitAddCmd{Name: "x", Metric: "boolean"}},
		{name: "rating with scale", cmd: HabitAddCmd{Name: "x", Metric: "rating", Max: f(5)}},
		{name: "unknown metric", cmd: HabitAddCmd{Name: "x", Metric: "duration"}, wantErr: true},
		{name: "zero max", cmd: HabitAddCmd{Name: "x", Metric: "counter", Max: f(0)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cmd.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHabitEditCmd(t *testing.T) {
	env := signedIn(t)
	cat := env.Server.SeedCategory("Mind", nil)
	id := env.Server.SeedHabit(models.Habit{Name: "Read", Category: &models.CategoryRef{ID: cat.ID, Name: "Mind"}})

	name := "Read fiction"
	var clear int64
	cmd := &HabitEditCmd{ID: id, Name: &name, Category: &clear}
	if err := cmd.Run(env.Ctx); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	stored, _ := env.Server.Habit(id)
	if stored.Name != "Read fiction" || stored.Category != nil {
		t.Errorf("stored = %+v", stored)
	}
}

func TestHabitEditCmd_NoChanges(t *testing.T) {
	env := signedIn(t)
	before := len(env.Server.Requests())
	if err := (&HabitEditCmd{ID: 1}).Run(env.Ctx); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if len(env.Server.Requests()) != before {
		t.Error("an empty edit must not reach the server")
	}
}

func TestHabitEditCmd_Patch(t *testing.T) {
	bad := "minutes"
	if _, err := (&HabitEditCmd{Metric: &bad}).Patch(); err == nil {
		t.Error("expected invalid metric error")
	}

	empty := ""
	patch, err := (&HabitEditCmd{Tags: &empty}).Patch()
	if err != nil {
		t.Fatalf("Patch failed: %v", err)
	}
	if patch.TagIDs == nil || len(patch.TagIDs) != 0 {
		t.Errorf("TagIDs = %#v, want an empty list that clears tags", patch.TagIDs)
	}
}

func TestHabitLogCmd(t *testing.T) {
	today := time.Now().Format(constants.DateFormat)

	tests := []struct {
		name    string
		habit   models.Habit
		prior   float64
		value   *float64
		want    float64
		wantErr bool
	}{
		{name: "boolean toggles on", habit: models.Habit{Name: "Meditate", MetricType: constants.MetricBoolean}, want: 1},
		{name: "boolean toggles off", habit: models.Habit{Name: "Meditate", MetricType: constants.MetricBoolean}, prior: 1, want: 0},
		{name: "counter increments", habit: models.Habit{Name: "Water", MetricType: constants.MetricCounter}, prior: 3, want: 4},
		{name: "explicit value", habit: models.Habit{Name: "Weight", MetricType: constants.MetricValue}, value: f(72.5), want: 72.5},
		{name: "value required", habit: models.Habit{Name: "Mood", MetricType: constants.MetricRating}, wantErr: true},
		{name: "negative rejected", habit: models.Habit{Name: "Water", MetricType: constants.MetricCounter}, value: f(-1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := signedIn(t)
			id := env.Server.SeedHabit(tt.habit)
			if tt.prior != 0 {
				env.Server.SetCompletion(id, today, tt.prior)
			}

			err := (&HabitLogCmd{ID: id, Value: tt.value}).Run(env.Ctx)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				if n := len(env.Server.RequestsTo(http.MethodPost, "habits/"+models.FormatID(id)+"/complete/")); n != 0 {
					t.Errorf("completion sent despite error")
				}
				return
			}
			if err != nil {
				t.Fatalf("log failed: %v", err)
			}
			if got := env.Server.Completion(id, today); got != tt.want {
				t.Errorf("completion = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHabitLogCmd_PastDate(t *testing.T) {
	env := signedIn(t)
	id := env.Server.SeedHabit(models.Habit{Name: "Run"})

	if err := (&HabitLogCmd{ID: id, Date: "2024-02-29"}).Run(env.Ctx); err != nil {
		t.Fatalf("log failed: %v", err)
	}
	if got := env.Server.Completion(id, "2024-02-29"); got != 1 {
		t.Errorf("completion = %v, want 1", got)
	}

	if err := (&HabitLogCmd{ID: id, Date: "29/02/2024"}).Run(env.Ctx); err == nil {
		t.Error("expected invalid date error")
	}
}

func TestHabitLogCmd_ArchivedHabit(t *testing.T) {
	env := signedIn(t)
	id := env.Server.SeedHabit(models.Habit{Name: "Old", Archived: true})
	if err := (&HabitLogCmd{ID: id}).Run(env.Ctx); err == nil {
		t.Error("logging an archived habit should fail")
	}
}

func TestArchiveUnarchiveDelete(t *testing.T) {
	env := signedIn(t)
	id := env.Server.SeedHabit(models.Habit{Name: "Stretch"})

	if err := (&HabitArchiveCmd{ID: id}).Run(env.Ctx); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if stored, _ := env.Server.Habit(id); !stored.Archived {
		t.Error("habit not archived on the server")
	}

	if err := (&HabitUnarchiveCmd{ID: id}).Run(env.Ctx); err != nil {
		t.Fatalf("unarchive failed: %v", err)
	}
	if stored, _ := env.Server.Habit(id); stored.Archived {
		t.Error("habit still archived on the server")
	}

	if err := (&HabitDeleteCmd{ID: id, Yes: true}).Run(env.Ctx); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := env.Server.Habit(id); ok {
		t.Error("habit still stored after delete")
	}

	if err := (&HabitDeleteCmd{ID: id, Yes: true}).Run(env.Ctx); err == nil {
		t.Error("deleting a missing habit should fail")
	}
}

func TestHabitListCmd(t *testing.T) {
	env := signedIn(t)
	cat := env.Server.SeedCategory("Fitness", apitest.Order(0))
	env.Server.SeedHabit(models.Habit{Name: "Run", Category: &models.CategoryRef{ID: cat.ID, Name: cat.Name}})
	env.Server.SeedHabit(models.Habit{Name: "Journal"})
	env.Server.SeedHabit(models.Habit{Name: "Old", Archived: true})

	if err := (&HabitListCmd{}).Run(env.Ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if n := len(env.Ctx.Habits.Active()); n != 2 {
		t.Errorf("active = %d, want 2", n)
	}

	if err := (&HabitListCmd{Archived: true}).Run(env.Ctx); err != nil {
		t.Fatalf("list archived failed: %v", err)
	}
	if n := len(env.Ctx.Habits.Archived()); n != 1 {
		t.Errorf("archived = %d, want 1", n)
	}
}

func TestHabitListCmd_CategoriesUnavailable(t *testing.T) {
	env := signedIn(t)
	env.Server.SeedHabit(models.Habit{Name: "Run"})
	env.Server.FailNext("GET categories/", 1)

	if err := (&HabitListCmd{}).Run(env.Ctx); err != nil {
		t.Fatalf("list should tolerate a category failure: %v", err)
	}
}

func TestGroupByCategory(t *testing.T) {
	list := []models.Habit{
		{ID: 1, Name: "a", Category: &models.CategoryRef{ID: 2, Name: "Two"}},
		{ID: 2, Name: "b"},
		{ID: 3, Name: "c", Category: &models.CategoryRef{ID: 1, Name: "One"}},
		{ID: 4, Name: "d", Category: &models.CategoryRef{ID: 9, Name: "Stray"}},
		{ID: 5, Name: "e", Category: &models.CategoryRef{ID: 2, Name: "Two"}},
	}
	groups := GroupByCategory(list, []string{"1", "2", constants.UncategorizedID})

	wantKeys := []string{"1", "2", constants.UncategorizedID, "9"}
	if len(groups) != len(wantKeys) {
		t.Fatalf("groups = %+v", groups)
	}
	for i, key := range wantKeys {
		if groups[i].Key != key {
			t.Errorf("group %d = %s, want %s", i, groups[i].Key, key)
		}
	}
	if len(groups[1].Habits) != 2 || groups[2].Title != "Uncategorized" {
		t.Errorf("groups = %+v", groups)
	}
}
