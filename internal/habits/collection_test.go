package habits

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/julianstephens/habitual/internal/api"
	"github.com/julianstephens/habitual/internal/apitest"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/models"
)

const (
	today     = "2024-03-01"
	yesterday = "2024-02-29"
)

type staticAuth struct{ token string }

func (a staticAuth) AccessToken() string { return a.token }
func (a staticAuth) Refresh(context.Context) (string, error) {
	return "", errors.New("refresh not supported in tests")
}
func (a staticAuth) Logout() {}

func setupCollection(t *testing.T, opts ...Option) (*Collection, *apitest.Server) {
	t.Helper()
	server := apitest.New(t)
	token, _ := server.IssueTokens("ada@example.com")
	client, err := api.NewClient(api.Config{BaseURL: server.BaseURL()}, staticAuth{token: token})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return NewCollection(client, opts...), server
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func mustGet(t *testing.T, c *Collection, id int64) models.Habit {
	t.Helper()
	h, ok := c.Get(id)
	if !ok {
		t.Fatalf("habit %d not in collection", id)
	}
	return h
}

func TestLoadAnnotates(t *testing.T) {
	c, server := setupCollection(t)
	done := server.SeedHabit(models.Habit{Name: "Read", MetricType: constants.MetricCounter})
	todo := server.SeedHabit(models.Habit{Name: "Stretch"})
	server.SeedHabit(models.Habit{Name: "Old", Archived: true})
	server.SetCompletion(done, today, 3)

	if err := c.Load(context.Background(), today); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Loading() {
		t.Error("Loading should be cleared after Load")
	}

	active := c.Active()
	if len(active) != 2 {
		t.Fatalf("expected 2 active habits, got %d", len(active))
	}

	h := mustGet(t, c, done)
	if h.TodayValue != 3 || h.TempValue != 3 || !h.IsCompletedToday || h.IsSaving {
		t.Errorf("completed habit = %+v", h)
	}
	h = mustGet(t, c, todo)
	if h.TodayValue != 0 || h.IsCompletedToday {
		t.Errorf("pending habit = %+v", h)
	}
}

func TestLoadFailureClearsLoading(t *testing.T) {
	c, server := setupCollection(t)
	server.FailNext("GET habits/", 1)

	if err := c.Load(context.Background(), today); api.StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("err = %v, want a 500", err)
	}
	if c.Loading() {
		t.Error("Loading should be cleared after a failed Load")
	}
}

func TestLogCompletion(t *testing.T) {
	tests := []struct {
		name          string
		value         float64
		wantCompleted bool
	}{
		{name: "positive value", value: 5, wantCompleted: true},
		{name: "zero value", value: 0, wantCompleted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, server := setupCollection(t, WithSavingDelay(150*time.Millisecond))
			id := server.SeedHabit(models.Habit{Name: "Pushups", MetricType: constants.MetricCounter})
			server.SetCompletion(id, today, 2)
			if err := c.Load(context.Background(), today); err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			if err := c.LogCompletion(context.Background(), id, tt.value, today); err != nil {
				t.Fatalf("LogCompletion failed: %v", err)
			}

			h := mustGet(t, c, id)
			if h.TodayValue != tt.value || h.TempValue != tt.value {
				t.Errorf("values = (%v, %v), want %v", h.TodayValue, h.TempValue, tt.value)
			}
			if h.IsCompletedToday != tt.wantCompleted {
				t.Errorf("IsCompletedToday = %v, want %v", h.IsCompletedToday, tt.wantCompleted)
			}
			if h.Status != constants.StatusCommitted {
				t.Errorf("Status = %q, want committed", h.Status)
			}
			if !h.IsSaving {
				t.Error("IsSaving should still be set right after the request settles")
			}
			if got := server.Completion(id, today); got != tt.value {
				t.Errorf("server value = %v, want %v", got, tt.value)
			}

			waitFor(t, "IsSaving to clear", func() bool { return !mustGet(t, c, id).IsSaving })
		})
	}
}

func TestLogCompletionStagesBeforeRequest(t *testing.T) {
	c, server := setupCollection(t, WithSavingDelay(time.Millisecond))
	id := server.SeedHabit(models.Habit{Name: "Water", MetricType: constants.MetricCounter})
	if err := c.Load(context.Background(), today); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var staged atomic.Bool
	c.OnChange(func() {
		h, ok := c.Get(id)
		if ok && h.Status == constants.StatusPending && h.IsSaving && h.TempValue == 4 {
			staged.Store(true)
		}
	})

	if err := c.LogCompletion(context.Background(), id, 4, today); err != nil {
		t.Fatalf("LogCompletion failed: %v", err)
	}
	if !staged.Load() {
		t.Error("expected a pending, saving snapshot with the staged value")
	}
}

func TestLogCompletionFailure(t *testing.T) {
	c, server := setupCollection(t, WithSavingDelay(20*time.Millisecond))
	id := server.SeedHabit(models.Habit{Name: "Meditate"})
	if err := c.Load(context.Background(), today); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	server.FailNext(fmt.Sprintf("POST habits/%d/complete/", id), 1)

	err := c.LogCompletion(context.Background(), id, 1, today)
	if err == nil {
		t.Fatal("expected LogCompletion to fail")
	}

	h := mustGet(t, c, id)
	if h.Status != constants.StatusFailed || h.StatusErr == nil {
		t.Errorf("Status = %q (%v), want failed", h.Status, h.StatusErr)
	}
	if h.TodayValue != 0 || h.IsCompletedToday {
		t.Error("a failed log must not look persisted")
	}
	if h.TempValue != 1 {
		t.Errorf("TempValue = %v, want the staged 1", h.TempValue)
	}

	waitFor(t, "IsSaving to clear after failure", func() bool { return !mustGet(t, c, id).IsSaving })

	if err := c.Revert(id); err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	h = mustGet(t, c, id)
	if h.TempValue != 0 || h.Status != constants.StatusNone || h.StatusErr != nil {
		t.Errorf("after revert = %+v", h)
	}
}

func TestRevertUnknownHabit(t *testing.T) {
	c, _ := setupCollection(t)
	if err := c.Revert(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("Revert = %v, want ErrNotFound", err)
	}
}

func TestLastResponseWins(t *testing.T) {
	c, server := setupCollection(t)
	id := server.SeedHabit(models.Habit{Name: "Walk", MetricType: constants.MetricCounter})
	server.SetCompletion(id, yesterday, 1)
	server.SetCompletion(id, today, 2)

	release := server.Gate(yesterday)
	defer release()

	slow := make(chan error, 1)
	go func() { slow <- c.Load(context.Background(), yesterday) }()

	waitFor(t, "the gated request to arrive", func() bool {
		for _, r := range server.RequestsTo(http.MethodGet, "habits/") {
			if r.Query.Get("date") == yesterday {
				return true
			}
		}
		return false
	})

	if err := c.Load(context.Background(), today); err != nil {
		t.Fatalf("Load(today) failed: %v", err)
	}
	if got := mustGet(t, c, id).TodayValue; got != 2 {
		t.Fatalf("after fast load TodayValue = %v, want 2", got)
	}
	if !c.Loading() {
		t.Error("Loading should stay set while the slow load is in flight")
	}

	release()
	if err := <-slow; err != nil {
		t.Fatalf("Load(yesterday) failed: %v", err)
	}
	if got := mustGet(t, c, id).TodayValue; got != 1 {
		t.Errorf("TodayValue = %v, want 1 from the response that resolved last", got)
	}
	if c.Loading() {
		t.Error("Loading should clear once every load settled")
	}
}

func TestCreate(t *testing.T) {
	c, server := setupCollection(t)
	first := server.SeedHabit(models.Habit{Name: "Read"})
	cat := server.SeedCategory("Fitness", apitest.Order(0))
	if err := c.Load(context.Background(), today); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	created, err := c.Create(context.Background(), models.HabitDefinition{
		Name:       "Run",
		MetricType: constants.MetricValue,
		Unit:       "km",
		CategoryID: &cat.ID,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Category == nil || created.Category.Name != "Fitness" {
		t.Errorf("Category = %+v, want Fitness", created.Category)
	}

	active := c.Active()
	if len(active) != 2 || active[0].ID != first || active[1].ID != created.ID {
		t.Errorf("active order = %+v, want [%d %d]", active, first, created.ID)
	}
	if active[1].IsCompletedToday || active[1].TempValue != 0 {
		t.Error("created habit should start uncompleted")
	}
}

func TestCreateValidationError(t *testing.T) {
	c, _ := setupCollection(t)
	_, err := c.Create(context.Background(), models.HabitDefinition{Name: ""})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || len(apiErr.Fields["name"]) == 0 {
		t.Fatalf("err = %v, want a name field error", err)
	}
	if len(c.Active()) != 0 {
		t.Error("failed create must not add a habit")
	}
}

func TestArchiveAndUnarchive(t *testing.T) {
	c, server := setupCollection(t)
	keep := server.SeedHabit(models.Habit{Name: "Read"})
	gone := server.SeedHabit(models.Habit{Name: "Journal"})
	if err := c.Load(context.Background(), today); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := c.Archive(context.Background(), gone); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if active := c.Active(); len(active) != 1 || active[0].ID != keep {
		t.Errorf("active = %+v, want only %d", active, keep)
	}
	if archived := c.Archived(); len(archived) != 1 || archived[0].ID != gone {
		t.Errorf("archived = %+v, want only %d", archived, gone)
	}

	if err := c.Unarchive(context.Background(), gone); err != nil {
		t.Fatalf("Unarchive failed: %v", err)
	}
	if len(c.Archived()) != 0 {
		t.Error("unarchived habit should leave the archived list")
	}
	if len(c.Active()) != 1 {
		t.Error("unarchive does not reinsert into the active list")
	}
	if h, _ := server.Habit(gone); h.Archived {
		t.Error("server still has the habit archived")
	}
}

func TestArchiveSwallowsReloadFailure(t *testing.T) {
	c, server := setupCollection(t)
	id := server.SeedHabit(models.Habit{Name: "Floss"})
	if err := c.Load(context.Background(), today); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	server.FailNext("GET habits/", 1)

	if err := c.Archive(context.Background(), id); err != nil {
		t.Fatalf("Archive should succeed even when the archived reload fails: %v", err)
	}
	if len(c.Active()) != 0 {
		t.Error("habit should leave the active list")
	}
}

func TestRemove(t *testing.T) {
	c, server := setupCollection(t)
	id := server.SeedHabit(models.Habit{Name: "Snack"})
	if err := c.Load(context.Background(), today); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := c.Remove(context.Background(), id); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := c.Get(id); ok {
		t.Error("removed habit still present locally")
	}
	if _, ok := server.Habit(id); ok {
		t.Error("removed habit still present on the server")
	}

	if err := c.Remove(context.Background(), id); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("second Remove = %v, want not found", err)
	}
}

func TestUpdate(t *testing.T) {
	c, server := setupCollection(t)
	tag := server.SeedTag("morning", "#F59E0B")
	id := server.SeedHabit(models.Habit{Name: "Read", Category: &models.CategoryRef{ID: 9, Name: "Mind"}})
	if err := c.Load(context.Background(), today); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	name := "Read 20 pages"
	none := int64(0)
	patch := models.HabitPatch{Name: &name, CategoryID: &none, TagIDs: []int64{tag.ID}}
	if err := c.Update(context.Background(), id, patch); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	h := mustGet(t, c, id)
	if h.Name != name || h.Category != nil || len(h.Tags) != 1 || h.Tags[0].ID != tag.ID {
		t.Errorf("local habit = %+v", h)
	}
	if h.Status != constants.StatusCommitted {
		t.Errorf("Status = %q, want committed", h.Status)
	}

	stored, _ := server.Habit(id)
	if stored.Name != name || stored.Category != nil {
		t.Errorf("server habit = %+v", stored)
	}
}

func TestUpdateFailureMarksHabit(t *testing.T) {
	c, server := setupCollection(t)
	id := server.SeedHabit(models.Habit{Name: "Read"})
	if err := c.Load(context.Background(), today); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	blank := " "
	if err := c.Update(context.Background(), id, models.HabitPatch{Name: &blank}); !errors.Is(err, api.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	h := mustGet(t, c, id)
	if h.Status != constants.StatusFailed || h.Name != "Read" {
		t.Errorf("habit = %+v, want failed with the old name", h)
	}
}
