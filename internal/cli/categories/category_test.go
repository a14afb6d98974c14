package categories

import (
	"errors"
	"testing"

	"github.com/julianstephens/habitual/internal/apitest"
	"github.com/julianstephens/habitual/internal/categories"
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

func TestCategoryListCmd(t *testing.T) {
	env := signedIn(t)
	env.Server.SeedCategory("Mind", apitest.Order(1))
	env.Server.SeedCategory("Body", apitest.Order(0))

	if err := (&CategoryListCmd{}).Run(env.Ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	order := env.Ctx.Categories.Order()
	if len(order) != 3 || order[2] != constants.UncategorizedID {
		t.Errorf("order = %v", order)
	}
	if cat, _ := env.Ctx.Categories.Get(mustID(t, order[0])); cat.Name != "Body" {
		t.Errorf("first category = %q, want Body", cat.Name)
	}
}

func TestCategoryListCmd_RequiresSession(t *testing.T) {
	env := clitest.New(t)
	if err := (&CategoryListCmd{}).Run(env.Ctx); !errors.Is(err, cli.ErrNotSignedIn) {
		t.Errorf("err = %v, want ErrNotSignedIn", err)
	}
}

func TestCategoryAddAppends(t *testing.T) {
	env := signedIn(t)
	env.Server.SeedCategory("Body", apitest.Order(0))

	if err := (&CategoryAddCmd{Name: "  Mind "}).Run(env.Ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	stored := env.Server.Categories()
	if len(stored) != 2 || stored[1].Name != "Mind" || stored[1].SortOrder() != 1 {
		t.Errorf("stored = %+v", stored)
	}
}

func TestCategoryRenameAndDelete(t *testing.T) {
	env := signedIn(t)
	cat := env.Server.SeedCategory("Bdy", apitest.Order(0))
	habit := env.Server.SeedHabit(models.Habit{Name: "Run", Category: &models.CategoryRef{ID: cat.ID}})

	if err := (&CategoryRenameCmd{ID: cat.ID, Name: "Body"}).Run(env.Ctx); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if got := env.Server.Categories()[0].Name; got != "Body" {
		t.Errorf("name = %q, want Body", got)
	}

	if err := (&CategoryDeleteCmd{ID: cat.ID}).Run(env.Ctx); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(env.Server.Categories()) != 0 {
		t.Error("category still stored")
	}
	if h, _ := env.Server.Habit(habit); h.Category != nil {
		t.Errorf("habit still categorized: %+v", h.Category)
	}
}

func TestCategoryMoveCmd(t *testing.T) {
	env := signedIn(t)
	a := env.Server.SeedCategory("A", apitest.Order(0))
	b := env.Server.SeedCategory("B", apitest.Order(1))
	c := env.Server.SeedCategory("C", apitest.Order(2))

	cmd := &CategoryMoveCmd{Key: models.FormatID(c.ID), Position: 1}
	if err := cmd.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if err := cmd.Run(env.Ctx); err != nil {
		t.Fatalf("move failed: %v", err)
	}

	orders := map[int64]int{}
	for _, cat := range env.Server.Categories() {
		orders[cat.ID] = cat.SortOrder()
	}
	if orders[c.ID] != 0 || orders[a.ID] != 1 || orders[b.ID] != 2 {
		t.Errorf("server orders = %v", orders)
	}

	mirrored, err := env.Ctx.Prefs.CategoryOrder()
	if err != nil {
		t.Fatalf("CategoryOrder failed: %v", err)
	}
	if len(mirrored) != 4 || mirrored[0] != models.FormatID(c.ID) {
		t.Errorf("mirrored = %v", mirrored)
	}
}

func TestCategoryMoveCmd_UnknownKey(t *testing.T) {
	env := signedIn(t)
	err := (&CategoryMoveCmd{Key: "999", Position: 1}).Run(env.Ctx)
	if !errors.Is(err, categories.ErrUnknownKey) {
		t.Errorf("err = %v, want ErrUnknownKey", err)
	}
	if (&CategoryMoveCmd{Key: "1", Position: 0}).Validate() == nil {
		t.Error("position 0 should be rejected")
	}
}

func mustID(t *testing.T, key string) int64 {
	t.Helper()
	id, err := models.ParseID(key)
	if err != nil {
		t.Fatalf("bad key %q: %v", key, err)
	}
	return id
}

func TestCategoryRenameTrimsName(t *testing.T) {
	env := signedIn(t)
	cat := env.Server.SeedCategory("Bdy", apitest.Order(0))

	if err := (&CategoryRenameCmd{ID: cat.ID, Name: "  Body "}).Run(env.Ctx); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if got := env.Server.Categories()[0].Name; got != "Body" {
		t.Errorf("name = %q, want Body", got)
	}
}

func TestCategoryDeleteSucceedsWhenReloadFails(t *testing.T) {
	env := signedIn(t)
	cat := env.Server.SeedCategory("Body", apitest.Order(0))
	env.Server.FailNext("GET categories/", 1)

	if err := (&CategoryDeleteCmd{ID: cat.ID}).Run(env.Ctx); err != nil {
		t.Fatalf("delete should report success once the server accepted it: %v", err)
	}
	if len(env.Server.Categories()) != 0 {
		t.Error("category still stored")
	}
}

func TestCategoryDeleteMissingFails(t *testing.T) {
	env := signedIn(t)
	if err := (&CategoryDeleteCmd{ID: 404}).Run(env.Ctx); err == nil {
		t.Error("deleting an unknown category should fail")
	}
}
