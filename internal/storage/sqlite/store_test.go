package sqlite

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/julianstephens/habitual/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "nested", "habitual.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSetAndGet(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.Get("language"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get on empty store = %v, want ErrNotFound", err)
	}

	if err := store.Set("language", "fr"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("language", "de"); err != nil {
		t.Fatalf("Set (overwrite) failed: %v", err)
	}

	value, err := store.Get("language")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "de" {
		t.Errorf("expected de, got %q", value)
	}
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Delete("missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete missing key = %v, want ErrNotFound", err)
	}

	if err := store.Set("darkMode", "true"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete("darkMode"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get("darkMode"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestAll(t *testing.T) {
	store := setupTestStore(t)

	want := map[string]string{
		"categoryOrder": `["3","uncategorized"]`,
		"language":      "ja",
	}
	for k, v := range want {
		if err := store.Set(k, v); err != nil {
			t.Fatalf("Set %s failed: %v", k, err)
		}
	}

	got, err := store.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("All()[%s] = %q, want %q", k, got[k], v)
		}
	}
}

func TestLoadPersistedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habitual.db")

	store := NewStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := store.Set("language", "pt"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := NewStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer reopened.Close()

	value, err := reopened.Get("language")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "pt" {
		t.Errorf("expected pt, got %q", value)
	}
}

func TestLoadWithoutInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "absent.db"))
	if err := store.Load(); err == nil {
		t.Fatal("Load should fail when the database file does not exist")
	}
}

func TestInitIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habitual.db")
	for i := 0; i < 2; i++ {
		store := NewStore(path)
		if err := store.Init(); err != nil {
			t.Fatalf("Init #%d failed: %v", i+1, err)
		}
		store.Close()
	}
}

func TestClosedStore(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "habitual.db"))
	if _, err := store.Get("language"); err == nil {
		t.Error("Get on unopened store should fail")
	}
	if err := store.Set("language", "en"); err == nil {
		t.Error("Set on unopened store should fail")
	}
}

func TestSchemaVersion(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "habitual.db"))
	if _, _, err := store.SchemaVersion(); err == nil {
		t.Error("SchemaVersion should fail before the store is opened")
	}
	if err := store.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer store.Close()

	current, latest, err := store.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if current != latest || latest < 1 {
		t.Errorf("SchemaVersion = (%d, %d), want equal and at least 1", current, latest)
	}
}
