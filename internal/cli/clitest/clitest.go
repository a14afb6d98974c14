// Package clitest builds a cli.Context against the fake API and a temporary SQLite store.
package clitest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/julianstephens/habitual/internal/api"
	"github.com/julianstephens/habitual/internal/apitest"
	"github.com/julianstephens/habitual/internal/cli"
	"github.com/julianstephens/habitual/internal/config"
	"github.com/julianstephens/habitual/internal/credentials"
	"github.com/julianstephens/habitual/internal/storage/sqlite"
)

const Password = "correct horse battery"

type Env struct {
	Ctx    *cli.Context
	Server *apitest.Server
	Store  *sqlite.Store

	mu      sync.Mutex
	expired []error
}

// New creates an environment with credentials kept in the SQLite store.
func New(t *testing.T) *Env {
	t.Helper()

	server := apitest.New(t)
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "habitual.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})

	cfg := config.Default()
	cfg.APIURL = server.BaseURL()
	cfg.Storage = store.GetConfigPath()
	cfg.Credentials = "storage"
	cfg.SavingDelay = 0

	env := &Env{Server: server, Store: store}
	ctx, err := cli.NewContext(cfg, store, credentials.NewStorageBackend(store),
		api.WithSessionExpiredHook(env.recordExpired))
	if err != nil {
		t.Fatalf("failed to build context: %v", err)
	}
	env.Ctx = ctx
	return env
}

func (e *Env) recordExpired(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expired = append(e.expired, err)
}

// Expired returns the errors passed to the session expired hook.
func (e *Env) Expired() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]error(nil), e.expired...)
}

// SignIn creates an account on the fake server and logs in through the session manager.
func (e *Env) SignIn(t *testing.T, email string) {
	t.Helper()
	e.Server.AddUser(email, Password)
	if _, err := e.Ctx.Session.Login(context.Background(), email, Password); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}
