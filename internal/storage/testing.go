package storage

import (
	"context"
	"testing"

	"github.com/randalmurphal/tally/internal/config"
)

// NewTestBackend creates a connected in-memory backend with tables, a
// user and an installation. The backend is closed when the test completes.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    backend := storage.NewTestBackend(t)
//	    // use backend...
//	}
func NewTestBackend(t testing.TB) *DatabaseBackend {
	t.Helper()
	ctx := context.Background()

	cfg := config.DefaultConfiguration()
	b, err := NewBackend(config.BackendMemory, Options{Configuration: cfg})
	if err != nil {
		t.Fatalf("create test backend: %v", err)
	}
	backend := b.(*DatabaseBackend)
	if err := backend.Connect(ctx); err != nil {
		t.Fatalf("connect test backend: %v", err)
	}
	t.Cleanup(func() {
		_ = backend.Close()
	})

	if err := backend.CreateTables(ctx); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	u, err := backend.MakeUser(ctx, "test")
	if err != nil {
		t.Fatalf("make user: %v", err)
	}
	inst, err := backend.MakeInstallation(ctx, "test", u.ID)
	if err != nil {
		t.Fatalf("make installation: %v", err)
	}
	cfg.UserID, cfg.UserName = u.ID, u.Name
	cfg.InstallationID, cfg.InstallationName = inst.ID, inst.Name

	return backend
}
