package db

import (
	"context"
	"testing"

	"github.com/randalmurphal/tally/internal/config"
)

// NewTestDB creates an in-memory database with tables, one user and one
// installation recorded in its configuration. The database is closed
// when the test completes.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    d := db.NewTestDB(t)
//	    // use d...
//	}
func NewTestDB(t testing.TB) *DB {
	t.Helper()

	d, err := OpenInMemory(WithConfiguration(config.DefaultConfiguration()))
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})

	if err := prepare(context.Background(), d, "test", "test"); err != nil {
		t.Fatalf("prepare test db: %v", err)
	}
	return d
}

// prepare creates the tables of a fresh database and registers a user and
// an installation in its configuration.
func prepare(ctx context.Context, d *DB, userName, installationName string) error {
	if err := d.CreateTables(ctx); err != nil {
		return err
	}
	u, err := d.MakeUser(ctx, userName)
	if err != nil {
		return err
	}
	inst, err := d.MakeInstallation(ctx, installationName, u.ID)
	if err != nil {
		return err
	}
	d.cfg.UserID, d.cfg.UserName = u.ID, u.Name
	d.cfg.InstallationID, d.cfg.InstallationName = inst.ID, inst.Name
	return nil
}
