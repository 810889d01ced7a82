package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// --- Tests ---

func TestNew_DoesNotDial(t *testing.T) {
	// Port 1 is never serving MySQL. Construction must still succeed.
	repo, err := New(Config{DSN: "user:pass@tcp(127.0.0.1:1)/passbolt?parseTime=true"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	defer repo.Close()
}

func TestCheck_UnreachableServer(t *testing.T) {
	repo, err := New(Config{
		DSN:          "user:pass@tcp(127.0.0.1:1)/passbolt?parseTime=true",
		TablesPrefix: "pb_",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	checks := repo.Check(ctx)
	if checks.Connect {
		t.Error("Connect = true against a dead server")
	}
	if checks.SupportedBackend || checks.TablesCount || checks.DefaultContent {
		t.Errorf("facts leaked past a failed connect: %+v", checks)
	}
	if !checks.TablesPrefix {
		t.Error("TablesPrefix = false, want true: prefix is a config fact, not a connectivity one")
	}
}

func TestCountAdmins_UnreachableServer(t *testing.T) {
	repo, err := New(Config{DSN: "user:pass@tcp(127.0.0.1:1)/passbolt"}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := repo.CountAdmins(ctx); err == nil {
		t.Error("CountAdmins() error = nil against a dead server")
	}
}

func TestTable_AppliesPrefix(t *testing.T) {
	repo := &Repo{prefix: "pb_"}
	if got := repo.table("users"); got != "pb_users" {
		t.Errorf("table(users) = %q, want pb_users", got)
	}

	repo = &Repo{}
	if got := repo.table("users"); got != "users" {
		t.Errorf("table(users) = %q, want users", got)
	}
}

func TestMissingMigrations(t *testing.T) {
	none := missingMigrations(migrationRegister)
	if len(none) != 0 {
		t.Errorf("missingMigrations(all applied) = %v, want none", none)
	}

	partial := missingMigrations(migrationRegister[:len(migrationRegister)-2])
	if len(partial) != 2 {
		t.Fatalf("missingMigrations(two short) = %v, want 2 entries", partial)
	}
	if partial[0] != migrationRegister[len(migrationRegister)-2] {
		t.Errorf("missing[0] = %q, want register order preserved", partial[0])
	}

	// Order of applied rows must not matter.
	shuffled := []string{
		migrationRegister[3],
		migrationRegister[0],
		migrationRegister[2],
		migrationRegister[1],
		migrationRegister[5],
		migrationRegister[4],
	}
	if got := missingMigrations(shuffled); len(got) != 0 {
		t.Errorf("missingMigrations(shuffled) = %v, want none", got)
	}

	// Unknown applied versions are ignored rather than treated as drift.
	extra := append([]string{"19990101000000_ancient"}, migrationRegister...)
	if got := missingMigrations(extra); len(got) != 0 {
		t.Errorf("missingMigrations(extra applied) = %v, want none", got)
	}
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("bad dsn")
	u := NewUnavailable(cause, zap.NewNop())

	checks := u.Check(context.Background())
	if checks == nil {
		t.Fatal("Check() = nil")
	}
	if checks.Connect || checks.SupportedBackend || checks.TablesCount || checks.DefaultContent || checks.TablesPrefix {
		t.Errorf("Check() = %+v, want all facts negative", checks)
	}

	if _, err := u.CountAdmins(context.Background()); !errors.Is(err, cause) {
		t.Errorf("CountAdmins() error = %v, want %v", err, cause)
	}
	if _, err := u.SchemaUpToDate(context.Background()); !errors.Is(err, cause) {
		t.Errorf("SchemaUpToDate() error = %v, want %v", err, cause)
	}
	if _, err := u.OrganizationSetting(context.Background(), "any"); !errors.Is(err, cause) {
		t.Errorf("OrganizationSetting() error = %v, want %v", err, cause)
	}
	if err := u.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
