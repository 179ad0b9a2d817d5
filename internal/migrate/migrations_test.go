package migrate

import (
	"context"
	"testing"

	"teamload/internal/db"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if v, err := Current(ctx, conn); err != nil || v != 0 {
		t.Fatalf("expected fresh db at version 0, got %d err=%v", v, err)
	}
	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, conn); err != nil {
			t.Fatalf("migrate run %d: %v", i, err)
		}
	}
	latest, err := Latest()
	if err != nil {
		t.Fatal(err)
	}
	v, err := Current(ctx, conn)
	if err != nil {
		t.Fatal(err)
	}
	if v != latest || v == 0 {
		t.Fatalf("expected version %d, got %d", latest, v)
	}
	for _, table := range []string{"members", "skills", "member_skills", "projects", "tasks", "task_skills", "alerts", "events"} {
		var name string
		if err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}
