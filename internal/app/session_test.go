package app

import (
	"context"
	"testing"
	"time"

	"teamload/internal/config"
	"teamload/internal/domain"
	"teamload/internal/logging"
)

func openSession(t *testing.T) *Session {
	t.Helper()
	cfg := config.Default()
	cfg.Alerts.RefreshInterval = 10 * time.Millisecond
	s, err := Open(context.Background(), t.TempDir(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCatalogSwapsOnCreate(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)
	before := s.Skills()
	if len(before.Skills()) != 0 {
		t.Fatalf("expected empty catalog")
	}
	skill, err := s.CreateSkill(ctx, "Go")
	if err != nil {
		t.Fatalf("create skill: %v", err)
	}
	after := s.Skills()
	if after == before {
		t.Fatalf("expected a new catalog snapshot")
	}
	if after.Name(skill.ID) != "Go" {
		t.Fatalf("expected Go in catalog")
	}
	if len(before.Skills()) != 0 {
		t.Fatalf("old snapshot was mutated")
	}
}

func TestAlertCountFollowsMutations(t *testing.T) {
	ctx := context.Background()
	s := openSession(t)
	p, err := s.Repo.CreateProject(ctx, domain.Project{Name: "P", StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Deadline: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatal(err)
	}
	m, _ := s.Repo.CreateMember(ctx, domain.Member{Name: "M", WeeklyAvailability: 1})
	task, _ := s.Repo.CreateTask(ctx, domain.Task{ProjectID: p.ID, Title: "big", EstimatedHours: 5})
	if _, err := s.Engine.AssignTask(ctx, task.ID, m.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if s.Alerts.Count() != 1 {
		t.Fatalf("expected overload alert counted, got %d", s.Alerts.Count())
	}
	d, err := s.Dashboard(ctx)
	if err != nil || d.UnreadAlerts != 1 {
		t.Fatalf("unexpected dashboard %+v err=%v", d, err)
	}
	if n, err := s.Alerts.MarkAllRead(ctx); err != nil || n != 0 {
		t.Fatalf("mark all read: %d %v", n, err)
	}
}

func TestStartAndClose(t *testing.T) {
	s := openSession(t)
	s.Start(context.Background())
	deadline := time.Now().Add(time.Second)
	for s.Alerts.RefreshedAt().IsZero() {
		if time.Now().After(deadline) {
			t.Fatalf("counter never refreshed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCatalogResolveByName(t *testing.T) {
	c := NewCatalog([]domain.Skill{{ID: "s1", Name: "PostgreSQL"}})
	if s, ok := c.Resolve("postgresql"); !ok || s.ID != "s1" {
		t.Fatalf("expected name match, got %+v %v", s, ok)
	}
	if s, ok := c.Resolve("s1"); !ok || s.Name != "PostgreSQL" {
		t.Fatalf("expected id match, got %+v %v", s, ok)
	}
	if _, ok := c.Resolve("Go"); ok {
		t.Fatalf("unexpected match for unknown skill")
	}
}
