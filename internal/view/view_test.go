package view

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"teamload/internal/domain"
	"teamload/internal/lifecycle"
)

type fakeReader struct {
	members  []domain.Member
	projects []domain.Project
	tasks    []domain.Task
	broken   map[string]bool
}

func (f fakeReader) ListMembers(ctx context.Context) ([]domain.Member, error) { return f.members, nil }
func (f fakeReader) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return f.projects, nil
}

func (f fakeReader) GetProject(ctx context.Context, id string) (domain.Project, error) {
	for _, p := range f.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Project{}, domain.NotFoundError{Kind: "project", ID: id}
}

func (f fakeReader) GetProjectTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	if f.broken[projectID] {
		return nil, errors.New("connection reset")
	}
	var out []domain.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f fakeReader) ListTasks(ctx context.Context, flt domain.TaskFilter) ([]domain.Task, error) {
	return f.tasks, nil
}

func day(s string) time.Time {
	d, _ := time.Parse(domain.DateLayout, s)
	return d
}

func fixture() fakeReader {
	ann, bob := "ann", "bob"
	s, e := day("2024-01-03"), day("2024-01-05")
	return fakeReader{
		members: []domain.Member{
			{ID: "ann", Name: "Ann", WeeklyAvailability: 40},
			{ID: "bob", Name: "Bob", WeeklyAvailability: 10},
		},
		projects: []domain.Project{
			{ID: "p1", Name: "Apollo", StartDate: day("2024-01-01"), Deadline: day("2024-01-11"), Status: domain.ProjectInProgress},
			{ID: "p2", Name: "Gemini", StartDate: day("2024-01-01"), Deadline: day("2024-02-01"), Status: domain.ProjectPlanning},
		},
		tasks: []domain.Task{
			{ID: "t1", ProjectID: "p1", Title: "a", EstimatedHours: 10, Status: domain.TaskCompleted, AssigneeID: &ann},
			{ID: "t2", ProjectID: "p1", Title: "b", EstimatedHours: 12, Status: domain.TaskInProgress, AssigneeID: &bob, StartDate: &s, Deadline: &e},
			{ID: "t3", ProjectID: "p1", Title: "c", EstimatedHours: 4, Status: domain.TaskTodo},
			{ID: "t4", ProjectID: "p2", Title: "d", EstimatedHours: 2, Status: domain.TaskTodo, AssigneeID: &ann},
		},
	}
}

func TestProjectDetailActionsAndNames(t *testing.T) {
	b := Builder{Store: fixture()}
	vc := Context{Page: PageProjects}.WithProject("p1")
	detail, err := b.ProjectDetail(context.Background(), vc)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(detail.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(detail.Tasks))
	}
	if detail.Tasks[1].AssigneeName != "Bob" {
		t.Fatalf("expected Bob, got %q", detail.Tasks[1].AssigneeName)
	}
	if !reflect.DeepEqual(detail.Tasks[1].Actions, []lifecycle.Action{lifecycle.ActionComplete}) {
		t.Fatalf("unexpected actions %v", detail.Tasks[1].Actions)
	}
	if !reflect.DeepEqual(detail.Tasks[2].Actions, []lifecycle.Action{lifecycle.ActionAssign}) {
		t.Fatalf("unexpected actions %v", detail.Tasks[2].Actions)
	}
	if detail.Summary.CompletedCount != 1 || detail.HoursOpen != 16 || detail.Unscheduled != 2 {
		t.Fatalf("unexpected summary %+v", detail)
	}
	if _, err := b.ProjectDetail(context.Background(), Context{}); err == nil {
		t.Fatalf("expected missing project id to fail")
	}
	if _, err := b.ProjectDetail(context.Background(), vc.WithProject("nope")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTimelineView(t *testing.T) {
	layout, err := Builder{Store: fixture()}.Timeline(context.Background(), Context{ProjectID: "p1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(layout.Rows) != 3 || layout.Rows[1].Label != "Bob" || !layout.Rows[2].Unassigned {
		t.Fatalf("unexpected rows %+v", layout.Rows)
	}
	bar := layout.Rows[1].Bars[0]
	if bar.LeftPercent != 20 || bar.WidthPercent != 20 {
		t.Fatalf("unexpected bar %+v", bar)
	}
}

func TestProjectsIsolateFailures(t *testing.T) {
	store := fixture()
	store.broken = map[string]bool{"p2": true}
	rows, err := Builder{Store: store}.Projects(context.Background())
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected both projects, got %d", len(rows))
	}
	if rows[0].Partial || rows[0].TaskCount != 3 {
		t.Fatalf("unexpected healthy row %+v", rows[0])
	}
	if !rows[1].Partial || rows[1].TaskCount != 0 {
		t.Fatalf("expected partial empty row, got %+v", rows[1])
	}
	if got := rows[0].CompletionPercent; got < 33.3 || got > 33.4 {
		t.Fatalf("unexpected completion %v", got)
	}
}

func TestDashboardAndStatistics(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	b := Builder{Store: fixture(), Now: func() time.Time { return now }}
	d, err := b.Dashboard(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if d.UnreadAlerts != 3 || !d.GeneratedAt.Equal(now) {
		t.Fatalf("unexpected dashboard %+v", d)
	}
	if d.Totals != (Totals{Projects: 2, Members: 2, Tasks: 4, CompletedTasks: 1}) {
		t.Fatalf("unexpected totals %+v", d.Totals)
	}
	if d.OverloadedMembers != 1 || d.TopWorkloads[0].ID != "bob" {
		t.Fatalf("expected bob first and overloaded, got %+v", d.TopWorkloads)
	}

	stats, err := b.Statistics(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.ByStatus[domain.TaskTodo] != 2 || stats.ByStatus[domain.TaskCompleted] != 1 {
		t.Fatalf("unexpected status counts %v", stats.ByStatus)
	}
	if stats.Team.OverloadedMembers != 1 || stats.Team.TotalWorkload != 14 {
		t.Fatalf("unexpected team stats %+v", stats.Team)
	}
}

func TestMemberListBands(t *testing.T) {
	rows, err := Builder{Store: fixture()}.Members(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Load.CurrentWorkload != 2 || rows[0].Load.Band != "low" {
		t.Fatalf("unexpected ann load %+v", rows[0].Load)
	}
	if rows[1].Load.Band != "danger" {
		t.Fatalf("unexpected bob band %s", rows[1].Load.Band)
	}
}
