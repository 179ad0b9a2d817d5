package timeline

import (
	"math"
	"testing"
	"time"

	"teamload/internal/domain"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func scheduled(t *testing.T, id, assignee, start, end string) domain.Task {
	s, e := date(t, start), date(t, end)
	task := domain.Task{ID: id, Title: id, Status: domain.TaskTodo, StartDate: &s, Deadline: &e}
	if assignee != "" {
		task.AssigneeID = &assignee
	}
	return task
}

func project(t *testing.T, start, end string) domain.Project {
	return domain.Project{ID: "p1", StartDate: date(t, start), Deadline: date(t, end)}
}

func TestBarGeometry(t *testing.T) {
	layout := Build(project(t, "2024-01-01", "2024-01-11"), []domain.Task{scheduled(t, "t1", "m1", "2024-01-03", "2024-01-05")}, nil)
	if layout.TotalDays != 10 {
		t.Fatalf("expected 10 days, got %d", layout.TotalDays)
	}
	bar := layout.Rows[0].Bars[0]
	if bar.LeftPercent != 20 || bar.WidthPercent != 20 {
		t.Fatalf("expected 20/20, got %v/%v", bar.LeftPercent, bar.WidthPercent)
	}
}

func TestTaskBeforeWindowClampsLeft(t *testing.T) {
	layout := Build(project(t, "2024-01-10", "2024-01-20"), []domain.Task{scheduled(t, "t1", "m1", "2024-01-05", "2024-01-12")}, nil)
	if got := layout.Rows[0].Bars[0].LeftPercent; got != 0 {
		t.Fatalf("expected left 0, got %v", got)
	}
}

func TestTasksInsideWindowFit(t *testing.T) {
	p := project(t, "2024-03-01", "2024-03-31")
	tasks := []domain.Task{
		scheduled(t, "a", "m1", "2024-03-01", "2024-03-31"),
		scheduled(t, "b", "m1", "2024-03-15", "2024-03-31"),
		scheduled(t, "c", "m2", "2024-03-30", "2024-03-31"),
	}
	for _, row := range Build(p, tasks, nil).Rows {
		for _, bar := range row.Bars {
			if bar.LeftPercent+bar.WidthPercent > 100+1e-9 {
				t.Fatalf("bar %s overflows: %v+%v", bar.TaskID, bar.LeftPercent, bar.WidthPercent)
			}
		}
	}
}

func TestDegenerateWindow(t *testing.T) {
	layout := Build(project(t, "2024-01-01", "2024-01-01"), []domain.Task{scheduled(t, "t1", "m1", "2024-01-01", "2024-01-01")}, nil)
	if layout.TotalDays != 1 {
		t.Fatalf("expected 1 day, got %d", layout.TotalDays)
	}
	bar := layout.Rows[0].Bars[0]
	if math.IsNaN(bar.LeftPercent) || math.IsInf(bar.WidthPercent, 0) {
		t.Fatalf("degenerate window produced %v/%v", bar.LeftPercent, bar.WidthPercent)
	}
}

func TestRowOrderAndUnassigned(t *testing.T) {
	unscheduled := domain.Task{ID: "u2", Status: domain.TaskTodo}
	tasks := []domain.Task{
		scheduled(t, "t1", "bob", "2024-01-02", "2024-01-03"),
		scheduled(t, "u1", "", "2024-01-02", "2024-01-04"),
		scheduled(t, "t2", "ann", "2024-01-02", "2024-01-03"),
		scheduled(t, "t3", "bob", "2024-01-04", "2024-01-05"),
		unscheduled,
	}
	layout := Build(project(t, "2024-01-01", "2024-01-11"), tasks, map[string]string{"bob": "Bob"})
	if len(layout.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(layout.Rows))
	}
	if layout.Rows[0].Label != "Bob" || layout.Rows[1].Label != "ann" || !layout.Rows[2].Unassigned {
		t.Fatalf("unexpected row order %+v", layout.Rows)
	}
	if len(layout.Rows[0].Bars) != 2 {
		t.Fatalf("expected bob to have 2 bars, got %d", len(layout.Rows[0].Bars))
	}
	if len(layout.Rows[2].Bars) != 1 || layout.Rows[2].Unscheduled != 1 {
		t.Fatalf("unexpected unassigned row %+v", layout.Rows[2])
	}
}

func TestNoUnassignedRowWithoutUnassignedTasks(t *testing.T) {
	layout := Build(project(t, "2024-01-01", "2024-01-11"), []domain.Task{scheduled(t, "t1", "m1", "2024-01-02", "2024-01-03")}, nil)
	for _, row := range layout.Rows {
		if row.Unassigned {
			t.Fatalf("unexpected Unassigned row")
		}
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	tasks := []domain.Task{scheduled(t, "t1", "", "2023-12-25", "2024-01-03")}
	before := *tasks[0].StartDate
	Build(project(t, "2024-01-01", "2024-01-11"), tasks, nil)
	if !tasks[0].StartDate.Equal(before) || tasks[0].Assigned() {
		t.Fatalf("input task mutated")
	}
}
