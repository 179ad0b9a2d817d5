package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNotFoundMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("load: %w", NotFoundError{Kind: "task", ID: "t1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected errors.Is ErrNotFound")
	}
	var nf NotFoundError
	if !errors.As(err, &nf) || nf.ID != "t1" {
		t.Fatalf("expected NotFoundError with id, got %v", err)
	}
}

func TestIncompetentMessageNamesSkill(t *testing.T) {
	err := IncompetentAssignmentError{TaskID: "t", MemberID: "m", SkillID: "s", SkillName: "SQL", Required: 4, Actual: 2}
	if msg := err.Error(); !strings.Contains(msg, "SQL level 4") || !strings.Contains(msg, "has 2") {
		t.Fatalf("unexpected message %q", msg)
	}
	err = IncompetentAssignmentError{SkillID: "s1", Required: 3, Absent: true}
	if msg := err.Error(); !strings.Contains(msg, "s1") || !strings.Contains(msg, "absent") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestValidateTask(t *testing.T) {
	day := func(d int) *time.Time {
		v := time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	ok := Task{ProjectID: "p", Title: "x", EstimatedHours: 1, Priority: PriorityLow, Status: TaskTodo}
	cases := []struct {
		name  string
		edit  func(*Task)
		field string
	}{
		{"valid", func(*Task) {}, ""},
		{"blank title", func(t *Task) { t.Title = "  " }, "title"},
		{"zero hours", func(t *Task) { t.EstimatedHours = 0 }, "estimated_hours"},
		{"unknown priority", func(t *Task) { t.Priority = "SOON" }, "priority"},
		{"unknown status", func(t *Task) { t.Status = "DONE" }, "status"},
		{"start after deadline", func(t *Task) { t.StartDate, t.Deadline = day(5), day(3) }, "deadline"},
		{"level too high", func(t *Task) { t.RequiredSkills = []TaskSkill{{SkillID: "s", RequiredLevel: 6}} }, "required_skills.required_level"},
	}
	for _, tc := range cases {
		task := ok
		tc.edit(&task)
		err := ValidateTask(task)
		if tc.field == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		var ve ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field {
			t.Fatalf("%s: expected validation error on %s, got %v", tc.name, tc.field, err)
		}
	}
}

func TestValidateMemberAndProject(t *testing.T) {
	if err := ValidateMember(Member{Name: "A", WeeklyAvailability: 0}); err == nil {
		t.Fatalf("expected error for zero availability")
	}
	if err := ValidateMember(Member{Name: "A", WeeklyAvailability: 40, Skills: []MemberSkill{{SkillID: "s", Level: 0}}}); err == nil {
		t.Fatalf("expected error for level 0")
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := ValidateProject(Project{Name: "P", StartDate: start, Deadline: start}); err != nil {
		t.Fatalf("same-day window must be valid: %v", err)
	}
	if err := ValidateProject(Project{Name: "P", StartDate: start, Deadline: start.AddDate(0, 0, -1)}); err == nil {
		t.Fatalf("expected error for deadline before start")
	}
}

func TestPriorityScoreOrder(t *testing.T) {
	order := []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
	for i, p := range order {
		if p.Score() != i+1 {
			t.Fatalf("%s: score %d, want %d", p, p.Score(), i+1)
		}
	}
	if Priority("NONE").Score() != 0 {
		t.Fatalf("unknown priority must score 0")
	}
}
