package server

import (
	"strings"
	"time"

	"teamload/internal/domain"
)

// Request payloads

type CreateSkillRequest struct {
	Name string `json:"name" minLength:"1"`
}

type SkillLevelRequest struct {
	SkillID string `json:"skill_id"`
	Level   int    `json:"level"`
}

type MemberRequest struct {
	Name               string              `json:"name"`
	Email              string              `json:"email,omitempty"`
	WeeklyAvailability float64             `json:"weekly_availability"`
	Skills             []SkillLevelRequest `json:"skills,omitempty"`
}

type LevelRequest struct {
	Level int `json:"level"`
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"start_date" format:"date"`
	Deadline    string `json:"deadline" format:"date"`
}

type UpdateProjectRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	StartDate   string               `json:"start_date" format:"date"`
	Deadline    string               `json:"deadline" format:"date"`
	Status      domain.ProjectStatus `json:"status,omitempty" enum:"PLANNING,IN_PROGRESS,COMPLETED"`
}

type RequiredSkillRequest struct {
	SkillID       string `json:"skill_id"`
	RequiredLevel int    `json:"required_level"`
}

type CreateTaskRequest struct {
	ProjectID      string                 `json:"project_id"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description,omitempty"`
	EstimatedHours float64                `json:"estimated_hours"`
	Priority       domain.Priority        `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,URGENT"`
	StartDate      *string                `json:"start_date,omitempty" format:"date"`
	Deadline       *string                `json:"deadline,omitempty" format:"date"`
	AssigneeID     string                 `json:"assignee_id,omitempty"`
	RequiredSkills []RequiredSkillRequest `json:"required_skills,omitempty"`
}

// UpdateTaskRequest replaces every editable field of a task.
type UpdateTaskRequest struct {
	Title          string                 `json:"title"`
	Description    string                 `json:"description,omitempty"`
	EstimatedHours float64                `json:"estimated_hours"`
	Priority       domain.Priority        `json:"priority" enum:"LOW,MEDIUM,HIGH,URGENT"`
	Status         domain.TaskStatus      `json:"status" enum:"TODO,IN_PROGRESS,COMPLETED"`
	StartDate      *string                `json:"start_date,omitempty" format:"date"`
	Deadline       *string                `json:"deadline,omitempty" format:"date"`
	AssigneeID     *string                `json:"assignee_id,omitempty"`
	RequiredSkills []RequiredSkillRequest `json:"required_skills,omitempty"`
}

type AssignTaskRequest struct {
	MemberID string `json:"member_id"`
}

type RequiredLevelRequest struct {
	RequiredLevel int `json:"required_level"`
}

// Responses

type AlertCountResponse struct {
	Unread      int       `json:"unread"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

type ReconcileResponse struct {
	ProjectID string               `json:"project_id"`
	Status    domain.ProjectStatus `json:"status"`
	Changed   bool                 `json:"changed"`
}

type SyncResponse struct {
	Corrected int `json:"corrected"`
}

// Conversions

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return t, domain.ValidationError{Field: field, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

func parseOptionalDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func memberSkills(in []SkillLevelRequest) []domain.MemberSkill {
	out := make([]domain.MemberSkill, 0, len(in))
	for _, s := range in {
		out = append(out, domain.MemberSkill{SkillID: s.SkillID, Level: s.Level})
	}
	return out
}

func taskSkills(in []RequiredSkillRequest) []domain.TaskSkill {
	out := make([]domain.TaskSkill, 0, len(in))
	for _, s := range in {
		out = append(out, domain.TaskSkill{SkillID: s.SkillID, RequiredLevel: s.RequiredLevel})
	}
	return out
}
