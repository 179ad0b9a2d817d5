package domain

import "time"

type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "PLANNING"
	ProjectInProgress ProjectStatus = "IN_PROGRESS"
	ProjectCompleted  ProjectStatus = "COMPLETED"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Outstanding reports whether work in this status still counts against capacity.
func (s TaskStatus) Outstanding() bool {
	return s == TaskTodo || s == TaskInProgress
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Score orders priorities: LOW=1 … URGENT=4, unknown=0.
func (p Priority) Score() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type AlertType string

const (
	AlertOverload          AlertType = "OVERLOAD"
	AlertDeadline          AlertType = "DEADLINE"
	AlertAssignmentFailure AlertType = "ASSIGNMENT_FAILURE"
	AlertInfo              AlertType = "INFO"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MemberSkill struct {
	SkillID   string `json:"skill_id"`
	SkillName string `json:"skill_name,omitempty"`
	Level     int    `json:"level" minimum:"1" maximum:"5"`
}

type Member struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Email              string        `json:"email"`
	WeeklyAvailability float64       `json:"weekly_availability"`
	CurrentWorkload    float64       `json:"current_workload"`
	Skills             []MemberSkill `json:"skills"`
	CreatedAt          string        `json:"created_at" format:"date-time"`
}

// SkillLevel returns the member's proficiency for skillID and whether the skill is held.
func (m Member) SkillLevel(skillID string) (int, bool) {
	for _, s := range m.Skills {
		if s.SkillID == skillID {
			return s.Level, true
		}
	}
	return 0, false
}

type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	StartDate   time.Time     `json:"start_date"`
	Deadline    time.Time     `json:"deadline"`
	Status      ProjectStatus `json:"status" enum:"PLANNING,IN_PROGRESS,COMPLETED"`
	CreatedAt   string        `json:"created_at" format:"date-time"`
}

type TaskSkill struct {
	SkillID       string `json:"skill_id"`
	SkillName     string `json:"skill_name,omitempty"`
	RequiredLevel int    `json:"required_level" minimum:"1" maximum:"5"`
}

type Task struct {
	ID             string      `json:"id"`
	ProjectID      string      `json:"project_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	EstimatedHours float64     `json:"estimated_hours"`
	Priority       Priority    `json:"priority" enum:"LOW,MEDIUM,HIGH,URGENT"`
	Status         TaskStatus  `json:"status" enum:"TODO,IN_PROGRESS,COMPLETED"`
	StartDate      *time.Time  `json:"start_date,omitempty"`
	Deadline       *time.Time  `json:"deadline,omitempty"`
	AssigneeID     *string     `json:"assignee_id,omitempty"`
	RequiredSkills []TaskSkill `json:"required_skills"`
	CreatedAt      string      `json:"created_at" format:"date-time"`
	UpdatedAt      string      `json:"updated_at" format:"date-time"`
}

// Assigned reports whether the task has an assignee.
func (t Task) Assigned() bool {
	return t.AssigneeID != nil && *t.AssigneeID != ""
}

// Scheduled reports whether the task carries both a start date and a deadline.
func (t Task) Scheduled() bool {
	return t.StartDate != nil && t.Deadline != nil
}

type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type" enum:"OVERLOAD,DEADLINE,ASSIGNMENT_FAILURE,INFO"`
	Severity  Severity  `json:"severity" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	MemberID  *string   `json:"member_id,omitempty"`
	ProjectID *string   `json:"project_id,omitempty"`
	TaskID    *string   `json:"task_id,omitempty"`
	CreatedAt string    `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}

// TaskFilter narrows task listings. Zero fields match everything.
type TaskFilter struct {
	ProjectID  string
	AssigneeID string
	Status     TaskStatus
	// Unassigned restricts the listing to tasks without an assignee.
	Unassigned bool
}

// AllocationResult summarises an auto-allocation run over one project.
type AllocationResult struct {
	AssignedCount int    `json:"assigned_count"`
	FailedCount   int    `json:"failed_count"`
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	// Assignments lists the task/member pairs committed by the run.
	Assignments []Assignment `json:"assignments,omitempty"`
}

type Assignment struct {
	TaskID   string `json:"task_id"`
	MemberID string `json:"member_id"`
}

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"
