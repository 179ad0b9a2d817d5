package domain

import "strings"

const (
	MinSkillLevel = 1
	MaxSkillLevel = 5
)

// ValidateMember checks a member before it enters the store.
func ValidateMember(m Member) error {
	if strings.TrimSpace(m.Name) == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if m.WeeklyAvailability <= 0 {
		return ValidationError{Field: "weekly_availability", Reason: "must be greater than 0"}
	}
	if m.CurrentWorkload < 0 {
		return ValidationError{Field: "current_workload", Reason: "must not be negative"}
	}
	for _, s := range m.Skills {
		if err := ValidateLevel("skills.level", s.Level); err != nil {
			return err
		}
	}
	return nil
}

// ValidateProject checks name and date window.
func ValidateProject(p Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.StartDate.IsZero() {
		return ValidationError{Field: "start_date", Reason: "required"}
	}
	if p.Deadline.IsZero() {
		return ValidationError{Field: "deadline", Reason: "required"}
	}
	if p.StartDate.After(p.Deadline) {
		return ValidationError{Field: "deadline", Reason: "start date is after deadline"}
	}
	return nil
}

// ValidateTask checks title, hours, enums, optional date window and skill levels.
func ValidateTask(t Task) error {
	if strings.TrimSpace(t.ProjectID) == "" {
		return ValidationError{Field: "project_id", Reason: "required"}
	}
	if strings.TrimSpace(t.Title) == "" {
		return ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if t.EstimatedHours <= 0 {
		return ValidationError{Field: "estimated_hours", Reason: "must be greater than 0"}
	}
	if t.Priority.Score() == 0 {
		return ValidationError{Field: "priority", Reason: "unknown priority " + string(t.Priority)}
	}
	if !t.Status.Valid() {
		return ValidationError{Field: "status", Reason: "unknown status " + string(t.Status)}
	}
	if t.StartDate != nil && t.Deadline != nil && t.StartDate.After(*t.Deadline) {
		return ValidationError{Field: "deadline", Reason: "start date is after deadline"}
	}
	for _, s := range t.RequiredSkills {
		if err := ValidateLevel("required_skills.required_level", s.RequiredLevel); err != nil {
			return err
		}
	}
	return nil
}

// ValidateLevel checks a proficiency level is within 1..5.
func ValidateLevel(field string, level int) error {
	if level < MinSkillLevel || level > MaxSkillLevel {
		return ValidationError{Field: field, Reason: "must be between 1 and 5"}
	}
	return nil
}
