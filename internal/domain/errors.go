package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound matches every NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// NotFoundError reports an unresolved entity id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IncompetentAssignmentError is returned when a member fails a task's skill gate.
// Actual is 0 and Absent is true when the member lacks the skill entirely.
type IncompetentAssignmentError struct {
	TaskID    string
	MemberID  string
	SkillID   string
	SkillName string
	Required  int
	Actual    int
	Absent    bool
}

func (e IncompetentAssignmentError) Error() string {
	skill := e.SkillName
	if skill == "" {
		skill = e.SkillID
	}
	if e.Absent {
		return fmt.Sprintf("member %s cannot take task %s: skill %s level %d required, skill absent", e.MemberID, e.TaskID, skill, e.Required)
	}
	return fmt.Sprintf("member %s cannot take task %s: skill %s level %d required, has %d", e.MemberID, e.TaskID, skill, e.Required, e.Actual)
}

// InvalidTransitionError is returned when a status precondition is violated.
type InvalidTransitionError struct {
	TaskID string
	From   TaskStatus
	To     TaskStatus
	Reason string
}

func (e InvalidTransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("task %s (%s): %s", e.TaskID, e.From, e.Reason)
	}
	return fmt.Sprintf("task %s: invalid transition %s -> %s: %s", e.TaskID, e.From, e.To, e.Reason)
}

// ValidationError reports malformed input on a single field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
