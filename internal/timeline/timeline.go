// Package timeline lays out a project's scheduled tasks as horizontal bars
// grouped by assignee.
package timeline

import (
	"math"
	"time"

	"teamload/internal/domain"
)

// UnassignedLabel names the synthetic row holding tasks without an assignee.
const UnassignedLabel = "Unassigned"

const day = 24 * time.Hour

type Bar struct {
	TaskID       string            `json:"task_id"`
	Title        string            `json:"title"`
	Status       domain.TaskStatus `json:"status"`
	Priority     domain.Priority   `json:"priority"`
	Hours        float64           `json:"estimated_hours"`
	Start        time.Time         `json:"start"`
	End          time.Time         `json:"end"`
	LeftPercent  float64           `json:"left_percent"`
	WidthPercent float64           `json:"width_percent"`
}

type Row struct {
	MemberID   string `json:"member_id,omitempty"`
	Label      string `json:"label"`
	Unassigned bool   `json:"unassigned"`
	Bars       []Bar  `json:"bars"`
	// Unscheduled counts the row's tasks missing a start or a deadline.
	Unscheduled int `json:"unscheduled"`
}

type Layout struct {
	ProjectID string    `json:"project_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	TotalDays int       `json:"total_days"`
	Rows      []Row     `json:"rows"`
}

// TotalDays returns the window length in whole days, at least 1.
func TotalDays(start, end time.Time) int {
	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// Build lays out tasks over the project window. names resolves member ids to
// row labels; ids missing from it label the row with the id itself. The input
// tasks are never modified.
func Build(project domain.Project, tasks []domain.Task, names map[string]string) Layout {
	layout := Layout{
		ProjectID: project.ID,
		Start:     project.StartDate,
		End:       project.Deadline,
		TotalDays: TotalDays(project.StartDate, project.Deadline),
		Rows:      []Row{},
	}
	total := float64(layout.TotalDays)

	index := map[string]int{}
	var unassigned *Row
	for _, t := range tasks {
		var row *Row
		if t.Assigned() {
			id := *t.AssigneeID
			i, ok := index[id]
			if !ok {
				label := names[id]
				if label == "" {
					label = id
				}
				layout.Rows = append(layout.Rows, Row{MemberID: id, Label: label, Bars: []Bar{}})
				i = len(layout.Rows) - 1
				index[id] = i
			}
			row = &layout.Rows[i]
		} else {
			if unassigned == nil {
				unassigned = &Row{Label: UnassignedLabel, Unassigned: true, Bars: []Bar{}}
			}
			row = unassigned
		}
		if !t.Scheduled() {
			row.Unscheduled++
			continue
		}
		offset := t.StartDate.Sub(project.StartDate).Hours() / 24
		if offset < 0 {
			offset = 0
		}
		duration := t.Deadline.Sub(*t.StartDate).Hours() / 24
		row.Bars = append(row.Bars, Bar{
			TaskID:       t.ID,
			Title:        t.Title,
			Status:       t.Status,
			Priority:     t.Priority,
			Hours:        t.EstimatedHours,
			Start:        *t.StartDate,
			End:          *t.Deadline,
			LeftPercent:  offset / total * 100,
			WidthPercent: duration / total * 100,
		})
	}
	if unassigned != nil {
		layout.Rows = append(layout.Rows, *unassigned)
	}
	return layout
}
