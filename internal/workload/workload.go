// Package workload derives member load figures from the live task set.
package workload

import "teamload/internal/domain"

// Band is the display classification of a load percentage.
type Band string

const (
	BandLow     Band = "low"
	BandNormal  Band = "normal"
	BandHigh    Band = "high"
	BandWarning Band = "warning"
	BandDanger  Band = "danger"
)

// Classify maps a load percentage to its band: <50 low, <75 normal, <90 high,
// up to 100 warning, above 100 danger.
func Classify(pct float64) Band {
	switch {
	case pct < 50:
		return BandLow
	case pct < 75:
		return BandNormal
	case pct < 90:
		return BandHigh
	case pct <= 100:
		return BandWarning
	default:
		return BandDanger
	}
}

// MemberLoad is the computed load of one member.
type MemberLoad struct {
	MemberID           string  `json:"member_id"`
	Name               string  `json:"name"`
	WeeklyAvailability float64 `json:"weekly_availability"`
	CurrentWorkload    float64 `json:"current_workload"`
	AvailableHours     float64 `json:"available_hours"`
	Percentage         float64 `json:"workload_percentage"`
	Band               Band    `json:"band"`
	TaskCount          int     `json:"task_count"`
}

// Overloaded reports whether assigned hours exceed availability.
func (l MemberLoad) Overloaded() bool {
	return l.CurrentWorkload > l.WeeklyAvailability
}

// Current sums estimated hours of the member's outstanding tasks.
func Current(memberID string, tasks []domain.Task) float64 {
	var sum float64
	for _, t := range tasks {
		if t.Assigned() && *t.AssigneeID == memberID && t.Status.Outstanding() {
			sum += t.EstimatedHours
		}
	}
	return sum
}

// Percentage returns current/weekly*100, 0 when weekly is not positive.
func Percentage(current, weekly float64) float64 {
	if weekly <= 0 {
		return 0
	}
	return current / weekly * 100
}

// Available returns the unclaimed hours, never below zero.
func Available(weekly, current float64) float64 {
	if current >= weekly {
		return 0
	}
	return weekly - current
}

// ForMember computes the load of m from tasks, which may include other members' tasks.
func ForMember(m domain.Member, tasks []domain.Task) MemberLoad {
	var (
		current float64
		count   int
	)
	for _, t := range tasks {
		if t.Assigned() && *t.AssigneeID == m.ID && t.Status.Outstanding() {
			current += t.EstimatedHours
			count++
		}
	}
	return newLoad(m, current, count)
}

func newLoad(m domain.Member, current float64, count int) MemberLoad {
	pct := Percentage(current, m.WeeklyAvailability)
	return MemberLoad{
		MemberID:           m.ID,
		Name:               m.Name,
		WeeklyAvailability: m.WeeklyAvailability,
		CurrentWorkload:    current,
		AvailableHours:     Available(m.WeeklyAvailability, current),
		Percentage:         pct,
		Band:               Classify(pct),
		TaskCount:          count,
	}
}

// TeamStats aggregates member loads.
type TeamStats struct {
	Members                   []MemberLoad `json:"members"`
	AverageWorkloadPercentage float64      `json:"average_workload_percentage"`
	OverloadedMembers         int          `json:"overloaded_members"`
	TotalWorkload             float64      `json:"total_workload"`
	TotalAvailability         float64      `json:"total_availability"`
	UtilizationPercentage     float64      `json:"utilization_percentage"`
}

// Team computes per-member loads in member order plus team aggregates.
func Team(members []domain.Member, tasks []domain.Task) TeamStats {
	hours := make(map[string]float64, len(members))
	counts := make(map[string]int, len(members))
	for _, t := range tasks {
		if t.Assigned() && t.Status.Outstanding() {
			hours[*t.AssigneeID] += t.EstimatedHours
			counts[*t.AssigneeID]++
		}
	}
	stats := TeamStats{Members: make([]MemberLoad, 0, len(members))}
	var pctSum float64
	for _, m := range members {
		load := newLoad(m, hours[m.ID], counts[m.ID])
		stats.Members = append(stats.Members, load)
		pctSum += load.Percentage
		stats.TotalWorkload += load.CurrentWorkload
		stats.TotalAvailability += load.WeeklyAvailability
		if load.Overloaded() {
			stats.OverloadedMembers++
		}
	}
	if len(members) > 0 {
		stats.AverageWorkloadPercentage = pctSum / float64(len(members))
	}
	stats.UtilizationPercentage = Percentage(stats.TotalWorkload, stats.TotalAvailability)
	return stats
}
