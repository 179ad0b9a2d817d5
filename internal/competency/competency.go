// Package competency gates assignments on required skill levels.
package competency

import "teamload/internal/domain"

// Check returns an IncompetentAssignmentError for the first required skill the
// member lacks or holds below the required level, nil when every requirement is met.
// A task without required skills accepts any member.
func Check(task domain.Task, member domain.Member) error {
	for _, req := range task.RequiredSkills {
		level, ok := member.SkillLevel(req.SkillID)
		if ok && level >= req.RequiredLevel {
			continue
		}
		return domain.IncompetentAssignmentError{
			TaskID:    task.ID,
			MemberID:  member.ID,
			SkillID:   req.SkillID,
			SkillName: req.SkillName,
			Required:  req.RequiredLevel,
			Actual:    level,
			Absent:    !ok,
		}
	}
	return nil
}

// Qualified reports whether member satisfies every skill requirement of task.
func Qualified(task domain.Task, member domain.Member) bool {
	return Check(task, member) == nil
}

// Shortfalls lists every unmet requirement rather than only the first.
func Shortfalls(task domain.Task, member domain.Member) []domain.IncompetentAssignmentError {
	var out []domain.IncompetentAssignmentError
	for _, req := range task.RequiredSkills {
		level, ok := member.SkillLevel(req.SkillID)
		if ok && level >= req.RequiredLevel {
			continue
		}
		out = append(out, domain.IncompetentAssignmentError{
			TaskID: task.ID, MemberID: member.ID,
			SkillID: req.SkillID, SkillName: req.SkillName,
			Required: req.RequiredLevel, Actual: level, Absent: !ok,
		})
	}
	return out
}
