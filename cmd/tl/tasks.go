package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"teamload/internal/app"
	"teamload/internal/domain"
	"teamload/internal/engine"
	"teamload/internal/view"
)

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks move TODO -> IN_PROGRESS -> COMPLETED. Starting requires an assignee; assignment is allowed only while TODO and only to members meeting every required skill level.",
	}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskShowCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskDeleteCmd())
	task.AddCommand(taskAssignCmd())
	task.AddCommand(taskUnassignCmd())
	task.AddCommand(taskTransitionCmd("start", "Move task to IN_PROGRESS", engine.Engine.StartTask))
	task.AddCommand(taskTransitionCmd("complete", "Move task to COMPLETED", engine.Engine.CompleteTask))
	task.AddCommand(taskRequireCmd())
	task.AddCommand(taskUnrequireCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var f domain.TaskFilter
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Status = domain.TaskStatus(strings.ToUpper(status))
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				tasks, err := s.Repo.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				members, err := s.Repo.ListMembers(ctx)
				if err != nil {
					return err
				}
				names := map[string]string{}
				for _, m := range members {
					names[m.ID] = m.Name
				}
				rows := make([]view.TaskRow, 0, len(tasks))
				for _, t := range tasks {
					row := view.TaskRow{Task: t}
					if t.Assigned() {
						row.AssigneeName = names[*t.AssigneeID]
					}
					rows = append(rows, row)
				}
				printTaskRows(rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee", "", "assignee member id")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().BoolVar(&f.Unassigned, "unassigned", false, "only unassigned tasks")
	return cmd
}

func printTaskRows(rows []view.TaskRow) {
	tw := newTable("ID", "Title", "Status", "Priority", "Hours", "Assignee", "Deadline", "Requires", "Actions")
	for _, r := range rows {
		deadline := ""
		if r.Deadline != nil {
			deadline = r.Deadline.Format(domain.DateLayout)
		}
		assignee := r.AssigneeName
		if assignee == "" && r.Assigned() {
			assignee = *r.AssigneeID
		}
		actions := make([]string, 0, len(r.Actions))
		for _, a := range r.Actions {
			actions = append(actions, string(a))
		}
		tw.AppendRow(table.Row{r.ID, r.Title, r.Status, r.Priority, hours(r.EstimatedHours), assignee, deadline,
			requirementSummary(r.RequiredSkills), strings.Join(actions, ",")})
	}
	tw.Render()
}

func requirementSummary(reqs []domain.TaskSkill) string {
	parts := make([]string, 0, len(reqs))
	for _, r := range reqs {
		name := r.SkillName
		if name == "" {
			name = r.SkillID
		}
		parts = append(parts, fmt.Sprintf("%s>=%d", name, r.RequiredLevel))
	}
	return strings.Join(parts, ", ")
}

func taskSkills(levels map[string]int) []domain.TaskSkill {
	out := make([]domain.TaskSkill, 0, len(levels))
	for id, lvl := range levels {
		out = append(out, domain.TaskSkill{SkillID: id, RequiredLevel: lvl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out
}

func optionalDay(flag, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDay(flag, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var priority, start, deadline string
	var requires []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create task",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.StartDate, err = optionalDay("start", start); err != nil {
				return err
			}
			if opts.Deadline, err = optionalDay("deadline", deadline); err != nil {
				return err
			}
			opts.Priority = domain.Priority(strings.ToUpper(priority))
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				levels, err := parseSkillLevels(s, requires)
				if err != nil {
					return err
				}
				opts.RequiredSkills = taskSkills(levels)
				t, err := s.Engine.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "task title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().Float64Var(&opts.EstimatedHours, "hours", 0, "estimated hours")
	cmd.Flags().StringVar(&priority, "priority", "", "LOW, MEDIUM, HIGH or URGENT (default MEDIUM)")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.AssigneeID, "assignee", "", "initial assignee member id")
	cmd.Flags().StringArrayVar(&requires, "require", []string{}, "skill=level requirement (repeatable)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				t, err := s.Repo.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var title, desc, priority, status, start, deadline, assignee string
	var estimate float64
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				t, err := s.Repo.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				flags := cmd.Flags()
				if flags.Changed("title") {
					t.Title = title
				}
				if flags.Changed("description") {
					t.Description = desc
				}
				if flags.Changed("hours") {
					t.EstimatedHours = estimate
				}
				if flags.Changed("priority") {
					t.Priority = domain.Priority(strings.ToUpper(priority))
				}
				if flags.Changed("status") {
					t.Status = domain.TaskStatus(strings.ToUpper(status))
				}
				if flags.Changed("start") {
					if t.StartDate, err = optionalDay("start", start); err != nil {
						return err
					}
				}
				if flags.Changed("deadline") {
					if t.Deadline, err = optionalDay("deadline", deadline); err != nil {
						return err
					}
				}
				if flags.Changed("assignee") {
					t.AssigneeID = optionalString(assignee)
				}
				res, err := s.Engine.UpdateTask(ctx, t)
				if err != nil {
					return err
				}
				return printTransition(res)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().Float64Var(&estimate, "hours", 0, "estimated hours")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD, empty clears)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline (YYYY-MM-DD, empty clears)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee member id (empty clears)")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				return s.Engine.DeleteTask(ctx, args[0])
			})
		},
	}
}

func taskAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <task-id> <member-id>",
		Short: "Assign task to a qualified member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				t, err := s.Engine.AssignTask(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskUnassignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <task-id>",
		Short: "Clear the assignee of a TODO task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				t, err := s.Engine.UnassignTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskTransitionCmd(use, short string, fn func(engine.Engine, context.Context, string) (engine.TransitionResult, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				res, err := fn(s.Engine, ctx, args[0])
				if err != nil {
					return err
				}
				return printTransition(res)
			})
		},
	}
}

func printTransition(res engine.TransitionResult) error {
	if viper.GetBool("json") {
		return printJSON(res)
	}
	fmt.Printf("task %s is %s\n", res.Task.ID, res.Task.Status)
	if res.ProjectStatusChanged {
		fmt.Printf("project %s is now %s\n", res.Task.ProjectID, res.ProjectStatus)
	}
	return nil
}

func taskRequireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "require <task-id> <skill> <level>",
		Short: "Set a required skill level",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				levels, err := parseSkillLevels(s, []string{args[1] + "=" + args[2]})
				if err != nil {
					return err
				}
				var t domain.Task
				for id, lvl := range levels {
					if t, err = s.Engine.AddTaskSkill(ctx, args[0], id, lvl); err != nil {
						return err
					}
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func taskUnrequireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unrequire <task-id> <skill>",
		Short: "Drop a required skill",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				id, err := resolveSkill(s, args[1])
				if err != nil {
					return err
				}
				t, err := s.Engine.RemoveTaskSkill(ctx, args[0], id)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func allocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allocate <project-id>",
		Short: "Auto-allocate a project's unassigned tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				res, err := s.Engine.AutoAllocate(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Println(res.Message)
				if len(res.Assignments) > 0 {
					tw := newTable("Task", "Member")
					for _, a := range res.Assignments {
						tw.AppendRow(table.Row{a.TaskID, a.MemberID})
					}
					tw.Render()
				}
				if res.FailedCount > 0 {
					fmt.Println("see 'tl alert list --unread' for tasks without a suitable member")
				}
				return nil
			})
		},
	}
}
