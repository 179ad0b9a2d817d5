package main

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"teamload/internal/app"
	"teamload/internal/domain"
	"teamload/internal/timeline"
	"teamload/internal/view"
)

func alertCmd() *cobra.Command {
	al := &cobra.Command{Use: "alert", Short: "Inspect the alert inbox"}
	var unread bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List alerts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				items, err := s.Repo.ListAlerts(ctx, unread)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				printAlerts(items)
				return nil
			})
		},
	}
	list.Flags().BoolVar(&unread, "unread", false, "only unread alerts")
	al.AddCommand(list)
	al.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Count unread alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				n, err := s.Alerts.Refresh(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]int{"unread": n})
			})
		},
	})
	al.AddCommand(&cobra.Command{
		Use:   "read <id>",
		Short: "Mark an alert read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				n, err := s.Alerts.MarkRead(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]int{"unread": n})
			})
		},
	})
	al.AddCommand(&cobra.Command{
		Use:   "read-all",
		Short: "Mark every alert read",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				n, err := s.Alerts.MarkAllRead(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]int{"unread": n})
			})
		},
	})
	al.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				_, err := s.Alerts.Delete(ctx, args[0])
				return err
			})
		},
	})
	return al
}

func printAlerts(items []domain.Alert) {
	tw := newTable("ID", "Created", "Type", "Severity", "Title", "Message", "Read")
	for _, a := range items {
		read := ""
		if a.Read {
			read = "yes"
		}
		tw.AppendRow(table.Row{a.ID, a.CreatedAt, a.Type, a.Severity, a.Title, a.Message, read})
	}
	tw.Render()
}

func workloadCmd() *cobra.Command {
	wl := &cobra.Command{
		Use:   "workload",
		Short: "Show team workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				st, err := s.Engine.TeamWorkload(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				tw := newTable("Member", "Weekly", "Load", "Available", "Load %", "Band", "Tasks")
				for _, m := range st.Members {
					tw.AppendRow(table.Row{m.Name, hours(m.WeeklyAvailability), hours(m.CurrentWorkload),
						hours(m.AvailableHours), percent(m.Percentage), m.Band, m.TaskCount})
				}
				tw.AppendFooter(table.Row{"team", hours(st.TotalAvailability), hours(st.TotalWorkload), "",
					percent(st.UtilizationPercentage), fmt.Sprintf("%d overloaded", st.OverloadedMembers), ""})
				tw.Render()
				return nil
			})
		},
	}
	wl.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Recompute stored member workloads from tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				n, err := s.Engine.SyncWorkloads(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]int{"corrected": n})
			})
		},
	})
	return wl
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Team and project statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				st, err := s.Views.Statistics(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				printTotals(st.Totals)
				fmt.Printf("tasks by status: TODO %d, IN_PROGRESS %d, COMPLETED %d\n",
					st.ByStatus[domain.TaskTodo], st.ByStatus[domain.TaskInProgress], st.ByStatus[domain.TaskCompleted])
				fmt.Printf("team: %s average load, %s utilization, %d overloaded\n",
					percent(st.Team.AverageWorkloadPercentage), percent(st.Team.UtilizationPercentage), st.Team.OverloadedMembers)
				printProjectRows(st.Projects)
				return nil
			})
		},
	}
}

func printTotals(t view.Totals) {
	fmt.Printf("projects %d, members %d, tasks %d (%d completed)\n", t.Projects, t.Members, t.Tasks, t.CompletedTasks)
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Dashboard summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if _, err := s.Alerts.Refresh(ctx); err != nil {
					return err
				}
				d, err := s.Dashboard(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(d)
				}
				printTotals(d.Totals)
				fmt.Printf("%d overloaded members, %d unread alerts\n", d.OverloadedMembers, d.UnreadAlerts)
				fmt.Println("\nrecent projects")
				printProjectRows(d.RecentProjects)
				fmt.Println("\nhighest workloads")
				printMemberRows(d.TopWorkloads)
				return nil
			})
		},
	}
}

func timelineCmd() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "timeline <project-id>",
		Short: "Render a project's task timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				layout, err := s.Views.Timeline(ctx, view.Context{Page: view.PageTimeline}.WithProject(args[0]))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(layout)
				}
				printTimeline(layout, width)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 50, "chart width in columns")
	return cmd
}

func printTimeline(layout timeline.Layout, width int) {
	if width < 10 {
		width = 10
	}
	fmt.Printf("%s .. %s (%d days)\n", layout.Start.Format(domain.DateLayout), layout.End.Format(domain.DateLayout), layout.TotalDays)
	tw := newTable("Row", "Task", "Chart", "Dates")
	for _, row := range layout.Rows {
		label := row.Label
		if row.Unscheduled > 0 {
			label = fmt.Sprintf("%s (+%d unscheduled)", label, row.Unscheduled)
		}
		for _, b := range row.Bars {
			tw.AppendRow(table.Row{label, b.Title, bar(b, width),
				b.Start.Format(domain.DateLayout) + " .. " + b.End.Format(domain.DateLayout)})
			label = ""
		}
		if len(row.Bars) == 0 {
			tw.AppendRow(table.Row{label, "", "", ""})
		}
	}
	tw.Render()
}

// bar draws b on a width-column track. Bars outside the window clip to its edges.
func bar(b timeline.Bar, width int) string {
	left := int(math.Round(b.LeftPercent / 100 * float64(width)))
	span := int(math.Round(b.WidthPercent / 100 * float64(width)))
	left = max(0, min(left, width))
	span = max(1, min(span, width-left))
	if left == width {
		left, span = width-1, 1
	}
	return strings.Repeat(".", left) + strings.Repeat("#", span) + strings.Repeat(".", width-left-span)
}
