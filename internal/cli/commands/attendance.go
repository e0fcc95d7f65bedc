package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ts-platform/portal/internal/models"
)

// NewAttendanceCmd creates the attendance command group
func NewAttendanceCmd(opts ...Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Show and record lesson attendance (teacher)",
	}

	show := &cobra.Command{
		Use:   "show <lesson-id>",
		Short: "Show the attendance of a lesson",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			if _, err := env.requireRole(models.RoleTeacher); err != nil {
				return err
			}
			records, err := env.Client.ListLessonAttendance(ctx, args[0])
			if err != nil {
				return err
			}
			return printAttendance(env, records)
		}),
	}

	mark := &cobra.Command{
		Use:     "mark <lesson-id> <student-id>=<absent|ontime|late>...",
		Short:   "Record attendance marks for a lesson",
		Example: `  $ tsp attendance mark 01JLESSON 01JSTUDENTA=ontime 01JSTUDENTB=late`,
		Args:    cobra.MinimumNArgs(2),
		RunE: withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			if _, err := env.requireRole(models.RoleTeacher); err != nil {
				return err
			}
			entries, err := parseAttendanceEntries(args[1:])
			if err != nil {
				return err
			}

			records, err := env.Client.SetAttendance(ctx, args[0], entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Recorded %d attendance marks\n", len(entries))
			return printAttendance(env, records)
		}),
	}

	cmd.AddCommand(show, mark)
	return cmd
}

func parseAttendanceEntries(args []string) ([]models.AttendanceEntry, error) {
	entries := make([]models.AttendanceEntry, 0, len(args))
	seen := make(map[string]bool, len(args))
	for _, arg := range args {
		studentID, rawStatus, ok := strings.Cut(arg, "=")
		if !ok || studentID == "" {
			return nil, fmt.Errorf("invalid mark '%s', expected <student-id>=<status>", arg)
		}
		status := models.AttendanceStatus(strings.ToUpper(rawStatus))
		if !status.Valid() {
			return nil, fmt.Errorf("invalid status '%s', must be one of: absent, ontime, late", rawStatus)
		}
		if seen[studentID] {
			return nil, fmt.Errorf("student %s is marked twice", studentID)
		}
		seen[studentID] = true
		entries = append(entries, models.AttendanceEntry{StudentID: studentID, Status: status})
	}
	return entries, nil
}

func printAttendance(env *Env, records []models.AttendanceRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(env.Out, "No attendance recorded.")
		return nil
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{r.LessonID, r.StudentID, string(r.Status), formatTime(r.RecordedAt)}
	}
	return printTable(env.Out, []string{"LESSON", "STUDENT", "STATUS", "RECORDED"}, rows)
}
