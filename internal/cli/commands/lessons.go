package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ts-platform/portal/internal/cli/client"
	"github.com/ts-platform/portal/internal/models"
)

// NewLessonsCmd creates the lessons command group
func NewLessonsCmd(opts ...Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lessons",
		Short: "List and schedule lessons (teacher)",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			if _, err := env.requireRole(models.RoleTeacher); err != nil {
				return err
			}

			lessons, err := env.Client.ListLessons(ctx)
			if err != nil {
				return err
			}
			if len(lessons) == 0 {
				fmt.Fprintln(env.Out, "No lessons found.")
				return nil
			}

			sort.SliceStable(lessons, func(i, j int) bool {
				return lessons[i].DateTime.Before(lessons[j].DateTime)
			})
			rows := make([][]string, len(lessons))
			for i, l := range lessons {
				rows[i] = []string{l.ID, formatTime(l.DateTime), l.SubjectID, l.Topic}
			}
			return printTable(env.Out, []string{"ID", "WHEN", "SUBJECT", "TOPIC"}, rows)
		}),
	}

	var subjectID, at, topic string
	create := &cobra.Command{
		Use:     "create",
		Short:   "Schedule a lesson",
		Example: `  $ tsp lessons create --subject 01J... --at "2025-03-01 10:30" --topic "Derivatives"`,
		Args:    cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			session, err := env.requireRole(models.RoleTeacher)
			if err != nil {
				return err
			}
			if subjectID == "" || at == "" {
				return fmt.Errorf("--subject and --at are required")
			}
			when, err := parseTime(at)
			if err != nil {
				return err
			}

			lesson, err := env.Client.CreateLesson(ctx, client.LessonInput{
				SubjectID: subjectID,
				TeacherID: session.UserID,
				DateTime:  when,
				Topic:     topic,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Lesson scheduled for %s id=%s\n", formatTime(lesson.DateTime), lesson.ID)
			return nil
		}),
	}
	create.Flags().StringVar(&subjectID, "subject", "", "Subject ID")
	create.Flags().StringVar(&at, "at", "", "Start time")
	create.Flags().StringVar(&topic, "topic", "", "Lesson topic")

	cmd.AddCommand(create)
	return cmd
}
