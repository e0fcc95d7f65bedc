package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ts-platform/portal/internal/cli/client"
	"github.com/ts-platform/portal/internal/models"
)

// NewSubjectsCmd creates the subjects command group
func NewSubjectsCmd(opts ...Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "List and manage subjects",
		Args:  cobra.NoArgs,
		RunE:  withEnv(opts, runListSubjects),
	}

	var input client.SubjectInput

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a subject (teacher)",
		Args:  cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			session, err := env.requireRole(models.RoleTeacher)
			if err != nil {
				return err
			}
			if input.Name == "" || input.Code == "" {
				return fmt.Errorf("--name and --code are required")
			}
			input.TeacherID = session.UserID

			subject, err := env.Client.CreateSubject(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Subject created: %s (%s) id=%s\n", subject.Name, subject.Code, subject.ID)
			return nil
		}),
	}
	create.Flags().StringVar(&input.Name, "name", "", "Subject name")
	create.Flags().StringVar(&input.Code, "code", "", "Subject code")

	var patch client.SubjectInput
	update := &cobra.Command{
		Use:   "update <subject-id>",
		Short: "Rename a subject (teacher)",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			if _, err := env.requireRole(models.RoleTeacher); err != nil {
				return err
			}
			if patch.Name == "" && patch.Code == "" {
				return fmt.Errorf("nothing to update, set --name or --code")
			}

			subject, err := env.Client.UpdateSubject(ctx, args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Subject updated: %s (%s)\n", subject.Name, subject.Code)
			return nil
		}),
	}
	update.Flags().StringVar(&patch.Name, "name", "", "New subject name")
	update.Flags().StringVar(&patch.Code, "code", "", "New subject code")

	remove := &cobra.Command{
		Use:     "delete <subject-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a subject (teacher)",
		Args:    cobra.ExactArgs(1),
		RunE: withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			if _, err := env.requireRole(models.RoleTeacher); err != nil {
				return err
			}
			if err := env.Client.DeleteSubject(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Subject %s deleted\n", args[0])
			return nil
		}),
	}

	cmd.AddCommand(create, update, remove)
	return cmd
}

func runListSubjects(ctx context.Context, env *Env, args []string) error {
	if _, err := env.requireSession(); err != nil {
		return err
	}

	subjects, err := env.Client.ListSubjects(ctx)
	if err != nil {
		return err
	}
	if len(subjects) == 0 {
		fmt.Fprintln(env.Out, "No subjects found.")
		return nil
	}

	rows := make([][]string, len(subjects))
	for i, s := range subjects {
		rows[i] = []string{s.ID, s.Code, s.Name}
	}
	return printTable(env.Out, []string{"ID", "CODE", "NAME"}, rows)
}
