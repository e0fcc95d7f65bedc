package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ts-platform/portal/internal/cli/client"
	"github.com/ts-platform/portal/internal/models"
	"github.com/ts-platform/portal/internal/validation"
)

// NewStudentsCmd creates the students command group
func NewStudentsCmd(opts ...Option) *cobra.Command {
	teacherOnly := func(run runFunc) func(*cobra.Command, []string) error {
		return withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			if _, err := env.requireRole(models.RoleTeacher); err != nil {
				return err
			}
			return run(ctx, env, args)
		})
	}

	var groupID string
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Manage student accounts (teacher)",
		Args:  cobra.NoArgs,
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			students, err := env.Client.ListStudents(ctx, groupID)
			if err != nil {
				return err
			}
			return printStudents(env, students)
		}),
	}
	cmd.Flags().StringVar(&groupID, "group", "", "Only list members of this group")

	var req client.CreateStudentRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a student account",
		Long: `Create a student account.

The student must change the password at first login. When --password is not
given it is read from the terminal.`,
		Args: cobra.NoArgs,
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			if req.Password == "" {
				password, err := env.ReadSecret("Temporary password: ")
				if err != nil {
					return err
				}
				req.Password = password
			}
			if err := validation.Struct(req); err != nil {
				return err
			}

			student, err := env.Client.CreateStudent(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Student created: %s (%s) id=%s\n", student.FullName(), student.Username, student.ID)
			return nil
		}),
	}
	create.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	create.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	create.Flags().StringVar(&req.Username, "username", "", "Login name")
	create.Flags().StringVar(&req.Password, "password", "", "Temporary password")

	show := &cobra.Command{
		Use:   "show <student-id>",
		Short: "Show a student with groups and grades",
		Args:  cobra.ExactArgs(1),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			student, err := env.Client.GetStudent(ctx, args[0])
			if err != nil {
				return err
			}
			groups, err := env.Client.ListStudentGroups(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(env.Out, "%s (%s)\n", student.FullName(), student.Username)
			fmt.Fprintf(env.Out, "  ID:     %s\n", student.ID)
			for _, g := range groups {
				fmt.Fprintf(env.Out, "  Group:  %s\n", g.Name)
			}
			if student.MustChangePassword {
				fmt.Fprintln(env.Out, "  Password change pending")
			}
			return nil
		}),
	}

	var tempPassword string
	resetPassword := &cobra.Command{
		Use:   "reset-password <student-id>",
		Short: "Set a temporary password for a student",
		Args:  cobra.ExactArgs(1),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			password := tempPassword
			if password == "" {
				var err error
				if password, err = env.ReadSecret("Temporary password: "); err != nil {
					return err
				}
			}
			if err := validation.CheckPassword(password); err != nil {
				return err
			}

			student, err := env.Client.ResetStudentPassword(ctx, args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Password reset for %s; it must be changed at next login\n", student.Username)
			return nil
		}),
	}
	resetPassword.Flags().StringVar(&tempPassword, "password", "", "Temporary password")

	attendance := &cobra.Command{
		Use:   "attendance <student-id>",
		Short: "Show a student's attendance",
		Args:  cobra.ExactArgs(1),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			records, err := env.Client.ListStudentAttendance(ctx, args[0])
			if err != nil {
				return err
			}
			return printAttendance(env, records)
		}),
	}

	submissions := &cobra.Command{
		Use:   "submissions <student-id>",
		Short: "Show a student's submissions",
		Args:  cobra.ExactArgs(1),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			subs, err := env.Client.ListStudentSubmissions(ctx, args[0])
			if err != nil {
				return err
			}
			return printSubmissions(env, subs)
		}),
	}

	grades := &cobra.Command{
		Use:   "grades <student-id>",
		Short: "Show a student's grades",
		Args:  cobra.ExactArgs(1),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			list, err := env.Client.ListStudentGrades(ctx, args[0])
			if err != nil {
				return err
			}
			return printGrades(env, list)
		}),
	}

	cmd.AddCommand(create, show, resetPassword, attendance, submissions, grades)
	return cmd
}
