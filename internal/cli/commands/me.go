package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ts-platform/portal/internal/cli/client"
	"github.com/ts-platform/portal/internal/models"
)

// NewMeCmd creates the student self-service command group
func NewMeCmd(opts ...Option) *cobra.Command {
	studentOnly := func(run runFunc) func(*cobra.Command, []string) error {
		return withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			if _, err := env.requireRole(models.RoleStudent); err != nil {
				return err
			}
			return run(ctx, env, args)
		})
	}

	cmd := &cobra.Command{
		Use:   "me",
		Short: "Your profile, assignments and grades (student)",
		Args:  cobra.NoArgs,
		RunE: studentOnly(func(ctx context.Context, env *Env, args []string) error {
			profile, err := env.Client.Me(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "%s (%s)\n", profile.FullName(), profile.Username)
			for _, g := range profile.Groups {
				fmt.Fprintf(env.Out, "  Group: %s (%s)\n", g.Name, g.Code)
			}
			return nil
		}),
	}

	var firstName, lastName, username string
	var update *cobra.Command
	update = &cobra.Command{
		Use:   "update",
		Short: "Update your profile",
		Args:  cobra.NoArgs,
		RunE: studentOnly(func(ctx context.Context, env *Env, args []string) error {
			var patch client.ProfileUpdate
			if update.Flags().Changed("first-name") {
				patch.FirstName = &firstName
			}
			if update.Flags().Changed("last-name") {
				patch.LastName = &lastName
			}
			if update.Flags().Changed("username") {
				patch.Username = &username
			}
			if patch == (client.ProfileUpdate{}) {
				return fmt.Errorf("nothing to update, set --first-name, --last-name or --username")
			}

			user, err := env.Client.UpdateProfile(ctx, patch)
			if err != nil {
				return err
			}
			if patch.Username != nil {
				// keep the stored session in step with the new login name
				if session, ok := env.Store.Session(); ok {
					session.Username = user.Username
					if err := env.Store.SetSession(session); err != nil {
						return fmt.Errorf("failed to update session: %w", err)
					}
				}
			}
			fmt.Fprintf(env.Out, "✓ Profile updated: %s (%s)\n", user.FullName(), user.Username)
			return nil
		}),
	}
	update.Flags().StringVar(&firstName, "first-name", "", "First name")
	update.Flags().StringVar(&lastName, "last-name", "", "Last name")
	update.Flags().StringVar(&username, "username", "", "Login name")

	assignments := &cobra.Command{
		Use:   "assignments",
		Short: "List your assignments",
		Args:  cobra.NoArgs,
		RunE: studentOnly(func(ctx context.Context, env *Env, args []string) error {
			list, err := env.Client.MyAssignments(ctx)
			if err != nil {
				return err
			}
			return printAssignments(env, list)
		}),
	}

	subjects := &cobra.Command{
		Use:   "subjects",
		Short: "List the subjects you study",
		Args:  cobra.NoArgs,
		RunE:  studentOnly(runListSubjects),
	}

	submissions := &cobra.Command{
		Use:   "submissions",
		Short: "List your submissions",
		Args:  cobra.NoArgs,
		RunE: studentOnly(func(ctx context.Context, env *Env, args []string) error {
			list, err := env.Client.MySubmissions(ctx)
			if err != nil {
				return err
			}
			return printSubmissions(env, list)
		}),
	}

	var (
		text      string
		files     []string
		htmlFile  string
		sheetFile string
	)
	submit := &cobra.Command{
		Use:   "submit <assignment-id>",
		Short: "Submit or resubmit an answer",
		Example: `  $ tsp me submit 01JASSIGN --text "see attached" --file report.pdf
  $ tsp me submit 01JLAB --sheet sheet.json`,
		Args: cobra.ExactArgs(1),
		RunE: studentOnly(func(ctx context.Context, env *Env, args []string) error {
			req := client.SubmitRequest{Text: text}
			if htmlFile != "" {
				data, err := os.ReadFile(htmlFile)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", htmlFile, err)
				}
				html := string(data)
				req.ContentHTML = &html
			}
			if sheetFile != "" {
				data, err := os.ReadFile(sheetFile)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", sheetFile, err)
				}
				if !json.Valid(data) {
					return fmt.Errorf("%s does not contain valid JSON", sheetFile)
				}
				req.SheetJSON = data
			}
			if req.Text == "" && len(files) == 0 && req.ContentHTML == nil && req.SheetJSON == nil {
				return fmt.Errorf("nothing to submit, set --text, --file, --html or --sheet")
			}

			var err error
			if req.Files, err = uploadFiles(ctx, env, files); err != nil {
				return err
			}

			submission, err := env.Client.SubmitAssignment(ctx, args[0], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Submitted at %s\n", formatTime(submission.SubmittedAt))
			if submission.IsLate {
				fmt.Fprintln(env.Out, "  Note: the deadline had passed; the submission is marked late")
			}
			return nil
		}),
	}
	submit.Flags().StringVar(&text, "text", "", "Answer text")
	submit.Flags().StringArrayVar(&files, "file", nil, "Upload and attach a file (repeatable)")
	submit.Flags().StringVar(&htmlFile, "html", "", "Document editor content (HTML file)")
	submit.Flags().StringVar(&sheetFile, "sheet", "", "Spreadsheet editor content (JSON file)")

	grades := &cobra.Command{
		Use:   "grades",
		Short: "List your grades",
		Args:  cobra.NoArgs,
		RunE: studentOnly(func(ctx context.Context, env *Env, args []string) error {
			list, err := env.Client.MyGrades(ctx)
			if err != nil {
				return err
			}
			return printGrades(env, list)
		}),
	}

	attendance := &cobra.Command{
		Use:   "attendance",
		Short: "List your attendance",
		Args:  cobra.NoArgs,
		RunE: studentOnly(func(ctx context.Context, env *Env, args []string) error {
			records, err := env.Client.MyAttendance(ctx)
			if err != nil {
				return err
			}
			return printAttendance(env, records)
		}),
	}

	cmd.AddCommand(update, assignments, subjects, submissions, submit, grades, attendance)
	return cmd
}
