package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ts-platform/portal/internal/cli/client"
	"github.com/ts-platform/portal/internal/models"
)

// NewAssignmentsCmd creates the assignments command group
func NewAssignmentsCmd(opts ...Option) *cobra.Command {
	teacherOnly := func(run runFunc) func(*cobra.Command, []string) error {
		return withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			if _, err := env.requireRole(models.RoleTeacher); err != nil {
				return err
			}
			return run(ctx, env, args)
		})
	}

	cmd := &cobra.Command{
		Use:   "assignments",
		Short: "List, create and grade assignments (teacher)",
		Args:  cobra.NoArgs,
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			assignments, err := env.Client.ListAssignments(ctx)
			if err != nil {
				return err
			}
			return printAssignments(env, assignments)
		}),
	}

	show := &cobra.Command{
		Use:   "show <assignment-id>",
		Short: "Show an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			assignment, err := env.Client.GetAssignment(ctx, args[0])
			if err != nil {
				return err
			}
			printAssignment(env, assignment)
			return nil
		}),
	}

	var (
		input     client.AssignmentInput
		deadline  string
		groupID   string
		studentID string
		labEditor string
		attach    []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an assignment",
		Example: `  $ tsp assignments create --subject 01JSUBJ --title "Lab 1" --deadline "2025-03-10 23:59" --max-score 100 --group 01JGROUP
  $ tsp assignments create --subject 01JSUBJ --title "Budget" --deadline 2025-03-12 --max-score 20 --lab excel --attach task.pdf`,
		Args: cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			session, err := env.requireRole(models.RoleTeacher)
			if err != nil {
				return err
			}
			if input.SubjectID == "" || input.Title == "" || deadline == "" {
				return fmt.Errorf("--subject, --title and --deadline are required")
			}
			if input.MaxScore <= 0 {
				return fmt.Errorf("--max-score must be positive")
			}
			if groupID != "" && studentID != "" {
				return fmt.Errorf("--group and --student are mutually exclusive")
			}

			input.TeacherID = session.UserID
			if input.Deadline, err = parseTime(deadline); err != nil {
				return err
			}
			switch {
			case groupID != "":
				input.TargetType, input.TargetID = models.TargetGroup, &groupID
			case studentID != "":
				input.TargetType, input.TargetID = models.TargetStudent, &studentID
			}
			if labEditor != "" {
				editor := models.LabEditor(strings.ToLower(labEditor))
				if editor != models.LabEditorWord && editor != models.LabEditorExcel {
					return fmt.Errorf("invalid lab editor '%s', must be one of: word, excel", labEditor)
				}
				input.IsLab, input.LabEditor = true, editor
			}

			if input.Attachments, err = uploadFiles(ctx, env, attach); err != nil {
				return err
			}

			assignment, err := env.Client.CreateAssignment(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Assignment created: %s id=%s\n", assignment.Title, assignment.ID)
			return nil
		}),
	}
	create.Flags().StringVar(&input.SubjectID, "subject", "", "Subject ID")
	create.Flags().StringVar(&input.Title, "title", "", "Title")
	create.Flags().StringVar(&input.Description, "description", "", "Description")
	create.Flags().StringVar(&deadline, "deadline", "", "Deadline")
	create.Flags().IntVar(&input.MaxScore, "max-score", 100, "Maximum score")
	create.Flags().StringVar(&groupID, "group", "", "Give the assignment to a group")
	create.Flags().StringVar(&studentID, "student", "", "Give the assignment to one student")
	create.Flags().StringVar(&labEditor, "lab", "", "Make it a lab with the word or excel editor")
	create.Flags().StringArrayVar(&attach, "attach", nil, "Upload and attach a file (repeatable)")

	submissions := &cobra.Command{
		Use:   "submissions <assignment-id>",
		Short: "List the submissions of an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			subs, err := env.Client.ListAssignmentSubmissions(ctx, args[0])
			if err != nil {
				return err
			}
			return printSubmissions(env, subs)
		}),
	}

	grades := &cobra.Command{
		Use:   "grades <assignment-id>",
		Short: "List the grades of an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: teacherOnly(func(ctx context.Context, env *Env, args []string) error {
			list, err := env.Client.ListAssignmentGrades(ctx, args[0])
			if err != nil {
				return err
			}
			return printGrades(env, list)
		}),
	}

	grade := &cobra.Command{
		Use:   "grade <assignment-id> <student-id> <score>",
		Short: "Grade a student's submission",
		Args:  cobra.ExactArgs(3),
		RunE: withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			session, err := env.requireRole(models.RoleTeacher)
			if err != nil {
				return err
			}
			score, err := strconv.Atoi(args[2])
			if err != nil || score < 0 {
				return fmt.Errorf("invalid score '%s', expected a non-negative integer", args[2])
			}

			result, err := env.Client.GradeSubmission(ctx, client.GradeInput{
				AssignmentID: args[0],
				StudentID:    args[1],
				Score:        score,
				TeacherID:    session.UserID,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "✓ Graded %s: %d (%s)\n", result.StudentID, result.Score, result.Grade)
			return nil
		}),
	}

	cmd.AddCommand(show, create, submissions, grades, grade)
	return cmd
}

// uploadFiles uploads each local path and returns the stored attachments in order
func uploadFiles(ctx context.Context, env *Env, paths []string) ([]models.FileAttachment, error) {
	attachments := make([]models.FileAttachment, 0, len(paths))
	for _, path := range paths {
		attachment, err := uploadFile(ctx, env, path)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *attachment)
	}
	return attachments, nil
}

func uploadFile(ctx context.Context, env *Env, path string) (*models.FileAttachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	attachment, err := env.Client.UploadFile(ctx, filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return attachment, nil
}

func printAssignments(env *Env, assignments []models.Assignment) error {
	if len(assignments) == 0 {
		fmt.Fprintln(env.Out, "No assignments found.")
		return nil
	}

	rows := make([][]string, len(assignments))
	for i, a := range assignments {
		kind := "task"
		if a.IsLab {
			kind = "lab/" + string(a.LabEditor)
		}
		rows[i] = []string{a.ID, a.Title, kind, formatTime(a.Deadline), strconv.Itoa(a.MaxScore)}
	}
	return printTable(env.Out, []string{"ID", "TITLE", "KIND", "DEADLINE", "MAX"}, rows)
}

func printAssignment(env *Env, a *models.Assignment) {
	fmt.Fprintf(env.Out, "%s\n", a.Title)
	fmt.Fprintf(env.Out, "  ID:        %s\n", a.ID)
	fmt.Fprintf(env.Out, "  Subject:   %s\n", a.SubjectID)
	if a.TeacherName != nil {
		fmt.Fprintf(env.Out, "  Teacher:   %s\n", *a.TeacherName)
	}
	fmt.Fprintf(env.Out, "  Deadline:  %s\n", formatTime(a.Deadline))
	fmt.Fprintf(env.Out, "  Max score: %d\n", a.MaxScore)
	if a.TargetID != nil {
		fmt.Fprintf(env.Out, "  Target:    %s %s\n", strings.ToLower(string(a.TargetType)), *a.TargetID)
	}
	if a.IsLab {
		fmt.Fprintf(env.Out, "  Lab:       %s editor\n", a.LabEditor)
	}
	for _, f := range a.Attachments {
		fmt.Fprintf(env.Out, "  File:      %s (%d KB)\n", f.Name, f.SizeKB)
	}
	if a.Description != "" {
		fmt.Fprintf(env.Out, "\n%s\n", a.Description)
	}
}

func printSubmissions(env *Env, submissions []models.Submission) error {
	if len(submissions) == 0 {
		fmt.Fprintln(env.Out, "No submissions found.")
		return nil
	}

	rows := make([][]string, len(submissions))
	for i, s := range submissions {
		late := ""
		if s.IsLate {
			late = "late"
		}
		rows[i] = []string{s.ID, s.AssignmentID, s.StudentID, formatTime(s.SubmittedAt), late, strconv.Itoa(len(s.Files))}
	}
	return printTable(env.Out, []string{"ID", "ASSIGNMENT", "STUDENT", "SUBMITTED", "LATE", "FILES"}, rows)
}

func printGrades(env *Env, grades []models.Grade) error {
	if len(grades) == 0 {
		fmt.Fprintln(env.Out, "No grades found.")
		return nil
	}

	rows := make([][]string, len(grades))
	for i, g := range grades {
		rows[i] = []string{g.AssignmentID, g.StudentID, strconv.Itoa(g.Score), string(g.Grade), formatTime(g.GradedAt)}
	}
	return printTable(env.Out, []string{"ASSIGNMENT", "STUDENT", "SCORE", "GRADE", "GRADED"}, rows)
}
