package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ts-platform/portal/internal/models"
)

const (
	lessonHorizon = 7 * 24 * time.Hour
	dashboardRows = 4
)

// TeacherSummary is the teacher's overview of their classes
type TeacherSummary struct {
	Students        int
	Assignments     int
	UpcomingLessons []models.Lesson
}

// StudentSummary is the student's overview of attendance, deadlines and marks
type StudentSummary struct {
	Attendance   map[models.AttendanceStatus]int
	Upcoming     []models.Assignment
	LatestGrades []models.Grade
}

// summarizeTeacher keeps lessons starting within the next week, soonest first
func summarizeTeacher(students []models.User, assignments []models.Assignment, lessons []models.Lesson, now time.Time) TeacherSummary {
	summary := TeacherSummary{Students: len(students), Assignments: len(assignments)}
	for _, lesson := range lessons {
		if !lesson.DateTime.Before(now) && !lesson.DateTime.After(now.Add(lessonHorizon)) {
			summary.UpcomingLessons = append(summary.UpcomingLessons, lesson)
		}
	}
	sort.Slice(summary.UpcomingLessons, func(i, j int) bool {
		return summary.UpcomingLessons[i].DateTime.Before(summary.UpcomingLessons[j].DateTime)
	})
	return summary
}

// summarizeStudent counts attendance by status and keeps the nearest deadlines and newest grades
func summarizeStudent(assignments []models.Assignment, grades []models.Grade, attendance []models.AttendanceRecord, now time.Time) StudentSummary {
	summary := StudentSummary{Attendance: map[models.AttendanceStatus]int{
		models.AttendanceAbsent: 0,
		models.AttendanceOnTime: 0,
		models.AttendanceLate:   0,
	}}
	for _, record := range attendance {
		summary.Attendance[record.Status]++
	}

	for _, a := range assignments {
		if !a.Deadline.Before(now) {
			summary.Upcoming = append(summary.Upcoming, a)
		}
	}
	sort.Slice(summary.Upcoming, func(i, j int) bool {
		return summary.Upcoming[i].Deadline.Before(summary.Upcoming[j].Deadline)
	})
	if len(summary.Upcoming) > dashboardRows {
		summary.Upcoming = summary.Upcoming[:dashboardRows]
	}

	summary.LatestGrades = append([]models.Grade(nil), grades...)
	sort.SliceStable(summary.LatestGrades, func(i, j int) bool {
		return summary.LatestGrades[i].GradedAt.After(summary.LatestGrades[j].GradedAt)
	})
	if len(summary.LatestGrades) > dashboardRows {
		summary.LatestGrades = summary.LatestGrades[:dashboardRows]
	}
	return summary
}

// NewDashboardCmd creates the dashboard command
func NewDashboardCmd(opts ...Option) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show an overview for the logged-in user",
		Long: `Teachers see student, assignment and upcoming lesson counts.
Students see attendance totals, upcoming deadlines and their latest grades.`,
		Args: cobra.NoArgs,
		RunE: withEnv(opts, func(ctx context.Context, env *Env, args []string) error {
			session, err := env.requireSession()
			if err != nil {
				return err
			}
			switch session.Role {
			case models.RoleTeacher:
				return runTeacherDashboard(ctx, env)
			case models.RoleStudent:
				return runStudentDashboard(ctx, env)
			default:
				return fmt.Errorf("no dashboard for role '%s'", session.Role)
			}
		}),
	}
}

func runTeacherDashboard(ctx context.Context, env *Env) error {
	var (
		students    []models.User
		assignments []models.Assignment
		lessons     []models.Lesson
		subjects    []models.Subject
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { students, err = env.Client.ListStudents(gctx, ""); return })
	g.Go(func() (err error) { assignments, err = env.Client.ListAssignments(gctx); return })
	g.Go(func() (err error) { lessons, err = env.Client.ListLessons(gctx); return })
	g.Go(func() (err error) { subjects, err = env.Client.ListSubjects(gctx); return })
	if err := g.Wait(); err != nil {
		return err
	}

	summary := summarizeTeacher(students, assignments, lessons, time.Now())
	fmt.Fprintf(env.Out, "Students:          %d\n", summary.Students)
	fmt.Fprintf(env.Out, "Assignments:       %d\n", summary.Assignments)
	fmt.Fprintf(env.Out, "Upcoming lessons:  %d\n\n", len(summary.UpcomingLessons))

	if len(summary.UpcomingLessons) == 0 {
		fmt.Fprintln(env.Out, "No lessons in the next 7 days.")
		return nil
	}
	names := subjectNames(subjects)
	rows := make([][]string, 0, len(summary.UpcomingLessons))
	for _, lesson := range summary.UpcomingLessons {
		rows = append(rows, []string{names.of(lesson.SubjectID), lesson.Topic, formatTime(lesson.DateTime)})
	}
	return printTable(env.Out, []string{"SUBJECT", "TOPIC", "DATE"}, rows)
}

func runStudentDashboard(ctx context.Context, env *Env) error {
	var (
		assignments []models.Assignment
		grades      []models.Grade
		attendance  []models.AttendanceRecord
		subjects    []models.Subject
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { assignments, err = env.Client.MyAssignments(gctx); return })
	g.Go(func() (err error) { grades, err = env.Client.MyGrades(gctx); return })
	g.Go(func() (err error) { attendance, err = env.Client.MyAttendance(gctx); return })
	g.Go(func() (err error) { subjects, err = env.Client.ListSubjects(gctx); return })
	if err := g.Wait(); err != nil {
		return err
	}

	summary := summarizeStudent(assignments, grades, attendance, time.Now())
	fmt.Fprintf(env.Out, "Absent:   %d\n", summary.Attendance[models.AttendanceAbsent])
	fmt.Fprintf(env.Out, "On time:  %d\n", summary.Attendance[models.AttendanceOnTime])
	fmt.Fprintf(env.Out, "Late:     %d\n\n", summary.Attendance[models.AttendanceLate])

	fmt.Fprintln(env.Out, "Upcoming deadlines")
	if len(summary.Upcoming) == 0 {
		fmt.Fprintln(env.Out, "No assignments due.")
	} else {
		names := subjectNames(subjects)
		rows := make([][]string, 0, len(summary.Upcoming))
		for _, a := range summary.Upcoming {
			rows = append(rows, []string{a.Title, names.of(a.SubjectID), formatTime(a.Deadline)})
		}
		if err := printTable(env.Out, []string{"ASSIGNMENT", "SUBJECT", "DUE"}, rows); err != nil {
			return err
		}
	}

	fmt.Fprintln(env.Out, "\nLatest grades")
	if len(summary.LatestGrades) == 0 {
		fmt.Fprintln(env.Out, "No grades yet.")
		return nil
	}
	titles := make(map[string]string, len(assignments))
	for _, a := range assignments {
		titles[a.ID] = a.Title
	}
	rows := make([][]string, 0, len(summary.LatestGrades))
	for _, grade := range summary.LatestGrades {
		title, ok := titles[grade.AssignmentID]
		if !ok {
			title = grade.AssignmentID
		}
		rows = append(rows, []string{title, string(grade.Grade), formatTime(grade.GradedAt)})
	}
	return printTable(env.Out, []string{"ASSIGNMENT", "GRADE", "GRADED"}, rows)
}

type subjectIndex map[string]string

func subjectNames(subjects []models.Subject) subjectIndex {
	index := make(subjectIndex, len(subjects))
	for _, s := range subjects {
		index[s.ID] = s.Name
	}
	return index
}

// of falls back to the id for subjects the caller cannot list
func (idx subjectIndex) of(id string) string {
	if name, ok := idx[id]; ok {
		return name
	}
	return id
}
