package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts-platform/portal/internal/models"
)

func lessonAt(id string, at time.Time) models.Lesson {
	return models.Lesson{BaseModel: models.BaseModel{ID: id}, DateTime: at}
}

func TestSummarizeTeacher(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	lessons := []models.Lesson{
		lessonAt("past", now.Add(-time.Hour)),
		lessonAt("later", now.Add(6*24*time.Hour)),
		lessonAt("soon", now.Add(2*time.Hour)),
		lessonAt("next-month", now.Add(30*24*time.Hour)),
	}

	summary := summarizeTeacher(make([]models.User, 3), make([]models.Assignment, 5), lessons, now)
	assert.Equal(t, 3, summary.Students)
	assert.Equal(t, 5, summary.Assignments)
	require.Len(t, summary.UpcomingLessons, 2)
	assert.Equal(t, "soon", summary.UpcomingLessons[0].ID)
	assert.Equal(t, "later", summary.UpcomingLessons[1].ID)
}

func TestSummarizeStudent(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	var assignments []models.Assignment
	for i, offset := range []time.Duration{-day, 5 * day, day, 0, 3 * day, 9 * day} {
		assignments = append(assignments, models.Assignment{
			BaseModel: models.BaseModel{ID: string(rune('a' + i))},
			Deadline:  now.Add(offset),
		})
	}
	var grades []models.Grade
	for i := 0; i < 6; i++ {
		grades = append(grades, models.Grade{
			BaseModel: models.BaseModel{ID: string(rune('g' + i))},
			GradedAt:  now.Add(time.Duration(i) * -day),
		})
	}
	attendance := []models.AttendanceRecord{
		{Status: models.AttendanceLate},
		{Status: models.AttendanceOnTime},
		{Status: models.AttendanceLate},
	}

	summary := summarizeStudent(assignments, grades, attendance, now)
	assert.Equal(t, map[models.AttendanceStatus]int{
		models.AttendanceAbsent: 0,
		models.AttendanceOnTime: 1,
		models.AttendanceLate:   2,
	}, summary.Attendance)

	var upcoming []string
	for _, a := range summary.Upcoming {
		upcoming = append(upcoming, a.ID)
	}
	// due now counts as upcoming, overdue does not
	assert.Equal(t, []string{"d", "c", "e", "b"}, upcoming)

	require.Len(t, summary.LatestGrades, dashboardRows)
	assert.Equal(t, "g", summary.LatestGrades[0].ID)
	assert.Equal(t, "j", summary.LatestGrades[3].ID)
}

func TestDashboard_RequiresSession(t *testing.T) {
	te := newTestEnv(t, nil)

	_, err := execute(NewDashboardCmd(te.opts...))
	require.Error(t, err)
	assert.Zero(t, te.requests.Load())
}
