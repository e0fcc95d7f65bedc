package server

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ts-platform/portal/internal/auth"
	"github.com/ts-platform/portal/internal/models"
)

// Demo accounts created on an empty database
const (
	SeedTeacherID       = "user-teacher-01"
	SeedTeacherUsername = "teacher"
	SeedTeacherPassword = "Teacher123!"
	SeedStudentID       = "user-student-01"
	SeedStudentUsername = "student"
	SeedStudentPassword = "Student123!"
)

// seed fills an empty database with the demo school
func (s *Server) seed() error {
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return seedDemoData(tx, time.Now().UTC())
	}); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}

	s.logger.Info().
		Str("teacher", SeedTeacherUsername).
		Str("student", SeedStudentUsername).
		Msg("Seeded demo data")
	return nil
}

func seedDemoData(tx *gorm.DB, now time.Time) error {
	days := func(n int) time.Time { return now.Add(time.Duration(n) * 24 * time.Hour) }
	base := func(id string) models.BaseModel { return models.BaseModel{ID: id, CreatedAt: now} }

	teacherHash, err := auth.HashPassword(SeedTeacherPassword)
	if err != nil {
		return err
	}
	studentHash, err := auth.HashPassword(SeedStudentPassword)
	if err != nil {
		return err
	}

	users := []models.User{
		{
			BaseModel:    base(SeedTeacherID),
			Username:     SeedTeacherUsername,
			PasswordHash: teacherHash,
			Role:         models.RoleTeacher,
			FirstName:    "Laylo",
			LastName:     "Karimova",
		},
		{
			BaseModel:          base(SeedStudentID),
			Username:           SeedStudentUsername,
			PasswordHash:       studentHash,
			Role:               models.RoleStudent,
			FirstName:          "Aziz",
			LastName:           "Saidov",
			MustChangePassword: true,
		},
	}

	subjects := []models.Subject{
		{BaseModel: base("sub-math-01"), Name: "Applied Mathematics", Code: "MATH-301", TeacherID: SeedTeacherID},
		{BaseModel: base("sub-ux-01"), Name: "UX Foundations", Code: "UX-220", TeacherID: SeedTeacherID},
		{BaseModel: base("sub-eng-01"), Name: "Academic English", Code: "ENG-110", TeacherID: SeedTeacherID},
	}

	lessons := []models.Lesson{
		{BaseModel: base("lesson-01"), SubjectID: "sub-math-01", TeacherID: SeedTeacherID, DateTime: days(-3), Topic: "Optimization strategies"},
		{BaseModel: base("lesson-02"), SubjectID: "sub-ux-01", TeacherID: SeedTeacherID, DateTime: days(2), Topic: "User flows & testing"},
		{BaseModel: base("lesson-03"), SubjectID: "sub-eng-01", TeacherID: SeedTeacherID, DateTime: days(6), Topic: "Presentation skills"},
	}

	assignments := []models.Assignment{
		{
			BaseModel:   base("assign-01"),
			SubjectID:   "sub-math-01",
			TeacherID:   SeedTeacherID,
			Title:       "Linear regression lab",
			Description: "Submit analysis with charts and summary.",
			Deadline:    days(5),
			MaxScore:    100,
			Attachments: []models.FileAttachment{
				{ID: "file-assign-01-1", Name: "dataset.csv", MimeType: "text/csv", SizeKB: 420, Kind: models.FileKindDocument},
				{ID: "file-assign-01-2", Name: "lab-instructions.pdf", MimeType: "application/pdf", SizeKB: 860, Kind: models.FileKindDocument},
			},
		},
		{
			BaseModel:   base("assign-02"),
			SubjectID:   "sub-ux-01",
			TeacherID:   SeedTeacherID,
			Title:       "Prototype critique",
			Description: "Upload critique with insights.",
			Deadline:    days(-1),
			MaxScore:    100,
			Attachments: []models.FileAttachment{
				{ID: "file-assign-02-1", Name: "ux-critique-guide.docx", MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", SizeKB: 320, Kind: models.FileKindDocument},
				{ID: "file-assign-02-2", Name: "critique-session.mp4", MimeType: "video/mp4", SizeKB: 12450, Kind: models.FileKindVideo},
			},
		},
		{
			BaseModel:   base("assign-03"),
			SubjectID:   "sub-eng-01",
			TeacherID:   SeedTeacherID,
			Title:       "Essay outline",
			Description: "Submit outline and thesis.",
			Deadline:    days(10),
			MaxScore:    100,
			Attachments: []models.FileAttachment{
				{ID: "file-assign-03-1", Name: "outline-template.pptx", MimeType: "application/vnd.openxmlformats-officedocument.presentationml.presentation", SizeKB: 540, Kind: models.FileKindSlides},
			},
		},
	}

	attendance := []models.AttendanceRecord{
		{BaseModel: base("att-01"), LessonID: "lesson-01", StudentID: SeedStudentID, Status: models.AttendanceOnTime, RecordedAt: days(-3)},
		{BaseModel: base("att-02"), LessonID: "lesson-02", StudentID: SeedStudentID, Status: models.AttendanceLate, RecordedAt: days(2)},
	}

	submissions := []models.Submission{
		{
			BaseModel:    base("subm-01"),
			AssignmentID: "assign-02",
			StudentID:    SeedStudentID,
			SubmittedAt:  now,
			Text:         "Prototype critique draft and notes.",
			Files: []models.FileAttachment{
				{ID: "file-subm-01-1", Name: "critique.pdf", MimeType: "application/pdf", SizeKB: 780, Kind: models.FileKindDocument},
			},
			IsLate: true,
		},
	}

	grades := []models.Grade{
		{
			BaseModel:    base("grade-01"),
			AssignmentID: "assign-02",
			StudentID:    SeedStudentID,
			Score:        86,
			Grade:        models.ScaleFor(86, 100),
			GradedAt:     now,
			TeacherID:    SeedTeacherID,
		},
	}

	for _, rows := range []any{&users, &subjects, &lessons, &assignments, &attendance, &submissions, &grades} {
		if err := tx.Create(rows).Error; err != nil {
			return err
		}
	}
	return nil
}
