package models

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// Role is the portal role of a user
type Role string

const (
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(32)"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User is a teacher or student account
type User struct {
	BaseModel
	Username           string `json:"username" gorm:"not null;uniqueIndex"`
	PasswordHash       string `json:"-" gorm:"not null"`
	Role               Role   `json:"role" gorm:"type:varchar(16);not null;index"`
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	MustChangePassword bool   `json:"mustChangePassword" gorm:"not null;default:false"`
}

// FullName returns "First Last", falling back to the username
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

// StudentProfile is the /me payload of a student, including group memberships
type StudentProfile struct {
	User
	Groups []Group `json:"groups,omitempty"`
}

// Group is a teacher-owned set of students
type Group struct {
	BaseModel
	Name      string `json:"name" gorm:"not null"`
	Code      string `json:"code" gorm:"not null"`
	TeacherID string `json:"teacherId" gorm:"not null;index"`
}

// TableName avoids the GROUPS keyword
func (Group) TableName() string {
	return "student_groups"
}

// GroupMember links a student to a group
type GroupMember struct {
	BaseModel
	GroupID   string `json:"groupId" gorm:"not null;uniqueIndex:idx_group_student"`
	StudentID string `json:"studentId" gorm:"not null;uniqueIndex:idx_group_student"`
}

// GroupRef is the short group form returned for a student's memberships
type GroupRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subject is a course taught by a teacher
type Subject struct {
	BaseModel
	Name      string `json:"name" gorm:"not null"`
	Code      string `json:"code" gorm:"not null"`
	TeacherID string `json:"teacherId" gorm:"not null;index"`
}

// Lesson is a scheduled class of a subject
type Lesson struct {
	BaseModel
	SubjectID string    `json:"subjectId" gorm:"not null;index"`
	TeacherID string    `json:"teacherId" gorm:"not null;index"`
	DateTime  time.Time `json:"dateTime" gorm:"not null"`
	Topic     string    `json:"topic"`
}

// FileKind classifies an uploaded file
type FileKind string

const (
	FileKindDocument FileKind = "document"
	FileKindSlides   FileKind = "slides"
	FileKindVideo    FileKind = "video"
	FileKindArchive  FileKind = "archive"
	FileKindOther    FileKind = "other"
)

// FileAttachment is an uploaded file referenced by assignments and submissions
type FileAttachment struct {
	ID       string   `json:"id" gorm:"primaryKey;type:varchar(32)"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	SizeKB   int64    `json:"sizeKb"`
	Kind     FileKind `json:"kind"`
	URL      string   `json:"url,omitempty"`
}

// TargetType selects who an assignment is given to
type TargetType string

const (
	TargetGroup   TargetType = "GROUP"
	TargetStudent TargetType = "STUDENT"
)

// LabEditor is the embedded editor of a lab assignment
type LabEditor string

const (
	LabEditorWord  LabEditor = "word"
	LabEditorExcel LabEditor = "excel"
)

// Assignment is a task set by a teacher for a subject
type Assignment struct {
	BaseModel
	SubjectID   string           `json:"subjectId" gorm:"not null;index"`
	TeacherID   string           `json:"teacherId" gorm:"not null;index"`
	Title       string           `json:"title" gorm:"not null"`
	Description string           `json:"description"`
	Deadline    time.Time        `json:"deadline" gorm:"not null"`
	MaxScore    int              `json:"maxScore" gorm:"not null"`
	Attachments []FileAttachment `json:"attachments,omitempty" gorm:"serializer:json"`
	TargetType  TargetType       `json:"targetType,omitempty"`
	TargetID    *string          `json:"targetId,omitempty"`
	IsLab       bool             `json:"isLab,omitempty"`
	LabEditor   LabEditor        `json:"labEditor,omitempty"`
	TeacherName *string          `json:"teacherName,omitempty" gorm:"-"`
}

// AttendanceStatus is the attendance mark of a student for a lesson
type AttendanceStatus string

const (
	AttendanceAbsent AttendanceStatus = "ABSENT"
	AttendanceOnTime AttendanceStatus = "ONTIME"
	AttendanceLate   AttendanceStatus = "LATE"
)

// Valid reports whether s is a known attendance status
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceAbsent, AttendanceOnTime, AttendanceLate:
		return true
	}
	return false
}

// AttendanceRecord is the stored attendance mark
type AttendanceRecord struct {
	BaseModel
	LessonID   string           `json:"lessonId" gorm:"not null;uniqueIndex:idx_lesson_student"`
	StudentID  string           `json:"studentId" gorm:"not null;uniqueIndex:idx_lesson_student"`
	Status     AttendanceStatus `json:"status" gorm:"type:varchar(16);not null"`
	RecordedAt time.Time        `json:"recordedAt"`
}

// AttendanceEntry is one mark in an attendance update
type AttendanceEntry struct {
	StudentID string           `json:"studentId" binding:"required"`
	Status    AttendanceStatus `json:"status" binding:"required,oneof=ABSENT ONTIME LATE"`
}

// Submission is a student's answer to an assignment.
// ContentHTML and SheetJSON are opaque editor payloads.
type Submission struct {
	BaseModel
	AssignmentID string           `json:"assignmentId" gorm:"not null;index"`
	StudentID    string           `json:"studentId" gorm:"not null;index"`
	SubmittedAt  time.Time        `json:"submittedAt"`
	Text         string           `json:"text"`
	Files        []FileAttachment `json:"files,omitempty" gorm:"serializer:json"`
	IsLate       bool             `json:"isLate"`
	ContentHTML  *string          `json:"contentHtml,omitempty"`
	SheetJSON    json.RawMessage  `json:"sheetJson,omitempty" gorm:"type:text"`
}

// GradeScale is the mark derived from a score
type GradeScale string

const (
	GradeFail  GradeScale = "FAIL"
	GradeThree GradeScale = "3"
	GradeFour  GradeScale = "4"
	GradeFive  GradeScale = "5"
)

// ScaleFor maps a score out of maxScore to the grade scale
func ScaleFor(score, maxScore int) GradeScale {
	if maxScore <= 0 {
		return GradeFail
	}
	percent := float64(score) * 100 / float64(maxScore)
	switch {
	case percent < 55:
		return GradeFail
	case percent < 70:
		return GradeThree
	case percent < 85:
		return GradeFour
	default:
		return GradeFive
	}
}

// Grade is a teacher's mark for a student's assignment
type Grade struct {
	BaseModel
	AssignmentID string     `json:"assignmentId" gorm:"not null;uniqueIndex:idx_assignment_student"`
	StudentID    string     `json:"studentId" gorm:"not null;uniqueIndex:idx_assignment_student"`
	Score        int        `json:"score"`
	Grade        GradeScale `json:"grade" gorm:"type:varchar(8)"`
	GradedAt     time.Time  `json:"gradedAt"`
	TeacherID    string     `json:"teacherId" gorm:"not null"`
}

// RefreshToken is a server-side refresh credential. Only the hash is stored.
type RefreshToken struct {
	BaseModel
	UserID    string     `json:"-" gorm:"not null;index"`
	TokenHash string     `json:"-" gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time  `json:"-" gorm:"not null;index"`
	RevokedAt *time.Time `json:"-"`
}

// AutoMigrate creates or updates every table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Group{},
		&GroupMember{},
		&Subject{},
		&Lesson{},
		&FileAttachment{},
		&Assignment{},
		&AttendanceRecord{},
		&Submission{},
		&Grade{},
		&RefreshToken{},
	)
}
