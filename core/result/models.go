package result

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/grading"
)

// Record is a stored grading.ExamResult.
type Record struct {
	ID string `json:"id"`
	grading.ExamResult
	ContactEmail string     `json:"contact_email,omitempty"`
	Version      int        `json:"version"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
	LockedAt     *time.Time `json:"locked_at"`  // UTC
}

// Orderings accepted by QueryResults.
const (
	OrderPercentage = "percentage"
	OrderRollNumber = "roll_number"
	OrderStudentID  = "student_id"
	OrderStudent    = "student_name"
	OrderUpdatedAt  = "updated_at"
)

var AllowedOrderings = []string{OrderPercentage, OrderRollNumber, OrderStudentID, OrderStudent, OrderUpdatedAt}

// SubmitMarks holds the marks of many students for one subject of one exam.
// Entries are graded individually: an invalid entry never rejects the others.
type SubmitMarks struct {
	ExamID      string        `json:"exam_id" validate:"notblank"`
	ExamName    string        `json:"exam_name"`
	SubjectID   string        `json:"subject_id" validate:"notblank"`
	SubjectName string        `json:"subject_name"`
	MaxMarks    float64       `json:"max_marks" validate:"maxmarks"`
	Entries     []SubmitEntry `json:"entries" validate:"required,min=1,dive"`
}

type SubmitEntry struct {
	StudentID     string  `json:"student_id"`
	StudentName   string  `json:"student_name"`
	RollNumber    string  `json:"roll_number"`
	ClassID       string  `json:"class_id"`
	Section       string  `json:"section"`
	MarksObtained float64 `json:"marks_obtained"`
	ContactEmail  string  `json:"contact_email" validate:"omitempty,email"`
}

func (sm *SubmitMarks) Validate(validate *validator.Validate) error {
	sm.ExamID = core.CleanString(sm.ExamID)
	sm.ExamName = core.CleanString(sm.ExamName)
	sm.SubjectID = core.CleanString(sm.SubjectID)
	sm.SubjectName = core.CleanString(sm.SubjectName)
	for i := range sm.Entries {
		e := &sm.Entries[i]
		e.StudentID = core.CleanString(e.StudentID)
		e.StudentName = core.CleanString(e.StudentName)
		e.RollNumber = core.CleanString(e.RollNumber)
		e.ClassID = core.CleanString(e.ClassID)
		e.Section = core.CleanString(e.Section)
		e.ContactEmail = core.CleanString(e.ContactEmail, true /* lower */)
	}
	return validate.Struct(sm)
}

func (sm SubmitMarks) batch(entries ...SubmitEntry) grading.Batch {
	b := grading.Batch{
		ExamID:      sm.ExamID,
		ExamName:    sm.ExamName,
		SubjectID:   sm.SubjectID,
		SubjectName: sm.SubjectName,
		MaxMarks:    sm.MaxMarks,
		Entries:     make([]grading.BatchEntry, 0, len(entries)),
	}
	for _, e := range entries {
		b.Entries = append(b.Entries, grading.BatchEntry{
			StudentID:     e.StudentID,
			StudentName:   e.StudentName,
			RollNumber:    e.RollNumber,
			ClassID:       e.ClassID,
			Section:       e.Section,
			MarksObtained: e.MarksObtained,
		})
	}
	return b
}

// EntryReport describes a rejected SubmitEntry.
type EntryReport struct {
	Index     int    `json:"index"`
	StudentID string `json:"student_id"`
	Error     string `json:"error"`
}

// BatchReport is the outcome of SubmitMarks.
type BatchReport struct {
	Saved   []Record      `json:"saved"`
	Skipped []string      `json:"skipped"` // locked results
	Errors  []EntryReport `json:"errors"`
}

type QueryFilter struct {
	StudentID string         `query:"student_id"`
	ExamID    string         `query:"exam_id"`
	ClassID   string         `query:"class_id"`
	Section   string         `query:"section"`
	Status    grading.Status `query:"status"`
	IsLocked  *bool          `query:"is_locked"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.ExamID == "" && qf.ClassID == "" && qf.Section == "" &&
		qf.Status == "" && qf.IsLocked == nil
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.ExamID = core.CleanString(qf.ExamID)
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.Section = core.CleanString(qf.Section)
	qf.Status = grading.Status(core.CleanString(string(qf.Status)))
}

// Match reports whether rec satisfies every set field of the filter.
func (qf *QueryFilter) Match(rec Record) bool {
	if qf == nil {
		return true
	}
	switch {
	case qf.StudentID != "" && rec.StudentID != qf.StudentID,
		qf.ExamID != "" && rec.ExamID != qf.ExamID,
		qf.ClassID != "" && rec.ClassID != qf.ClassID,
		qf.Section != "" && rec.Section != qf.Section,
		qf.Status != "" && rec.Status != qf.Status,
		qf.IsLocked != nil && rec.IsLocked != *qf.IsLocked:
		return false
	}
	return true
}

// Report is a class leaderboard for one exam.
type Report struct {
	ExamID      string             `json:"exam_id"`
	ExamName    string             `json:"exam_name"`
	ClassID     string             `json:"class_id"`
	Summary     grading.Summary    `json:"summary"`
	Standings   []grading.Standing `json:"standings"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// marksheet is the "marksheet_published" email template data.
type marksheet struct {
	StudentName   string
	RollNumber    string
	ExamName      string
	Marks         []grading.SubjectMark
	TotalMarks    float64
	MaxTotalMarks float64
	Percentage    float64
	FinalGrade    grading.Grade
	Status        grading.Status
}
