package grading

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// SubjectMark is one subject's score within one exam for one student.
type SubjectMark struct {
	SubjectID     string  `json:"subject_id"`
	SubjectName   string  `json:"subject_name"`
	MarksObtained float64 `json:"marks_obtained"`
	MaxMarks      float64 `json:"max_marks"`
	Grade         Grade   `json:"grade"`
}

// Identity is the student & exam snapshot a result is created with.
type Identity struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	RollNumber  string `json:"roll_number"`
	ExamID      string `json:"exam_id"`
	ExamName    string `json:"exam_name"`
	ClassID     string `json:"class_id"`
	Section     string `json:"section,omitempty"`
}

func (id Identity) Key() Key {
	return Key{StudentID: id.StudentID, ExamID: id.ExamID}
}

func (id Identity) validate() error {
	var missing []string
	if strings.TrimSpace(id.StudentID) == "" {
		missing = append(missing, "student_id")
	}
	if strings.TrimSpace(id.StudentName) == "" {
		missing = append(missing, "student_name")
	}
	if strings.TrimSpace(id.ExamID) == "" {
		missing = append(missing, "exam_id")
	}
	if strings.TrimSpace(id.ClassID) == "" {
		missing = append(missing, "class_id")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrInvalidInput, "missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Key identifies an ExamResult.
type Key struct {
	StudentID string
	ExamID    string
}

// ExamResult aggregates every SubjectMark a student has for one exam.
type ExamResult struct {
	Identity
	Marks         []SubjectMark `json:"marks"`
	TotalMarks    float64       `json:"total_marks"`
	MaxTotalMarks float64       `json:"max_total_marks"`
	Percentage    float64       `json:"percentage"`
	FinalGrade    Grade         `json:"final_grade"`
	Status        Status        `json:"status"`
	IsLocked      bool          `json:"is_locked"`
}

// Mark returns the SubjectMark for subjectID, if any.
func (r ExamResult) Mark(subjectID string) (SubjectMark, bool) {
	for _, m := range r.Marks {
		if m.SubjectID == subjectID {
			return m, true
		}
	}
	return SubjectMark{}, false
}

// Recompute regrades every mark and derives every aggregate from the full marks collection.
// The marks slice of `r` is copied, never written to.
func (g Grader) Recompute(r ExamResult) ExamResult {
	var total, maxTotal float64
	marks := make([]SubjectMark, len(r.Marks))
	for i, m := range r.Marks {
		if m.MaxMarks > 0 {
			m.Grade = g.GradeForPercentage(Percentage(m.MarksObtained, m.MaxMarks))
		}
		marks[i] = m
		total += m.MarksObtained
		maxTotal += m.MaxMarks
	}
	r.Marks = marks
	r.TotalMarks = total
	r.MaxTotalMarks = maxTotal
	r.Percentage = Percentage(total, maxTotal)
	r.FinalGrade = g.GradeForPercentage(r.Percentage)
	r.Status = g.StatusFor(r.FinalGrade)
	return r
}

// checkMark validates a mark and sets its grade.
func (g Grader) checkMark(m SubjectMark) (SubjectMark, error) {
	if strings.TrimSpace(m.SubjectID) == "" {
		return m, errors.Wrap(ErrInvalidInput, "missing subject_id")
	}
	if math.IsNaN(m.MaxMarks) || math.IsInf(m.MaxMarks, 0) || m.MaxMarks <= 0 {
		return m, errors.Wrapf(ErrInvalidInput, "max marks must be positive, got %v", m.MaxMarks)
	}
	if math.IsNaN(m.MarksObtained) || m.MarksObtained < 0 || m.MarksObtained > m.MaxMarks {
		return m, errors.Wrapf(ErrInvalidInput, "marks obtained %v outside [0, %v]", m.MarksObtained, m.MaxMarks)
	}
	grade, err := g.GradeFor(m.MarksObtained, m.MaxMarks)
	if err != nil {
		return m, err
	}
	m.Grade = grade
	return m, nil
}
