package grading

import (
	"github.com/pkg/errors"
)

// UpsertSubjectMark applies `mark` to `existing` (nil on first submission) and returns the new result.
//
// A new result is built from `id` which must carry the student & exam identity.
// A locked result is returned unchanged along with ErrLockedRecord.
// Otherwise the mark replaces any mark of the same subject (or is appended) and the aggregates are
// recomputed from the whole marks collection. `existing` is never modified.
func (g Grader) UpsertSubjectMark(existing *ExamResult, id Identity, mark SubjectMark) (ExamResult, error) {
	if existing != nil && existing.IsLocked {
		return *existing, ErrLockedRecord
	}

	mark, err := g.checkMark(mark)
	if err != nil {
		if existing != nil {
			return *existing, err
		}
		return ExamResult{}, err
	}

	if existing == nil {
		if err := id.validate(); err != nil {
			return ExamResult{}, err
		}
		return g.Recompute(ExamResult{Identity: id, Marks: []SubjectMark{mark}}), nil
	}

	res := *existing
	res.Marks = make([]SubjectMark, 0, len(existing.Marks)+1)
	replaced := false
	for _, m := range existing.Marks {
		if m.SubjectID == mark.SubjectID {
			if replaced {
				continue // drop stray duplicates
			}
			m = mark
			replaced = true
		}
		res.Marks = append(res.Marks, m)
	}
	if !replaced {
		res.Marks = append(res.Marks, mark)
	}
	return g.Recompute(res), nil
}

// UpsertSubjectMark upserts with DefaultGradeTable.
func UpsertSubjectMark(existing *ExamResult, id Identity, mark SubjectMark) (ExamResult, error) {
	return Grader{}.UpsertSubjectMark(existing, id, mark)
}

// BatchEntry is one student's marks in a Batch.
type BatchEntry struct {
	StudentID     string  `json:"student_id"`
	StudentName   string  `json:"student_name"`
	RollNumber    string  `json:"roll_number"`
	ClassID       string  `json:"class_id"`
	Section       string  `json:"section,omitempty"`
	MarksObtained float64 `json:"marks_obtained"`
}

// Batch holds the marks of many students for one subject of one exam.
type Batch struct {
	ExamID      string       `json:"exam_id"`
	ExamName    string       `json:"exam_name"`
	SubjectID   string       `json:"subject_id"`
	SubjectName string       `json:"subject_name"`
	MaxMarks    float64      `json:"max_marks"`
	Entries     []BatchEntry `json:"entries"`
}

// BatchResult reports a BatchUpsert: the updated results (one per student, in submission order),
// the students skipped because their result is locked, and the rejected entries.
type BatchResult struct {
	Results []ExamResult `json:"results"`
	Skipped []string     `json:"skipped"`
	Errors  []EntryError `json:"-"`
}

// Snapshot holds the current results a batch is applied on.
type Snapshot map[Key]ExamResult

// SnapshotOf indexes results by Key.
func SnapshotOf(results ...ExamResult) Snapshot {
	snap := make(Snapshot, len(results))
	for _, r := range results {
		snap[r.Key()] = r
	}
	return snap
}

// BatchUpsert applies the batch entry by entry against `snapshot`, which is not modified.
// Invalid entries are reported in BatchResult.Errors and locked results in BatchResult.Skipped;
// neither aborts the remaining entries. Several entries for the same student are applied in order.
func (g Grader) BatchUpsert(b Batch, snapshot Snapshot) BatchResult {
	res := BatchResult{
		Results: make([]ExamResult, 0, len(b.Entries)),
		Skipped: make([]string, 0),
		Errors:  make([]EntryError, 0),
	}
	working := make(map[Key]int) // Key -> index in res.Results
	skipped := make(map[string]bool)

	for i, entry := range b.Entries {
		id := Identity{
			StudentID:   entry.StudentID,
			StudentName: entry.StudentName,
			RollNumber:  entry.RollNumber,
			ExamID:      b.ExamID,
			ExamName:    b.ExamName,
			ClassID:     entry.ClassID,
			Section:     entry.Section,
		}
		mark := SubjectMark{
			SubjectID:     b.SubjectID,
			SubjectName:   b.SubjectName,
			MarksObtained: entry.MarksObtained,
			MaxMarks:      b.MaxMarks,
		}
		key := id.Key()

		var existing *ExamResult
		if idx, ok := working[key]; ok {
			r := res.Results[idx]
			existing = &r
		} else if r, ok := snapshot[key]; ok {
			existing = &r
		}

		updated, err := g.UpsertSubjectMark(existing, id, mark)
		switch {
		case err == nil:
			if idx, ok := working[key]; ok {
				res.Results[idx] = updated
			} else {
				working[key] = len(res.Results)
				res.Results = append(res.Results, updated)
			}
		case errors.Cause(err) == ErrLockedRecord:
			if !skipped[entry.StudentID] {
				skipped[entry.StudentID] = true
				res.Skipped = append(res.Skipped, entry.StudentID)
			}
		default:
			res.Errors = append(res.Errors, EntryError{Index: i, StudentID: entry.StudentID, Err: err})
		}
	}
	return res
}

// BatchUpsert applies a batch with DefaultGradeTable.
func BatchUpsert(b Batch, snapshot Snapshot) BatchResult {
	return Grader{}.BatchUpsert(b, snapshot)
}
