package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/grading"
	"github.com/trezcool/bulletin/core/result"
)

// marksColumn stores the subject marks as JSONB.
type marksColumn []grading.SubjectMark

func (m marksColumn) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]grading.SubjectMark(m))
	if err != nil {
		return nil, errors.Wrap(err, "marshalling marks")
	}
	return string(b), nil
}

func (m *marksColumn) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = marksColumn{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Errorf("marks: cannot scan %T", src)
	}
	return json.Unmarshal(data, (*[]grading.SubjectMark)(m))
}

type resultRow struct {
	ID            string         `db:"id"`
	StudentID     string         `db:"student_id"`
	StudentName   string         `db:"student_name"`
	RollNumber    string         `db:"roll_number"`
	ExamID        string         `db:"exam_id"`
	ExamName      string         `db:"exam_name"`
	ClassID       string         `db:"class_id"`
	Section       null.String    `db:"section"`
	Marks         marksColumn    `db:"marks"`
	TotalMarks    float64        `db:"total_marks"`
	MaxTotalMarks float64        `db:"max_total_marks"`
	Percentage    float64        `db:"percentage"`
	FinalGrade    grading.Grade  `db:"final_grade"`
	Status        grading.Status `db:"status"`
	IsLocked      bool           `db:"is_locked"`
	ContactEmail  null.String    `db:"contact_email"`
	Version       int            `db:"version"`
	CreatedAt     null.Time      `db:"created_at"`
	UpdatedAt     null.Time      `db:"updated_at"`
	LockedAt      null.Time      `db:"locked_at"`

	// update argument only
	ExpectedVersion int `db:"expected_version"`
}

var orderColumns = map[string]string{
	result.OrderPercentage: "percentage",
	result.OrderRollNumber: "roll_number",
	result.OrderStudentID:  "student_id",
	result.OrderStudent:    "LOWER(student_name)",
	result.OrderUpdatedAt:  "updated_at",
}

type resultRepository struct {
	db *sqlx.DB
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *sqlx.DB) result.Repository {
	return &resultRepository{db: db}
}

func (repo resultRepository) toRow(rec result.Record) resultRow {
	return resultRow{
		ID:            rec.ID,
		StudentID:     rec.StudentID,
		StudentName:   rec.StudentName,
		RollNumber:    rec.RollNumber,
		ExamID:        rec.ExamID,
		ExamName:      rec.ExamName,
		ClassID:       rec.ClassID,
		Section:       null.NewString(rec.Section, rec.Section != ""),
		Marks:         marksColumn(rec.Marks),
		TotalMarks:    rec.TotalMarks,
		MaxTotalMarks: rec.MaxTotalMarks,
		Percentage:    rec.Percentage,
		FinalGrade:    rec.FinalGrade,
		Status:        rec.Status,
		IsLocked:      rec.IsLocked,
		ContactEmail:  null.NewString(rec.ContactEmail, rec.ContactEmail != ""),
		Version:       rec.Version,
		CreatedAt:     null.NewTime(rec.CreatedAt.UTC(), !rec.CreatedAt.IsZero()),
		UpdatedAt:     null.NewTime(rec.UpdatedAt.UTC(), !rec.UpdatedAt.IsZero()),
		LockedAt:      null.TimeFromPtr(rec.LockedAt),
	}
}

func (repo resultRepository) fromRow(row resultRow) result.Record {
	rec := result.Record{
		ID: row.ID,
		ExamResult: grading.ExamResult{
			Identity: grading.Identity{
				StudentID:   row.StudentID,
				StudentName: row.StudentName,
				RollNumber:  row.RollNumber,
				ExamID:      row.ExamID,
				ExamName:    row.ExamName,
				ClassID:     row.ClassID,
				Section:     row.Section.String,
			},
			Marks:         []grading.SubjectMark(row.Marks),
			TotalMarks:    row.TotalMarks,
			MaxTotalMarks: row.MaxTotalMarks,
			Percentage:    row.Percentage,
			FinalGrade:    row.FinalGrade,
			Status:        row.Status,
			IsLocked:      row.IsLocked,
		},
		ContactEmail: row.ContactEmail.String,
		Version:      row.Version,
		CreatedAt:    row.CreatedAt.Time.UTC(),
		UpdatedAt:    row.UpdatedAt.Time.UTC(),
	}
	if row.LockedAt.Valid {
		t := row.LockedAt.Time.UTC()
		rec.LockedAt = &t
	}
	return rec
}

// trapNoRowsErr maps psql "no rows" err to result.ErrNotFound
func (repo resultRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return result.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo resultRepository) GetResult(ctx context.Context, studentID, examID string) (result.Record, error) {
	var row resultRow
	q := repo.db.Rebind("SELECT * FROM exam_results WHERE student_id = ? AND exam_id = ?")
	if err := repo.db.GetContext(ctx, &row, q, studentID, examID); err != nil {
		return result.Record{}, repo.trapNoRowsErr(err, "getting result")
	}
	return repo.fromRow(row), nil
}

func (repo resultRepository) QueryResults(ctx context.Context, filter *result.QueryFilter, ordering []core.DBOrdering) ([]result.Record, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		if filter.StudentID != "" {
			where, args = append(where, "student_id = ?"), append(args, filter.StudentID)
		}
		if filter.ExamID != "" {
			where, args = append(where, "exam_id = ?"), append(args, filter.ExamID)
		}
		if filter.ClassID != "" {
			where, args = append(where, "class_id = ?"), append(args, filter.ClassID)
		}
		if filter.Section != "" {
			where, args = append(where, "section = ?"), append(args, filter.Section)
		}
		if filter.Status != "" {
			where, args = append(where, "status = ?"), append(args, filter.Status)
		}
		if filter.IsLocked != nil {
			where, args = append(where, "is_locked = ?"), append(args, *filter.IsLocked)
		}
	}

	q := "SELECT * FROM exam_results"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	orderBy := make([]string, 0, len(ordering)+2)
	for _, ord := range ordering {
		col, ok := orderColumns[ord.Field]
		if !ok {
			return nil, core.CheckOrderings([]core.DBOrdering{ord}, result.AllowedOrderings...)
		}
		orderBy = append(orderBy, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(orderBy) == 0 {
		orderBy = append(orderBy, "roll_number ASC", "student_id ASC")
	}
	orderBy = append(orderBy, "exam_id ASC", "student_id ASC")
	q += " ORDER BY " + strings.Join(orderBy, ", ")

	var rows []resultRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	recs := make([]result.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, repo.fromRow(row))
	}
	return recs, nil
}

const (
	insertResultQuery = `INSERT INTO exam_results (
	id, student_id, student_name, roll_number, exam_id, exam_name, class_id, section, marks, total_marks,
	max_total_marks, percentage, final_grade, status, is_locked, contact_email, version, created_at, updated_at, locked_at
) VALUES (
	:id, :student_id, :student_name, :roll_number, :exam_id, :exam_name, :class_id, :section, :marks, :total_marks,
	:max_total_marks, :percentage, :final_grade, :status, :is_locked, :contact_email, :version, :created_at, :updated_at, :locked_at
) ON CONFLICT (student_id, exam_id) DO NOTHING`

	updateResultQuery = `UPDATE exam_results SET
	student_name = :student_name, roll_number = :roll_number, exam_name = :exam_name, class_id = :class_id,
	section = :section, marks = :marks, total_marks = :total_marks, max_total_marks = :max_total_marks,
	percentage = :percentage, final_grade = :final_grade, status = :status, is_locked = :is_locked,
	contact_email = :contact_email, version = :version, updated_at = :updated_at, locked_at = :locked_at
WHERE student_id = :student_id AND exam_id = :exam_id AND version = :expected_version`
)

func (repo resultRepository) SaveResult(ctx context.Context, rec result.Record, expectedVersion int) (result.Record, error) {
	rec.Version = expectedVersion + 1

	var (
		res sql.Result
		err error
	)
	if expectedVersion == 0 {
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		res, err = repo.db.NamedExecContext(ctx, insertResultQuery, repo.toRow(rec))
	} else {
		row := repo.toRow(rec)
		row.ExpectedVersion = expectedVersion
		res, err = repo.db.NamedExecContext(ctx, updateResultQuery, row)
	}
	if err != nil {
		return result.Record{}, errors.Wrap(err, "saving result")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return result.Record{}, errors.Wrap(err, "saving result")
	}
	if n == 0 {
		return result.Record{}, result.ErrVersionConflict
	}
	return repo.GetResult(ctx, rec.StudentID, rec.ExamID)
}

func (repo resultRepository) DeleteResult(ctx context.Context, studentID, examID string) error {
	q := repo.db.Rebind("DELETE FROM exam_results WHERE student_id = ? AND exam_id = ?")
	res, err := repo.db.ExecContext(ctx, q, studentID, examID)
	if err != nil {
		return errors.Wrap(err, "deleting result")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting result")
	}
	if n == 0 {
		return result.ErrNotFound
	}
	return nil
}
