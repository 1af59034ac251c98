package result_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/grading"
	"github.com/trezcool/bulletin/core/result"
	emailsvc "github.com/trezcool/bulletin/services/email"
	"github.com/trezcool/bulletin/storage/database/dummy"
	"github.com/trezcool/bulletin/tests"
)

type fixture struct {
	svc     *result.Service
	repo    result.Repository
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T, locker result.KeyLocker) fixture {
	return setupWithRepo(t, locker, nil)
}

// setupWithRepo lets wrap decorate the in-memory repository.
func setupWithRepo(t *testing.T, locker result.KeyLocker, wrap func(result.Repository) result.Repository) fixture {
	conf := testutil.Config()
	logger := testutil.Logger(conf)
	core.ParseEmailTemplates(logger)
	validate, _ := testutil.Validator()

	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewResultRepository(db)
	if wrap != nil {
		repo = wrap(repo)
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	svc, err := result.NewService(result.ServiceDeps{
		Repo:     repo,
		Locker:   locker,
		MailSvc:  mailSvc,
		Logger:   logger,
		Validate: validate,
		Conf:     conf,
	})
	require.NoError(t, err)
	return fixture{svc: svc, repo: repo, mailSvc: mailSvc}
}

func submission(subjectID string, entries ...result.SubmitEntry) result.SubmitMarks {
	return result.SubmitMarks{
		ExamID:      "midterm",
		ExamName:    "Midterm",
		SubjectID:   subjectID,
		SubjectName: subjectID,
		MaxMarks:    100,
		Entries:     entries,
	}
}

func student(id string, marks float64) result.SubmitEntry {
	return result.SubmitEntry{
		StudentID:     id,
		StudentName:   "Student " + id,
		RollNumber:    id,
		ClassID:       "class-5",
		MarksObtained: marks,
	}
}

func TestService_SubmitMarks(t *testing.T) {
	ctx := context.Background()
	f := setup(t, result.NewLocalLocker())

	report, err := f.svc.SubmitMarks(ctx, submission("math", student("s1", 91), student("s2", 120), student("s3", 38)))
	require.NoError(t, err)
	require.Len(t, report.Saved, 2)
	assert.Empty(t, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 1, report.Errors[0].Index)
	assert.Equal(t, "s2", report.Errors[0].StudentID)

	report, err = f.svc.SubmitMarks(ctx, submission("science", student("s1", 38)))
	require.NoError(t, err)
	require.Len(t, report.Saved, 1)

	rec, err := f.svc.Get(ctx, "s1", "midterm")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Version)
	assert.Len(t, rec.Marks, 2)
	assert.Equal(t, 129.0, rec.TotalMarks)
	assert.Equal(t, 200.0, rec.MaxTotalMarks)
	assert.Equal(t, 64.5, rec.Percentage)
	assert.Equal(t, grading.GradeB, rec.FinalGrade)
	assert.Equal(t, grading.StatusPass, rec.Status)

	_, err = f.svc.Get(ctx, "s2", "midterm")
	assert.Equal(t, result.ErrNotFound, err)
}

func TestService_SubmitMarks_validation(t *testing.T) {
	f := setup(t, result.NewLocalLocker())

	tests := []struct {
		name  string
		data  result.SubmitMarks
		field string
	}{
		{name: "no exam", data: result.SubmitMarks{SubjectID: "math", MaxMarks: 100, Entries: []result.SubmitEntry{student("s1", 1)}}, field: "exam_id"},
		{name: "blank subject", data: result.SubmitMarks{ExamID: "e1", SubjectID: "  ", MaxMarks: 100, Entries: []result.SubmitEntry{student("s1", 1)}}, field: "subject_id"},
		{name: "zero max marks", data: result.SubmitMarks{ExamID: "e1", SubjectID: "math", Entries: []result.SubmitEntry{student("s1", 1)}}, field: "max_marks"},
		{name: "no entries", data: result.SubmitMarks{ExamID: "e1", SubjectID: "math", MaxMarks: 100}, field: "entries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SubmitMarks(context.Background(), tt.data)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "error = %v", err)
			assert.Equal(t, tt.field, vErrs[0].Field())
		})
	}
}

func TestService_SubmitMarks_missingStudent(t *testing.T) {
	f := setup(t, result.NewLocalLocker())

	report, err := f.svc.SubmitMarks(context.Background(), submission("math", student("", 50), student("s1", 50)))
	require.NoError(t, err)
	assert.Len(t, report.Saved, 1)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 0, report.Errors[0].Index)
}

func TestService_Lock(t *testing.T) {
	ctx := context.Background()
	f := setup(t, result.NewLocalLocker())

	s1 := student("s1", 80)
	s1.ContactEmail = "Parent.S1@Example.com"
	_, err := f.svc.SubmitMarks(ctx, submission("math", s1, student("s2", 70)))
	require.NoError(t, err)

	locked, err := f.svc.Lock(ctx, "midterm", "s1")
	require.NoError(t, err)
	require.Len(t, locked, 1)
	assert.True(t, locked[0].IsLocked)
	assert.NotNil(t, locked[0].LockedAt)

	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "parent.s1@example.com", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Student s1")
	assert.Contains(t, sent[0].TextContent, "80/100")

	// locked results are immutable
	before, err := f.svc.Get(ctx, "s1", "midterm")
	require.NoError(t, err)
	report, err := f.svc.SubmitMarks(ctx, submission("math", student("s1", 10), student("s2", 10)))
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, report.Skipped)
	require.Len(t, report.Saved, 1)
	assert.Equal(t, "s2", report.Saved[0].StudentID)
	after, err := f.svc.Get(ctx, "s1", "midterm")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	err = f.svc.Delete(ctx, "s1", "midterm")
	assert.True(t, grading.IsLocked(err))

	// locking again changes nothing
	locked, err = f.svc.Lock(ctx, "midterm", "s1")
	require.NoError(t, err)
	assert.Empty(t, locked)
	assert.Len(t, f.mailSvc.SentMessages(), 1)

	unlocked, err := f.svc.Unlock(ctx, "midterm")
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.False(t, unlocked[0].IsLocked)
	assert.Nil(t, unlocked[0].LockedAt)

	report, err = f.svc.SubmitMarks(ctx, submission("math", student("s1", 10)))
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, 10.0, report.Saved[0].TotalMarks)

	_, err = f.svc.Lock(ctx, "midterm", "nobody")
	assert.Equal(t, result.ErrNotFound, errors.Cause(err))
}

func TestService_Lock_unknownStudent(t *testing.T) {
	ctx := context.Background()
	f := setup(t, result.NewLocalLocker())

	s1 := student("s1", 80)
	s1.ContactEmail = "parent.s1@example.com"
	_, err := f.svc.SubmitMarks(ctx, submission("math", s1))
	require.NoError(t, err)

	locked, err := f.svc.Lock(ctx, "midterm", "s1", "ghost")
	assert.Equal(t, result.ErrNotFound, errors.Cause(err))
	assert.Contains(t, err.Error(), "ghost")
	assert.Empty(t, locked)

	rec, err := f.svc.Get(ctx, "s1", "midterm")
	require.NoError(t, err)
	assert.False(t, rec.IsLocked, "nothing changes when a student is unknown")
	assert.Empty(t, f.mailSvc.SentMessages())

	locked, err = f.svc.Lock(ctx, "midterm", "s1", " s1 ")
	require.NoError(t, err)
	require.Len(t, locked, 1)
	assert.Len(t, f.mailSvc.SentMessages(), 1)
}

var errStorage = errors.New("storage unavailable")

// brokenSaveRepo fails every save of one student.
type brokenSaveRepo struct {
	result.Repository
	studentID string
}

func (r brokenSaveRepo) SaveResult(ctx context.Context, rec result.Record, expectedVersion int) (result.Record, error) {
	if rec.StudentID == r.studentID && expectedVersion > 0 {
		return result.Record{}, errStorage
	}
	return r.Repository.SaveResult(ctx, rec, expectedVersion)
}

func TestService_Lock_partialFailure(t *testing.T) {
	ctx := context.Background()
	f := setupWithRepo(t, result.NewLocalLocker(), func(repo result.Repository) result.Repository {
		return brokenSaveRepo{Repository: repo, studentID: "s2"}
	})

	entries := []result.SubmitEntry{student("s1", 80), student("s2", 70), student("s3", 60)}
	for i := range entries {
		entries[i].ContactEmail = entries[i].StudentID + "@example.com"
	}
	_, err := f.svc.SubmitMarks(ctx, submission("math", entries...))
	require.NoError(t, err)

	locked, err := f.svc.Lock(ctx, "midterm")
	assert.Equal(t, errStorage, errors.Cause(err))
	require.Len(t, locked, 2)
	assert.Equal(t, "s1", locked[0].StudentID)
	assert.Equal(t, "s3", locked[1].StudentID)

	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 2, "locked results get their marksheet despite the failure")
	assert.Equal(t, "s1@example.com", sent[0].To[0].Address)
	assert.Equal(t, "s3@example.com", sent[1].To[0].Address)

	rec, err := f.svc.Get(ctx, "s2", "midterm")
	require.NoError(t, err)
	assert.False(t, rec.IsLocked)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := setup(t, result.NewLocalLocker())
	_, err := f.svc.SubmitMarks(ctx, submission("math", student("s1", 80)))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "s1", "midterm"))
	assert.Equal(t, result.ErrNotFound, f.svc.Delete(ctx, "s1", "midterm"))
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	f := setup(t, result.NewLocalLocker())
	_, err := f.svc.SubmitMarks(ctx, submission("math", student("s1", 30), student("s2", 90)))
	require.NoError(t, err)

	recs, err := f.svc.Query(ctx, &result.QueryFilter{ExamID: " midterm ", Status: grading.StatusPass}, nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "s2", recs[0].StudentID)

	_, err = f.svc.Query(ctx, nil, []core.DBOrdering{{Field: "password"}})
	assert.True(t, core.IsValidationError(err))
}

func TestService_ClassReport(t *testing.T) {
	ctx := context.Background()
	f := setup(t, result.NewLocalLocker())
	_, err := f.svc.SubmitMarks(ctx, submission("math", student("s1", 30), student("s2", 90), student("s3", 90), student("s4", 65)))
	require.NoError(t, err)

	report, err := f.svc.ClassReport(ctx, "midterm", "class-5")
	require.NoError(t, err)
	assert.Equal(t, "Midterm", report.ExamName)
	assert.Equal(t, 4, report.Summary.Students)
	assert.Equal(t, 3, report.Summary.Passed)
	assert.Equal(t, 75.0, report.Summary.PassRate)
	require.Len(t, report.Standings, 4)
	assert.Equal(t, []int{1, 1, 3, 4}, []int{
		report.Standings[0].Position, report.Standings[1].Position,
		report.Standings[2].Position, report.Standings[3].Position,
	})
	assert.Equal(t, "s4", report.Standings[2].Result.StudentID)

	_, err = f.svc.ClassReport(ctx, "midterm", "class-6")
	assert.Equal(t, result.ErrNotFound, err)
}

// Concurrent submissions of different subjects for the same student must all be kept.
func TestService_SubmitMarks_concurrent(t *testing.T) {
	lockers := map[string]result.KeyLocker{
		"local locker":        result.NewLocalLocker(),
		"version checks only": result.NopLocker,
	}
	for name, locker := range lockers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := setup(t, locker)

			const subjects = 8
			var wg sync.WaitGroup
			errs := make(chan error, subjects)
			for i := 0; i < subjects; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					report, err := f.svc.SubmitMarks(ctx, submission(fmt.Sprintf("subject-%d", i), student("s1", 50)))
					if err == nil && len(report.Saved) != 1 {
						err = fmt.Errorf("subject-%d not saved: %+v", i, report.Errors)
					}
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)

			failed := 0
			for err := range errs {
				if err != nil {
					failed++
				}
			}

			rec, err := f.svc.Get(ctx, "s1", "midterm")
			require.NoError(t, err)
			assert.Len(t, rec.Marks, subjects-failed)
			assert.Equal(t, float64(50*(subjects-failed)), rec.TotalMarks)
			assert.Equal(t, rec.Version, subjects-failed)
			if name == "local locker" {
				assert.Zero(t, failed)
			}
		})
	}
}
