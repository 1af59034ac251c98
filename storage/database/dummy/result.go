package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/grading"
	"github.com/trezcool/bulletin/core/result"
)

type resultRepository struct {
	db *resultTable
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *DB) result.Repository {
	return &resultRepository{db: db.result}
}

// clone deep copies a record so callers never share the stored marks.
func clone(rec result.Record) result.Record {
	rec.Marks = append([]grading.SubjectMark(nil), rec.Marks...)
	if rec.LockedAt != nil {
		t := *rec.LockedAt
		rec.LockedAt = &t
	}
	return rec
}

func (repo *resultRepository) GetResult(_ context.Context, studentID, examID string) (result.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[resultKey{studentID: studentID, examID: examID}]; ok {
		return clone(*rec), nil
	}
	return result.Record{}, result.ErrNotFound
}

func (repo *resultRepository) QueryResults(_ context.Context, filter *result.QueryFilter, ordering []core.DBOrdering) ([]result.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := make([]result.Record, 0, len(repo.db.table))
	for _, rec := range repo.db.table {
		if filter.Match(*rec) {
			recs = append(recs, clone(*rec))
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{
			{Field: result.OrderRollNumber, Ascending: true},
			{Field: result.OrderStudentID, Ascending: true},
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(recs[i], recs[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return recs[i].ExamID+recs[i].StudentID < recs[j].ExamID+recs[j].StudentID
	})
	return recs, nil
}

func compare(a, b result.Record, field string) int {
	switch field {
	case result.OrderPercentage:
		switch {
		case a.Percentage < b.Percentage:
			return -1
		case a.Percentage > b.Percentage:
			return 1
		}
		return 0
	case result.OrderRollNumber:
		return strings.Compare(a.RollNumber, b.RollNumber)
	case result.OrderStudentID:
		return strings.Compare(a.StudentID, b.StudentID)
	case result.OrderStudent:
		return strings.Compare(strings.ToLower(a.StudentName), strings.ToLower(b.StudentName))
	case result.OrderUpdatedAt:
		switch {
		case a.UpdatedAt.Before(b.UpdatedAt):
			return -1
		case a.UpdatedAt.After(b.UpdatedAt):
			return 1
		}
	}
	return 0
}

func (repo *resultRepository) SaveResult(_ context.Context, rec result.Record, expectedVersion int) (result.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := resultKey{studentID: rec.StudentID, examID: rec.ExamID}
	stored, exists := repo.db.table[key]
	switch {
	case expectedVersion == 0 && exists,
		expectedVersion != 0 && !exists,
		exists && stored.Version != expectedVersion:
		return result.Record{}, result.ErrVersionConflict
	}

	if exists {
		rec.ID = stored.ID
		rec.CreatedAt = stored.CreatedAt
	} else if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.Version = expectedVersion + 1
	saved := clone(rec)
	repo.db.table[key] = &saved
	return clone(saved), nil
}

func (repo *resultRepository) DeleteResult(_ context.Context, studentID, examID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := resultKey{studentID: studentID, examID: examID}
	if _, ok := repo.db.table[key]; !ok {
		return result.ErrNotFound
	}
	delete(repo.db.table, key)
	return nil
}
