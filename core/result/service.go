package result

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/grading"
)

var (
	// errors
	ErrNotFound        = errors.New("result not found")
	ErrVersionConflict = errors.New("result was modified concurrently")
)

const defaultSaveRetries = 3

type (
	Repository interface {
		GetResult(ctx context.Context, studentID, examID string) (Record, error)
		// QueryResults applies AND operation on available QueryFilter fields.
		QueryResults(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error)
		// SaveResult inserts (expectedVersion == 0) or updates the record whose stored version is expectedVersion,
		// and returns it with its new version. ErrVersionConflict is returned on mismatch.
		SaveResult(ctx context.Context, rec Record, expectedVersion int) (Record, error)
		DeleteResult(ctx context.Context, studentID, examID string) error
	}

	ServiceDeps struct {
		Repo     Repository
		Locker   KeyLocker
		MailSvc  core.EmailService
		Logger   core.Logger
		Validate *validator.Validate
		Conf     *core.Config
	}

	Service struct {
		repo     Repository
		locker   KeyLocker
		mailSvc  core.EmailService
		logger   core.Logger
		validate *validator.Validate
		grader   grading.Grader
		retries  int
	}
)

// NewService builds a result Service grading with the configured table (DefaultGradeTable if none).
func NewService(deps ServiceDeps) (*Service, error) {
	svc := &Service{
		repo:     deps.Repo,
		locker:   deps.Locker,
		mailSvc:  deps.MailSvc,
		logger:   deps.Logger,
		validate: deps.Validate,
		retries:  defaultSaveRetries,
	}
	if svc.locker == nil {
		svc.locker = NewLocalLocker()
	}
	if deps.Conf != nil {
		if deps.Conf.Grading.Bands != "" {
			tbl, err := grading.ParseTable(deps.Conf.Grading.Bands, deps.Conf.Grading.BelowLabel)
			if err != nil {
				return nil, errors.Wrap(err, "parsing grade table")
			}
			svc.grader = grading.NewGrader(tbl)
		}
		if deps.Conf.Grading.SaveRetries > 0 {
			svc.retries = deps.Conf.Grading.SaveRetries
		}
	}
	return svc, nil
}

func (svc *Service) Grader() grading.Grader { return svc.grader }

func (svc *Service) getExisting(ctx context.Context, studentID, examID string) (*Record, error) {
	rec, err := svc.repo.GetResult(ctx, studentID, examID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "getting result")
	}
	return &rec, nil
}

// withKeyLock runs fn holding the (studentID, examID) lock, retrying it on ErrVersionConflict.
func (svc *Service) withKeyLock(ctx context.Context, studentID, examID string, fn func() error) error {
	unlock, err := svc.locker.Lock(ctx, LockKey(studentID, examID))
	if err != nil {
		return errors.Wrap(err, "acquiring result lock")
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		err = fn()
		if errors.Cause(err) != ErrVersionConflict || attempt >= svc.retries {
			return err
		}
		svc.logger.Warn(fmt.Sprintf("result %s/%s: version conflict, retrying (%d/%d)", examID, studentID, attempt, svc.retries))
	}
}

type studentEntries struct {
	studentID string
	indexes   []int
	entries   []SubmitEntry
}

func groupByStudent(entries []SubmitEntry) []*studentEntries {
	groups := make([]*studentEntries, 0, len(entries))
	byStudent := make(map[string]*studentEntries)
	for i, e := range entries {
		g, ok := byStudent[e.StudentID]
		if !ok {
			g = &studentEntries{studentID: e.StudentID}
			byStudent[e.StudentID] = g
			groups = append(groups, g)
		}
		g.indexes = append(g.indexes, i)
		g.entries = append(g.entries, e)
	}
	return groups
}

// SubmitMarks grades and saves a subject's marks for many students.
// Each student's result is updated under its key lock. Locked results are skipped and invalid
// entries reported, neither aborting the rest of the batch.
func (svc *Service) SubmitMarks(ctx context.Context, sm SubmitMarks) (BatchReport, error) {
	if err := sm.Validate(svc.validate); err != nil {
		return BatchReport{}, err
	}

	report := BatchReport{
		Saved:   make([]Record, 0, len(sm.Entries)),
		Skipped: make([]string, 0),
		Errors:  make([]EntryReport, 0),
	}
	for _, group := range groupByStudent(sm.Entries) {
		if group.studentID == "" {
			// cannot be keyed: let the engine reject the entries
			res := svc.grader.BatchUpsert(sm.batch(group.entries...), nil)
			report.Errors = append(report.Errors, entryReports(group, res.Errors)...)
			continue
		}

		var saved *Record
		var skipped bool
		var entryErrs []EntryReport
		err := svc.withKeyLock(ctx, group.studentID, sm.ExamID, func() error {
			saved, skipped, entryErrs = nil, false, nil

			existing, err := svc.getExisting(ctx, group.studentID, sm.ExamID)
			if err != nil {
				return err
			}
			snapshot := make(grading.Snapshot, 1)
			if existing != nil {
				snapshot = grading.SnapshotOf(existing.ExamResult)
			}

			res := svc.grader.BatchUpsert(sm.batch(group.entries...), snapshot)
			entryErrs = entryReports(group, res.Errors)
			skipped = len(res.Skipped) > 0
			if len(res.Results) == 0 {
				return nil
			}

			now := time.Now().UTC()
			var rec Record
			var version int
			if existing != nil {
				rec = *existing
				version = existing.Version
			} else {
				rec.CreatedAt = now
			}
			rec.ExamResult = res.Results[0]
			rec.UpdatedAt = now
			for _, e := range group.entries {
				if e.ContactEmail != "" {
					rec.ContactEmail = e.ContactEmail
				}
			}

			rec, err = svc.repo.SaveResult(ctx, rec, version)
			if err != nil {
				return errors.Wrap(err, "saving result")
			}
			saved = &rec
			return nil
		})

		switch {
		case err == nil:
		case errors.Cause(err) == ErrVersionConflict:
			for _, idx := range group.indexes {
				report.Errors = append(report.Errors, EntryReport{Index: idx, StudentID: group.studentID, Error: ErrVersionConflict.Error()})
			}
			continue
		default:
			return report, err
		}

		if saved != nil {
			report.Saved = append(report.Saved, *saved)
		}
		if skipped {
			report.Skipped = append(report.Skipped, group.studentID)
		}
		report.Errors = append(report.Errors, entryErrs...)
	}
	return report, nil
}

func entryReports(group *studentEntries, errs []grading.EntryError) []EntryReport {
	reports := make([]EntryReport, 0, len(errs))
	for _, e := range errs {
		reports = append(reports, EntryReport{
			Index:     group.indexes[e.Index],
			StudentID: e.StudentID,
			Error:     e.Err.Error(),
		})
	}
	return reports
}

func (svc *Service) Get(ctx context.Context, studentID, examID string) (Record, error) {
	return svc.repo.GetResult(ctx, core.CleanString(studentID), core.CleanString(examID))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Record, error) {
	if err := core.CheckOrderings(ordering, AllowedOrderings...); err != nil {
		return nil, err
	}
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryResults(ctx, filter, ordering)
}

// Lock finalizes the results of the given students (every result of the exam if none given).
// Students with a contact email are sent their marksheet, including when other students failed.
func (svc *Service) Lock(ctx context.Context, examID string, studentIDs ...string) ([]Record, error) {
	locked, err := svc.setLocked(ctx, true, examID, studentIDs...)
	svc.sendMarksheets(locked)
	return locked, err
}

// Unlock reopens results for correction.
func (svc *Service) Unlock(ctx context.Context, examID string, studentIDs ...string) ([]Record, error) {
	return svc.setLocked(ctx, false, examID, studentIDs...)
}

func (svc *Service) sendMarksheets(locked []Record) {
	var msgs []*core.EmailMessage
	for _, rec := range locked {
		if rec.ContactEmail == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: rec.StudentName, Address: rec.ContactEmail}},
			Subject:      fmt.Sprintf("%s marksheet", rec.ExamName),
			TemplateName: "marksheet_published",
			TemplateData: marksheet{
				StudentName:   rec.StudentName,
				RollNumber:    rec.RollNumber,
				ExamName:      rec.ExamName,
				Marks:         rec.Marks,
				TotalMarks:    rec.TotalMarks,
				MaxTotalMarks: rec.MaxTotalMarks,
				Percentage:    rec.Percentage,
				FinalGrade:    rec.FinalGrade,
				Status:        rec.Status,
			},
		})
	}
	if len(msgs) > 0 && svc.mailSvc != nil {
		svc.mailSvc.SendMessages(msgs...)
	}
}

// setLocked returns the records whose lock state changed.
// Unknown students are rejected before anything changes. Failures past that point do not stop the
// other students; the first one is returned along with the records that did change.
func (svc *Service) setLocked(ctx context.Context, lock bool, examID string, studentIDs ...string) ([]Record, error) {
	examID = core.CleanString(examID)
	if len(studentIDs) == 0 {
		recs, err := svc.repo.QueryResults(ctx, &QueryFilter{ExamID: examID}, nil)
		if err != nil {
			return nil, errors.Wrap(err, "querying exam results")
		}
		for _, rec := range recs {
			studentIDs = append(studentIDs, rec.StudentID)
		}
	} else {
		cleaned, err := svc.checkExist(ctx, examID, studentIDs)
		if err != nil {
			return nil, err
		}
		studentIDs = cleaned
	}

	changed := make([]Record, 0, len(studentIDs))
	var firstErr error
	failed := 0
	for _, studentID := range studentIDs {
		var updated *Record
		err := svc.withKeyLock(ctx, studentID, examID, func() error {
			updated = nil
			rec, err := svc.repo.GetResult(ctx, studentID, examID)
			if err != nil {
				return err
			}
			if rec.IsLocked == lock {
				return nil
			}

			version := rec.Version
			now := time.Now().UTC()
			rec.IsLocked = lock
			rec.UpdatedAt = now
			if lock {
				rec.LockedAt = &now
			} else {
				rec.LockedAt = nil
			}
			if rec, err = svc.repo.SaveResult(ctx, rec, version); err != nil {
				return err
			}
			updated = &rec
			return nil
		})
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "setting lock of %s/%s", examID, studentID)
			}
			svc.logger.Warn(fmt.Sprintf("setting lock of %s/%s: %v", examID, studentID, err))
			continue
		}
		if updated != nil {
			changed = append(changed, *updated)
		}
	}
	if firstErr != nil {
		return changed, errors.Wrapf(firstErr, "%d of %d results not updated", failed, len(studentIDs))
	}
	return changed, nil
}

// checkExist returns the cleaned, deduplicated studentIDs, or ErrNotFound naming every student
// without a result for the exam.
func (svc *Service) checkExist(ctx context.Context, examID string, studentIDs []string) ([]string, error) {
	cleaned := make([]string, 0, len(studentIDs))
	seen := make(map[string]bool, len(studentIDs))
	var missing []string
	for _, studentID := range studentIDs {
		studentID = core.CleanString(studentID)
		if seen[studentID] {
			continue
		}
		seen[studentID] = true

		if _, err := svc.repo.GetResult(ctx, studentID, examID); err != nil {
			if errors.Cause(err) != ErrNotFound {
				return nil, errors.Wrapf(err, "getting result %s/%s", examID, studentID)
			}
			missing = append(missing, studentID)
			continue
		}
		cleaned = append(cleaned, studentID)
	}
	if len(missing) > 0 {
		return nil, errors.Wrapf(ErrNotFound, "exam %s: no result for %s", examID, strings.Join(missing, ", "))
	}
	return cleaned, nil
}

// Delete removes a result. Locked results must be unlocked first.
func (svc *Service) Delete(ctx context.Context, studentID, examID string) error {
	studentID, examID = core.CleanString(studentID), core.CleanString(examID)
	return svc.withKeyLock(ctx, studentID, examID, func() error {
		rec, err := svc.repo.GetResult(ctx, studentID, examID)
		if err != nil {
			return err
		}
		if rec.IsLocked {
			return grading.ErrLockedRecord
		}
		return svc.repo.DeleteResult(ctx, studentID, examID)
	})
}

// ClassReport ranks a class's results for one exam.
func (svc *Service) ClassReport(ctx context.Context, examID, classID string) (Report, error) {
	filter := &QueryFilter{ExamID: examID, ClassID: classID}
	filter.Clean()
	recs, err := svc.repo.QueryResults(ctx, filter, nil)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying class results")
	}
	if len(recs) == 0 {
		return Report{}, ErrNotFound
	}

	results := make([]grading.ExamResult, 0, len(recs))
	for _, rec := range recs {
		results = append(results, rec.ExamResult)
	}
	return Report{
		ExamID:      filter.ExamID,
		ExamName:    recs[0].ExamName,
		ClassID:     filter.ClassID,
		Summary:     grading.Summarize(results),
		Standings:   grading.Rank(results),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
