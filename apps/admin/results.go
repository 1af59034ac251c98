package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/bulletin/core/result"
	sheetsvc "github.com/trezcool/bulletin/services/sheet"
)

// importMarks submits the marks read from an .xlsx file.
func (cli *commandLine) importMarks(sm result.SubmitMarks, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening marks file")
	}
	defer f.Close()

	if sm.Entries, err = sheetsvc.ReadMarks(f); err != nil {
		return errors.Wrap(err, "reading marks file")
	}

	report, err := cli.resultSvc.SubmitMarks(context.Background(), sm)
	if err != nil {
		return err
	}

	fmt.Printf("saved: %d, skipped (locked): %d, errors: %d\n", len(report.Saved), len(report.Skipped), len(report.Errors))
	for _, id := range report.Skipped {
		fmt.Printf("  skipped %s: result is locked\n", id)
	}
	for _, e := range report.Errors {
		fmt.Printf("  entry %d (%s): %s\n", e.Index+1, e.StudentID, e.Error)
	}
	return nil
}

func (cli *commandLine) writeTemplate(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating template file")
	}
	if err = sheetsvc.WriteMarksTemplate(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "writing template")
	}
	return f.Close()
}

func (cli *commandLine) setLocked(lock bool, examID string, studentIDs ...string) error {
	ctx := context.Background()

	var recs []result.Record
	var err error
	action := "locked"
	if lock {
		recs, err = cli.resultSvc.Lock(ctx, examID, studentIDs...)
	} else {
		action = "unlocked"
		recs, err = cli.resultSvc.Unlock(ctx, examID, studentIDs...)
	}
	for _, rec := range recs {
		fmt.Printf("%s %s/%s\n", action, rec.ExamID, rec.StudentID)
	}
	return err
}
