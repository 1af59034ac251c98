// Package sheetsvc reads marks from and writes class reports to xlsx workbooks.
package sheetsvc

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/bulletin/core/grading"
	"github.com/trezcool/bulletin/core/result"
)

const reportSheet = "Report"

// MarksColumns is the expected layout of a marks workbook (first sheet, header on the first row).
var MarksColumns = []string{"Student ID", "Student Name", "Roll Number", "Class", "Section", "Marks", "Contact Email"}

// ReadMarks parses a marks workbook into submission entries. Rows without a student ID are ignored.
func ReadMarks(r io.Reader) ([]result.SubmitEntry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheet")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %q", sheet)
	}

	entries := make([]result.SubmitEntry, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		cell := func(col int) string {
			if col < len(row) {
				return strings.TrimSpace(row[col])
			}
			return ""
		}
		if cell(0) == "" {
			continue
		}

		marks, err := strconv.ParseFloat(cell(5), 64)
		if err != nil {
			return nil, errors.Errorf("row %d: invalid marks %q", i+1, cell(5))
		}
		entries = append(entries, result.SubmitEntry{
			StudentID:     cell(0),
			StudentName:   cell(1),
			RollNumber:    cell(2),
			ClassID:       cell(3),
			Section:       cell(4),
			MarksObtained: marks,
			ContactEmail:  cell(6),
		})
	}
	return entries, nil
}

// WriteMarksTemplate writes an empty marks workbook with its header row.
func WriteMarksTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), "Marks"); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err := f.SetSheetRow("Marks", "A1", &MarksColumns); err != nil {
		return errors.Wrap(err, "writing header")
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}

func subjectsOf(standings []grading.Standing) (ids, names []string) {
	seen := make(map[string]bool)
	for _, s := range standings {
		for _, m := range s.Result.Marks {
			if seen[m.SubjectID] {
				continue
			}
			seen[m.SubjectID] = true
			ids = append(ids, m.SubjectID)
			name := m.SubjectName
			if name == "" {
				name = m.SubjectID
			}
			names = append(names, name)
		}
	}
	return ids, names
}

// WriteReport writes a class report: one row per student (ranked) followed by the class summary.
func WriteReport(w io.Writer, rep result.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	subjectIDs, subjectNames := subjectsOf(rep.Standings)
	header := []interface{}{"Position", "Roll Number", "Student ID", "Student Name", "Section"}
	for _, name := range subjectNames {
		header = append(header, name)
	}
	header = append(header, "Total", "Max Total", "Percentage", "Grade", "Status")
	if err := f.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating style")
	}
	lastCol, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err = f.SetCellStyle(reportSheet, "A1", lastCol, bold); err != nil {
		return errors.Wrap(err, "styling header")
	}

	rowNum := 2
	for _, s := range rep.Standings {
		r := s.Result
		row := []interface{}{s.Position, r.RollNumber, r.StudentID, r.StudentName, r.Section}
		for _, id := range subjectIDs {
			if m, ok := r.Mark(id); ok {
				row = append(row, fmt.Sprintf("%v/%v (%s)", m.MarksObtained, m.MaxMarks, m.Grade))
			} else {
				row = append(row, "-")
			}
		}
		row = append(row, r.TotalMarks, r.MaxTotalMarks, round2(r.Percentage), string(r.FinalGrade), string(r.Status))

		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err = f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", rowNum)
		}
		rowNum++
	}

	sum := rep.Summary
	summary := [][]interface{}{
		{"Exam", rep.ExamName},
		{"Class", rep.ClassID},
		{"Students", sum.Students},
		{"Passed", sum.Passed},
		{"Failed", sum.Failed},
		{"Pass Rate", round2(sum.PassRate)},
		{"Average Percentage", round2(sum.AveragePercentage)},
		{"Highest", round2(sum.Highest)},
		{"Lowest", round2(sum.Lowest)},
	}
	rowNum++
	for _, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err = f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", rowNum)
		}
		rowNum++
	}

	return errors.Wrap(f.Write(w), "writing workbook")
}

func round2(f float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 2, 64), 64)
	return v
}
