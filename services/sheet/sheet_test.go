package sheetsvc

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/bulletin/core/grading"
	"github.com/trezcool/bulletin/core/result"
)

func marksWorkbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &MarksColumns))
	for i, row := range rows {
		row := row
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestReadMarks(t *testing.T) {
	buf := marksWorkbook(t,
		[]interface{}{"s1", "John Doe", "01", "class-5", "A", 91, "parent@test.cd"},
		[]interface{}{"", "ignored"},
		[]interface{}{"s2", "Jane Doe", "02", "class-5", "", 38.5},
	)

	entries, err := ReadMarks(buf)
	require.NoError(t, err)
	assert.Equal(t, []result.SubmitEntry{
		{StudentID: "s1", StudentName: "John Doe", RollNumber: "01", ClassID: "class-5", Section: "A", MarksObtained: 91, ContactEmail: "parent@test.cd"},
		{StudentID: "s2", StudentName: "Jane Doe", RollNumber: "02", ClassID: "class-5", MarksObtained: 38.5},
	}, entries)
}

func TestReadMarks_invalid(t *testing.T) {
	buf := marksWorkbook(t, []interface{}{"s1", "John Doe", "01", "class-5", "A", "ninety"})
	_, err := ReadMarks(buf)
	assert.EqualError(t, err, `row 2: invalid marks "ninety"`)

	_, err = ReadMarks(bytes.NewBufferString("not a workbook"))
	assert.Error(t, err)
}

func TestWriteMarksTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarksTemplate(&buf))

	entries, err := ReadMarks(&buf)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteReport(t *testing.T) {
	var results []grading.ExamResult
	for _, s := range []struct {
		id    string
		marks float64
	}{{"s1", 35}, {"s2", 90}} {
		id := grading.Identity{StudentID: s.id, StudentName: "Student " + s.id, RollNumber: s.id, ExamID: "e1", ExamName: "Midterm", ClassID: "class-5"}
		res, err := grading.UpsertSubjectMark(nil, id, grading.SubjectMark{SubjectID: "math", SubjectName: "Mathematics", MarksObtained: s.marks, MaxMarks: 100})
		require.NoError(t, err)
		results = append(results, res)
	}
	rep := result.Report{
		ExamID:    "e1",
		ExamName:  "Midterm",
		ClassID:   "class-5",
		Summary:   grading.Summarize(results),
		Standings: grading.Rank(results),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, rep))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.True(t, len(rows) > 3)
	assert.Equal(t, []string{"Position", "Roll Number", "Student ID", "Student Name", "Section", "Mathematics",
		"Total", "Max Total", "Percentage", "Grade", "Status"}, rows[0])
	assert.Equal(t, "s2", rows[1][2])
	assert.Equal(t, "90/100 (A+)", rows[1][5])
	assert.Equal(t, "s1", rows[2][2])
	assert.Equal(t, "Fail", rows[2][10])

	passed, err := f.GetCellValue(reportSheet, "B8")
	require.NoError(t, err)
	assert.Equal(t, "1", passed)
}

func TestWriteReport_tooManySubjects(t *testing.T) {
	res := grading.ExamResult{Identity: grading.Identity{StudentID: "s1", ExamID: "e1", ClassID: "class-5"}}
	for i := 0; i < 16400; i++ {
		id := strconv.Itoa(i)
		res.Marks = append(res.Marks, grading.SubjectMark{SubjectID: id, MarksObtained: 1, MaxMarks: 2})
	}

	var buf bytes.Buffer
	err := WriteReport(&buf, result.Report{ExamID: "e1", Standings: grading.Rank([]grading.ExamResult{res})})
	assert.Error(t, err)
	assert.Zero(t, buf.Len(), "nothing is written on failure")
}
