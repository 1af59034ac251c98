package grading

// Grade is a letter grade derived from a percentage.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeFail  Grade = "Fail"
)

// Status is the pass/fail outcome of a result.
type Status string

const (
	StatusPass Status = "Pass"
	StatusFail Status = "Fail"
)

// DefaultGradeTable is the 90/75/60/40 grading scale.
var DefaultGradeTable = MustTable(string(GradeFail),
	Band{Min: 90, Label: string(GradeAPlus)},
	Band{Min: 75, Label: string(GradeA)},
	Band{Min: 60, Label: string(GradeB)},
	Band{Min: 40, Label: string(GradeC)},
)

// Grader grades marks against a grade Table.
// The zero value grades with DefaultGradeTable.
type Grader struct {
	table Table
}

func NewGrader(table Table) Grader {
	return Grader{table: table}
}

func (g Grader) Table() Table {
	if g.table.IsZero() {
		return DefaultGradeTable
	}
	return g.table
}

// FailGrade is the grade given below the lowest band.
func (g Grader) FailGrade() Grade {
	return Grade(g.Table().Below())
}

// GradeFor maps marksObtained out of maxMarks to a grade. maxMarks must be positive.
func (g Grader) GradeFor(marksObtained, maxMarks float64) (Grade, error) {
	label, err := g.Table().ClassifyRatio(marksObtained, maxMarks)
	if err != nil {
		return "", err
	}
	return Grade(label), nil
}

// GradeForPercentage maps an already computed percentage to a grade.
func (g Grader) GradeForPercentage(pct float64) Grade {
	return Grade(g.Table().Classify(pct))
}

// StatusFor derives the pass/fail status from a grade.
func (g Grader) StatusFor(grade Grade) Status {
	if grade == g.FailGrade() {
		return StatusFail
	}
	return StatusPass
}

// GradeFor grades with DefaultGradeTable.
func GradeFor(marksObtained, maxMarks float64) (Grade, error) {
	return Grader{}.GradeFor(marksObtained, maxMarks)
}

// Percentage returns total / maxTotal * 100, or 0 when maxTotal is 0 (degenerate aggregate).
func Percentage(total, maxTotal float64) float64 {
	if maxTotal == 0 {
		return 0
	}
	return total * 100 / maxTotal
}
