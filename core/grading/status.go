package grading

// FeeStatus buckets
const (
	FeePaid    = "Paid"
	FeePartial = "Partial"
	FeePending = "Pending"
)

// Attendance marks
const (
	AttendancePresent = "Present"
	AttendanceAbsent  = "Absent"
	AttendanceLate    = "Late"
)

// MinAttendancePct is the attendance bar under which a student falls short.
const MinAttendancePct = 75

var (
	FeeTable = MustTable(FeePending,
		Band{Min: 100, Label: FeePaid},
		Band{Min: 0, Label: FeePartial, Exclusive: true},
	)

	AttendanceTable = MustTable(string(StatusFail),
		Band{Min: MinAttendancePct, Label: string(StatusPass)},
	)
)

// FeeStatus buckets the amount paid against the amount due. amountDue must be positive.
func FeeStatus(amountPaid, amountDue float64) (string, error) {
	return FeeTable.ClassifyRatio(amountPaid, amountDue)
}

// AttendanceStatus checks the attended share of sessions against MinAttendancePct.
func AttendanceStatus(attended, total int) (Status, error) {
	label, err := AttendanceTable.ClassifyRatio(float64(attended), float64(total))
	if err != nil {
		return "", err
	}
	return Status(label), nil
}

// Attendance summarizes a student's attendance marks. Late counts as attended.
type Attendance struct {
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Status     Status  `json:"status"`
}

// SummarizeAttendance counts Present/Absent/Late marks; unknown marks are ignored.
// An empty history yields a zero percentage and a failing status.
func SummarizeAttendance(marks ...string) Attendance {
	var a Attendance
	for _, m := range marks {
		switch m {
		case AttendancePresent:
			a.Present++
		case AttendanceAbsent:
			a.Absent++
		case AttendanceLate:
			a.Late++
		default:
			continue
		}
		a.Total++
	}
	a.Percentage = Percentage(float64(a.Present+a.Late), float64(a.Total))
	a.Status = Status(AttendanceTable.Classify(a.Percentage))
	return a
}
