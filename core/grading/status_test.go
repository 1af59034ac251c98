package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeeStatus(t *testing.T) {
	tests := []struct {
		name    string
		paid    float64
		due     float64
		want    string
		wantErr bool
	}{
		{name: "nothing paid", paid: 0, due: 500, want: FeePending},
		{name: "some paid", paid: 0.01, due: 500, want: FeePartial},
		{name: "almost paid", paid: 499.99, due: 500, want: FeePartial},
		{name: "paid", paid: 500, due: 500, want: FeePaid},
		{name: "overpaid", paid: 600, due: 500, want: FeePaid},
		{name: "nothing due", paid: 0, due: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FeeStatus(tt.paid, tt.due)
			if tt.wantErr {
				assert.True(t, IsInvalidInput(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttendanceStatus(t *testing.T) {
	tests := []struct {
		attended int
		total    int
		want     Status
		wantErr  bool
	}{
		{attended: 75, total: 100, want: StatusPass},
		{attended: 74, total: 100, want: StatusFail},
		{attended: 3, total: 4, want: StatusPass},
		{attended: 20, total: 20, want: StatusPass},
		{attended: 0, total: 0, wantErr: true},
	}
	for _, tt := range tests {
		got, err := AttendanceStatus(tt.attended, tt.total)
		if tt.wantErr {
			assert.True(t, IsInvalidInput(err), "AttendanceStatus(%d, %d)", tt.attended, tt.total)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got, "AttendanceStatus(%d, %d)", tt.attended, tt.total)
	}
}

func TestSummarizeAttendance(t *testing.T) {
	a := SummarizeAttendance(AttendancePresent, AttendanceLate, AttendanceAbsent, AttendancePresent, "Holiday")
	assert.Equal(t, Attendance{Present: 2, Absent: 1, Late: 1, Total: 4, Percentage: 75, Status: StatusPass}, a)

	a = SummarizeAttendance(AttendanceAbsent, AttendancePresent)
	assert.Equal(t, 50.0, a.Percentage)
	assert.Equal(t, StatusFail, a.Status)

	a = SummarizeAttendance()
	assert.Equal(t, Attendance{Status: StatusFail}, a)
}
