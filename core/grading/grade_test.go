package grading

import (
	"testing"
)

func TestGradeFor(t *testing.T) {
	tests := []struct {
		name    string
		marks   float64
		max     float64
		want    Grade
		wantErr error
	}{
		{name: "0%", marks: 0, max: 100, want: GradeFail},
		{name: "39.999%", marks: 39.999, max: 100, want: GradeFail},
		{name: "40%", marks: 40, max: 100, want: GradeC},
		{name: "59.999%", marks: 59.999, max: 100, want: GradeC},
		{name: "60%", marks: 60, max: 100, want: GradeB},
		{name: "74.999%", marks: 74.999, max: 100, want: GradeB},
		{name: "75%", marks: 75, max: 100, want: GradeA},
		{name: "89.999%", marks: 89.999, max: 100, want: GradeA},
		{name: "90%", marks: 90, max: 100, want: GradeAPlus},
		{name: "100%", marks: 100, max: 100, want: GradeAPlus},
		{name: "91/100", marks: 91, max: 100, want: GradeAPlus},
		{name: "out of 50", marks: 30, max: 50, want: GradeB},
		{name: "out of 40", marks: 16, max: 40, want: GradeC},
		{name: "zero max", marks: 0, max: 0, wantErr: ErrInvalidInput},
		{name: "negative max", marks: 10, max: -5, wantErr: ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GradeFor(tt.marks, tt.max)
			if tt.wantErr != nil {
				if !IsInvalidInput(err) {
					t.Errorf("GradeFor() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GradeFor() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("GradeFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGradeForPercentage_boundaries(t *testing.T) {
	want := map[float64]Grade{
		0:      GradeFail,
		39.999: GradeFail,
		40:     GradeC,
		59.999: GradeC,
		60:     GradeB,
		74.999: GradeB,
		75:     GradeA,
		89.999: GradeA,
		90:     GradeAPlus,
		100:    GradeAPlus,
	}
	g := Grader{}
	for pct, grade := range want {
		if got := g.GradeForPercentage(pct); got != grade {
			t.Errorf("GradeForPercentage(%v) = %v, want %v", pct, got, grade)
		}
	}
}

func TestGrader_StatusFor(t *testing.T) {
	g := Grader{}
	for _, grade := range []Grade{GradeAPlus, GradeA, GradeB, GradeC} {
		if got := g.StatusFor(grade); got != StatusPass {
			t.Errorf("StatusFor(%v) = %v, want %v", grade, got, StatusPass)
		}
	}
	if got := g.StatusFor(GradeFail); got != StatusFail {
		t.Errorf("StatusFor(%v) = %v, want %v", GradeFail, got, StatusFail)
	}
}

func TestGrader_customTable(t *testing.T) {
	tbl, err := ParseTable("Distinction:80, Merit:65, Pass:50", "Ungraded")
	if err != nil {
		t.Fatalf("ParseTable() failed: %v", err)
	}
	g := NewGrader(tbl)

	tests := []struct {
		marks      float64
		want       Grade
		wantStatus Status
	}{
		{marks: 80, want: "Distinction", wantStatus: StatusPass},
		{marks: 79.5, want: "Merit", wantStatus: StatusPass},
		{marks: 50, want: "Pass", wantStatus: StatusPass},
		{marks: 49, want: "Ungraded", wantStatus: StatusFail},
	}
	for _, tt := range tests {
		got, err := g.GradeFor(tt.marks, 100)
		if err != nil {
			t.Fatalf("GradeFor(%v) unexpected error = %v", tt.marks, err)
		}
		if got != tt.want {
			t.Errorf("GradeFor(%v) = %v, want %v", tt.marks, got, tt.want)
		}
		if status := g.StatusFor(got); status != tt.wantStatus {
			t.Errorf("StatusFor(%v) = %v, want %v", got, status, tt.wantStatus)
		}
	}
}

func TestPercentage(t *testing.T) {
	if got := Percentage(129, 200); got != 64.5 {
		t.Errorf("Percentage(129, 200) = %v, want 64.5", got)
	}
	if got := Percentage(0, 0); got != 0 {
		t.Errorf("Percentage(0, 0) = %v, want 0", got)
	}
}
