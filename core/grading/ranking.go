package grading

import "sort"

// Standing is a result's position in a class leaderboard.
type Standing struct {
	Position int        `json:"position"`
	Result   ExamResult `json:"result"`
}

// Rank orders results by percentage (highest first) and assigns competition positions:
// equal percentages share a position and the next one skips accordingly (1, 1, 3).
// Ties are listed by roll number, then student ID.
func Rank(results []ExamResult) []Standing {
	sorted := make([]ExamResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		if a.RollNumber != b.RollNumber {
			return a.RollNumber < b.RollNumber
		}
		return a.StudentID < b.StudentID
	})

	standings := make([]Standing, len(sorted))
	for i, r := range sorted {
		pos := i + 1
		if i > 0 && r.Percentage == sorted[i-1].Percentage {
			pos = standings[i-1].Position
		}
		standings[i] = Standing{Position: pos, Result: r}
	}
	return standings
}

// Summary aggregates a set of results, eg: a class for one exam.
type Summary struct {
	Students          int           `json:"students"`
	Passed            int           `json:"passed"`
	Failed            int           `json:"failed"`
	PassRate          float64       `json:"pass_rate"`
	AveragePercentage float64       `json:"average_percentage"`
	Highest           float64       `json:"highest"`
	Lowest            float64       `json:"lowest"`
	Grades            map[Grade]int `json:"grades"`
}

// Summarize counts passes, failures & grades. Pass rate and average are 0 for no results.
func Summarize(results []ExamResult) Summary {
	sum := Summary{Students: len(results), Grades: make(map[Grade]int)}
	var totalPct float64
	for i, r := range results {
		if r.Status == StatusPass {
			sum.Passed++
		} else {
			sum.Failed++
		}
		sum.Grades[r.FinalGrade]++
		totalPct += r.Percentage
		if i == 0 || r.Percentage > sum.Highest {
			sum.Highest = r.Percentage
		}
		if i == 0 || r.Percentage < sum.Lowest {
			sum.Lowest = r.Percentage
		}
	}
	sum.PassRate = Percentage(float64(sum.Passed), float64(sum.Students))
	if sum.Students > 0 {
		sum.AveragePercentage = totalPct / float64(sum.Students)
	}
	return sum
}
