package grading

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Band is one row of a threshold Table: ratios (as percentages) at or above Min map to Label.
// When Exclusive is set the ratio must be strictly greater than Min.
type Band struct {
	Min       float64 `json:"min"`
	Label     string  `json:"label"`
	Exclusive bool    `json:"exclusive,omitempty"`
}

func (b Band) matches(pct float64) bool {
	if b.Exclusive {
		return pct > b.Min
	}
	return pct >= b.Min
}

// Table is an ordered (highest bound first) list of Bands used to classify a ratio into a bucket.
// Ratios below every band get the Below label.
type Table struct {
	bands []Band
	below string
}

// NewTable validates and builds a Table.
// Bands must have non-empty labels and strictly descending bounds within [0, 100].
func NewTable(below string, bands ...Band) (Table, error) {
	if strings.TrimSpace(below) == "" {
		return Table{}, errors.Wrap(ErrInvalidInput, "table: empty label below the lowest band")
	}
	if len(bands) == 0 {
		return Table{}, errors.Wrap(ErrInvalidInput, "table: no bands")
	}
	for i, b := range bands {
		if strings.TrimSpace(b.Label) == "" {
			return Table{}, errors.Wrapf(ErrInvalidInput, "table: band %d has no label", i)
		}
		if math.IsNaN(b.Min) || b.Min < 0 || b.Min > 100 {
			return Table{}, errors.Wrapf(ErrInvalidInput, "table: band %q bound %v outside [0, 100]", b.Label, b.Min)
		}
		if i > 0 && b.Min >= bands[i-1].Min {
			return Table{}, errors.Wrapf(ErrInvalidInput, "table: band %q bound %v is not below %v", b.Label, b.Min, bands[i-1].Min)
		}
	}
	tbl := Table{bands: make([]Band, len(bands)), below: below}
	copy(tbl.bands, bands)
	return tbl, nil
}

// MustTable is like NewTable but panics on invalid tables. Meant for package-level tables.
func MustTable(below string, bands ...Band) Table {
	tbl, err := NewTable(below, bands...)
	if err != nil {
		panic(err)
	}
	return tbl
}

// ParseTable parses a "label:min,label:min" list, eg: "A+:90,A:75,B:60,C:40".
func ParseTable(s, below string) (Table, error) {
	var bands []Band
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i := strings.LastIndex(part, ":")
		if i <= 0 {
			return Table{}, errors.Wrapf(ErrInvalidInput, "table: malformed band %q", part)
		}
		min, err := strconv.ParseFloat(strings.TrimSpace(part[i+1:]), 64)
		if err != nil {
			return Table{}, errors.Wrapf(ErrInvalidInput, "table: malformed bound in %q", part)
		}
		bands = append(bands, Band{Min: min, Label: strings.TrimSpace(part[:i])})
	}
	return NewTable(below, bands...)
}

func (t Table) Bands() []Band {
	bands := make([]Band, len(t.bands))
	copy(bands, t.bands)
	return bands
}

func (t Table) Below() string { return t.below }

func (t Table) IsZero() bool { return len(t.bands) == 0 }

// Classify returns the label of the first band (from the highest) matching `pct`.
func (t Table) Classify(pct float64) string {
	for _, b := range t.bands {
		if b.matches(pct) {
			return b.Label
		}
	}
	return t.below
}

// ClassifyRatio classifies `num / den` expressed as a percentage.
// A non-positive denominator is rejected rather than turned into NaN or Inf.
func (t Table) ClassifyRatio(num, den float64) (string, error) {
	pct, err := ratioPct(num, den)
	if err != nil {
		return "", err
	}
	return t.Classify(pct), nil
}

func (t Table) String() string {
	parts := make([]string, 0, len(t.bands)+1)
	for _, b := range t.bands {
		op := ">="
		if b.Exclusive {
			op = ">"
		}
		parts = append(parts, fmt.Sprintf("%s%s%s", b.Label, op, strconv.FormatFloat(b.Min, 'f', -1, 64)))
	}
	parts = append(parts, t.below)
	return strings.Join(parts, ", ")
}

func ratioPct(num, den float64) (float64, error) {
	if math.IsNaN(den) || math.IsInf(den, 0) || den <= 0 {
		return 0, errors.Wrapf(ErrInvalidInput, "denominator must be positive, got %v", den)
	}
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, errors.Wrapf(ErrInvalidInput, "numerator must be a finite number, got %v", num)
	}
	return num * 100 / den, nil
}
