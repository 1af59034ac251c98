package core

import (
	"fmt"

	"github.com/pkg/errors"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CheckOrderings makes sure that every ordering field is one of `allowed`.
func CheckOrderings(orderings []DBOrdering, allowed ...string) error {
	for _, ord := range orderings {
		found := false
		for _, fld := range allowed {
			if ord.Field == fld {
				found = true
				break
			}
		}
		if !found {
			return NewValidationError(
				errors.New("invalid ordering"),
				FieldError{Field: "ordering", Error: fmt.Sprintf("cannot order by %q", ord.Field)},
			)
		}
	}
	return nil
}
