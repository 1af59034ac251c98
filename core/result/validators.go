package result

import (
	"math"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/bulletin/core"
)

var (
	maxMarksTag  = "maxmarks"
	maxMarksText = "max marks must be a positive number"
)

// InitValidators registers the validations of result requests.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(maxMarksTag, maxMarksValidation)
	core.RegisterCustomTranslation(validate, translator, maxMarksTag, maxMarksText)
}

func maxMarksValidation(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
