package club

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/gvpclubconnect/clubconnect/core"
)

var (
	clubTypeTag  = "clubtype"
	clubTypeText = "{0} must be one of Cultural, Technical, Social, Sports or Other"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(clubTypeTag, clubTypeValidation)
	core.RegisterCustomTranslation(validate, translator, clubTypeTag, clubTypeText)
}

func IsValidType(t string) bool {
	return core.ContainsString(Types, t)
}

func clubTypeValidation(fl validator.FieldLevel) bool {
	return IsValidType(fl.Field().String())
}
