package validators

import (
	"errors"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
)

// CustomValidator plugs validator/v10 into echo and reports the first failed
// field as an application error code.
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.Wrap(apperrors.UnknownField, err)
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "email":
		return apperrors.New(apperrors.InvalidEmail, "%s", fe.Field())
	case "required", "min":
		if fe.Kind() == reflect.String {
			return apperrors.New(apperrors.EmptyContent, "%s", fe.Field())
		}
	}
	return apperrors.New(apperrors.UnknownField, "%s failed %s", fe.Field(), fe.Tag())
}
