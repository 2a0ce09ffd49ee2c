package usecase

import (
	"career-gap-web/internal/domain"
	"career-gap-web/pkg/apperror"
	"career-gap-web/pkg/validation"

	"github.com/go-playground/validator/v10"
)

func validateStruct(v *validator.Validate, s interface{}) error {
	if err := v.Struct(s); err != nil {
		details := validation.FormatValidationErrors(err)
		msg := "Validation failed"
		if len(details) == 1 {
			msg = details[0]
		}
		return apperror.Validation(msg, details)
	}
	return nil
}

func requireSession(sess *domain.Session) error {
	if !sess.Authenticated() {
		return apperror.Unauthorized("Please log in to continue")
	}
	return nil
}
