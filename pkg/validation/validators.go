package validation

import (
	"reflect"
	"regexp"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const dateLayout = "2006-01-02"

// Allow letters, numbers, spaces, and common professional punctuation: . ' - / & ( ) ,
var nameRegex = regexp.MustCompile(`^[\p{L}0-9 .'/&(),-]+$`)

// New returns a validator with the custom tags registered.
func New() *validator.Validate {
	v := validator.New()
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("valid_name", ValidName)
	_ = v.RegisterValidation("no_emoji", NoEmoji)
	_ = v.RegisterValidation("iso_date", ISODate)
	_ = v.RegisterValidation("date_after", DateAfter)
}

// ValidName validates that a string contains only valid name characters
func ValidName(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // Optional, use required if needed
	}
	return nameRegex.MatchString(val)
}

// NoEmoji validates that a string does not contain emoji characters
func NoEmoji(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if r > 0x1F000 {
			return false
		}
		if unicode.In(r, unicode.So, unicode.Sk) {
			return false
		}
	}
	return true
}

// ISODate accepts YYYY-MM-DD, the date format of the backend.
func ISODate(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	_, err := time.Parse(dateLayout, val)
	return err == nil
}

// DateAfter checks the field is on or after the sibling date field named by
// the tag param. Missing or unparsable siblings are left to their own tags.
func DateAfter(fl validator.FieldLevel) bool {
	end, err := time.Parse(dateLayout, fl.Field().String())
	if err != nil {
		return true
	}

	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return true
	}
	sibling := parent.FieldByName(fl.Param())
	if !sibling.IsValid() || sibling.Kind() != reflect.String {
		return true
	}
	start, err := time.Parse(dateLayout, sibling.String())
	if err != nil {
		return true
	}
	return !end.Before(start)
}
