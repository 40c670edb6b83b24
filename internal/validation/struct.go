package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("nik", func(fl validator.FieldLevel) bool {
		return IsValidNIK(fl.Field().String())
	})
	_ = v.RegisterValidation("nokk", func(fl validator.FieldLevel) bool {
		return IsValidNoKK(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// FieldError menjelaskan satu field yang gagal validasi.
type FieldError struct {
	Field string
	Rule  string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: failed %q", e.Field, e.Rule)
}

// Struct memvalidasi s berdasarkan tag `validate` dan mengembalikan
// FieldError pertama yang gagal.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return FieldError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
	}
	return err
}
