// Package validation wraps go-playground/validator and reports failures as
// field-tagged messages keyed by the JSON name of each field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"agora/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the shared validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s and returns one FieldError per failed rule, in field
// order. A nil slice means s is valid.
func Struct(s interface{}) []models.FieldError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Field: "input", Message: err.Error()}}
	}

	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{Field: fe.Field(), Message: translate(fe)})
	}
	return out
}

var messages = map[string]string{
	"required": "can not be empty",
	"email":    "invalid email",
}

func translate(fe validator.FieldError) string {
	if msg, ok := messages[fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("length must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("length must be at most %s", fe.Param())
	case "excludes":
		return fmt.Sprintf("cannot include %q", fe.Param())
	case "contains":
		if fe.Param() == "@" {
			return "invalid email"
		}
		return fmt.Sprintf("must contain %q", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}
