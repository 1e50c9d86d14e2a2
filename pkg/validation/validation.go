// Package validation wraps go-playground/validator and turns its failures
// into CodeValidation domain errors that name fields by their JSON path.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	dErrors "idmcore/pkg/domain-errors"
)

const fallbackMessage = "invalid request body"

var (
	mu       sync.RWMutex
	validate = newValidator()

	// messages maps a tag to a format taking the field path and the tag
	// parameter.
	messages = map[string]string{
		"required": "%[1]s is required",
		"notblank": "%[1]s must not be blank",
		"email":    "%[1]s must be a valid email",
		"url":      "%[1]s must be a valid url",
		"uuid":     "%[1]s must be a valid uuid",
		"min":      "%[1]s must be at least %[2]s",
		"max":      "%[1]s must be at most %[2]s",
		"len":      "%[1]s must have length %[2]s",
		"oneof":    "%[1]s must be one of [%[2]s]",
	}
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "notblank", func(s string) bool { return strings.TrimSpace(s) != "" })
	return v
}

func mustRegister(v *validator.Validate, tag string, valid func(string) bool) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return valid(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// RegisterString adds a tag for string fields. describe completes the
// sentence "<field> must be ...". Call it from init.
func RegisterString(tag, describe string, valid func(string) bool) {
	mu.Lock()
	defer mu.Unlock()
	mustRegister(validate, tag, valid)
	messages[tag] = "%[1]s must be " + describe
}

// Validate checks req against its validate tags.
func Validate(req any) error {
	mu.RLock()
	err := validate.Struct(req)
	mu.RUnlock()
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
	}
	return nil
}

// ErrorMessage describes the first failure, e.g.
// "identityParams[0].identityType is required".
func ErrorMessage(err error) string {
	var failures validator.ValidationErrors
	if !errors.As(err, &failures) || len(failures) == 0 {
		return fallbackMessage
	}
	fe := failures[0]
	field := fieldPath(fe)

	mu.RLock()
	format, ok := messages[fe.ActualTag()]
	mu.RUnlock()
	switch {
	case ok:
		return fmt.Sprintf(format, field, fe.Param())
	case field == "":
		return fallbackMessage
	default:
		return field + " is invalid"
	}
}

// fieldPath is the namespace without its top-level struct name.
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	if fe.Field() != "" {
		return fe.Field()
	}
	return fe.StructField()
}
