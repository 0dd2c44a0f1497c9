// Package validation wraps go-playground/validator with the tags the gate
// needs and a fluent accumulator for hand-written checks.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"newsletter-gate/internal/common/errors"
)

// CentralizedValidator provides unified validation using go-playground/validator
type CentralizedValidator struct {
	validator *validator.Validate
}

// FieldError is a single validation failure
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

var providerIDPattern = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// NewCentralizedValidator creates a validator with the gate's custom tags
func NewCentralizedValidator() *CentralizedValidator {
	v := validator.New()

	registerGateValidators(v)

	// Report JSON names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &CentralizedValidator{validator: v}
}

// ValidateStruct validates a struct using struct tags
func (cv *CentralizedValidator) ValidateStruct(s interface{}) error {
	if err := cv.validator.Struct(s); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// ValidateVar validates a single variable with validation rules
func (cv *CentralizedValidator) ValidateVar(field interface{}, tag string) error {
	if err := cv.validator.Var(field, tag); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

func (cv *CentralizedValidator) formatValidationErrors(err error) error {
	fieldErrors := cv.extractFieldErrors(err)
	if len(fieldErrors) == 1 {
		return errors.ValidationError(fieldErrors[0].Message)
	}

	messages := make([]string, len(fieldErrors))
	for i, e := range fieldErrors {
		messages[i] = e.Message
	}
	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

func (cv *CentralizedValidator) extractFieldErrors(err error) []FieldError {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "unknown", Tag: "error", Message: err.Error()}}
	}

	fieldErrors := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fmt.Sprintf("%v", fe.Value()),
			Message: formatFieldError(fe),
			Param:   fe.Param(),
		})
	}
	return fieldErrors
}

func formatFieldError(err validator.FieldError) string {
	field := err.Field()
	if field == "" {
		field = "value"
	}

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", field)
	case "email":
		return fmt.Sprintf("field '%s' must be a valid email address", field)
	case "url", "http_url":
		return fmt.Sprintf("field '%s' must be a valid URL", field)
	case "hexcolor":
		return fmt.Sprintf("field '%s' must be a hex color such as #fff", field)
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, err.Param())
	case "provider_id":
		return fmt.Sprintf("field '%s' must be a provider id", field)
	case "list_id":
		return fmt.Sprintf("field '%s' must be a list id", field)
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", field, err.Tag())
	}
}

func registerGateValidators(v *validator.Validate) {
	_ = v.RegisterValidation("provider_id", func(fl validator.FieldLevel) bool {
		return providerIDPattern.MatchString(fl.Field().String())
	})

	// Provider list ids are opaque; only reject what cannot round-trip a form field
	_ = v.RegisterValidation("list_id", func(fl validator.FieldLevel) bool {
		id := fl.Field().String()
		if len(id) > 255 {
			return false
		}
		return !strings.ContainsAny(id, "\r\n\t\x00")
	})
}

// FluentValidator accumulates errors from chained checks
type FluentValidator struct {
	cv     *CentralizedValidator
	errors []FieldError
	prefix string
}

// NewFluentValidator creates a fluent validator backed by the global validator
func NewFluentValidator() *FluentValidator {
	return &FluentValidator{cv: globalValidator}
}

// NewFluentValidatorWithPrefix prefixes every message with prefix
func NewFluentValidatorWithPrefix(prefix string) *FluentValidator {
	return &FluentValidator{cv: globalValidator, prefix: prefix}
}

// RequireString validates that a string is not empty (trimmed)
func (fv *FluentValidator) RequireString(value, name string) *FluentValidator {
	if strings.TrimSpace(value) == "" {
		fv.addError(name, "required", value, fmt.Sprintf("%s is required", name))
	}
	return fv
}

// RequireEmail validates that a string is a valid email address
func (fv *FluentValidator) RequireEmail(value, name string) *FluentValidator {
	if err := fv.cv.ValidateVar(value, "required,email"); err != nil {
		fv.addError(name, "email", value, fmt.Sprintf("%s must be a valid email address", name))
	}
	return fv
}

// RequireURL validates an absolute http(s) URL
func (fv *FluentValidator) RequireURL(value, name string) *FluentValidator {
	if err := fv.cv.ValidateVar(value, "required,http_url"); err != nil {
		fv.addError(name, "url", value, fmt.Sprintf("%s must be a valid URL", name))
	}
	return fv
}

// RequireHexColor validates #rgb, #rgba, #rrggbb or #rrggbbaa
func (fv *FluentValidator) RequireHexColor(value, name string) *FluentValidator {
	if err := fv.cv.ValidateVar(value, "required,hexcolor"); err != nil {
		fv.addError(name, "hexcolor", value, fmt.Sprintf("%s must be a hex color such as #fff", name))
	}
	return fv
}

// RequireOneOf validates that a value is one of the allowed values
func (fv *FluentValidator) RequireOneOf(value string, allowed []string, name string) *FluentValidator {
	for _, a := range allowed {
		if value == a {
			return fv
		}
	}
	fv.addError(name, "oneof", value, fmt.Sprintf("%s must be one of: %s", name, strings.Join(allowed, ", ")))
	return fv
}

// RequireMaxLength validates that a string has at most maxLength characters
func (fv *FluentValidator) RequireMaxLength(value string, maxLength int, name string) *FluentValidator {
	if err := fv.cv.ValidateVar(value, fmt.Sprintf("max=%d", maxLength)); err != nil {
		fv.addError(name, "max", value, fmt.Sprintf("%s must be at most %d characters long", name, maxLength))
	}
	return fv
}

// RequireTag runs any validator tag against value
func (fv *FluentValidator) RequireTag(value interface{}, tag, name, description string) *FluentValidator {
	if err := fv.cv.ValidateVar(value, tag); err != nil {
		fv.addError(name, tag, fmt.Sprintf("%v", value), fmt.Sprintf("%s must be %s", name, description))
	}
	return fv
}

// Validate runs a custom validation function
func (fv *FluentValidator) Validate(fn func() error) *FluentValidator {
	if err := fn(); err != nil {
		fv.addError("custom", "custom", "", errors.Message(err, err.Error()))
	}
	return fv
}

// ValidateIf runs a validation function if a condition is true
func (fv *FluentValidator) ValidateIf(condition bool, fn func() error) *FluentValidator {
	if condition {
		return fv.Validate(fn)
	}
	return fv
}

func (fv *FluentValidator) HasErrors() bool {
	return len(fv.errors) > 0
}

// FieldErrors returns the accumulated errors
func (fv *FluentValidator) FieldErrors() []FieldError {
	return fv.errors
}

// Error returns a validation AppError combining all messages, or nil
func (fv *FluentValidator) Error() error {
	if !fv.HasErrors() {
		return nil
	}
	if len(fv.errors) == 1 {
		return errors.ValidationError(fv.errors[0].Message)
	}

	messages := make([]string, len(fv.errors))
	for i, e := range fv.errors {
		messages[i] = e.Message
	}
	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

func (fv *FluentValidator) addError(field, tag, value, message string) {
	if fv.prefix != "" {
		message = fmt.Sprintf("%s: %s", fv.prefix, message)
		field = fmt.Sprintf("%s.%s", fv.prefix, field)
	}
	fv.errors = append(fv.errors, FieldError{
		Field:   field,
		Tag:     tag,
		Value:   value,
		Message: message,
	})
}

var globalValidator = NewCentralizedValidator()

// ValidateStruct validates a struct using the global validator instance
func ValidateStruct(s interface{}) error {
	return globalValidator.ValidateStruct(s)
}

// ValidateVar validates a variable using the global validator instance
func ValidateVar(field interface{}, tag string) error {
	return globalValidator.ValidateVar(field, tag)
}

// IsEmail reports whether value is a valid email address
func IsEmail(value string) bool {
	return globalValidator.validator.Var(value, "required,email") == nil
}
