package validation

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"timetrack-gateway/internal/common/errors"
)

// CentralizedValidator provides unified validation using go-playground/validator
type CentralizedValidator struct {
	validator *validator.Validate
}

// ValidationResult contains validation results with structured errors
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// NewCentralizedValidator creates a new centralized validator instance
func NewCentralizedValidator() *CentralizedValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	registerGatewayValidators(v)

	// Report the env variable name when a field has one, then the JSON name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &CentralizedValidator{
		validator: v,
	}
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

// ValidateStructResult validates a struct and returns detailed results
func (cv *CentralizedValidator) ValidateStructResult(s interface{}) *ValidationResult {
	err := cv.validator.Struct(s)
	if err == nil {
		return &ValidationResult{Valid: true, Errors: []ValidationError{}}
	}

	return &ValidationResult{
		Valid:  false,
		Errors: cv.extractValidationErrors(err),
	}
}

// Messages returns the error messages of a failed result
func (r *ValidationResult) Messages() []string {
	messages := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		messages[i] = e.Message
	}
	return messages
}

// formatValidationErrors converts go-playground/validator errors to internal errors
func (cv *CentralizedValidator) formatValidationErrors(err error) error {
	validationErrors := cv.extractValidationErrors(err)
	if len(validationErrors) == 1 {
		return errors.ValidationError(validationErrors[0].Message)
	}

	messages := make([]string, len(validationErrors))
	for i, e := range validationErrors {
		messages[i] = e.Message
	}

	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

// extractValidationErrors extracts structured validation errors
func (cv *CentralizedValidator) extractValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fieldError.Field(),
				Tag:     fieldError.Tag(),
				Value:   fmt.Sprintf("%v", fieldError.Value()),
				Message: cv.formatFieldError(fieldError),
				Param:   fieldError.Param(),
			})
		}
	} else {
		validationErrors = append(validationErrors, ValidationError{
			Field:   "unknown",
			Tag:     "error",
			Message: err.Error(),
		})
	}

	return validationErrors
}

// formatFieldError formats go-playground/validator field errors into readable messages
func (cv *CentralizedValidator) formatFieldError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", err.Field())
	case "url", "http_url":
		return fmt.Sprintf("field '%s' must be a valid URL", err.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", err.Field(), err.Param())
	case "gt":
		return fmt.Sprintf("field '%s' must be greater than %s", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", err.Field(), err.Param())
	case "hostname_port":
		return fmt.Sprintf("field '%s' must be a host:port address", err.Field())
	case "backend_url":
		return fmt.Sprintf("field '%s' must be an absolute http(s) URL without query or fragment", err.Field())
	case "log_level":
		return fmt.Sprintf("field '%s' must be one of DEBUG, INFO, WARN, ERROR", err.Field())
	case "duration":
		return fmt.Sprintf("field '%s' must be a valid duration", err.Field())
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", err.Field(), err.Tag())
	}
}

// registerGatewayValidators registers the custom tags used by gateway configuration
func registerGatewayValidators(v *validator.Validate) {
	// Backend base URL: absolute http(s), host present, no query or fragment
	v.RegisterValidation("backend_url", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(strings.TrimSpace(fl.Field().String()))
		if err != nil {
			return false
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false
		}
		return u.Host != "" && u.RawQuery == "" && u.Fragment == ""
	})

	v.RegisterValidation("log_level", func(fl validator.FieldLevel) bool {
		switch strings.ToUpper(fl.Field().String()) {
		case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
			return true
		}
		return false
	})
}

// Global validator instance for convenience
var globalValidator = NewCentralizedValidator()

// ValidateStruct validates a struct using the global validator instance
func ValidateStruct(s interface{}) error {
	return globalValidator.ValidateStruct(s)
}

// ValidateVar validates a variable using the global validator instance
func ValidateVar(field interface{}, tag string) error {
	return globalValidator.ValidateVar(field, tag)
}

// ValidateStructResult validates a struct and returns detailed results using the global validator
func ValidateStructResult(s interface{}) *ValidationResult {
	return globalValidator.ValidateStructResult(s)
}
