// internal/utils/validator.go
package utils

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/agriqcert/agriqcert-backend/internal/models"
)

const bcryptMaxBytes = 72

var (
	validate        *validator.Validate
	usernamePattern = regexp.MustCompile("^[a-zA-Z0-9_]+$")
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("username", validateUsername)
	validate.RegisterValidation("role", validateRole)
	validate.RegisterValidation("inspection_result", validateInspectionResult)
	validate.RegisterValidation("bcrypt_len", validateBcryptLen)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateUsername(fl validator.FieldLevel) bool {
	username := fl.Field().String()

	// Username should be alphanumeric and underscores, 3-50 characters
	if len(username) < 3 || len(username) > 50 {
		return false
	}

	return usernamePattern.MatchString(username)
}

func validateRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}

func validateInspectionResult(fl validator.FieldLevel) bool {
	switch models.InspectionResult(fl.Field().String()) {
	case models.ResultPass, models.ResultFail:
		return true
	}
	return false
}

// bcrypt only hashes the first 72 bytes and rejects longer input.
func validateBcryptLen(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= bcryptMaxBytes
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param() + " characters"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "uuid":
		return e.Field() + " must be a valid id"
	case "username":
		return "Username must be 3-50 characters and contain only letters, numbers, and underscores"
	case "role":
		return "Role must be one of exporter, qa, importer, admin"
	case "inspection_result":
		return "Result must be Pass or Fail"
	case "bcrypt_len":
		return e.Field() + " must be at most 72 bytes"
	default:
		return e.Field() + " is invalid"
	}
}
