package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Pesokrava/movie_reviews/internal/domain"
)

// Shared validator instance to avoid creating multiple instances
var validate *validator.Validate

func init() {
	validate = validator.New()
	// "rating" is the 1..5 star range shared by reviews and patches
	_ = validate.RegisterValidation("rating", func(fl validator.FieldLevel) bool {
		r := fl.Field().Int()
		return r >= domain.MinRating && r <= domain.MaxRating
	})
}

// Get returns the shared validator instance
func Get() *validator.Validate {
	return validate
}

// Message turns a validation error into a short sentence a user can act on
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Please check your input"
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "rating":
		return fmt.Sprintf("Please select a rating between %d and %d stars", domain.MinRating, domain.MaxRating)
	case "required":
		return fmt.Sprintf("The %s field is required", field)
	case "email":
		return "Please enter a valid email address"
	case "max":
		if k := fe.Kind(); k >= reflect.Int && k <= reflect.Float64 {
			return fmt.Sprintf("The %s field is too large", field)
		}
		return fmt.Sprintf("The %s field is too long", field)
	default:
		return fmt.Sprintf("The %s field is invalid", field)
	}
}
