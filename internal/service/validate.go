package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/petermazzocco/findit/internal/apperr"
)

var (
	validate = newValidator()

	errMissingFields = apperr.Validation("Missing required fields")
	errMissingLogin  = apperr.Validation("Missing username or password")
	errItemType      = apperr.Validation("Item type must be 'lost' or 'found'")
	errCategory      = apperr.Validation("Invalid category")
	errDate          = apperr.Validation("Invalid date format")
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by the names clients send.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct validates in and converts the first failure into a
// validation error. Any missing required field wins over other failures.
func checkStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal("Failed to validate input", err)
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return errMissingFields
		}
	}
	return fieldError(verrs[0].Field(), verrs[0])
}

// checkField validates a single named value against tag.
func checkField(name, value, tag string) error {
	err := validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal("Failed to validate input", err)
	}
	if verrs[0].Tag() == "required" {
		return errMissingFields
	}
	return fieldError(name, verrs[0])
}

func fieldError(name string, fe validator.FieldError) error {
	switch fe.Tag() {
	case "min":
		return apperr.Validation(fmt.Sprintf("%s must be at least %s characters", name, fe.Param()))
	case "max":
		return apperr.Validation(fmt.Sprintf("%s must be at most %s characters", name, fe.Param()))
	case "email":
		return apperr.Validation(fmt.Sprintf("%s must be a valid email address", name))
	case "oneof":
		if name == "item_type" {
			return errItemType
		}
		return apperr.Validation(fmt.Sprintf("%s must be one of: %s", name, fe.Param()))
	}
	return apperr.Validation(fmt.Sprintf("%s is invalid", name))
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate accepts RFC 3339 timestamps (including the Z suffix), ISO local
// date-times with or without seconds and fractions, and plain dates. Values
// without a zone are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errDate
}
