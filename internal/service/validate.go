package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mr1hm/safetywatch/internal/apperr"
	"github.com/mr1hm/safetywatch/internal/models"
	"github.com/mr1hm/safetywatch/internal/repository"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so field errors match the wire format.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("alert_category", func(fl validator.FieldLevel) bool {
		return models.AlertCategory(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("alert_severity", func(fl validator.FieldLevel) bool {
		return models.AlertSeverity(fl.Field().String()).Valid()
	})
	return v
}

// validateInput runs struct tag validation and converts failures into a
// validation error carrying per-field detail.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error(), nil)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return apperr.Validation("invalid input", fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "alert_category":
		return "must be one of " + joinValues(models.AlertCategories())
	case "alert_severity":
		return "must be one of " + joinValues(models.AlertSeverities())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

func joinValues[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// coordinatePair enforces that latitude and longitude are given together.
func coordinatePair(lat, long *float64) error {
	switch {
	case lat != nil && long == nil:
		return apperr.FieldError("longitude", "is required when latitude is set")
	case lat == nil && long != nil:
		return apperr.FieldError("latitude", "is required when longitude is set")
	}
	return nil
}

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.FieldError(field, "is required")
	}
	return nil
}

// storeError maps repository sentinels onto service error kinds.
func storeError(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(resource, id)
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict(fmt.Sprintf("%s already exists", resource))
	}
	return apperr.Internal(fmt.Sprintf("failed to access %s", resource), err)
}

// IDInput addresses a single record.
type IDInput struct {
	ID string `json:"id" validate:"required"`
}

// UserIDInput addresses the records owned by a user.
type UserIDInput struct {
	UserID string `json:"userId" validate:"required"`
}
