package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"ridehail/internal/domain"
)

var validate = validator.New()

// validateRequest runs struct tag validation and reports the failing fields
// as an ErrInvalidRequest.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return &Error{
		Kind:    ErrInvalidRequest.Kind,
		Code:    ErrInvalidRequest.Code,
		Message: "invalid request: " + strings.Join(fields, ", "),
	}
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

func requireRole(actor domain.Actor, roles ...domain.Role) error {
	if actor.ID == "" {
		return ErrForbidden
	}
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
