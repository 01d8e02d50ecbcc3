package handlers

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/anstrom/portsweep/internal/errors"
	"github.com/anstrom/portsweep/internal/ports"
	"github.com/anstrom/portsweep/internal/resolver"
)

// newValidator returns a validator that also knows the scan_target and
// scan_mode tags.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("scan_target", func(fl validator.FieldLevel) bool {
		_, err := resolver.Validate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("scan_mode", func(fl validator.FieldLevel) bool {
		mode := fl.Field().String()
		if strings.EqualFold(strings.TrimSpace(mode), customMode) {
			return true
		}
		_, err := ports.ParseMode(mode)
		return err == nil
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns validator output into a VALIDATION error naming the
// first offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.WrapScanError(errors.CodeValidation, "invalid request", err)
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", fe.Field())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "scan_target":
		msg = fmt.Sprintf("%s is not an IP address or host name", fe.Field())
	case "scan_mode":
		msg = fmt.Sprintf("%s must be quick, standard, full or custom", fe.Field())
	default:
		msg = fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	return errors.NewScanError(errors.CodeValidation, msg)
}
