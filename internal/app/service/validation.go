package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateInput runs the struct tags of input and converts violations into
// a ValidationError keyed by field path.
func validateInput(entity, action string, input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewInvalid(entity, action, err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = describeViolation(fe)
	}
	return apperrors.NewValidation(entity, action, fields)
}

// fieldPath drops the root struct name: "ProductInput.variants[0].sku" -> "variants[0].sku".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte", "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte", "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return "is invalid"
	}
}

// fieldErrors collects hand-written checks next to the tag checks.
type fieldErrors map[string]string

func (f fieldErrors) add(field, problem string) {
	if _, exists := f[field]; !exists {
		f[field] = problem
	}
}

// merge folds tag violations from err into f. Non-validation errors are
// returned unchanged.
func (f fieldErrors) merge(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperrors.KindValidation {
		return err
	}
	for k, v := range appErr.Fields {
		f.add(k, v)
	}
	if len(appErr.Fields) == 0 && appErr.Detail != "" {
		f.add("input", appErr.Detail)
	}
	return nil
}

func (f fieldErrors) err(entity, action string) error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidation(entity, action, f)
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// normalized returns nil for absent or blank strings.
func normalized(s *string) *string {
	v := trimmed(s)
	if v == "" {
		return nil
	}
	return &v
}
