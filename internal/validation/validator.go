// Package validation wraps a shared go-playground validator instance and
// translates its failures into apperr validation errors keyed by JSON field
// name.
package validation

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/apperr"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// GetValidator returns the singleton validator with the custom tags
// registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("imagedata", func(fl validator.FieldLevel) bool {
			return IsImageDataURI(fl.Field().String())
		})
	})
	return validate
}

// Struct validates s and returns the first failure as an *apperr.Error.
func Struct(s interface{}) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("", "invalid", err.Error())
	}

	fe := fieldErrs[0]
	field := fieldPath(fe)
	e := apperr.Validation(field, fe.Tag(), translateError(fe))
	if fe.Kind() == reflect.String {
		e = e.WithValue(fmt.Sprint(fe.Value()))
	}
	return e
}

// fieldPath strips the root struct name from the namespace,
// e.g. "recipeRequest.ingredients[0].amount" -> "ingredients[0].amount".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

var errorMessageTemplates = map[string]string{
	"required":  "this field is required",
	"email":     "enter a valid email address",
	"username":  "may contain only letters, digits and @/./+/-/_",
	"imagedata": "must be a base64 encoded image data URI",
	"slug":      "may contain only latin letters, digits, hyphens and underscores",
	"hexcolor":  "must be a hex color such as #49B64E",
	"unique":    "must not contain duplicates",
}

func translateError(fe validator.FieldError) string {
	if msg, ok := errorMessageTemplates[fe.Tag()]; ok {
		return msg
	}

	isString := fe.Kind() == reflect.String
	isSlice := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		if isSlice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// IsImageDataURI accepts "data:image/<type>;base64,<payload>" with a
// decodable payload.
func IsImageDataURI(s string) bool {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || payload == "" {
		return false
	}
	if !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(payload)
	return err == nil
}
