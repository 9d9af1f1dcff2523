package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// tagMessages maps a validator tag to its message. The first verb is the field, the second the
// tag parameter.
var tagMessages = map[string]string{
	"required": "Field '%s' is required",
	"email":    "Field '%s' must be a valid email",
	"url":      "Field '%s' must be a valid URL",
	"uuid":     "Field '%s' must be a valid UUID",
	"min":      "Field '%s' must be at least %s",
	"max":      "Field '%s' must be at most %s",
	"len":      "Field '%s' must have length %s",
	"gte":      "Field '%s' must be greater than or equal to %s",
	"lte":      "Field '%s' must be less than or equal to %s",
	"oneof":    "Field '%s' must be one of: %s",
	"datetime": "Field '%s' must match the format %s",
}

// FormatBindingError turns a ShouldBind error into one readable line.
func FormatBindingError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, io.EOF) {
		return "Request body is empty"
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("Invalid JSON at byte offset %d", syntaxErr.Offset)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("Field '%s' should be of type %s", typeErr.Field, typeErr.Type.String())
	}

	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return fmt.Sprintf("Value '%s' must be a number", numErr.Num)
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		out := make([]string, 0, len(ve))
		for _, fe := range ve {
			out = append(out, formatFieldError(fe))
		}
		return strings.Join(out, ", ")
	}

	return err.Error()
}

// FieldErrors groups validation messages by json field name. Non-validation errors yield nil.
func FieldErrors(err error) map[string][]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make(map[string][]string, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = append(out[fe.Field()], formatFieldError(fe))
	}
	return out
}

func formatFieldError(fe validator.FieldError) string {
	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("Field '%s' failed validation for '%s'", fe.Field(), fe.Tag())
	}
	if strings.Count(msg, "%s") == 1 {
		return fmt.Sprintf(msg, fe.Field())
	}
	return fmt.Sprintf(msg, fe.Field(), fe.Param())
}
