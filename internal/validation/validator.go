// Package validation checks request structs with go-playground/validator and
// reports failures as domain validation errors keyed by JSON field name.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/hobbyshelf/hobbyshelf-server/internal/errors"
	"github.com/hobbyshelf/hobbyshelf-server/internal/util"
)

// Validator is safe for concurrent use; it caches struct metadata.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return util.ValidSlug(fl.Field().String())
	})
	return &Validator{validate: validate}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "", "-":
		return f.Name
	default:
		return name
	}
}

// Validate returns nil or a domainerrors.Fields error. Fields are listed in
// declaration order and the first one names the message.
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var order []string
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := fields[fe.Field()]; !seen {
			order = append(order, fe.Field())
		}
		fields[fe.Field()] = describe(fe)
	}
	first := order[0]
	return domainerrors.Fields("validation failed: "+first+" "+fields[first], order, fields)
}

var fixedMessages = map[string]string{
	"required": "is required",
	"url":      "must be a valid URL",
	"http_url": "must be a valid URL",
	"hexcolor": "must be a hex color like #40E0D0",
	"slug":     "must be lowercase letters, digits and single dashes",
}

var paramMessages = map[string]string{
	"required_without": "is required when %s is empty",
	"oneof":            "must be one of: %s",
	"gte":              "must be greater than or equal to %s",
	"lte":              "must be less than or equal to %s",
	"gt":               "must be greater than %s",
	"lt":               "must be less than %s",
}

func describe(fe validator.FieldError) string {
	tag := fe.Tag()
	if msg, ok := fixedMessages[tag]; ok {
		return msg
	}
	if tmpl, ok := paramMessages[tag]; ok {
		return strings.Replace(tmpl, "%s", fe.Param(), 1)
	}

	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch tag {
	case "min":
		return "must be at least " + fe.Param() + unit
	case "max":
		return "must not exceed " + fe.Param() + unit
	}
	return "is invalid"
}
