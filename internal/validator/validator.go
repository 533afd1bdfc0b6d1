package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Echo compatible validator with proper tag semantics
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// Field names in errors follow the `form`, `json` or `mapstructure` tag so
// that messages match what the operator wrote in a request or config file.
func Create() CustomValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"form", "json", "mapstructure"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			switch name {
			case "":
				continue
			case "-":
				return ""
			default:
				return name
			}
		}

		return field.Name
	})

	return CustomValidator{validator: validate}
}
