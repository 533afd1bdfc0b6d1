package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type (
	// Failure body returned by the validation service
	Error struct {
		Fields  *map[string]string `json:"fields,omitempty"`
		Message *string            `json:"error"`
	}
)

func StringError(err string) Error {
	return Error{Message: &err}
}

func ValidationError(err error) Error {
	message := "validation error"

	validationErrors, ok := err.(validator.ValidationErrors)
	if ok {
		errorMap := make(map[string]string)
		for _, fieldError := range validationErrors {
			errorMap[fieldError.Field()] = fmt.Sprintf(
				"Failed to validate while checking condition: %s",
				fieldError.Tag(),
			)
		}

		return Error{Message: &message, Fields: &errorMap}
	}

	return Error{Message: &message}
}
