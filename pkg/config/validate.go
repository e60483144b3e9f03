package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func validateStruct(s interface{}) error {
	if s == nil {
		return fmt.Errorf("invalid validation: input is nil")
	}

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	if _, ok := err.(*validator.InvalidValidationError); ok {
		return fmt.Errorf("invalid validation: %v", err)
	}

	var errMsgs []string
	for _, err := range err.(validator.ValidationErrors) {
		errMsgs = append(errMsgs, fmt.Sprintf("field %s failed on the '%s' rule", err.Namespace(), err.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(errMsgs, "; "))
}
