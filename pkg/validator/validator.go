package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	instance     *validator.Validate
	instanceOnce sync.Once
)

// FieldError is a single rule a field failed. Field uses the json name when one is declared.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Message renders the failure for API consumers.
func (e FieldError) Message() string {
	switch e.Rule {
	case "required", "notblank":
		return e.Field + " is required"
	case "email":
		return e.Field + " must be a valid email address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field, e.Param)
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", e.Field, e.Param)
	case "lte":
		return fmt.Sprintf("%s must be at most %s", e.Field, e.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field, strings.ReplaceAll(e.Param, " ", ", "))
	case "token":
		return e.Field + " must be an alphanumeric token"
	}
	if e.Param != "" {
		return fmt.Sprintf("%s failed %s=%s", e.Field, e.Rule, e.Param)
	}
	return fmt.Sprintf("%s failed %s", e.Field, e.Rule)
}

// FieldErrors collects every failure of one validation pass.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(e))
	for i, fe := range e {
		messages[i] = fe.Message()
	}
	return strings.Join(messages, "; ")
}

// Rules maps each failing field to the rule it broke.
func (e FieldErrors) Rules() map[string]string {
	rules := make(map[string]string, len(e))
	for _, fe := range e {
		rules[fe.Field] = fe.Rule
	}
	return rules
}

// Struct runs the validate tags of s. Rule failures come back as FieldErrors.
func Struct(s any) error {
	return translate(engine().Struct(s))
}

// Var checks a single value against a tag expression such as "required,email".
func Var(value any, tag string) error {
	return translate(engine().Var(value, tag))
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return err
	}
	out := make(FieldErrors, 0, len(failures))
	for _, fe := range failures {
		field := fe.Field()
		if field == "" {
			field = "value"
		}
		out = append(out, FieldError{Field: field, Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// isToken accepts ASCII letters and digits only; a numeric param pins the length.
func isToken(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return false
	}
	if param := fl.Param(); param != "" {
		var length int
		if _, err := fmt.Sscanf(param, "%d", &length); err != nil || len(value) != length {
			return false
		}
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

func engine() *validator.Validate {
	instanceOnce.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(jsonFieldName)
		_ = instance.RegisterValidation("notblank", validators.NotBlank)
		_ = instance.RegisterValidation("token", isToken)
	})
	return instance
}
