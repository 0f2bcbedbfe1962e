package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/helixir/recipe-catalog-service/internal/domain"
)

// Tag sets shared by struct and field validation.
var (
	titleRules    = fmt.Sprintf("notblank,storable,max=%d", domain.MaxTitleLength)
	textRules     = "storable"
	nameRules     = fmt.Sprintf("notblank,storable,max=%d", domain.MaxNameLength)
	nameListRules = "dive," + nameRules
)

// newValidator returns a validator that reports fields by their JSON names
// and knows the notblank and storable rules.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("storable", storableText)
	return v
}

// storableText rejects strings PostgreSQL refuses to store in text columns.
func storableText(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return domain.IsStorableText(field.String())
}

// validateCreate checks a create input against its struct tags.
func (s *Service) validateCreate(in domain.CreateRecipeInput) error {
	return toValidationError("", s.validate.Struct(in))
}

// validateUpdate checks the present fields of an update input.
func (s *Service) validateUpdate(in domain.UpdateRecipeInput) error {
	if title, ok := in.Title.Get(); ok {
		if err := toValidationError("title", s.validate.Var(title, titleRules)); err != nil {
			return err
		}
	}
	if description, ok := in.Description.Get(); ok {
		if err := toValidationError("description", s.validate.Var(description, textRules)); err != nil {
			return err
		}
	}
	if instructions, ok := in.Instructions.Get(); ok {
		if err := toValidationError("instructions", s.validate.Var(instructions, textRules)); err != nil {
			return err
		}
	}
	if name, ok := in.CategoryName.Get(); ok {
		if err := toValidationError("category_name", s.validate.Var(name, nameRules)); err != nil {
			return err
		}
	}
	if names, ok := in.Ingredients.Get(); ok {
		if err := toValidationError("ingredient_names", s.validate.Var(names, nameListRules)); err != nil {
			return err
		}
	}
	return nil
}

// toValidationError converts the first validator failure into a
// domain.ValidationError. field names the value for Var validations, whose
// errors carry no field name of their own.
func toValidationError(field string, err error) error {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return domain.NewValidationError(field, err.Error())
	}

	fe := validationErrors[0]
	name := fe.Field()
	if name == "" {
		name = field
	} else if field != "" && strings.HasPrefix(name, "[") {
		name = field + name
	}

	var msg string
	switch fe.Tag() {
	case "notblank", "required":
		msg = "must not be blank"
	case "storable":
		msg = "must be valid UTF-8 without NUL characters"
	case "max":
		msg = fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		msg = fmt.Sprintf("failed %q validation", fe.Tag())
	}

	return domain.NewValidationError(name, msg)
}
