package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Participant / actor type validation
	validate.RegisterValidation("actor_type", func(fl validator.FieldLevel) bool {
		actor := fl.Field().String()
		validActors := []string{"customer", "merchant", "internalAdmin"}
		for _, a := range validActors {
			if actor == a {
				return true
			}
		}
		return false
	})

	// Message type validation
	validate.RegisterValidation("message_type", func(fl validator.FieldLevel) bool {
		msgType := fl.Field().String()
		validTypes := []string{"Message", "Event"}
		for _, t := range validTypes {
			if msgType == t {
				return true
			}
		}
		return false
	})

	// Message body type validation
	validate.RegisterValidation("body_type", func(fl validator.FieldLevel) bool {
		bodyType := fl.Field().String()
		validTypes := []string{"Text", "File"}
		for _, t := range validTypes {
			if bodyType == t {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "uuid":
			errors[field] = "Invalid UUID format"
		case "url":
			errors[field] = "Invalid URL format"
		case "actor_type":
			errors[field] = "Invalid actor type. Must be: customer, merchant, or internalAdmin"
		case "message_type":
			errors[field] = "Invalid message type. Must be: Message or Event"
		case "body_type":
			errors[field] = "Invalid body type. Must be: Text or File"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}
