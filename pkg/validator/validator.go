package validator

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string
	Tag         string
	Value       string
}

var validate = validator.New()

func init() {
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})
}

// ValidateStruct returns one entry per failed field, or nil when data is valid.
func ValidateStruct(data interface{}) []*ErrorResponse {
	var out []*ErrorResponse
	err := validate.Struct(data)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []*ErrorResponse{{FailedField: "", Tag: err.Error()}}
	}
	for _, fe := range verrs {
		out = append(out, &ErrorResponse{
			FailedField: fe.StructNamespace(),
			Tag:         fe.Tag(),
			Value:       fe.Param(),
		})
	}
	return out
}
