package utils

import (
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("cart_item_type", validateCartItemType)

	return &Validator{
		validate: v,
	}
}

func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

func validateCartItemType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "photo", "pass", "ticket":
		return true
	}
	return false
}
