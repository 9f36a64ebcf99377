package handlers

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps go-playground/validator to implement Echo's
// Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// LoginRequest is the sign-in form.
type LoginRequest struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=6"`
}

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Name     string `form:"name" validate:"required"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=6"`
}

// UpdateProfileRequest is the profile edit form. Empty fields are treated as
// "not provided" and left untouched.
type UpdateProfileRequest struct {
	FullName string `form:"full_name" validate:"omitempty,max=120"`
	Phone    string `form:"phone" validate:"omitempty,max=32"`
	Address  string `form:"address" validate:"omitempty,max=300"`
}

// OrderRequest is the water order form.
type OrderRequest struct {
	ProductID string `form:"product" validate:"required"`
	Quantity  int    `form:"quantity" validate:"required,min=1,max=100"`
	Address   string `form:"address" validate:"required,max=300"`
	Phone     string `form:"phone" validate:"required,max=32"`
	Notes     string `form:"notes" validate:"omitempty,max=500"`
}

// SubscribeRequest is the waste-collection plan form.
type SubscribeRequest struct {
	Plan    string `form:"plan" validate:"required"`
	Address string `form:"address" validate:"required,max=300"`
	Phone   string `form:"phone" validate:"required,max=32"`
}
