package auth

import (
	"unicode"

	"github.com/go-playground/validator/v10"

	"chat-relay/errors"
)

var validate = validator.New()

// RegisterRequest is the shape checked before creating an account.
type RegisterRequest struct {
	Name     string `validate:"required,min=2,max=32,alphanum"`
	Password string `validate:"required,min=8,max=72"`
}

// ChannelRequest is the shape checked before creating a channel.
type ChannelRequest struct {
	Name string `validate:"required,min=1,max=64,alphanum"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	if !isPasswordComplex(req.Password) {
		return errors.ErrInvalidCredentials
	}
	return nil
}

func ValidateChannel(req ChannelRequest) error {
	return validate.Struct(req)
}

func isPasswordComplex(s string) bool {
	var hasUpper, hasLower, hasNumber bool
	for _, char := range s {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	return hasUpper && hasLower && hasNumber
}
