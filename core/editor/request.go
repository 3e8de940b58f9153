package editor

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ankit-chaubey/exif-surgery/core"
)

// ErrInvalidRequest is returned for requests that fail validation.
var ErrInvalidRequest = errors.New("invalid edit request")

// Request describes one edit: copy Source to Destination with new Artist
// and timestamp values.
type Request struct {
	Source      string `validate:"required,imagefile"`
	Destination string `validate:"required"`
	Artist      string
	// Timestamp must be "YYYY:MM:DD HH:MM:SS".
	Timestamp string `validate:"required,exiftime"`
}

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("exiftime", func(fl validator.FieldLevel) bool {
		return core.ValidTimestamp(fl.Field().String())
	})
	_ = validate.RegisterValidation("imagefile", func(fl validator.FieldLevel) bool {
		return core.AcceptedExtension(fl.Field().String())
	})
}

// Validate checks the request using struct tags.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		switch e.Tag() {
		case "exiftime":
			return fmt.Errorf("%w: %s %q is not in YYYY:MM:DD HH:MM:SS form", ErrInvalidRequest, e.Field(), e.Value())
		case "imagefile":
			return fmt.Errorf("%w: %s %q is not a .jpg, .jpeg, .png or .webp file", ErrInvalidRequest, e.Field(), e.Value())
		}
		return fmt.Errorf("%w: %s: validation failed on '%s' tag (value: %v)",
			ErrInvalidRequest, e.Field(), e.Tag(), e.Value())
	}
	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}
