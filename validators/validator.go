package validators

import (
	"net/http"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator adapts go-playground/validator to echo.Validator
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the validator installed on the Echo instance.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: New()}
}

// Validate implements echo.Validator.
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// New returns a validator with the domain tags registered:
// notification_type and activity_type.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notification_type", func(fl validator.FieldLevel) bool {
		return models.NotificationType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("activity_type", func(fl validator.FieldLevel) bool {
		return models.ActivityType(fl.Field().String()).Valid()
	})
	return v
}
