package transport

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mkrett/shuttle/internal/service"
	"github.com/mkrett/shuttle/pkg/validator"
)

// NewEcho creates a new Echo instance
func NewEcho(svc *service.Service) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Custom validator
	customVal, err := validator.New()
	if err != nil {
		return nil, err
	}
	e.Validator = customVal

	// Setup routes
	SetupRoute(e, svc)

	return e, nil
}
