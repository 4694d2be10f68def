package transport

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkrett/shuttle/internal/model"
	"github.com/mkrett/shuttle/internal/service"
)

type Handler struct {
	svc *service.Service
}

func SetupRoute(e *echo.Echo, svc *service.Service) {
	h := &Handler{svc: svc}

	// Resumable upload protocol. Paths and headers are a wire contract with
	// existing clients.
	e.OPTIONS("/upload", h.UploadOptions)
	e.POST("/upload", h.CreateUpload)
	e.HEAD("/upload/:id", h.UploadStatus)
	e.PATCH("/upload/:id", h.AppendChunk)

	// Finalized assets.
	e.GET("/files", h.ListFiles)
	e.GET("/download/:id", h.Download)
	e.DELETE("/files/:id", h.DeleteFile)

	e.GET("/health", h.Health)
}

// statusFor maps the service error taxonomy onto HTTP status codes. The
// consistency violation deliberately reads as not-found to the caller.
func statusFor(err error) int {
	var modelErr model.Error
	if !errors.As(err, &modelErr) {
		return http.StatusInternalServerError
	}

	switch modelErr.ErrCode {
	case model.ErrPayloadTooLarge.ErrCode:
		return http.StatusRequestEntityTooLarge
	case model.ErrSessionNotFound.ErrCode,
		model.ErrAssetNotFound.ErrCode,
		model.ErrConsistency.ErrCode:
		return http.StatusNotFound
	case model.ErrOffsetConflict.ErrCode:
		return http.StatusConflict
	case model.ErrValidation.ErrCode:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
