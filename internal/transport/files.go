package transport

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/guregu/null/v6"
	"github.com/labstack/echo/v4"

	"github.com/mkrett/shuttle/internal/model"
	"github.com/mkrett/shuttle/internal/service"
	"github.com/mkrett/shuttle/pkg/response"
)

type ListFilesRequest struct {
	Search null.String `query:"search" validate:"omitnil,min=1"`
}

// FileSummary is the listing shape served to clients.
type FileSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
	ContentType string    `json:"content_type"`
	Checksum    *string   `json:"checksum,omitempty"`
	URL         string    `json:"url"`
}

func summarize(rec model.AssetRecord) FileSummary {
	return FileSummary{
		ID:          rec.ID,
		Name:        rec.OriginalName,
		Size:        rec.Size,
		UploadedAt:  rec.UploadedAt,
		ContentType: rec.ContentType,
		Checksum:    rec.Checksum,
		URL:         "/download/" + rec.ID,
	}
}

func (h *Handler) ListFiles(c echo.Context) error {
	var req ListFilesRequest
	if err := c.Bind(&req); err != nil {
		return response.FromError(c.Response().Writer, http.StatusBadRequest, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.FromError(c.Response().Writer, http.StatusBadRequest, err)
	}

	records, err := h.svc.ListAssets(c.Request().Context(), service.ListAssetsParams{
		Search: req.Search,
	})
	if err != nil {
		return response.FromError(c.Response().Writer, statusFor(err), err)
	}

	summaries := make([]FileSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summarize(rec))
	}

	return response.FromDTO(c.Response().Writer, http.StatusOK, summaries)
}

func (h *Handler) Download(c echo.Context) error {
	rec, reader, err := h.svc.DownloadAsset(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.FromError(c.Response().Writer, statusFor(err), err)
	}
	defer reader.Close()

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, rec.ContentType)
	header.Set(echo.HeaderContentLength, strconv.FormatInt(rec.Size, 10))
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rec.OriginalName))
	c.Response().WriteHeader(http.StatusOK)

	if _, err := io.Copy(c.Response().Writer, reader); err != nil {
		// Headers are gone; all we can do is log via echo's error handling.
		return err
	}

	return nil
}

func (h *Handler) DeleteFile(c echo.Context) error {
	if err := h.svc.DeleteAsset(c.Request().Context(), c.Param("id")); err != nil {
		return response.FromError(c.Response().Writer, statusFor(err), err)
	}

	return response.FromMessage(c.Response().Writer, http.StatusOK, "File deleted")
}

type HealthResponse struct {
	Status string `json:"status"`
	service.Stats
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Stats:  h.svc.Stats(),
	})
}
