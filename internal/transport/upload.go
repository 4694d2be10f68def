package transport

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mkrett/shuttle/internal/model"
	"github.com/mkrett/shuttle/internal/service"
	"github.com/mkrett/shuttle/pkg/response"
)

// Wire contract of the resumable upload protocol (tus 1.0 compatible).
const (
	HeaderUploadOffset   = "Upload-Offset"
	HeaderUploadLength   = "Upload-Length"
	HeaderUploadMetadata = "Upload-Metadata"
	HeaderTusResumable   = "Tus-Resumable"
	HeaderTusVersion     = "Tus-Version"
	HeaderTusMaxSize     = "Tus-Max-Size"
	HeaderTusExtension   = "Tus-Extension"

	ProtocolVersion = "1.0.0"

	// ContentTypeOffset is the only media type PATCH accepts.
	ContentTypeOffset = "application/offset+octet-stream"
)

// UploadOptions advertises the protocol version and the maximum accepted
// upload size.
func (h *Handler) UploadOptions(c echo.Context) error {
	header := c.Response().Header()
	header.Set(HeaderTusResumable, ProtocolVersion)
	header.Set(HeaderTusVersion, ProtocolVersion)
	header.Set(HeaderTusMaxSize, strconv.FormatInt(h.svc.MaxUploadSize(), 10))
	header.Set(HeaderTusExtension, "creation")

	return c.NoContent(http.StatusNoContent)
}

// CreateUpload opens a new session from the declared length and the optional
// creation metadata, answering 201 with the session resource in Location.
func (h *Handler) CreateUpload(c echo.Context) error {
	rawLength := c.Request().Header.Get(HeaderUploadLength)
	length, err := strconv.ParseInt(rawLength, 10, 64)
	if err != nil {
		return response.FromError(c.Response().Writer, http.StatusBadRequest,
			model.ErrValidation.Fmt(fmt.Sprintf("invalid %s header %q", HeaderUploadLength, rawLength)))
	}

	sess, err := h.svc.CreateUpload(c.Request().Context(), service.CreateUploadParams{
		Length:         length,
		MetadataHeader: c.Request().Header.Get(HeaderUploadMetadata),
	})
	if err != nil {
		return response.FromError(c.Response().Writer, statusFor(err), err)
	}

	header := c.Response().Header()
	header.Set(HeaderTusResumable, ProtocolVersion)
	header.Set(echo.HeaderLocation, "/upload/"+sess.ID)

	return c.NoContent(http.StatusCreated)
}

// UploadStatus reports the current offset and total length so a client can
// resume.
func (h *Handler) UploadStatus(c echo.Context) error {
	sess, err := h.svc.Offset(c.Request().Context(), c.Param("id"))
	if err != nil {
		// HEAD responses carry no body.
		return c.NoContent(statusFor(err))
	}

	header := c.Response().Header()
	header.Set(HeaderTusResumable, ProtocolVersion)
	header.Set(HeaderUploadOffset, strconv.FormatInt(sess.Offset, 10))
	header.Set(HeaderUploadLength, strconv.FormatInt(sess.TotalLength, 10))
	header.Set("Cache-Control", "no-store")

	return c.NoContent(http.StatusOK)
}

// AppendChunk ingests a chunk at the claimed offset. 204 with the new offset
// on success, 409 when the claim is stale (the client re-queries and retries).
func (h *Handler) AppendChunk(c echo.Context) error {
	req := c.Request()

	if req.Header.Get(echo.HeaderContentType) != ContentTypeOffset {
		return response.FromError(c.Response().Writer, http.StatusUnsupportedMediaType,
			model.ErrValidation.Fmt(fmt.Sprintf("content type must be %s", ContentTypeOffset)))
	}

	rawOffset := req.Header.Get(HeaderUploadOffset)
	claimedOffset, err := strconv.ParseInt(rawOffset, 10, 64)
	if err != nil || claimedOffset < 0 {
		return response.FromError(c.Response().Writer, http.StatusBadRequest,
			model.ErrValidation.Fmt(fmt.Sprintf("invalid %s header %q", HeaderUploadOffset, rawOffset)))
	}

	newOffset, err := h.svc.AppendChunk(req.Context(), c.Param("id"), claimedOffset, req.Body)
	if err != nil {
		return response.FromError(c.Response().Writer, statusFor(err), err)
	}

	header := c.Response().Header()
	header.Set(HeaderTusResumable, ProtocolVersion)
	header.Set(HeaderUploadOffset, strconv.FormatInt(newOffset, 10))

	return c.NoContent(http.StatusNoContent)
}
