package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/studiogate/pkg/errors"
	"github.com/utafrali/studiogate/pkg/httputil"
	"github.com/utafrali/studiogate/pkg/validator"

	"github.com/utafrali/studiogate/internal/domain"
	"github.com/utafrali/studiogate/internal/service"
)

// UploadRequest carries the metadata fields of the multipart upload form.
// The limits mirror what YouTube accepts for video metadata.
type UploadRequest struct {
	Title       string `validate:"required,max=100"`
	Description string `validate:"omitempty,max=5000"`
	Tags        string `validate:"omitempty,max=500"`
}

// multipartMemoryLimit is how much of the form is held in memory before the
// multipart reader spills to a temp file.
const multipartMemoryLimit = 32 << 20

// formOverhead leaves room for the metadata fields and multipart framing on
// top of the video size cap.
const formOverhead = 1 << 20

// UploadHandler handles the video upload endpoint.
type UploadHandler struct {
	service  *service.UploadService
	maxBytes int64
	logger   *slog.Logger
}

// NewUploadHandler creates a new upload HTTP handler.
func NewUploadHandler(svc *service.UploadService, maxBytes int64, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{service: svc, maxBytes: maxBytes, logger: logger}
}

// Upload handles POST /api/v1/videos. The request is a multipart form with a
// "video" file part plus "title", "description", and "tags" fields.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	if p == nil {
		httputil.WriteError(w, r, apperrors.Unauthenticated("not authenticated"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, r, apperrors.Validation("video exceeds the upload size limit"), h.logger)
			return
		}
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid multipart form: "+err.Error()), h.logger)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("video")
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("a video file part named \"video\" is required"), h.logger)
		return
	}
	defer file.Close()

	req := UploadRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Tags:        r.FormValue("tags"),
	}
	if err := validator.Validate(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	upload := &domain.VideoUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Title:       req.Title,
		Description: req.Description,
		Tags:        splitTags(req.Tags),
	}

	result, err := h.service.Upload(r.Context(), p.User.ID, upload, file)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}

// splitTags parses a comma-separated tag list, dropping empty entries.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
