package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	apperrors "github.com/utafrali/studiogate/pkg/errors"

	"github.com/utafrali/studiogate/internal/domain"
	"github.com/utafrali/studiogate/internal/event"
	"github.com/utafrali/studiogate/internal/repository"
	"github.com/utafrali/studiogate/internal/youtube"
)

// UploadService publishes videos to the user's channel using their
// delegated credentials.
type UploadService struct {
	users    repository.UserRepository
	youtube  youtube.Uploader
	producer *event.Producer
	logger   *slog.Logger
}

// NewUploadService creates the upload service.
func NewUploadService(
	users repository.UserRepository,
	uploader youtube.Uploader,
	producer *event.Producer,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		users:    users,
		youtube:  uploader,
		producer: producer,
		logger:   logger,
	}
}

// Upload validates the video and streams it to the platform on behalf of the
// user. The caller must already be authenticated; delegated upload access is
// checked here because it can lapse independently of the session.
func (s *UploadService) Upload(ctx context.Context, userID string, upload *domain.VideoUpload, file io.Reader) (*domain.UploadResult, error) {
	if err := upload.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load uploading user: %w", err)
	}
	if !user.HasDelegatedAccess() {
		return nil, apperrors.MissingDelegatedAccess()
	}

	result, err := s.youtube.Upload(ctx, user.Tokens.AccessToken, upload, file)
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}

	// Publish upload event (non-blocking on failure).
	if err := s.producer.PublishVideoUploaded(ctx, userID, upload, result); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish video.uploaded event",
			slog.String("user_id", userID),
			slog.String("video_id", result.VideoID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "video uploaded",
		slog.String("user_id", userID),
		slog.String("video_id", result.VideoID),
		slog.String("title", upload.Title),
		slog.Int64("size_bytes", upload.Size),
	)

	return result, nil
}
