package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/studiogate/internal/domain"
	pkgkafka "github.com/utafrali/studiogate/pkg/kafka"
)

// Kafka topic constants for auth and upload domain events.
const (
	TopicUserLoggedIn  = "studiogate.user.logged_in"
	TopicUserLoggedOut = "studiogate.user.logged_out"
	TopicVideoUploaded = "studiogate.video.uploaded"
)

// Aggregate type constants.
const (
	AggregateTypeUser  = "user"
	AggregateTypeVideo = "video"
)

// Source identifier for events originating from this service.
const Source = "studiogate"

// UserLoggedInData is the payload for a user.logged_in event.
type UserLoggedInData struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstTime bool   `json:"first_time"`
}

// UserLoggedOutData is the payload for a user.logged_out event.
type UserLoggedOutData struct {
	UserID string `json:"user_id"`
}

// VideoUploadedData is the payload for a video.uploaded event.
type VideoUploadedData struct {
	UserID  string `json:"user_id"`
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Size    int64  `json:"size"`
}

// Producer publishes studiogate domain events to Kafka.
type Producer struct {
	kafka  pkgkafka.Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserLoggedIn publishes a user.logged_in event.
func (p *Producer) PublishUserLoggedIn(ctx context.Context, user *domain.User, firstTime bool) error {
	data := UserLoggedInData{
		UserID:    user.ID,
		Email:     user.Email,
		FirstTime: firstTime,
	}

	event, err := pkgkafka.NewEvent(TopicUserLoggedIn, user.ID, AggregateTypeUser, Source, data)
	if err != nil {
		return fmt.Errorf("create user.logged_in event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserLoggedIn, event); err != nil {
		return fmt.Errorf("publish user.logged_in event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.logged_in event",
		slog.String("user_id", user.ID),
		slog.Bool("first_time", firstTime),
	)

	return nil
}

// PublishUserLoggedOut publishes a user.logged_out event.
func (p *Producer) PublishUserLoggedOut(ctx context.Context, userID string) error {
	event, err := pkgkafka.NewEvent(TopicUserLoggedOut, userID, AggregateTypeUser, Source,
		UserLoggedOutData{UserID: userID})
	if err != nil {
		return fmt.Errorf("create user.logged_out event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserLoggedOut, event); err != nil {
		return fmt.Errorf("publish user.logged_out event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.logged_out event",
		slog.String("user_id", userID),
	)

	return nil
}

// PublishVideoUploaded publishes a video.uploaded event.
func (p *Producer) PublishVideoUploaded(ctx context.Context, userID string, upload *domain.VideoUpload, result *domain.UploadResult) error {
	data := VideoUploadedData{
		UserID:  userID,
		VideoID: result.VideoID,
		Title:   upload.Title,
		URL:     result.URL,
		Size:    upload.Size,
	}

	event, err := pkgkafka.NewEvent(TopicVideoUploaded, result.VideoID, AggregateTypeVideo, Source, data)
	if err != nil {
		return fmt.Errorf("create video.uploaded event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicVideoUploaded, event); err != nil {
		return fmt.Errorf("publish video.uploaded event: %w", err)
	}

	p.logger.DebugContext(ctx, "published video.uploaded event",
		slog.String("user_id", userID),
		slog.String("video_id", result.VideoID),
	)

	return nil
}
