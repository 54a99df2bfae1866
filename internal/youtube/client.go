package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/utafrali/studiogate/internal/domain"
	"github.com/utafrali/studiogate/pkg/httpclient"
)

const defaultUploadURL = "https://www.googleapis.com/upload/youtube/v3/videos?uploadType=multipart&part=snippet,status"

// Uploader publishes a video to the user's channel using their delegated
// credential. Implemented by Client; mocked in tests.
type Uploader interface {
	Upload(ctx context.Context, accessToken string, upload *domain.VideoUpload, file io.Reader) (*domain.UploadResult, error)
}

// snippet and status mirror the YouTube Data API insert request body.
type snippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type status struct {
	PrivacyStatus string `json:"privacyStatus"`
}

type insertRequest struct {
	Snippet snippet `json:"snippet"`
	Status  status  `json:"status"`
}

type insertResponse struct {
	ID string `json:"id"`
}

// Client uploads videos through the YouTube Data API.
type Client struct {
	http      *httpclient.CircuitBreakerClient
	uploadURL string
}

// Option customizes the Client.
type Option func(*Client)

// WithUploadURL overrides the YouTube upload endpoint. Used in tests.
func WithUploadURL(url string) Option {
	return func(c *Client) { c.uploadURL = url }
}

// NewClient creates a YouTube upload client. The breaker guards against a
// degraded upstream; the underlying client never retries because the video
// body is streamed and cannot be replayed.
func NewClient(hc *httpclient.CircuitBreakerClient, opts ...Option) *Client {
	c := &Client{
		http:      hc,
		uploadURL: defaultUploadURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload streams the video and its metadata to YouTube as a single
// multipart/related request and returns the assigned video ID.
func (c *Client) Upload(ctx context.Context, accessToken string, upload *domain.VideoUpload, file io.Reader) (*domain.UploadResult, error) {
	meta, err := json.Marshal(insertRequest{
		Snippet: snippet{
			Title:       upload.Title,
			Description: upload.Description,
			Tags:        upload.Tags,
		},
		Status: status{PrivacyStatus: domain.DefaultPrivacyStatus},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal video metadata: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeBody(mw, meta, upload.ContentType, file)
		mw.Close()
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, pr)
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upload video: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "youtube")
	}

	var out insertResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("upload response missing video id")
	}

	return &domain.UploadResult{
		VideoID: out.ID,
		URL:     domain.WatchURL(out.ID),
	}, nil
}

// writeBody emits the two multipart/related parts: JSON metadata first, then
// the raw video bytes.
func writeBody(mw *multipart.Writer, meta []byte, contentType string, file io.Reader) error {
	metaPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"application/json; charset=UTF-8"},
	})
	if err != nil {
		return fmt.Errorf("create metadata part: %w", err)
	}
	if _, err := metaPart.Write(meta); err != nil {
		return fmt.Errorf("write metadata part: %w", err)
	}

	videoPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {contentType},
	})
	if err != nil {
		return fmt.Errorf("create video part: %w", err)
	}
	if _, err := io.Copy(videoPart, file); err != nil {
		return fmt.Errorf("stream video part: %w", err)
	}

	return nil
}
