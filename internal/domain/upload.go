package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxVideoSize is the maximum allowed video file size in bytes (100 MB).
const MaxVideoSize int64 = 100 * 1024 * 1024

// Allowed video file extensions.
var AllowedVideoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
	".wmv": true,
}

// Allowed video content types.
var AllowedVideoContentTypes = map[string]bool{
	"video/mp4":       true,
	"video/quicktime": true,
	"video/x-msvideo": true,
	"video/avi":       true,
	"video/x-ms-wmv":  true,
}

// DefaultPrivacyStatus is applied to every uploaded video.
const DefaultPrivacyStatus = "private"

// VideoUpload describes a video file and its metadata prior to upload.
type VideoUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Title       string
	Description string
	Tags        []string
}

// UploadResult is the outcome of a completed video upload.
type UploadResult struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
}

// WatchURL returns the public watch page for an uploaded video.
func WatchURL(videoID string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
}

// IsAllowedVideoExtension checks the file name's extension against the
// accepted video formats.
func IsAllowedVideoExtension(fileName string) bool {
	return AllowedVideoExtensions[strings.ToLower(filepath.Ext(fileName))]
}

// IsAllowedVideoContentType checks whether the given content type is an
// accepted video format.
func IsAllowedVideoContentType(contentType string) bool {
	return AllowedVideoContentTypes[strings.ToLower(contentType)]
}

// Validate checks the upload against size and format rules. Both the file
// extension and the declared content type must look like video.
func (v *VideoUpload) Validate() error {
	if v.Title == "" {
		return fmt.Errorf("title is required")
	}
	if v.Size <= 0 {
		return fmt.Errorf("file is empty")
	}
	if v.Size > MaxVideoSize {
		return fmt.Errorf("file size %d exceeds the %d byte limit", v.Size, MaxVideoSize)
	}
	if !IsAllowedVideoExtension(v.FileName) {
		return fmt.Errorf("unsupported file extension %q, only video files are allowed", filepath.Ext(v.FileName))
	}
	if !IsAllowedVideoContentType(v.ContentType) {
		return fmt.Errorf("unsupported content type %q, only video files are allowed", v.ContentType)
	}
	return nil
}
