/*
Package storage exports room transcripts to S3-compatible object storage and
hands out presigned download links for them.
*/
package storage

import (
	"context"
	"time"
)

// DefaultDownloadExpiry is the lifetime of a presigned transcript link.
const DefaultDownloadExpiry = time.Hour

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// DownloadExpiry defaults to DefaultDownloadExpiry.
	DownloadExpiry time.Duration
}

// StorageService defines the object operations the archive needs.
type StorageService interface {
	// Upload stores body under key.
	Upload(ctx context.Context, key, contentType string, body []byte) error

	// PresignDownload generates a pre-signed URL for downloading a file.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)
}

// NewStorageService is the factory function for StorageService.
// Currently, only S3 compatible implementations are supported.
func NewStorageService(cfg ServiceConfig) (StorageService, error) {
	return newS3Client(cfg)
}

// TranscriptArchiver uploads transcripts and returns presigned download links.
type TranscriptArchiver struct {
	service StorageService
	expiry  time.Duration
}

// NewTranscriptArchiver wraps service.
func NewTranscriptArchiver(service StorageService, expiry time.Duration) *TranscriptArchiver {
	if expiry <= 0 {
		expiry = DefaultDownloadExpiry
	}
	return &TranscriptArchiver{service: service, expiry: expiry}
}

// PutTranscript uploads a JSON transcript and presigns it for download.
func (a *TranscriptArchiver) PutTranscript(ctx context.Context, key string, body []byte) (string, error) {
	if err := a.service.Upload(ctx, key, "application/json", body); err != nil {
		return "", err
	}
	return a.service.PresignDownload(ctx, key, a.expiry)
}
