package gcsuploader

import (
	"context"
)

// StorageService archives raw statement payloads and fetches them back for
// ingest jobs.
type StorageService interface {
	// UploadBytes stores data under objectName and returns its gs:// URI.
	UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) (string, error)

	// UploadFile uploads a local file to bucketName under objectName.
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// FetchFromGCS downloads file bytes from the given gs:// URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}

var _ StorageService = (*Archive)(nil)
