package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/mpesa-ledger/internal/logger"
)

const uploadTimeout = 2 * time.Minute

// Archive stores raw payloads in one GCS bucket. It assumes Application
// Default Credentials are configured.
type Archive struct {
	client *storage.Client
	bucket string
}

// NewArchive creates an Archive over bucket.
func NewArchive(ctx context.Context, bucket string) (*Archive, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewArchive: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewArchive: create storage client: %w", err)
	}
	return &Archive{client: client, bucket: bucket}, nil
}

// Bucket returns the archive bucket name.
func (a *Archive) Bucket() string { return a.bucket }

// Close releases the storage client.
func (a *Archive) Close() error {
	return a.client.Close()
}

// UploadBytes implements StorageService.
func (a *Archive) UploadBytes(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	if err := a.write(ctx, a.bucket, objectName, bytes.NewReader(data), contentType); err != nil {
		return "", fmt.Errorf("UploadBytes: %w", err)
	}
	uri := fmt.Sprintf("gs://%s/%s", a.bucket, objectName)

	log := logger.FromContext(ctx)
	log.Debug().Str("uri", uri).Int("bytes", len(data)).Msg("Archived raw payload")
	return uri, nil
}

// UploadFile implements StorageService.
func (a *Archive) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	if bucketName == "" {
		bucketName = a.bucket
	}
	if err := a.write(ctx, bucketName, objectName, f, ""); err != nil {
		return fmt.Errorf("UploadFile: %w", err)
	}
	return nil
}

func (a *Archive) write(ctx context.Context, bucketName, objectName string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// FetchFromGCS implements StorageService.
func (a *Archive) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := a.client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: reading bytes: %w", err)
	}
	return data, nil
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/raw/alice/statement.csv" → "statement.csv"
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// ObjectName builds the archive path for an owner's upload:
// raw/<owner>/<yyyy>/<mm>/<unix-nanos>-<file>.
func ObjectName(ownerID, fileName string, at time.Time) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "payload"
	}
	at = at.UTC()
	return fmt.Sprintf("raw/%s/%04d/%02d/%d-%s", ownerID, at.Year(), int(at.Month()), at.UnixNano(), base)
}
