// Package archive stores uploaded statement files in Google Cloud Storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Archiver stores the original bytes of an uploaded statement and returns
// the URI of the stored object.
type Archiver interface {
	Archive(ctx context.Context, userID, statementID, filename string, data []byte) (string, error)
}

// Nop discards files. It is used when no bucket is configured.
type Nop struct{}

// Archive implements Archiver.
func (Nop) Archive(context.Context, string, string, string, []byte) (string, error) {
	return "", nil
}

// ObjectName returns statements/<user>/<statement id>/<filename>. Only the
// base name of filename is kept.
func ObjectName(userID, statementID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "statement.pdf"
	}
	return path.Join("statements", userID, statementID, base)
}

// GCS archives to a Cloud Storage bucket.
type GCS struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
}

// NewGCS creates a storage client. With an empty credentialsFile it uses
// Application Default Credentials.
func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, timeout: 2 * time.Minute}, nil
}

// Archive uploads data and returns its gs:// URI.
func (g *GCS) Archive(ctx context.Context, userID, statementID, filename string, data []byte) (string, error) {
	objectName := ObjectName(userID, statementID, filename)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType(filename)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}
	return "gs://" + g.bucket + "/" + objectName, nil
}

// Close releases the storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func contentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
