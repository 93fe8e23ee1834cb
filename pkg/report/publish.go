package report

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/shoshosho1210/coinrader/pkg/observability"
	"github.com/shoshosho1210/coinrader/pkg/storage"
)

// Publisher places one rendered artifact at a destination. relPath is the
// path under the publisher's root (e.g. "share/20260830.html").
type Publisher interface {
	Publish(ctx context.Context, relPath string, data []byte, contentType string) error
}

// LocalPublisher writes artifacts under the content root.
type LocalPublisher struct {
	files *storage.LocalFiles
}

// NewLocalPublisher creates a publisher over the content root.
func NewLocalPublisher(files *storage.LocalFiles) *LocalPublisher {
	return &LocalPublisher{files: files}
}

// Publish implements Publisher.
func (p *LocalPublisher) Publish(_ context.Context, relPath string, data []byte, _ string) error {
	if _, err := p.files.WriteFile(relPath, data); err != nil {
		return fmt.Errorf("local publish of %s failed: %w", relPath, err)
	}
	return nil
}

// S3Publisher uploads artifacts to the site bucket. Keys mirror the
// local relative paths so the bucket can be served as-is.
type S3Publisher struct {
	client *storage.S3Client
	prefix string
	logger *observability.Logger
}

// NewS3Publisher creates a publisher over an S3 client. prefix is an
// optional key prefix.
func NewS3Publisher(client *storage.S3Client, prefix string, logger *observability.Logger) *S3Publisher {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &S3Publisher{
		client: client,
		prefix: prefix,
		logger: logger.WithField("component", "s3_publisher"),
	}
}

// Publish implements Publisher.
func (p *S3Publisher) Publish(ctx context.Context, relPath string, data []byte, contentType string) error {
	key := relPath
	if p.prefix != "" {
		key = path.Join(p.prefix, relPath)
	}
	if err := p.client.PutObject(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return fmt.Errorf("s3 publish of %s failed: %w", key, err)
	}
	p.logger.WithField("key", key).Debug("Published artifact to S3")
	return nil
}

// MultiPublisher fans one artifact out to every destination. Every
// destination is attempted even when an earlier one fails; the first
// error is reported.
type MultiPublisher []Publisher

// Publish implements Publisher.
func (m MultiPublisher) Publish(ctx context.Context, relPath string, data []byte, contentType string) error {
	var firstErr error
	for _, p := range m {
		if err := p.Publish(ctx, relPath, data, contentType); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
