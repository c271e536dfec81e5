// Package snapshot builds the consolidated users CSV for a pass and publishes it.
//
// Rows are staged in a local temp file while the pass runs. Commit uploads the
// file under a pass-scoped staging key and then replaces the published key with
// one server-side copy, so readers see either the previous snapshot or the new
// one and never a partial upload.
package snapshot

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"roster/internal/sentinel"
	"roster/internal/users/models"
	dErrors "roster/pkg/domain-errors"
)

const contentType = "text/csv"

// Objects is the object storage subset the publisher writes through.
type Objects interface {
	Put(ctx context.Context, bucket, key string, body io.ReadSeeker, size int64, contentType string) error
	Copy(ctx context.Context, bucket, srcKey, dstKey string) error
	Delete(ctx context.Context, bucket, key string) error
}

// Publisher owns the published snapshot key.
type Publisher struct {
	objects    Objects
	bucket     string
	key        string
	stagingDir string
	logger     *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithStagingDir sets where local staging files are created. Defaults to os.TempDir.
func WithStagingDir(dir string) Option {
	return func(p *Publisher) {
		p.stagingDir = dir
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New returns a publisher writing bucket/key.
func New(objects Objects, bucket, key string, opts ...Option) *Publisher {
	p := &Publisher{objects: objects, bucket: bucket, key: key}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Bucket returns the bucket holding the published snapshot.
func (p *Publisher) Bucket() string { return p.bucket }

// Key returns the published snapshot key.
func (p *Publisher) Key() string { return p.key }

// StagingKey is where a pass uploads its snapshot before the swap.
func (p *Publisher) StagingKey(passID string) string {
	return path.Join("staging", passID, p.key)
}

// Staging is the in-progress snapshot of one pass. It is not safe for concurrent use.
type Staging struct {
	passID string
	file   *os.File
	w      *csv.Writer
	rows   int
	closed bool
}

// Begin creates a fresh staging file holding only the header.
func (p *Publisher) Begin(passID string) (*Staging, error) {
	f, err := os.CreateTemp(p.stagingDir, "roster-snapshot-*.csv")
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	s := &Staging{passID: passID, file: f, w: csv.NewWriter(f)}
	if err := s.w.Write(models.SnapshotHeader); err != nil {
		s.Discard()
		return nil, fmt.Errorf("write snapshot header: %w", err)
	}
	return s, nil
}

// Append writes one row. Rows keep append order.
func (s *Staging) Append(u models.User) error {
	if s.closed {
		return errors.New("staging already closed")
	}
	if err := s.w.Write(u.SnapshotRow()); err != nil {
		return fmt.Errorf("append snapshot row: %w", err)
	}
	s.rows++
	return nil
}

// Rows is the number of appended data rows.
func (s *Staging) Rows() int { return s.rows }

// Path is the local staging file path.
func (s *Staging) Path() string { return s.file.Name() }

// Discard removes the local staging file. It is safe to call more than once.
func (s *Staging) Discard() {
	if s.closed {
		return
	}
	s.closed = true
	_ = s.file.Close()
	_ = os.Remove(s.file.Name())
}

// Commit publishes the staged snapshot and discards local staging state.
// Any upload or swap failure is a publish_fault and leaves the previously
// published snapshot untouched.
func (p *Publisher) Commit(ctx context.Context, s *Staging) error {
	defer s.Discard()
	if s.closed {
		return publishFault("staging already closed", nil)
	}

	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return publishFault("flush staging file", err)
	}
	size, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return publishFault("size staging file", err)
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return publishFault("rewind staging file", err)
	}

	stagingKey := p.StagingKey(s.passID)
	if err := p.objects.Put(ctx, p.bucket, stagingKey, s.file, size, contentType); err != nil {
		return publishFault("upload staged snapshot", err)
	}

	copyErr := p.objects.Copy(ctx, p.bucket, stagingKey, p.key)
	p.removeStaged(ctx, stagingKey)
	if copyErr != nil {
		return publishFault("swap in staged snapshot", copyErr)
	}

	p.logger.InfoContext(ctx, "snapshot published",
		"bucket", p.bucket,
		"object", p.key,
		"rows", s.rows,
		"bytes", size,
	)
	return nil
}

// removeStaged deletes the uploaded staging object. An already absent object is fine.
func (p *Publisher) removeStaged(ctx context.Context, stagingKey string) {
	err := p.objects.Delete(ctx, p.bucket, stagingKey)
	if err == nil || errors.Is(err, sentinel.ErrNotFound) {
		return
	}
	p.logger.WarnContext(ctx, "failed to remove staged snapshot",
		"bucket", p.bucket,
		"object", stagingKey,
		"error", err,
	)
}

func publishFault(step string, err error) error {
	msg := "snapshot publish failed: " + step
	if err != nil {
		msg += ": " + err.Error()
	}
	return &dErrors.Error{Code: dErrors.CodePublishFault, Message: msg, Err: err}
}
