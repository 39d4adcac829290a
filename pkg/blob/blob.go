// Package blob stores CV artifacts in a gocloud.dev bucket under per-user keys.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/careerpal/internal/apperr"
)

const (
	ContentTypePDF   = "application/pdf"
	ContentTypeLaTeX = "application/x-tex"

	// deleteConcurrency bounds parallel deletes in DeleteCVFiles.
	deleteConcurrency = 8
)

// package-level logger for pkg/blob; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/blob. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// CVPrefix is the key prefix holding every CV object of a user.
func CVPrefix(userID string) string { return "cv/" + userID + "/" }

func CVPdfKey(userID string) string { return CVPrefix(userID) + "cv.pdf" }

func CVLatexKey(userID string) string { return CVPrefix(userID) + "cv.tex" }

// Store wraps a bucket with the CV key scheme.
type Store struct {
	bucket *blob.Bucket
}

func New(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

// Open opens the bucket at url, e.g. mem://, file:///var/lib/careerpal or s3://bucket?region=...
func Open(ctx context.Context, url string) (*Store, error) {
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", url, err)
	}
	return New(b), nil
}

func (s *Store) Close() error {
	return s.bucket.Close()
}

// UploadCVPdf writes data to the user's PDF key, replacing any previous object.
func (s *Store) UploadCVPdf(ctx context.Context, userID string, data []byte) (string, error) {
	return s.put(ctx, CVPdfKey(userID), data, ContentTypePDF)
}

// UploadCVLatex writes data to the user's LaTeX key, replacing any previous object.
func (s *Store) UploadCVLatex(ctx context.Context, userID string, data []byte) (string, error) {
	return s.put(ctx, CVLatexKey(userID), data, ContentTypeLaTeX)
}

func (s *Store) ReadCVPdf(ctx context.Context, userID string) ([]byte, error) {
	return s.get(ctx, CVPdfKey(userID))
}

func (s *Store) ReadCVLatex(ctx context.Context, userID string) ([]byte, error) {
	return s.get(ctx, CVLatexKey(userID))
}

func (s *Store) put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	logger.Debug("blob: stored", slog.String("key", key), slog.Int("bytes", len(data)))
	return key, nil
}

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, apperr.Wrap(err, apperr.NotFound, "CV not found")
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

// Keys lists every object key under the user's CV prefix.
func (s *Store) Keys(ctx context.Context, userID string) ([]string, error) {
	var keys []string
	it := s.bucket.List(&blob.ListOptions{Prefix: CVPrefix(userID)})
	for {
		obj, err := it.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", CVPrefix(userID), err)
		}
		if obj.IsDir {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// DeleteCVFiles removes every object under the user's prefix concurrently. The
// first failure is returned; deletions that already succeeded stay deleted.
func (s *Store) DeleteCVFiles(ctx context.Context, userID string) error {
	keys, err := s.Keys(ctx, userID)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			if err := s.bucket.Delete(gctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
				return fmt.Errorf("delete %s: %w", key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("blob: delete cv files", slog.String("user_id", userID), slog.String("error", err.Error()))
		return err
	}

	logger.Debug("blob: deleted cv files", slog.String("user_id", userID), slog.Int("count", len(keys)))
	return nil
}

// Download fetches url and returns the body. Non-2xx responses and bodies
// larger than maxBytes are errors.
func Download(ctx context.Context, client *http.Client, url string, maxBytes int64) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ValidationFailed, "Invalid download URL")
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, ErrNonPublicAddress) {
			return nil, apperr.Wrap(err, apperr.ValidationFailed, "Download URL must resolve to a public address")
		}
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to download %s: %s", url, resp.Status)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	if int64(len(b)) > maxBytes {
		return nil, apperr.New(apperr.ValidationFailed, "Downloaded file exceeds %d bytes", maxBytes)
	}

	return b, nil
}
