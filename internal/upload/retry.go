package upload

import (
	"context"
	"io"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/codes"
)

// Ensure RetryUploader implements Uploader interface.
var _ Uploader = (*RetryUploader)(nil)

// Meta uploader that wraps uploader operations in backoff loops
type RetryUploader struct {
	uploader Uploader
	backoff  func() retry.Backoff
}

func NewRetryUploaderBackoff(uploader Uploader, backoff func() retry.Backoff) *RetryUploader {
	return &RetryUploader{
		uploader: uploader,
		backoff:  backoff,
	}
}

// Archiving runs after the operator already has the report so it can afford
// to wait a while
func NewRetryUploader(uploader Uploader) *RetryUploader {
	return &RetryUploader{
		uploader: uploader,
		backoff: func() retry.Backoff {
			b := retry.NewExponential(time.Second)
			b = retry.WithMaxDuration(time.Second*30, b)
			return b
		},
	}
}

// runs `fn` under the backoff treating every error as retryable
func (r *RetryUploader) do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "RetryUploader."+name)
	defer span.End()

	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		//nolint:govet // shadow: intentionally shadow ctx and span to avoid using the incorrect one.
		ctx, span := tracer.Start(ctx, "RetryUploader."+name+".Retry")
		defer span.End()

		if err := fn(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "attempt failed")
			return retry.RetryableError(err)
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "attempt succeeded")
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "all attempts failed")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "succeeded")
	return nil
}

func (r *RetryUploader) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.do(ctx, "Exists", func(ctx context.Context) error {
		var err error
		exists, err = r.uploader.Exists(ctx, key)
		return err
	})
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *RetryUploader) StoreIdentifier(ctx context.Context) (string, error) {
	var ident string
	err := r.do(ctx, "StoreIdentifier", func(ctx context.Context) error {
		var err error
		ident, err = r.uploader.StoreIdentifier(ctx)
		return err
	})
	if err != nil {
		return "", err
	}

	return ident, nil
}

func (r *RetryUploader) Upload(ctx context.Context, obj Object) error {
	return r.do(ctx, "Upload", func(ctx context.Context) error {
		// a failed attempt may have consumed part of the body
		if _, err := obj.Body.Seek(0, io.SeekStart); err != nil {
			return err
		}

		return r.uploader.Upload(ctx, obj)
	})
}

func (r *RetryUploader) PresignedReadURL(
	ctx context.Context,
	key string,
	duration time.Duration,
) (string, error) {
	var presigned string
	err := r.do(ctx, "PresignedReadURL", func(ctx context.Context) error {
		var err error
		presigned, err = r.uploader.PresignedReadURL(ctx, key, duration)
		return err
	})
	if err != nil {
		return "", err
	}

	return presigned, nil
}
