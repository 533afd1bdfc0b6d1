// Package upload archives generated reports to object storage.
package upload

import (
	"bytes"
	"context"
	"io"
	"path"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/validation-portal/portal-client/internal/hash"
)

var tracer = otel.Tracer(
	"github.com/validation-portal/portal-client/internal/upload",
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Uploader

type Object struct {
	Body        io.ReadSeeker
	Key         string
	ContentType string
	Length      int64
}

// Object storage the reports are archived into
type Uploader interface {
	// Create / Overwrite the object at `obj.Key`
	Upload(ctx context.Context, obj Object) error
	// Check if an object exists (only used to skip re-archiving the same report, not authoritative)
	//
	// May always return false
	Exists(ctx context.Context, key string) (bool, error)
	// Bucket or container name, used for logging and auditing
	StoreIdentifier(ctx context.Context) (string, error)
	// Anonymous, readonly URL for sharing an archived report
	PresignedReadURL(ctx context.Context, key string, duration time.Duration) (string, error)
}

// Key under which a report is archived: `<sha256>/<filename>`
func ReportKey(filename string, report []byte) string {
	return path.Join(hash.Buffer(report), path.Base(filename))
}

// Archives `report` content addressed by its digest. Identical reports are
// uploaded once no matter how often they are saved.
func Archive(
	ctx context.Context,
	u Uploader,
	filename string,
	contentType string,
	report []byte,
) (string, error) {
	key := ReportKey(filename, report)

	ctx, span := tracer.Start(ctx, "Archive", trace.WithAttributes(
		attribute.String("key", key),
		attribute.Int("length", len(report)),
	))
	defer span.End()

	exists, err := u.Exists(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check if report exists")
		return "", err
	}

	if exists {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "found existing report")
		return key, nil
	}

	err = u.Upload(ctx, Object{
		Body:        bytes.NewReader(report),
		Key:         key,
		ContentType: contentType,
		Length:      int64(len(report)),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload report")
		return "", err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "archived report")
	return key, nil
}
