package save

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/validation-portal/portal-client/internal/audit"
	"github.com/validation-portal/portal-client/internal/hash"
	"github.com/validation-portal/portal-client/internal/logger"
)

// Ensure DirSaver implements Saver interface.
var _ Saver = (*DirSaver)(nil)

// Writes reports into a local download directory
type DirSaver struct {
	logger          *slog.Logger
	dir             string
	defaultFilename string
}

func NewDirSaver(dir string, defaultFilename string) *DirSaver {
	return &DirSaver{
		logger:          logger.Logger.WithGroup("save"),
		dir:             dir,
		defaultFilename: defaultFilename,
	}
}

func (s *DirSaver) Save(ctx context.Context, filename string, report []byte) {
	path, err := s.Write(ctx, filename, report)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save report", "filename", filename, "error", err)
		return
	}

	s.logger.InfoContext(ctx, "saved report", "path", path)
	audit.LogReportSaved(audit.FromContext(ctx), path, hash.Buffer(report))
}

// Server supplied names never escape the download directory
func (s *DirSaver) name(filename string) string {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." {
		return s.defaultFilename
	}
	return name
}

// Write stores `report` atomically and returns the final path. The temp file
// is acquired first and always released, whichever way the write ends.
func (s *DirSaver) Write(ctx context.Context, filename string, report []byte) (string, error) {
	dest := filepath.Join(s.dir, s.name(filename))

	_, span := tracer.Start(ctx, "DirSaver.Write", trace.WithAttributes(
		attribute.String("path", dest),
		attribute.Int("length", len(report)),
	))
	defer span.End()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create download directory")
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".report-*")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create temp file")
		return "", err
	}
	defer func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.WarnContext(ctx, "failed to release temp file", "path", tmp.Name(), "error", err)
		}
	}()

	if _, err := tmp.Write(report); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write temp file")
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	if err := tmp.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to close temp file")
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to chmod temp file")
		return "", err
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to move report into place")
		return "", err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "saved report")
	return dest, nil
}
