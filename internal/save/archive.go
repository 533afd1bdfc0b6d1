package save

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/validation-portal/portal-client/internal/audit"
	"github.com/validation-portal/portal-client/internal/logger"
	"github.com/validation-portal/portal-client/internal/upload"
)

// Ensure ArchiveSaver implements Saver interface.
var _ Saver = (*ArchiveSaver)(nil)

// Keeps a copy of every report in object storage
type ArchiveSaver struct {
	uploader    upload.Uploader
	logger      *slog.Logger
	contentType string
	// zero disables presigned links
	presign time.Duration
}

func NewArchiveSaver(uploader upload.Uploader, contentType string, presign time.Duration) *ArchiveSaver {
	return &ArchiveSaver{
		uploader:    uploader,
		logger:      logger.Logger.WithGroup("archive"),
		contentType: contentType,
		presign:     presign,
	}
}

func (s *ArchiveSaver) Save(ctx context.Context, filename string, report []byte) {
	ctx, span := tracer.Start(ctx, "ArchiveSaver.Save")
	defer span.End()

	store, err := s.uploader.StoreIdentifier(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get store identifier")
		s.logger.ErrorContext(ctx, "failed to get store identifier", "error", err)
		return
	}

	key, err := upload.Archive(ctx, s.uploader, filename, s.contentType, report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to archive report")
		s.logger.ErrorContext(ctx, "failed to archive report", "store", store, "error", err)
		return
	}

	s.logger.InfoContext(ctx, "archived report", "store", store, "key", key)
	audit.LogReportArchived(audit.FromContext(ctx), store, key)

	if s.presign > 0 {
		url, err := s.uploader.PresignedReadURL(ctx, key, s.presign)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to presign archived report", "key", key, "error", err)
		} else {
			s.logger.InfoContext(ctx, "archived report link", "url", url, "expires_in", s.presign.String())
		}
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "archived report")
}
