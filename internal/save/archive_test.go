package save_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/validation-portal/portal-client/internal/save"
	mocksaver "github.com/validation-portal/portal-client/internal/save/mock"
	"github.com/validation-portal/portal-client/internal/upload"
	mockuploader "github.com/validation-portal/portal-client/internal/upload/mock"
)

func TestArchiveSaver(t *testing.T) {
	report := []byte("%PDF-1.4 report")
	key := upload.ReportKey("Report.pdf", report)

	t.Run("ArchivesAndPresigns", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		u := mockuploader.NewMockUploader(ctrl)

		u.EXPECT().StoreIdentifier(gomock.Any()).Return("reports", nil).Times(1)
		u.EXPECT().Exists(gomock.Any(), gomock.Eq(key)).Return(false, nil).Times(1)
		u.EXPECT().Upload(gomock.Any(), gomock.Any()).Return(nil).Times(1)
		u.EXPECT().
			PresignedReadURL(gomock.Any(), gomock.Eq(key), gomock.Eq(time.Hour)).
			Return("https://example.com/"+key, nil).
			Times(1)

		save.NewArchiveSaver(u, "application/pdf", time.Hour).Save(context.Background(), "Report.pdf", report)
	})

	t.Run("NoPresign", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		u := mockuploader.NewMockUploader(ctrl)

		u.EXPECT().StoreIdentifier(gomock.Any()).Return("reports", nil).Times(1)
		u.EXPECT().Exists(gomock.Any(), gomock.Eq(key)).Return(true, nil).Times(1)
		u.EXPECT().PresignedReadURL(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		save.NewArchiveSaver(u, "application/pdf", 0).Save(context.Background(), "Report.pdf", report)
	})

	t.Run("UploadFailureIsSwallowed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		u := mockuploader.NewMockUploader(ctrl)

		u.EXPECT().StoreIdentifier(gomock.Any()).Return("reports", nil).Times(1)
		u.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, nil).Times(1)
		u.EXPECT().Upload(gomock.Any(), gomock.Any()).Return(errors.New("expected error")).Times(1)
		u.EXPECT().PresignedReadURL(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		save.NewArchiveSaver(u, "application/pdf", time.Hour).Save(context.Background(), "Report.pdf", report)
	})
}

func TestMulti(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mocksaver.NewMockSaver(ctrl)
	second := mocksaver.NewMockSaver(ctrl)

	report := []byte("x")
	gomock.InOrder(
		first.EXPECT().Save(gomock.Any(), "Report.pdf", report).Times(1),
		second.EXPECT().Save(gomock.Any(), "Report.pdf", report).Times(1),
	)

	save.Multi{first, second}.Save(context.Background(), "Report.pdf", report)
}
