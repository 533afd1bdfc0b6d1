package upload_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/azure/azurite"

	"github.com/validation-portal/portal-client/internal/upload"
)

var container = "reports"

func TestAzure(t *testing.T) {
	if testing.Short() {
		t.Skip("needs a container runtime")
	}

	ctx := context.Background()

	azuriteContainer, err := azurite.Run(
		ctx,
		"mcr.microsoft.com/azure-storage/azurite:latest",
		azurite.WithInMemoryPersistence(256),
	)
	require.NoError(t, err, "failed to make azurite container")
	defer func() {
		require.NoError(t, testcontainers.TerminateContainer(azuriteContainer))
	}()

	cred, err := azblob.NewSharedKeyCredential(azurite.AccountName, azurite.AccountKey)
	require.NoError(t, err, "failed to get creds")

	serviceURL, err := azuriteContainer.BlobServiceURL(ctx)
	require.NoError(t, err, "failed to get serviceURL")
	serviceURL = fmt.Sprintf("%s/%s", serviceURL, azurite.AccountName)

	azclient, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	require.NoError(t, err, "failed to make azure blob client")

	_, err = azclient.CreateContainer(ctx, container, nil)
	require.NoError(t, err, "failed to make container")

	uploader, err := upload.NewAzureUploader(
		azurite.AccountName,
		azurite.AccountKey,
		serviceURL,
		container,
	)
	require.NoError(t, err, "failed to construct uploader")

	t.Run("NotExists", func(t *testing.T) {
		exists, err := uploader.Exists(ctx, "abc")
		require.NoError(t, err, "failed to check if report exists")
		assert.False(t, exists, "report should not exist")
	})

	t.Run("ArchiveTwice", func(t *testing.T) {
		report := []byte(uuid.NewString())

		key, err := upload.Archive(ctx, uploader, "Report.pdf", "application/pdf", report)
		require.NoError(t, err, "failed to archive report")

		exists, err := uploader.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, exists, "report should exist after archiving")

		again, err := upload.Archive(ctx, uploader, "Report.pdf", "application/pdf", report)
		require.NoError(t, err, "failed to archive report again")
		assert.Equal(t, key, again)

		buffer := make([]byte, len(report))
		_, err = azclient.DownloadBuffer(ctx, container, key, buffer, nil)
		require.NoError(t, err, "failed to download report")
		assert.Equal(t, report, buffer, "content of report should match")
	})
}
