package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/sirupsen/logrus"
)

// AzureStorage keeps sessions, history and reports in an Azure Blob container
type AzureStorage struct {
	client        *azblob.Client
	containerName string
}

var _ StorageInterface = (*AzureStorage)(nil)

// NewAzureStorage creates a blob client authenticated with the default Azure credential chain
func NewAzureStorage(ctx context.Context, accountName, containerName string) (*AzureStorage, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	s := &AzureStorage{
		client:        client,
		containerName: containerName,
	}

	if err := s.ensureContainer(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}

	return s, nil
}

func (s *AzureStorage) ensureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.containerName, nil)
	if err != nil {
		if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return fmt.Errorf("failed to create container: %w", err)
		}
		logrus.Debugf("Container %s already exists", s.containerName)
		return nil
	}

	logrus.Infof("Created container %s", s.containerName)
	return nil
}

// Store uploads data under key
func (s *AzureStorage) Store(ctx context.Context, key string, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, s.containerName, key, data, &azblob.UploadBufferOptions{
		BlockSize:   int64(1024 * 1024),
		Concurrency: 3,
	})
	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", key, err)
	}

	logrus.WithFields(logrus.Fields{"operation": "storage_store", "key": key, "bytes": len(data)}).Debug("Stored blob")
	return nil
}

// Retrieve downloads the blob stored under key
func (s *AzureStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	response, err := s.client.DownloadStream(ctx, s.containerName, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("blob %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to download blob %s: %w", key, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}

	return data, nil
}

// List returns the names of blobs starting with prefix
func (s *AzureStorage) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	pager := s.client.NewListBlobsFlatPager(s.containerName, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}

		for _, blob := range page.Segment.BlobItems {
			if blob.Name != nil {
				names = append(names, *blob.Name)
			}
		}
	}

	return names, nil
}

// Delete removes the blob stored under key
func (s *AzureStorage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteBlob(ctx, s.containerName, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return fmt.Errorf("blob %s: %w", key, ErrNotFound)
		}
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}

	logrus.Infof("Deleted %s from Azure Blob Storage", key)
	return nil
}
