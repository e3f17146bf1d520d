// Package azure provides an ObjectStore backed by Azure Blob Storage.
package azure

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// Config captures the parameters required to reach a blob container.
type Config struct {
	ConnectionString string
	Container        string
}

// ObjectStore writes documents as block blobs in one container.
type ObjectStore struct {
	container *container.Client
}

// New builds an ObjectStore from a storage account connection string.
func New(cfg Config) (*ObjectStore, error) {
	if strings.TrimSpace(cfg.ConnectionString) == "" {
		return nil, fmt.Errorf("azure connection string is required")
	}
	if strings.TrimSpace(cfg.Container) == "" {
		return nil, fmt.Errorf("azure container name is required")
	}
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return NewWithContainer(client.ServiceClient().NewContainerClient(cfg.Container))
}

// NewWithContainer wraps an existing container client.
func NewWithContainer(c *container.Client) (*ObjectStore, error) {
	if c == nil {
		return nil, fmt.Errorf("container client is required")
	}
	return &ObjectStore{container: c}, nil
}

func (s *ObjectStore) blob(name string) *blockblob.Client {
	return s.container.NewBlockBlobClient(name)
}

// Exists reports whether the blob is present.
func (s *ObjectStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.blob(name).GetProperties(ctx, nil)
	switch {
	case err == nil:
		return true, nil
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("blob properties: %w", err)
	}
}

// Delete removes the blob and its snapshots. A missing blob is not an error.
func (s *ObjectStore) Delete(ctx context.Context, name string) error {
	_, err := s.blob(name).Delete(ctx, &blob.DeleteOptions{
		DeleteSnapshots: to(blob.DeleteSnapshotsOptionTypeInclude),
	})
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Upload streams r into a block blob, overwriting any existing content, and
// returns the blob URL.
func (s *ObjectStore) Upload(ctx context.Context, name string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("blob name is required")
	}
	client := s.blob(name)
	opts := &blockblob.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: to(contentType)}
	}
	if _, err := client.UploadStream(ctx, r, opts); err != nil {
		return "", fmt.Errorf("upload blob: %w", err)
	}
	return client.URL(), nil
}

func to[T any](v T) *T {
	return &v
}
