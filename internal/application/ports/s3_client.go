package ports

import (
	"context"
	"io"
	"time"

	"compraser-api/internal/domain/file_record"
)

type (
	AssetPut struct {
		Folder       string
		FileName     string
		ContentType  string
		ResourceType file_record.ResourceType
		Data         []byte
	}
	StoredAsset struct {
		AssetID string
		URL     string
		Bytes   int64
	}

	// AssetStore is the object-storage/CDN collaborator holding raw file bytes.
	AssetStore interface {
		Put(ctx context.Context, in AssetPut) (*StoredAsset, error)
		SignedURL(ctx context.Context, assetID string, rt file_record.ResourceType, ttl time.Duration) (string, error)
		Download(ctx context.Context, signedURL string) (io.ReadCloser, error)
		Delete(ctx context.Context, assetID string, rt file_record.ResourceType) error
	}
)
