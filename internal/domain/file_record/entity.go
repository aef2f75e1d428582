package file_record

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	ID = uuid.UUID

	// ResourceType drives how an asset is addressed, encoded and deleted.
	ResourceType string

	FileRecord struct {
		ID ID

		FileName     string
		FileType     string
		OriginalSize int64
		AssetID      string

		CompressedAssetID *string
		CompressedSize    *int64
		DownloadRef       *string

		ExpiresAt time.Time
		CreatedAt time.Time
	}
	FileRecords []*FileRecord

	// Compression is the single mutation applied to a record after a successful re-upload.
	Compression struct {
		AssetID     string
		Size        int64
		DownloadRef string
	}
)

const (
	ResourceImage ResourceType = "image"
	ResourceVideo ResourceType = "video"
	ResourceRaw   ResourceType = "raw"
)

func ResourceTypeFor(mimeType string) ResourceType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return ResourceImage
	case strings.HasPrefix(mimeType, "video/"):
		return ResourceVideo
	default:
		return ResourceRaw
	}
}

func (r *FileRecord) ResourceType() ResourceType { return ResourceTypeFor(r.FileType) }

func (r *FileRecord) IsCompressed() bool {
	return r.CompressedAssetID != nil && *r.CompressedAssetID != ""
}

// ServedAssetID is the compressed asset when one exists, else the original.
func (r *FileRecord) ServedAssetID() string {
	if r.IsCompressed() {
		return *r.CompressedAssetID
	}
	return r.AssetID
}

// AssetIDs lists every asset owned by the record.
func (r *FileRecord) AssetIDs() []string {
	ids := []string{r.AssetID}
	if r.IsCompressed() {
		ids = append(ids, *r.CompressedAssetID)
	}
	return ids
}

func (r *FileRecord) IsExpired(now time.Time) bool { return r.ExpiresAt.Before(now) }

func (rs FileRecords) IDs() []ID {
	ids := make([]ID, len(rs))
	for idx, r := range rs {
		ids[idx] = r.ID
	}
	return ids
}
