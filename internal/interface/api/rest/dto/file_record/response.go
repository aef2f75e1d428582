package file_record

import (
	"time"

	"github.com/google/uuid"
)

type (
	FileRecord struct {
		ID                uuid.UUID `json:"id"`
		FileName          string    `json:"fileName"`
		FileType          string    `json:"fileType"`
		OriginalSize      int64     `json:"originalSize"`
		AssetID           string    `json:"assetId"`
		CompressedAssetID *string   `json:"compressedAssetId,omitempty"`
		CompressedSize    *int64    `json:"compressedSize,omitempty"`
		DownloadRef       *string   `json:"downloadRef,omitempty"`
		ExpiresAt         time.Time `json:"expiresAt"`
		CreatedAt         time.Time `json:"createdAt"`
	}

	UploadResponse struct {
		RecordID     uuid.UUID `json:"recordId"`
		AssetID      string    `json:"assetId"`
		OriginalSize int64     `json:"originalSize"`
		URL          string    `json:"url"`
	}

	// BatchItem is one file of a batch upload; exactly one of RecordID or Error is set.
	BatchItem struct {
		FileName     string     `json:"fileName"`
		RecordID     *uuid.UUID `json:"recordId,omitempty"`
		AssetID      string     `json:"assetId,omitempty"`
		OriginalSize int64      `json:"originalSize"`
		URL          string     `json:"url,omitempty"`
		Error        string     `json:"error,omitempty"`
	}
	BatchItems   []BatchItem
	ResponseData struct {
		Data BatchItems `json:"data"`
	}

	CompressResponse struct {
		CompressedURL  string `json:"compressedUrl"`
		CompressedSize int64  `json:"compressedSize"`
		SavedPercent   int    `json:"savedPercent"`
	}

	CleanupResponse struct {
		DeletedCount  int64 `json:"deletedCount"`
		AssetsDeleted *int  `json:"assetsDeleted,omitempty"`
		AssetFailures *int  `json:"assetFailures,omitempty"`
	}
	CleanupErrorResponse struct {
		Error         string `json:"error"`
		AssetsDeleted int    `json:"assetsDeleted"`
		AssetFailures int    `json:"assetFailures"`
	}
)
