package file_record

import (
	"time"

	"github.com/google/uuid"
)

type (
	FileRecord struct {
		ID uuid.UUID

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
)

func (fr *FileRecord) scanTargets() []any {
	return []any{
		&fr.ID,

		&fr.FileName,
		&fr.FileType,
		&fr.OriginalSize,
		&fr.AssetID,

		&fr.CompressedAssetID,
		&fr.CompressedSize,
		&fr.DownloadRef,

		&fr.ExpiresAt,
		&fr.CreatedAt,
	}
}
