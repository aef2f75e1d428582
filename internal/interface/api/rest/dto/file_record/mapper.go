package file_record

import (
	"compraser-api/internal/domain/file_record"
)

func ToResponseFileRecord(rDomain file_record.FileRecord) FileRecord {
	var r = FileRecord{
		ID:                rDomain.ID,
		FileName:          rDomain.FileName,
		FileType:          rDomain.FileType,
		OriginalSize:      rDomain.OriginalSize,
		AssetID:           rDomain.AssetID,
		CompressedAssetID: rDomain.CompressedAssetID,
		CompressedSize:    rDomain.CompressedSize,
		DownloadRef:       rDomain.DownloadRef,
		ExpiresAt:         rDomain.ExpiresAt,
		CreatedAt:         rDomain.CreatedAt,
	}

	return r
}

func ToUploadResponse(rDomain file_record.FileRecord, url string) UploadResponse {
	return UploadResponse{
		RecordID:     rDomain.ID,
		AssetID:      rDomain.AssetID,
		OriginalSize: rDomain.OriginalSize,
		URL:          url,
	}
}
