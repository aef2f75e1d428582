package file_record

import (
	"github.com/google/uuid"

	domain "compraser-api/internal/domain/file_record"
)

func fromDBModel(model *FileRecord) *domain.FileRecord {
	var fr = &domain.FileRecord{
		ID: model.ID,

		FileName:     model.FileName,
		FileType:     model.FileType,
		OriginalSize: model.OriginalSize,
		AssetID:      model.AssetID,

		CompressedAssetID: model.CompressedAssetID,
		CompressedSize:    model.CompressedSize,
		DownloadRef:       model.DownloadRef,

		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
	}

	return fr
}

func fromDBModels(models *FileRecords) domain.FileRecords {
	frs := make(domain.FileRecords, len(*models))
	for idx, m := range *models {
		frs[idx] = fromDBModel(m)
	}

	return frs
}

// idsParam renders ids as text so they bind to a uuid[] parameter.
func idsParam(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for idx, id := range ids {
		out[idx] = id.String()
	}

	return out
}
