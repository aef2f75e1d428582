package ports

import (
	"context"
	"io"
	"time"

	"compraser-api/internal/domain/file_record"
	"compraser-api/pkg/archive"
)

type (
	UploadInput struct {
		FileName string
		MimeType string
		Size     int64
		Body     io.Reader
	}
	UploadResult struct {
		Record *file_record.FileRecord
		URL    string
	}
	// UploadOutcome holds either Result or Err for one file of a batch.
	UploadOutcome struct {
		FileName string
		Size     int64
		Result   *UploadResult
		Err      error
	}

	// CompressInput.AssetID is optional; when set it must be the record's original asset.
	CompressInput struct {
		RecordID file_record.ID
		AssetID  string
		Level    int
	}
	CompressResult struct {
		Record         *file_record.FileRecord
		URL            string
		CompressedSize int64
		PercentSaved   int
	}

	Archive struct {
		FileName string
		Entries  []archive.Entry
	}

	Download struct {
		FileName    string
		ContentType string
		Body        io.ReadCloser
	}

	SweepResult struct {
		DeletedCount  int64
		AssetsDeleted int
		AssetFailures int
		DeletedIDs    []file_record.ID
	}

	FileService interface {
		Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
		UploadBatch(ctx context.Context, in []UploadInput) []UploadOutcome
		Compress(ctx context.Context, in CompressInput) (*CompressResult, error)
		BuildArchive(ctx context.Context, ids []file_record.ID) (*Archive, error)
		OpenDownload(ctx context.Context, id file_record.ID) (*Download, error)
	}

	SweepService interface {
		Sweep(ctx context.Context, now time.Time) (*SweepResult, error)
	}
)
