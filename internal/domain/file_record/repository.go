package file_record

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, req *FileRecord) (*FileRecord, error)
	FetchByID(ctx context.Context, id ID) (*FileRecord, error)
	FetchByIDs(ctx context.Context, ids []ID) (FileRecords, error)
	UpdateCompression(ctx context.Context, id ID, c Compression) (*FileRecord, error)
	FetchExpired(ctx context.Context, now time.Time) (FileRecords, error)
	DeleteByIDs(ctx context.Context, ids []ID) (int64, error)
	Ping(ctx context.Context) error
}
