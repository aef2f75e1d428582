package file_record

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	domain "compraser-api/internal/domain/file_record"
	"compraser-api/internal/infrastructure/db/postgres"
)

var ErrAssetAlreadyRecorded = errors.New("asset is already owned by another record")

type Repository struct {
	db postgres.DB
}

func NewRepository(db postgres.DB) domain.Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, req *domain.FileRecord) (*domain.FileRecord, error) {
	fr := new(FileRecord)

	err := r.db.QueryRow(
		ctx,
		InsertFileRecord,
		req.FileName, req.FileType, req.OriginalSize, req.AssetID, req.ExpiresAt, req.CreatedAt,
	).Scan(fr.scanTargets()...)
	if err != nil {
		if postgres.IsPgUniqueViolation(err) {
			return nil, ErrAssetAlreadyRecorded
		}
		return nil, err
	}

	return fromDBModel(fr), nil
}

func (r *Repository) FetchByID(ctx context.Context, id domain.ID) (*domain.FileRecord, error) {
	fr := new(FileRecord)

	err := r.db.QueryRow(ctx, SelectFileRecordByID, id.String()).Scan(fr.scanTargets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return fromDBModel(fr), nil
}

func (r *Repository) FetchByIDs(ctx context.Context, ids []domain.ID) (domain.FileRecords, error) {
	if len(ids) == 0 {
		return domain.FileRecords{}, nil
	}

	return r.fetchMany(ctx, SelectFileRecordsByIDs, idsParam(ids))
}

func (r *Repository) UpdateCompression(
	ctx context.Context,
	id domain.ID,
	c domain.Compression,
) (*domain.FileRecord, error) {
	fr := new(FileRecord)

	err := r.db.QueryRow(
		ctx,
		UpdateFileRecordCompression,
		id.String(), c.AssetID, c.Size, c.DownloadRef,
	).Scan(fr.scanTargets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return fromDBModel(fr), nil
}

func (r *Repository) FetchExpired(ctx context.Context, now time.Time) (domain.FileRecords, error) {
	return r.fetchMany(ctx, SelectExpiredFileRecords, now)
}

func (r *Repository) DeleteByIDs(ctx context.Context, ids []domain.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx, DeleteFileRecordsByIDs, idsParam(ids))
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (r *Repository) Ping(ctx context.Context) error { return r.db.Ping(ctx) }

func (r *Repository) fetchMany(ctx context.Context, query string, args ...any) (domain.FileRecords, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	frs := FileRecords{}
	for rows.Next() {
		fr := new(FileRecord)

		if err = rows.Scan(fr.scanTargets()...); err != nil {
			return nil, err
		}

		frs = append(frs, fr)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return fromDBModels(&frs), nil
}
