package file_record

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "compraser-api/internal/domain/file_record"
)

var columnNames = []string{
	"id", "file_name", "file_type", "original_size", "asset_id",
	"compressed_asset_id", "compressed_size", "download_ref", "expires_at", "created_at",
}

func ptr[T any](v T) *T { return &v }

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Repository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock, &Repository{db: mock}
}

func rowOf(fr FileRecord) []any {
	return []any{
		fr.ID,
		fr.FileName, fr.FileType, fr.OriginalSize, fr.AssetID,
		fr.CompressedAssetID, fr.CompressedSize, fr.DownloadRef,
		fr.ExpiresAt, fr.CreatedAt,
	}
}

func sampleRow(now time.Time) FileRecord {
	return FileRecord{
		ID:           uuid.New(),
		FileName:     "photo.jpg",
		FileType:     "image/jpeg",
		OriginalSize: 2048,
		AssetID:      "compraser/originals/2026/01/01/a/photo.jpg",
		ExpiresAt:    now.Add(24 * time.Hour),
		CreatedAt:    now,
	}
}

func TestRepository_Create(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("inserts and maps the returned row", func(t *testing.T) {
		mock, repo := newMock(t)
		row := sampleRow(now)

		mock.ExpectQuery(regexp.QuoteMeta(InsertFileRecord)).
			WithArgs(row.FileName, row.FileType, row.OriginalSize, row.AssetID, row.ExpiresAt, row.CreatedAt).
			WillReturnRows(pgxmock.NewRows(columnNames).AddRow(rowOf(row)...))

		got, err := repo.Create(context.Background(), &domain.FileRecord{
			FileName:     row.FileName,
			FileType:     row.FileType,
			OriginalSize: row.OriginalSize,
			AssetID:      row.AssetID,
			ExpiresAt:    row.ExpiresAt,
			CreatedAt:    row.CreatedAt,
		})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, row.ID, got.ID)
		assert.Equal(t, row.ExpiresAt, got.ExpiresAt)
		assert.Nil(t, got.CompressedAssetID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation on asset id", func(t *testing.T) {
		mock, repo := newMock(t)

		mock.ExpectQuery(regexp.QuoteMeta(InsertFileRecord)).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		got, err := repo.Create(context.Background(), &domain.FileRecord{})
		require.ErrorIs(t, err, ErrAssetAlreadyRecorded)
		assert.Nil(t, got)
	})
}

func TestRepository_FetchByID(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface, id uuid.UUID, row FileRecord)
		wantNil bool
		wantErr bool
	}{
		{
			name: "found with compression fields",
			setup: func(mock pgxmock.PgxPoolIface, id uuid.UUID, row FileRecord) {
				row.ID = id
				row.CompressedAssetID = ptr("compraser/compressed/2026/01/01/b/photo.jpg")
				row.CompressedSize = ptr(int64(1024))
				row.DownloadRef = ptr("https://cdn.example/signed")
				mock.ExpectQuery(regexp.QuoteMeta(SelectFileRecordByID)).
					WithArgs(id.String()).
					WillReturnRows(pgxmock.NewRows(columnNames).AddRow(rowOf(row)...))
			},
		},
		{
			name: "missing row returns nil, nil",
			setup: func(mock pgxmock.PgxPoolIface, id uuid.UUID, _ FileRecord) {
				mock.ExpectQuery(regexp.QuoteMeta(SelectFileRecordByID)).
					WithArgs(id.String()).
					WillReturnError(pgx.ErrNoRows)
			},
			wantNil: true,
		},
		{
			name: "db error",
			setup: func(mock pgxmock.PgxPoolIface, id uuid.UUID, _ FileRecord) {
				mock.ExpectQuery(regexp.QuoteMeta(SelectFileRecordByID)).
					WithArgs(id.String()).
					WillReturnError(errors.New("connection reset"))
			},
			wantNil: true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMock(t)
			id := uuid.New()
			tt.setup(mock, id, sampleRow(now))

			got, err := repo.FetchByID(context.Background(), id)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, id, got.ID)
				assert.True(t, got.IsCompressed())
				assert.Equal(t, int64(1024), *got.CompressedSize)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_FetchByIDs(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("empty input skips the query", func(t *testing.T) {
		mock, repo := newMock(t)

		got, err := repo.FetchByIDs(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("binds ids as text array", func(t *testing.T) {
		mock, repo := newMock(t)
		a, b := sampleRow(now), sampleRow(now)

		mock.ExpectQuery(regexp.QuoteMeta(SelectFileRecordsByIDs)).
			WithArgs([]string{a.ID.String(), b.ID.String()}).
			WillReturnRows(pgxmock.NewRows(columnNames).AddRow(rowOf(a)...).AddRow(rowOf(b)...))

		got, err := repo.FetchByIDs(context.Background(), []domain.ID{a.ID, b.ID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, []domain.ID{a.ID, b.ID}, got.IDs())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_UpdateCompression(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	c := domain.Compression{
		AssetID:     "compraser/compressed/2026/01/01/c/photo.jpg",
		Size:        512,
		DownloadRef: "https://cdn.example/signed",
	}

	t.Run("returns the updated record", func(t *testing.T) {
		mock, repo := newMock(t)
		row := sampleRow(now)
		row.CompressedAssetID = ptr(c.AssetID)
		row.CompressedSize = ptr(c.Size)
		row.DownloadRef = ptr(c.DownloadRef)

		mock.ExpectQuery(regexp.QuoteMeta(UpdateFileRecordCompression)).
			WithArgs(row.ID.String(), c.AssetID, c.Size, c.DownloadRef).
			WillReturnRows(pgxmock.NewRows(columnNames).AddRow(rowOf(row)...))

		got, err := repo.UpdateCompression(context.Background(), row.ID, c)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, c.AssetID, *got.CompressedAssetID)
		assert.Equal(t, c.DownloadRef, *got.DownloadRef)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("record vanished", func(t *testing.T) {
		mock, repo := newMock(t)
		id := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta(UpdateFileRecordCompression)).
			WithArgs(id.String(), c.AssetID, c.Size, c.DownloadRef).
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.UpdateCompression(context.Background(), id, c)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRepository_FetchExpired(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	mock, repo := newMock(t)
	old := sampleRow(now.Add(-48 * time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta(SelectExpiredFileRecords)).
		WithArgs(now).
		WillReturnRows(pgxmock.NewRows(columnNames).AddRow(rowOf(old)...))

	got, err := repo.FetchExpired(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, old.ID, got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteByIDs(t *testing.T) {
	t.Run("reports affected rows", func(t *testing.T) {
		mock, repo := newMock(t)
		a, b := uuid.New(), uuid.New()

		mock.ExpectExec(regexp.QuoteMeta(DeleteFileRecordsByIDs)).
			WithArgs([]string{a.String(), b.String()}).
			WillReturnResult(pgxmock.NewResult("DELETE", 2))

		n, err := repo.DeleteByIDs(context.Background(), []domain.ID{a, b})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates errors", func(t *testing.T) {
		mock, repo := newMock(t)
		a := uuid.New()

		mock.ExpectExec(regexp.QuoteMeta(DeleteFileRecordsByIDs)).
			WithArgs([]string{a.String()}).
			WillReturnError(errors.New("deadlock detected"))

		n, err := repo.DeleteByIDs(context.Background(), []domain.ID{a})
		require.Error(t, err)
		assert.Zero(t, n)
	})

	t.Run("no ids is a no-op", func(t *testing.T) {
		mock, repo := newMock(t)

		n, err := repo.DeleteByIDs(context.Background(), nil)
		require.NoError(t, err)
		assert.Zero(t, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
