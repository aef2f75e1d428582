package file_record

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	domain "compraser-api/internal/domain/file_record"
	"compraser-api/internal/infrastructure/db/postgres"
)

// setupIntegrationDB starts Postgres in a container and applies the migrations.
func setupIntegrationDB(t *testing.T) *Repository {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION is not set")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		tcpostgres.WithDatabase("compraser_test"),
		tcpostgres.WithUsername("compraser"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := zap.NewNop()
	require.NoError(t, postgres.Migrate(logger, "pgx5://"+strings.TrimPrefix(dsn, "postgres://")))

	pool, err := postgres.New(ctx, logger, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return &Repository{db: pool}
}

func TestIntegration_FileRecordLifecycle(t *testing.T) {
	repo := setupIntegrationDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	expired, err := repo.Create(ctx, &domain.FileRecord{
		FileName:     "old.pdf",
		FileType:     "application/pdf",
		OriginalSize: 10,
		AssetID:      "compraser/originals/old.pdf",
		CreatedAt:    now.Add(-25 * time.Hour),
		ExpiresAt:    now.Add(-time.Hour),
	})
	require.NoError(t, err)

	fresh, err := repo.Create(ctx, &domain.FileRecord{
		FileName:     "new.png",
		FileType:     "image/png",
		OriginalSize: 20,
		AssetID:      "compraser/originals/new.png",
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.FileRecord{
		FileName:     "dup.png",
		FileType:     "image/png",
		OriginalSize: 20,
		AssetID:      "compraser/originals/new.png",
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Hour),
	})
	require.ErrorIs(t, err, ErrAssetAlreadyRecorded)

	got, err := repo.FetchByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new.png", got.FileName)

	missing, err := repo.FetchByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	updated, err := repo.UpdateCompression(ctx, fresh.ID, domain.Compression{
		AssetID:     "compraser/compressed/new.png",
		Size:        5,
		DownloadRef: "https://cdn.example/new.png",
	})
	require.NoError(t, err)
	require.True(t, updated.IsCompressed())
	assert.Equal(t, int64(5), *updated.CompressedSize)

	both, err := repo.FetchByIDs(ctx, []domain.ID{fresh.ID, expired.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, both, 2)

	due, err := repo.FetchExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, expired.ID, due[0].ID)

	n, err := repo.DeleteByIDs(ctx, due.IDs())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	due, err = repo.FetchExpired(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}
