package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"compraser-api/internal/application/ports"
	domain "compraser-api/internal/domain/file_record"
	"compraser-api/internal/infrastructure/mq"
)

const testMaxSize = int64(100 << 20)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// FakeRepository is an in-memory domain.Repository with error injection.
type FakeRepository struct {
	mu      sync.Mutex
	records map[domain.ID]*domain.FileRecord

	CreateErr error
	FetchErr  error
	UpdateErr error
	DeleteErr error

	creates int
	updates int
}

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{records: make(map[domain.ID]*domain.FileRecord)}
}

func (f *FakeRepository) put(r domain.FileRecord) *domain.FileRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	f.records[r.ID] = &r
	cp := r
	return &cp
}

func (f *FakeRepository) get(id domain.ID) *domain.FileRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

func (f *FakeRepository) Create(_ context.Context, req *domain.FileRecord) (*domain.FileRecord, error) {
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	return f.put(*req), nil
}

func (f *FakeRepository) FetchByID(_ context.Context, id domain.ID) (*domain.FileRecord, error) {
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return f.get(id), nil
}

func (f *FakeRepository) FetchByIDs(_ context.Context, ids []domain.ID) (domain.FileRecords, error) {
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	var out domain.FileRecords
	for _, id := range ids {
		if r := f.get(id); r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *FakeRepository) UpdateCompression(_ context.Context, id domain.ID, c domain.Compression) (*domain.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	r, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	r.CompressedAssetID = &c.AssetID
	r.CompressedSize = &c.Size
	r.DownloadRef = &c.DownloadRef
	cp := *r
	return &cp, nil
}

func (f *FakeRepository) FetchExpired(_ context.Context, now time.Time) (domain.FileRecords, error) {
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out domain.FileRecords
	for _, r := range f.records {
		if r.IsExpired(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *FakeRepository) DeleteByIDs(_ context.Context, ids []domain.ID) (int64, error) {
	if f.DeleteErr != nil {
		return 0, f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := f.records[id]; ok {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}

func (f *FakeRepository) Ping(context.Context) error { return nil }

// FakeAssetStore keeps objects in memory and counts every call.
type FakeAssetStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	PutErr      error
	SignErr     error
	DownloadErr error
	DeleteErrs  map[string]error
	// StoredBytes overrides the byte count Put reports when non-zero.
	StoredBytes int64

	puts      []ports.AssetPut
	deletes   []string
	downloads int
}

func NewFakeAssetStore() *FakeAssetStore {
	return &FakeAssetStore{objects: make(map[string][]byte), DeleteErrs: make(map[string]error)}
}

func (f *FakeAssetStore) seed(assetID string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[assetID] = data
}

func (f *FakeAssetStore) object(assetID string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[assetID]
	return b, ok
}

func (f *FakeAssetStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func (f *FakeAssetStore) Put(_ context.Context, in ports.AssetPut) (*ports.StoredAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, in)
	if f.PutErr != nil {
		return nil, f.PutErr
	}
	id := in.Folder + "/" + uuid.NewString() + "/" + in.FileName
	f.objects[id] = append([]byte(nil), in.Data...)
	n := int64(len(in.Data))
	if f.StoredBytes != 0 {
		n = f.StoredBytes
	}
	return &ports.StoredAsset{AssetID: id, URL: "signed://" + id, Bytes: n}, nil
}

func (f *FakeAssetStore) SignedURL(_ context.Context, assetID string, _ domain.ResourceType, _ time.Duration) (string, error) {
	if f.SignErr != nil {
		return "", f.SignErr
	}
	return "signed://" + assetID, nil
}

func (f *FakeAssetStore) Download(_ context.Context, signedURL string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()
	if f.DownloadErr != nil {
		return nil, f.DownloadErr
	}
	b, ok := f.object(strings.TrimPrefix(signedURL, "signed://"))
	if !ok {
		return nil, errors.New("404 from asset store")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *FakeAssetStore) Delete(_ context.Context, assetID string, _ domain.ResourceType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, assetID)
	if err := f.DeleteErrs[assetID]; err != nil {
		return err
	}
	delete(f.objects, assetID)
	return nil
}

// FakeEncoder halves its input unless EncodeFunc says otherwise.
type FakeEncoder struct {
	EncodeFunc func(src []byte, mimeType string, quality int) (*ports.Encoded, error)

	mu        sync.Mutex
	calls     int
	qualities []int
}

func (f *FakeEncoder) Supports(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") && mimeType != "image/svg+xml"
}

func (f *FakeEncoder) Encode(src []byte, mimeType string, quality int) (*ports.Encoded, error) {
	f.mu.Lock()
	f.calls++
	f.qualities = append(f.qualities, quality)
	f.mu.Unlock()
	if f.EncodeFunc != nil {
		return f.EncodeFunc(src, mimeType, quality)
	}
	return &ports.Encoded{Data: src[:len(src)/2], MimeType: mimeType}, nil
}

type FakePublisher struct {
	mu     sync.Mutex
	events []mq.Event
}

func (f *FakePublisher) Publish(e mq.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return true
}

func (f *FakePublisher) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Action
	}
	return out
}

type testDeps struct {
	svc    *FileService
	repo   *FakeRepository
	assets *FakeAssetStore
	enc    *FakeEncoder
	events *FakePublisher
}

func newTestFileService(t *testing.T) testDeps {
	t.Helper()

	d := testDeps{
		repo:   NewFakeRepository(),
		assets: NewFakeAssetStore(),
		enc:    &FakeEncoder{},
		events: &FakePublisher{},
	}
	d.svc = NewFileService(
		zap.NewNop(),
		d.assets,
		d.repo,
		d.enc,
		d.events,
		NewGate(nil, nil, testMaxSize),
		FileServiceConfig{Retention: 24 * time.Hour, SignedURLTTL: 10 * time.Minute},
		nil,
		nil,
	).(*FileService)
	d.svc.now = func() time.Time { return testNow }

	return d
}

// seedRecord stores an original asset and its record.
func (d testDeps) seedRecord(t *testing.T, name, mimeType string, data []byte, expiresAt time.Time) *domain.FileRecord {
	t.Helper()

	assetID := FolderOriginals + "/" + uuid.NewString() + "/" + name
	d.assets.seed(assetID, data)

	return d.repo.put(domain.FileRecord{
		FileName:     name,
		FileType:     mimeType,
		OriginalSize: int64(len(data)),
		AssetID:      assetID,
		CreatedAt:    expiresAt.Add(-24 * time.Hour),
		ExpiresAt:    expiresAt,
	})
}
