package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"compraser-api/internal/application/ports"
	domain "compraser-api/internal/domain/file_record"
	"compraser-api/pkg/filename"
)

const (
	FolderOriginals  = "compraser/originals"
	FolderCompressed = "compraser/compressed"

	compressedPrefix = "compressed_"
)

type (
	FileService struct {
		logger       *zap.Logger
		assets       ports.AssetStore
		repo         domain.Repository
		encoder      ports.ImageEncoder
		events       ports.EventPublisher
		gate         *Gate
		retention    time.Duration
		signedURLTTL time.Duration
		mCounter     *prometheus.CounterVec
		savedPercent prometheus.Observer
		now          func() time.Time
	}

	FileServiceConfig struct {
		Retention    time.Duration
		SignedURLTTL time.Duration
	}
)

func NewFileService(
	logger *zap.Logger,
	assets ports.AssetStore,
	repo domain.Repository,
	encoder ports.ImageEncoder,
	events ports.EventPublisher,
	gate *Gate,
	cfg FileServiceConfig,
	mCounter *prometheus.CounterVec,
	savedPercent prometheus.Observer,
) ports.FileService {
	return &FileService{
		logger:       logger,
		assets:       assets,
		repo:         repo,
		encoder:      encoder,
		events:       events,
		gate:         gate,
		retention:    cfg.Retention,
		signedURLTTL: cfg.SignedURLTTL,
		mCounter:     mCounter,
		savedPercent: savedPercent,
		now:          time.Now,
	}
}

func (fs *FileService) count(result string) {
	if fs.mCounter != nil {
		fs.mCounter.WithLabelValues(result).Inc()
	}
}

// fetch downloads the bytes of one asset through a short-lived signed URL, refusing more than limit bytes.
func (fs *FileService) fetch(
	ctx context.Context,
	assetID string,
	rt domain.ResourceType,
	limit int64,
) ([]byte, error) {
	signed, err := fs.assets.SignedURL(ctx, assetID, rt, fs.signedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: sign %s: %w", ErrUpstreamStorage, assetID, err)
	}

	body, err := fs.assets.Download(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %w", ErrUpstreamStorage, assetID, err)
	}
	defer body.Close()

	data, err := readLimited(body, limit)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrUpstreamStorage, assetID, err)
	}

	return data, nil
}

// readLimited reads r fully, failing with ErrTooLarge past limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

// displayName is the client supplied name without any directory part.
func displayName(name string) string {
	name = filename.TrimTail(path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")))
	if name == "/" || name == "" {
		return "file"
	}
	return name
}

// downloadRef is the unsigned reference kept on a record. It resolves through GET /download
// for as long as the record lives.
func downloadRef(id domain.ID) string {
	return "/download?" + url.Values{"recordId": {id.String()}}.Encode()
}

// servedName names the file a client receives: "compressed_<name>" with the compressed
// asset's extension, or the original name.
func servedName(r *domain.FileRecord) string {
	if !r.IsCompressed() {
		return displayName(r.FileName)
	}

	name := displayName(r.FileName)
	if ext := path.Ext(*r.CompressedAssetID); ext != "" {
		name = filename.ReplaceExt(name, ext)
	}
	return compressedPrefix + name
}

func servedContentType(r *domain.FileRecord) string {
	if r.IsCompressed() {
		if t := mime.TypeByExtension(path.Ext(*r.CompressedAssetID)); t != "" {
			return t
		}
	}
	if r.FileType != "" {
		return r.FileType
	}
	return "application/octet-stream"
}
