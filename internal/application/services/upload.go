package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"compraser-api/internal/application/ports"
	domain "compraser-api/internal/domain/file_record"
	"compraser-api/internal/infrastructure/mq"
)

const batchConcurrency = 4

func (fs *FileService) Upload(ctx context.Context, in ports.UploadInput) (*ports.UploadResult, error) {
	declared := normalizeMime(in.MimeType)

	// a generic declared type gets one more chance after content sniffing
	if err := fs.gate.Validate(in.FileName, declared, in.Size); err != nil && !fs.sniffable(err, declared, in.Size) {
		fs.count("uploads_rejected_total")
		return nil, err
	}

	data, err := readLimited(in.Body, fs.gate.MaxSize())
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			fs.count("uploads_rejected_total")
			return nil, fs.gate.tooLarge()
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}

	mimeType := declared
	if isGenericMime(declared) {
		mimeType = normalizeMime(mimetype.Detect(data).String())
	}
	size := int64(len(data))
	if err = fs.gate.Validate(in.FileName, mimeType, size); err != nil {
		fs.count("uploads_rejected_total")
		return nil, err
	}

	rt := domain.ResourceTypeFor(mimeType)
	stored, err := fs.assets.Put(ctx, ports.AssetPut{
		Folder:       FolderOriginals,
		FileName:     in.FileName,
		ContentType:  mimeType,
		ResourceType: rt,
		Data:         data,
	})
	if err != nil {
		fs.count("uploads_failed_total")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamStorage, err)
	}

	now := fs.now().UTC()
	rec, err := fs.repo.Create(ctx, &domain.FileRecord{
		FileName:     displayName(in.FileName),
		FileType:     mimeType,
		OriginalSize: size,
		AssetID:      stored.AssetID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(fs.retention),
	})
	if err != nil {
		fs.count("uploads_failed_total")
		fs.discardAsset(ctx, stored.AssetID, rt)
		return nil, fmt.Errorf("%w: %w", ErrMetadataStore, err)
	}

	fs.events.Publish(mq.NewEvent(mq.ActionUploaded, *rec))
	fs.count("files_uploaded_total")

	return &ports.UploadResult{Record: rec, URL: stored.URL}, nil
}

// UploadBatch runs every upload independently; one failure never cancels its siblings.
func (fs *FileService) UploadBatch(ctx context.Context, in []ports.UploadInput) []ports.UploadOutcome {
	out := make([]ports.UploadOutcome, len(in))

	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i := range in {
		g.Go(func() error {
			res, err := fs.Upload(ctx, in[i])
			out[i] = ports.UploadOutcome{
				FileName: in[i].FileName,
				Size:     in[i].Size,
				Result:   res,
				Err:      err,
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (fs *FileService) sniffable(err error, declared string, size int64) bool {
	var ve *ValidationError
	return errors.As(err, &ve) &&
		ve.Reason == ReasonUnsupportedType &&
		isGenericMime(declared) &&
		size > 0 && size <= fs.gate.MaxSize()
}

// discardAsset removes an asset that no record will ever own.
func (fs *FileService) discardAsset(ctx context.Context, assetID string, rt domain.ResourceType) {
	if err := fs.assets.Delete(context.WithoutCancel(ctx), assetID, rt); err != nil {
		fs.count("orphaned_assets_total")
		fs.logger.Error("orphaned asset left behind",
			zap.String("asset_id", assetID),
			zap.Error(err),
		)
		return
	}
	fs.logger.Warn("discarded asset without record", zap.String("asset_id", assetID))
}
