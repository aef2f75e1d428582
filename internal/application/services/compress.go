package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"compraser-api/internal/application/ports"
	domain "compraser-api/internal/domain/file_record"
	"compraser-api/internal/infrastructure/mq"
	"compraser-api/pkg/filename"
)

// Compress re-encodes images and re-uploads any other type unchanged. Two concurrent calls
// for one record both succeed; the later update wins.
func (fs *FileService) Compress(ctx context.Context, in ports.CompressInput) (*ports.CompressResult, error) {
	if in.Level < MinCompressionLevel || in.Level > MaxCompressionLevel {
		return nil, ErrInvalidLevel
	}

	rec, err := fs.repo.FetchByID(ctx, in.RecordID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataStore, err)
	}
	if rec == nil || rec.IsExpired(fs.now()) {
		return nil, ErrNotFound
	}
	if in.AssetID != "" && in.AssetID != rec.AssetID {
		return nil, ErrAssetMismatch
	}
	if rec.OriginalSize > fs.gate.MaxSize() {
		return nil, ErrTooLarge
	}

	rt := rec.ResourceType()
	data, err := fs.fetch(ctx, rec.AssetID, rt, fs.gate.MaxSize())
	if err != nil {
		fs.count("compressions_failed_total")
		return nil, err
	}

	outType := rec.FileType
	if fs.encoder.Supports(rec.FileType) {
		enc, err := fs.encoder.Encode(data, rec.FileType, QualityForLevel(in.Level))
		if err != nil {
			fs.count("compressions_failed_total")
			return nil, fmt.Errorf("%w: %w", ErrEncode, err)
		}
		data, outType = enc.Data, enc.MimeType
	}

	name := displayName(rec.FileName)
	if outType != rec.FileType {
		name = filename.ReplaceExt(name, filename.ExtForType(outType))
	}

	stored, err := fs.assets.Put(ctx, ports.AssetPut{
		Folder:       FolderCompressed,
		FileName:     name,
		ContentType:  outType,
		ResourceType: rt,
		Data:         data,
	})
	if err != nil {
		fs.count("compressions_failed_total")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamStorage, err)
	}

	compressedSize := stored.Bytes
	updated, err := fs.repo.UpdateCompression(ctx, rec.ID, domain.Compression{
		AssetID:     stored.AssetID,
		Size:        compressedSize,
		DownloadRef: downloadRef(rec.ID),
	})
	if err != nil {
		fs.count("compressions_failed_total")
		fs.discardAsset(ctx, stored.AssetID, rt)
		return nil, fmt.Errorf("%w: %w", ErrMetadataStore, err)
	}
	if updated == nil {
		// swept while encoding
		fs.discardAsset(ctx, stored.AssetID, rt)
		return nil, ErrNotFound
	}

	saved := PercentSaved(rec.OriginalSize, compressedSize)
	if fs.savedPercent != nil {
		fs.savedPercent.Observe(float64(saved))
	}
	fs.count("files_compressed_total")
	fs.events.Publish(mq.NewEvent(mq.ActionCompressed, *updated))

	fs.logger.Debug("file compressed",
		zap.String("record_id", rec.ID.String()),
		zap.String("output_type", outType),
		zap.Int("saved_percent", saved),
	)

	return &ports.CompressResult{
		Record:         updated,
		URL:            stored.URL,
		CompressedSize: compressedSize,
		PercentSaved:   saved,
	}, nil
}
