package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"compraser-api/internal/application/ports"
	domain "compraser-api/internal/domain/file_record"
	"compraser-api/pkg/archive"
)

const (
	archiveConcurrency = 4
	ArchiveFileName    = "compraser_files.zip"
)

// BuildArchive fails as a whole: any unknown id or failed fetch aborts the archive.
// Entries are fully buffered so the caller never writes a partial zip.
func (fs *FileService) BuildArchive(ctx context.Context, ids []domain.ID) (*ports.Archive, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, ErrNoRecords
	}

	recs, err := fs.repo.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataStore, err)
	}
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}

	now := fs.now()
	byID := make(map[domain.ID]*domain.FileRecord, len(recs))
	for _, r := range recs {
		// past expiry but not yet swept
		if r.IsExpired(now) {
			continue
		}
		byID[r.ID] = r
	}
	var missing []domain.ID
	ordered := make(domain.FileRecords, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		ordered = append(ordered, r)
	}
	if len(missing) > 0 {
		return nil, &MissingRecordsError{IDs: missing}
	}

	payloads := make([][]byte, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(archiveConcurrency)
	for i, r := range ordered {
		g.Go(func() error {
			data, err := fs.fetch(gctx, r.ServedAssetID(), r.ResourceType(), fs.gate.MaxSize())
			if err != nil {
				return fmt.Errorf("%s: %w", r.FileName, err)
			}
			payloads[i] = data
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		fs.count("archives_failed_total")
		return nil, err
	}

	namer := archive.NewNamer()
	entries := make([]archive.Entry, len(ordered))
	for i, r := range ordered {
		entries[i] = archive.Entry{Name: namer.Next(servedName(r)), Data: payloads[i]}
	}
	fs.count("archives_built_total")

	return &ports.Archive{FileName: ArchiveFileName, Entries: entries}, nil
}

// OpenDownload streams the compressed variant when there is one, else the original.
func (fs *FileService) OpenDownload(ctx context.Context, id domain.ID) (*ports.Download, error) {
	rec, err := fs.repo.FetchByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataStore, err)
	}
	if rec == nil || rec.IsExpired(fs.now()) {
		return nil, ErrNotFound
	}

	assetID := rec.ServedAssetID()
	signed, err := fs.assets.SignedURL(ctx, assetID, rec.ResourceType(), fs.signedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: sign %s: %w", ErrUpstreamStorage, assetID, err)
	}
	body, err := fs.assets.Download(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %w", ErrUpstreamStorage, assetID, err)
	}

	return &ports.Download{
		FileName:    servedName(rec),
		ContentType: servedContentType(rec),
		Body:        body,
	}, nil
}

func uniqueIDs(ids []domain.ID) []domain.ID {
	seen := make(map[domain.ID]struct{}, len(ids))
	out := make([]domain.ID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
