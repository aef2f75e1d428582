package services

import (
	"errors"
	"fmt"
	"strings"

	"compraser-api/internal/domain/file_record"
)

var (
	ErrNotFound        = errors.New("file record not found")
	ErrTooLarge        = errors.New("file too large")
	ErrNoRecords       = errors.New("no file records")
	ErrUpstreamStorage = errors.New("asset store failure")
	ErrMetadataStore   = errors.New("metadata store failure")
	ErrEncode          = errors.New("image encode failure")
	ErrRowDeletion     = errors.New("expired rows were not deleted")
	ErrAssetMismatch   = errors.New("asset id does not belong to the file record")
	ErrInvalidLevel    = fmt.Errorf("compression level must be between %d and %d", MinCompressionLevel, MaxCompressionLevel)
)

// MissingRecordsError lists requested ids without a record; it matches ErrNotFound.
type MissingRecordsError struct {
	IDs []file_record.ID
}

func (e *MissingRecordsError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return "file records not found: " + strings.Join(ids, ", ")
}

func (e *MissingRecordsError) Is(target error) bool { return target == ErrNotFound }
