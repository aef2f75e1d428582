package validator

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"compraser-api/internal/interface/api/rest/dto/file_record"
)

// maxArchiveIDs bounds one download request.
const maxArchiveIDs = 100

func IsUUID(s string) (bool, uuid.UUID) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	return err == nil, id
}

func ValidateCompress(r file_record.CompressRequest, minLevel, maxLevel int) map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(r.RecordID) == "" {
		errs["recordId"] = "recordId is required"
	} else if ok, _ := IsUUID(r.RecordID); !ok {
		errs["recordId"] = "recordId must be a valid UUID"
	}

	if r.CompressionLevel < minLevel || r.CompressionLevel > maxLevel {
		errs["compressionLevel"] = fmt.Sprintf("compressionLevel must be between %d and %d", minLevel, maxLevel)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ParseIDs parses every record id of a download request; the error names the first bad one.
func ParseIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("recordIds must not be empty")
	}
	if len(raw) > maxArchiveIDs {
		return nil, fmt.Errorf("at most %d recordIds per request", maxArchiveIDs)
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		ok, id := IsUUID(s)
		if !ok {
			return nil, fmt.Errorf("recordId %q is not a valid UUID", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
