package services

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"compraser-api/pkg/filename"
)

const (
	ReasonBlockedExtension = "blocked extension"
	ReasonUnsupportedType  = "unsupported type"
	ReasonTooLarge         = "too large"
	ReasonEmpty            = "empty file"
)

var (
	DefaultAllowedMimeTypes = []string{
		// images
		"image/jpeg", "image/png", "image/gif", "image/webp", "image/svg+xml", "image/tiff", "image/bmp",
		// video
		"video/mp4", "video/mpeg", "video/quicktime", "video/webm", "video/x-msvideo",
		// audio
		"audio/mpeg", "audio/wav", "audio/ogg", "audio/flac",
		// documents
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"text/plain", "text/csv",
		// archives
		"application/zip", "application/x-zip-compressed", "application/x-tar", "application/gzip",
		"application/x-7z-compressed", "application/x-rar-compressed",
	}

	DefaultBlockedExtensions = []string{
		"exe", "bat", "cmd", "sh", "ps1", "msi", "com", "scr", "vbs",
		"js", "ts", "py", "rb", "php", "pl", "dmg", "app", "jar",
	}
)

// ValidationError is a rejected upload; Message is safe to show to the client.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string { return e.Reason + ": " + e.Message }

func (e *ValidationError) Is(target error) bool {
	return target == ErrTooLarge && e.Reason == ReasonTooLarge
}

// Gate checks extension, then MIME type, then size. It never touches the network.
type Gate struct {
	allowed map[string]struct{}
	blocked map[string]struct{}
	maxSize int64
}

// NewGate falls back to the default lists when a list is empty.
func NewGate(allowedMimeTypes, blockedExtensions []string, maxSize int64) *Gate {
	if len(allowedMimeTypes) == 0 {
		allowedMimeTypes = DefaultAllowedMimeTypes
	}
	if len(blockedExtensions) == 0 {
		blockedExtensions = DefaultBlockedExtensions
	}

	g := &Gate{
		allowed: make(map[string]struct{}, len(allowedMimeTypes)),
		blocked: make(map[string]struct{}, len(blockedExtensions)),
		maxSize: maxSize,
	}
	for _, t := range allowedMimeTypes {
		g.allowed[normalizeMime(t)] = struct{}{}
	}
	for _, ext := range blockedExtensions {
		g.blocked[strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")] = struct{}{}
	}

	return g
}

func (g *Gate) MaxSize() int64 { return g.maxSize }

func (g *Gate) Validate(fileName, mimeType string, size int64) error {
	ext := strings.TrimPrefix(filename.Ext(fileName), ".")
	if _, bad := g.blocked[ext]; bad && ext != "" {
		return &ValidationError{
			Reason:  ReasonBlockedExtension,
			Message: fmt.Sprintf("File type %q is not allowed.", "."+ext),
		}
	}

	if _, ok := g.allowed[normalizeMime(mimeType)]; !ok {
		return &ValidationError{
			Reason:  ReasonUnsupportedType,
			Message: fmt.Sprintf("MIME type %q is not supported.", mimeType),
		}
	}

	if size > g.maxSize {
		return g.tooLarge()
	}
	if size <= 0 {
		return &ValidationError{Reason: ReasonEmpty, Message: "File is empty."}
	}

	return nil
}

func (g *Gate) tooLarge() *ValidationError { return NewTooLargeError(g.maxSize) }

func NewTooLargeError(maxSize int64) *ValidationError {
	return &ValidationError{
		Reason:  ReasonTooLarge,
		Message: fmt.Sprintf("File exceeds the %s limit.", humanize.IBytes(uint64(maxSize))),
	}
}

func normalizeMime(mimeType string) string {
	t := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// isGenericMime marks declared types that say nothing about the content.
func isGenericMime(mimeType string) bool {
	switch normalizeMime(mimeType) {
	case "", "application/octet-stream", "binary/octet-stream":
		return true
	}
	return false
}
