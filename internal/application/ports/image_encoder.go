package ports

type (
	Encoded struct {
		Data     []byte
		MimeType string
	}

	// ImageEncoder re-encodes raster images at an encoder quality in [1,100].
	ImageEncoder interface {
		Supports(mimeType string) bool
		Encode(src []byte, mimeType string, quality int) (*Encoded, error)
	}
)
