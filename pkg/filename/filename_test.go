package filename

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		original string
		mimeType string
		want     string
	}{
		{"plain", "photo.jpg", "image/jpeg", "photo.jpg"},
		{"uppercase ext", "Holiday PHOTO.JPG", "image/jpeg", "holiday-photo.jpg"},
		{"diacritics", "Résumé final.pdf", "application/pdf", "resume-final.pdf"},
		{"path traversal", "../../etc/passwd", "text/plain", "passwd.txt"},
		{"windows path", `C:\Users\me\report.docx`, "", "report.docx"},
		{"no extension uses mime", "scan", "image/png", "scan.png"},
		{"unknown mime", "blob", "application/x-nothing", "blob.bin"},
		{"reserved name", "con.txt", "text/plain", "_con.txt"},
		{"empty", "", "image/gif", "file.gif"},
		{"only symbols", "@@@.zip", "application/zip", "file.zip"},
		{"dots collapse", "a..b...c.tar", "application/x-tar", "a-b-c.tar"},
		{"trailing dot", "payload.exe.", "image/png", "payload.exe"},
		{"trailing dot and space", "report.pdf . ", "application/pdf", "report.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.original, tt.mimeType))
		})
	}
}

func TestSanitize_TruncatesLongNames(t *testing.T) {
	got := Sanitize(strings.Repeat("a", 300)+".png", "image/png")

	assert.Len(t, got, maxNameLen)
	assert.True(t, strings.HasSuffix(got, ".png"))
}

func TestExtHelpers(t *testing.T) {
	assert.Equal(t, ".jpg", Ext("A.JPG"))
	assert.Equal(t, "", Ext("Makefile"))
	assert.Equal(t, ".exe", Ext("payload.exe."))
	assert.Equal(t, ".exe", Ext("payload.EXE . "))
	assert.Equal(t, "", Ext("..."))
	assert.Equal(t, "payload.exe", TrimTail("payload.exe. ."))
	assert.Equal(t, ".jpg", ExtForType("image/jpeg"))
	assert.Equal(t, ".webp", ExtForType("image/webp"))
	assert.Equal(t, ".bin", ExtForType(""))
	assert.Equal(t, "photo.webp", ReplaceExt("photo.png", ".webp"))
	assert.Equal(t, "photo.webp", ReplaceExt("photo", ".webp"))
}
