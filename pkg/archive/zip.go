// Package archive packs in-memory files into a DEFLATE zip stream.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
)

type Entry struct {
	Name string
	Data []byte
}

// Write streams every entry into w; the caller buffers entries first so a failed fetch never truncates the output.
func Write(w io.Writer, entries []Entry, modified time.Time) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("zip entry %s: %w", e.Name, err)
		}
		if _, err = fw.Write(e.Data); err != nil {
			return fmt.Errorf("zip write %s: %w", e.Name, err)
		}
	}

	return zw.Close()
}

// Size is the sum of uncompressed entry sizes.
func Size(entries []Entry) int64 {
	var n int64
	for _, e := range entries {
		n += int64(len(e.Data))
	}
	return n
}

// Namer hands out entry names, suffixing repeats: a.png, a-2.png, a-3.png.
type Namer struct {
	seen map[string]int
}

func NewNamer() *Namer { return &Namer{seen: make(map[string]int)} }

func (n *Namer) Next(name string) string {
	key := strings.ToLower(name)
	n.seen[key]++
	if c := n.seen[key]; c > 1 {
		ext := path.Ext(name)
		candidate := strings.TrimSuffix(name, ext) + "-" + strconv.Itoa(c) + ext
		return n.Next(candidate)
	}
	return name
}
