package archive

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/phambaophuc/thumbnail-creator/internal/models"
)

const entrySuffix = "_thumbnail"

// EntryName derives the archive entry name for a source: everything after the
// last dot is replaced by "_thumbnail.<ext>". A name without a dot is kept
// whole.
func EntryName(sourceName string, format models.Format) string {
	base := sourceName
	if i := strings.LastIndex(sourceName, "."); i >= 0 {
		base = sourceName[:i]
	}
	return base + entrySuffix + "." + format.Extension()
}

// Filename is the download name for an archive rendered with settings.
func Filename(settings models.ThumbnailSettings) string {
	return fmt.Sprintf("thumbnails-%dx%d.zip", settings.Width, settings.Height)
}

// Entries pairs each successful result with its source, in input order.
// Failures are skipped.
func Entries(sources []models.SourceImage, results []models.RenderResult, format models.Format) []models.ArchiveEntry {
	n := min(len(sources), len(results))
	entries := make([]models.ArchiveEntry, 0, n)
	for i := 0; i < n; i++ {
		if !results[i].OK() {
			continue
		}
		entries = append(entries, models.ArchiveEntry{
			Name: EntryName(sources[i].Name, format),
			Data: results[i].Data,
		})
	}
	return entries
}

// Pack writes entries into a deflate-compressed ZIP. When two entries share a
// name the later data wins and the entry stays at the position of the first.
func Pack(entries []models.ArchiveEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, models.ErrEmptyArchive
	}

	entries = dedupe(entries)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := time.Now()

	for _, entry := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("failed to create archive entry %s: %w", entry.Name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("failed to write archive entry %s: %w", entry.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return buf.Bytes(), nil
}

func dedupe(entries []models.ArchiveEntry) []models.ArchiveEntry {
	out := make([]models.ArchiveEntry, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for _, entry := range entries {
		if i, ok := seen[entry.Name]; ok {
			out[i].Data = entry.Data
			continue
		}
		seen[entry.Name] = len(out)
		out = append(out, entry)
	}
	return out
}
