package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// manifestEntry is a compact record of one classified table.
type manifestEntry struct {
	Index    int    `json:"index"`
	Category string `json:"category"`
	Page     string `json:"page,omitempty"`
	Rows     int    `json:"rows"`
	SHA256   string `json:"sha256"`
}

// manifestMeta captures high-level run details that aid reproducibility.
type manifestMeta struct {
	Origin      string    `json:"origin"`
	TableCount  int       `json:"table_count"`
	RowCount    int       `json:"row_count"`
	GeneratedAt time.Time `json:"generated_at"`
}

// computeSHA256Hex returns a lowercase hex-encoded SHA-256 of the given text.
func computeSHA256Hex(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func buildManifestEntries(res Result) []manifestEntry {
	out := make([]manifestEntry, 0, len(res.Tables))
	for i, t := range res.Tables {
		out = append(out, manifestEntry{
			Index:    i + 1,
			Category: string(t.Category),
			Page:     string(t.Page),
			Rows:     t.Rows,
			SHA256:   t.Digest,
		})
	}
	return out
}

// marshalManifestJSON encodes a machine-readable sidecar manifest.
func marshalManifestJSON(meta manifestMeta, entries []manifestEntry) ([]byte, error) {
	payload := struct {
		Meta   manifestMeta    `json:"meta"`
		Tables []manifestEntry `json:"tables"`
	}{Meta: meta, Tables: entries}
	return json.MarshalIndent(payload, "", "  ")
}

// manifestPath returns a sidecar JSON path next to the output dump.
func manifestPath(outputPath string) string {
	return outputPath + ".manifest.json"
}

func writeManifest(path string, res Result) error {
	meta := manifestMeta{
		Origin:      string(res.Origin),
		TableCount:  len(res.Tables),
		RowCount:    res.Count,
		GeneratedAt: time.Now().UTC(),
	}
	data, err := marshalManifestJSON(meta, buildManifestEntries(res))
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
