package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Delimiter separates table fragments inside the cache blob. A fragment that
// itself contains the delimiter does not survive a Join/Split round trip.
const Delimiter = "|"

// Join concatenates fragments into a single cache blob.
func Join(fragments []string) string {
	return strings.Join(fragments, Delimiter)
}

// Split reverses Join for fragments that do not contain Delimiter.
func Split(blob string) []string {
	return strings.Split(blob, Delimiter)
}

// ShardCount records how many consecutive fragments in the blob came from
// one category page.
type ShardCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Meta is stored next to the blob as <name>.meta.json and labels the
// fragments by category.
type Meta struct {
	BaseURL string       `json:"base_url"`
	SavedAt time.Time    `json:"saved_at"`
	Shards  []ShardCount `json:"shards"`
}

// Total returns the number of fragments the meta describes.
func (m Meta) Total() int {
	n := 0
	for _, s := range m.Shards {
		n += s.Count
	}
	return n
}

// Labels expands the shard counts to one category label per fragment.
func (m Meta) Labels() []string {
	out := make([]string, 0, m.Total())
	for _, s := range m.Shards {
		for i := 0; i < s.Count; i++ {
			out = append(out, s.Category)
		}
	}
	return out
}

// Store keeps the raw table fragments of a run as one delimited blob on disk.
// When the blob exists it is trusted as complete; there is no staleness check
// beyond what PurgeByAge removes up front.
type Store struct {
	Dir  string
	File string
	// StrictPerms restricts the directory to 0700 and files to 0600.
	StrictPerms bool
}

// Path returns the blob location.
func (s *Store) Path() string {
	name := s.File
	if strings.TrimSpace(name) == "" {
		name = "data.txt"
	}
	return filepath.Join(s.Dir, name)
}

// MetaPath returns the sidecar location for the blob.
func (s *Store) MetaPath() string {
	return metaPathFor(s.Path())
}

func metaPathFor(blobPath string) string {
	return strings.TrimSuffix(blobPath, filepath.Ext(blobPath)) + ".meta.json"
}

func (s *Store) dirPerm() os.FileMode {
	if s.StrictPerms {
		return 0o700
	}
	return 0o755
}

func (s *Store) filePerm() os.FileMode {
	if s.StrictPerms {
		return 0o600
	}
	return 0o644
}

// EnsureDir creates the cache directory tree.
func (s *Store) EnsureDir() error {
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return errors.New("cache dir not configured")
	}
	if err := os.MkdirAll(s.Dir, s.dirPerm()); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if s.StrictPerms {
		// MkdirAll does not change the mode of an existing directory
		if err := os.Chmod(s.Dir, 0o700); err != nil {
			return fmt.Errorf("chmod cache dir: %w", err)
		}
	}
	return nil
}

// Exists reports whether a blob is present.
func (s *Store) Exists() (bool, error) {
	_, err := os.Stat(s.Path())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat cache: %w", err)
}

// Load reads the blob and splits it into fragments in file order. An empty
// blob holds no fragments. The meta is returned when present and readable.
// A missing meta is not an error; a malformed one is logged and ignored.
func (s *Store) Load() ([]string, *Meta, error) {
	b, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, nil, fmt.Errorf("read cache: %w", err)
	}
	var fragments []string
	if len(b) > 0 {
		fragments = Split(string(b))
	}
	meta, err := s.LoadMeta()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", s.MetaPath()).Msg("cache meta unreadable; ignoring it")
		}
		return fragments, nil, nil
	}
	return fragments, meta, nil
}

// LoadMeta reads the sidecar meta.
func (s *Store) LoadMeta() (*Meta, error) {
	f, err := os.Open(s.MetaPath())
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var m Meta
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return &m, nil
}

// Save writes the blob and then its meta, each through a temp file and a
// rename.
func (s *Store) Save(fragments []string, meta Meta) error {
	if err := s.EnsureDir(); err != nil {
		return err
	}
	if meta.SavedAt.IsZero() {
		meta.SavedAt = time.Now().UTC()
	}
	if err := s.writeAtomic(s.Path(), []byte(Join(fragments))); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := s.writeAtomic(s.MetaPath(), data); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

func (s *Store) writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, s.filePerm()); err != nil {
		return err
	}
	if s.StrictPerms {
		if err := os.Chmod(tmp, 0o600); err != nil {
			return err
		}
	}
	return os.Rename(tmp, path)
}
