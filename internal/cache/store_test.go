package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestJoinSplit_RoundTrip(t *testing.T) {
	in := []string{`<tr><th>Farmers</th></tr>`, `<tr><td>x</td></tr>`, ""}
	out := Split(Join(in))
	if len(out) != len(in) {
		t.Fatalf("expected %d shards, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("shard %d: want %q, got %q", i, in[i], out[i])
		}
	}
}

// A literal delimiter inside a fragment splits it in two on reload. This is
// a known limitation of the blob format; the meta sidecar exists to detect it.
func TestJoinSplit_EmbeddedDelimiterBreaksRoundTrip(t *testing.T) {
	in := []string{`<td>A | B</td>`, `<td>C</td>`}
	out := Split(Join(in))
	if len(out) == len(in) {
		t.Fatalf("expected embedded delimiter to change shard count, got %q", out)
	}
	if len(out) != 3 || out[0] != `<td>A ` || out[1] != ` B</td>` {
		t.Fatalf("unexpected split result: %q", out)
	}
}

func TestStore_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s := &Store{Dir: dir}
	if ok, err := s.Exists(); err != nil || ok {
		t.Fatalf("expected no cache yet, ok=%v err=%v", ok, err)
	}
	frags := []string{"one", "two", "three"}
	meta := Meta{BaseURL: "https://example.test", Shards: []ShardCount{{Category: "Farmer", Count: 2}, {Category: "Worker", Count: 1}}}
	if err := s.Save(frags, meta); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ok, err := s.Exists(); err != nil || !ok {
		t.Fatalf("expected cache to exist, ok=%v err=%v", ok, err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "data.txt"))
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(b) != "one|two|three" {
		t.Fatalf("unexpected blob: %q", string(b))
	}
	got, m, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 || got[2] != "three" {
		t.Fatalf("unexpected fragments: %q", got)
	}
	if m == nil {
		t.Fatalf("expected meta")
	}
	if m.SavedAt.IsZero() {
		t.Fatalf("expected SavedAt to be set")
	}
	labels := m.Labels()
	if len(labels) != 3 || labels[0] != "Farmer" || labels[1] != "Farmer" || labels[2] != "Worker" {
		t.Fatalf("unexpected labels: %q", labels)
	}
}

func TestStore_LoadWithoutMeta(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.txt"), []byte("a|b"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := &Store{Dir: dir}
	got, m, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m != nil {
		t.Fatalf("expected no meta, got %+v", m)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected fragments: %q", got)
	}
}

func TestStore_LoadMalformedMetaWarns(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	dir := t.TempDir()
	s := &Store{Dir: dir}
	if err := os.WriteFile(s.Path(), []byte("a|b"), 0o644); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	if err := os.WriteFile(s.MetaPath(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	got, m, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m != nil || len(got) != 2 {
		t.Fatalf("expected fragments without meta, got %q %+v", got, m)
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) || !strings.Contains(buf.String(), "data.meta.json") {
		t.Fatalf("expected a warning naming the meta file, got %q", buf.String())
	}
}

func TestStore_LoadMissingMetaIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	s := &Store{Dir: t.TempDir()}
	if err := os.WriteFile(s.Path(), []byte("a"), 0o644); err != nil {
		t.Fatalf("write blob: %v", err)
	}
	if _, _, err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("missing meta should not log, got %q", buf.String())
	}
}

func TestStore_StrictPerms(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s := &Store{Dir: dir, StrictPerms: true}
	if err := s.Save([]string{"x"}, Meta{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if got := info.Mode() & 0o777; got != 0o700 {
		t.Fatalf("dir mode = %o, want 0700", got)
	}
	for _, p := range []string{s.Path(), s.MetaPath()} {
		fi, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if got := fi.Mode() & 0o777; got != 0o600 {
			t.Fatalf("%s mode = %o, want 0600", p, got)
		}
	}
}

func TestStore_RequiresDir(t *testing.T) {
	s := &Store{}
	if err := s.Save([]string{"x"}, Meta{}); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}

func TestPurgeByAge(t *testing.T) {
	dir := t.TempDir()
	s := &Store{Dir: dir}
	old := Meta{SavedAt: time.Now().UTC().Add(-48 * time.Hour)}
	if err := s.Save([]string{"x"}, old); err != nil {
		t.Fatalf("save: %v", err)
	}
	removed, err := PurgeByAge(s.Path(), 72*time.Hour)
	if err != nil || removed {
		t.Fatalf("fresh entry must stay, removed=%v err=%v", removed, err)
	}
	removed, err = PurgeByAge(s.Path(), 24*time.Hour)
	if err != nil || !removed {
		t.Fatalf("expected stale entry removed, removed=%v err=%v", removed, err)
	}
	if ok, _ := s.Exists(); ok {
		t.Fatalf("blob should be gone")
	}
	if _, err := os.Stat(s.MetaPath()); !os.IsNotExist(err) {
		t.Fatalf("meta should be gone, err=%v", err)
	}
}

func TestPurgeByAge_DisabledOrMissing(t *testing.T) {
	if removed, err := PurgeByAge(filepath.Join(t.TempDir(), "none.txt"), time.Hour); err != nil || removed {
		t.Fatalf("missing blob: removed=%v err=%v", removed, err)
	}
	if removed, err := PurgeByAge("whatever", 0); err != nil || removed {
		t.Fatalf("zero maxAge disables purge: removed=%v err=%v", removed, err)
	}
}

func TestClearDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "c")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, got %d entries", len(entries))
	}
	if err := ClearDir("  "); err == nil {
		t.Fatalf("expected error for blank dir")
	}
}
