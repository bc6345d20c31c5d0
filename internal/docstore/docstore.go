package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"multimodal-rag/internal/helper"
	"multimodal-rag/internal/models"

	"github.com/rs/zerolog/log"
)

// Record is the on-disk shape of one docstore entry: the full recoverable
// payload plus the grouping metadata needed for source listing.
type Record struct {
	Source  string         `json:"source"`
	Page    int            `json:"page"`
	Payload models.Payload `json:"payload"`
}

// Store is a file-per-id content store. Each entry lives in <path>/<id>.json
// keyed by the same id as the vector index entry.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Open ensures the backing directory exists.
func (s *Store) Open() error {
	if err := helper.CreateFolder(s.path); err != nil {
		return fmt.Errorf("failed to create docstore directory: %w", err)
	}
	return nil
}

func (s *Store) Path() string {
	return s.path
}

// Set writes all entries. Entries are written one file at a time; a failure
// leaves already-written files in place for the caller to clean up via reset.
func (s *Store) Set(entries map[string]Record) error {
	for id, rec := range entries {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode docstore entry %s: %w", id, err)
		}
		if err := os.WriteFile(s.entryPath(id), data, 0o644); err != nil {
			return fmt.Errorf("failed to write docstore entry %s: %w", id, err)
		}
	}
	return nil
}

// Delete removes the entries for the given ids. Missing files are not an
// error; the first other failure is returned after attempting the rest.
func (s *Store) Delete(ids []string) error {
	var firstErr error
	for _, id := range ids {
		err := os.Remove(s.entryPath(id))
		if err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("failed to delete docstore entry %s: %w", id, err)
		}
	}
	return firstErr
}

// Get resolves one entry by id. Missing files report ok=false without an
// error; an entry that does not parse as a Record is treated as a plain
// text payload rather than failing the read.
func (s *Store) Get(id string) (Record, bool, error) {
	data, err := os.ReadFile(s.entryPath(id))
	if os.IsNotExist(err) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to read docstore entry %s: %w", id, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warn().Str("id", id).Msg("Unparseable docstore entry, treating as plain text")
		return Record{Payload: models.Payload{Type: models.ChunkText, Content: string(data)}}, true, nil
	}
	return rec, true, nil
}

// Sources returns the distinct source filenames across all entries,
// lexicographically sorted.
func (s *Store) Sources() ([]string, error) {
	seen := map[string]struct{}{}
	err := s.scan(func(rec Record) bool {
		if rec.Source != "" {
			seen[rec.Source] = struct{}{}
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(seen))
	for src := range seen {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return sources, nil
}

// HasSource reports whether at least one entry carries the given source.
func (s *Store) HasSource(source string) (bool, error) {
	found := false
	err := s.scan(func(rec Record) bool {
		if rec.Source == source {
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// scan walks all entries, invoking fn until it returns false. Unreadable or
// unparseable entries are skipped with a warning.
func (s *Store) scan(fn func(Record) bool) error {
	entries, err := os.ReadDir(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to list docstore: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.path, entry.Name()))
		if err != nil {
			log.Warn().Err(err).Str("entry", entry.Name()).Msg("Skipping unreadable docstore entry")
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			log.Warn().Str("entry", entry.Name()).Msg("Skipping unparseable docstore entry")
			continue
		}
		if !fn(rec) {
			return nil
		}
	}
	return nil
}

func (s *Store) entryPath(id string) string {
	return filepath.Join(s.path, id+".json")
}
