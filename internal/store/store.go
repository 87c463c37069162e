package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Store persists per-feature JSON documents under a data directory.
// Each feature maps to one file holding a chat-keyed object. Documents
// are cached in memory; the cache stays authoritative when a write to
// disk fails.
type Store struct {
	dir    string
	logger *zap.Logger

	mu   sync.Mutex
	docs map[string]map[string]json.RawMessage
}

func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		dir:    dir,
		logger: logger,
		docs:   make(map[string]map[string]json.RawMessage),
	}, nil
}

func (s *Store) path(feature string) string {
	return filepath.Join(s.dir, feature+".json")
}

// load returns the cached document for a feature, reading it from disk
// on first access. Unreadable or corrupt files yield an empty document.
func (s *Store) load(feature string) map[string]json.RawMessage {
	if doc, ok := s.docs[feature]; ok {
		return doc
	}
	doc := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path(feature))
	if err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			s.logger.Warn("store: corrupt document, starting empty",
				zap.String("feature", feature), zap.Error(err))
			doc = make(map[string]json.RawMessage)
		}
	} else if !os.IsNotExist(err) {
		s.logger.Warn("store: read failed, starting empty",
			zap.String("feature", feature), zap.Error(err))
	}
	s.docs[feature] = doc
	return doc
}

func (s *Store) save(feature string) {
	data, err := json.MarshalIndent(s.docs[feature], "", "  ")
	if err != nil {
		s.logger.Error("store: marshal failed", zap.String("feature", feature), zap.Error(err))
		return
	}
	tmp := s.path(feature) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Error("store: write failed", zap.String("feature", feature), zap.Error(err))
		return
	}
	if err := os.Rename(tmp, s.path(feature)); err != nil {
		s.logger.Error("store: rename failed", zap.String("feature", feature), zap.Error(err))
	}
}

// GetDoc returns the raw entry for a key, reporting whether it exists.
func (s *Store) GetDoc(feature, key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.load(feature)[key]
	return raw, ok
}

// PutDoc stores a raw entry for a key and persists the document.
func (s *Store) PutDoc(feature, key string, raw json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(feature)[key] = raw
	s.save(feature)
}

// Remove deletes a key's entry from a feature document.
func (s *Store) Remove(feature, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load(feature)
	if _, ok := doc[key]; !ok {
		return
	}
	delete(doc, key)
	s.save(feature)
}

// Keys returns every key present in a feature document.
func (s *Store) Keys(feature string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load(feature)
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	return keys
}

// Get decodes the entry for a key into a fresh value of type T. A
// missing or undecodable entry returns the zero value of T.
func Get[T any](s *Store, feature, key string) T {
	var out T
	raw, ok := s.GetDoc(feature, key)
	if !ok {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		s.logger.Warn("store: bad entry, using defaults",
			zap.String("feature", feature), zap.String("key", key), zap.Error(err))
		var zero T
		return zero
	}
	return out
}

// Update loads the entry for a key, applies fn to it, and persists the
// result. Fields absent from the stored entry keep the values fn sees
// in the decoded struct, so partial documents merge with defaults.
func Update[T any](s *Store, feature, key string, fn func(*T)) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.load(feature)
	var cur T
	if raw, ok := doc[key]; ok {
		if err := json.Unmarshal(raw, &cur); err != nil {
			var zero T
			cur = zero
		}
	}
	fn(&cur)
	raw, err := json.Marshal(cur)
	if err != nil {
		s.logger.Error("store: marshal entry failed",
			zap.String("feature", feature), zap.String("key", key), zap.Error(err))
		return cur
	}
	doc[key] = raw
	s.save(feature)
	return cur
}
