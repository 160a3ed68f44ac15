package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"text-expander/metrics"
)

// Store reads and appends to the template units in one directory. The
// directory is listed on every query; there is no long-lived index. Units
// are enumerated in lexicographic file-name order, so when several units
// match a title the first by name wins.
type Store struct {
	mu     sync.Mutex // serialises appends
	dir    string
	logger *zap.Logger
	cache  *lru.Cache[string, cachedUnit]
}

// cachedUnit remembers a parsed unit together with the digest of the bytes
// it was parsed from. Files are always read; a hit only skips parsing.
type cachedUnit struct {
	digest [32]byte
	unit   *unit
}

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets the logger used to report skipped units.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithCacheSize keeps up to n parsed units in memory between scans, keyed
// by content digest. Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(s *Store) error {
		if n <= 0 {
			s.cache = nil
			return nil
		}
		cache, err := lru.New[string, cachedUnit](n)
		if err != nil {
			return err
		}
		s.cache = cache
		return nil
	}
}

// NewStore returns a Store over dir. The directory is not touched until the
// first query; call EnsureDir to create it.
func NewStore(dir string, opts ...Option) (*Store, error) {
	s := &Store{dir: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Dir returns the templates directory.
func (s *Store) Dir() string { return s.dir }

// EnsureDir creates the templates directory if it does not exist.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &IOError{Op: "create", Path: s.dir, Err: err}
	}
	return nil
}

// Find returns the first collection, in enumeration order, with a trigger
// name contained in windowTitle. Units that fail to parse are logged and
// skipped. It returns ErrNoCollection when nothing matches.
func (s *Store) Find(windowTitle string) (*Collection, error) {
	title := Normalize(windowTitle)
	var found *Collection
	err := s.scan(func(u *unit) bool {
		c := u.collection()
		if c.Matches(title) {
			found = c
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNoCollection
	}
	return found, nil
}

// List returns every parsable collection in enumeration order.
func (s *Store) List() ([]*Collection, error) {
	var all []*Collection
	err := s.scan(func(u *unit) bool {
		all = append(all, u.collection())
		return true
	})
	return all, err
}

// AppendEntry adds key→snippet to the unit behind h and rewrites the whole
// unit in one replace. Key and snippet are trimmed first. The unit is re-read
// before the check so the write starts from what is on disk now.
func (s *Store) AppendEntry(h Handle, key, snippet string) (*Collection, error) {
	key = strings.TrimSpace(key)
	snippet = strings.TrimSpace(snippet)
	if key == "" || snippet == "" {
		metrics.AppendsTotal.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: insert both key and template value", ErrValidation)
	}
	if h.IsZero() {
		metrics.AppendsTotal.WithLabelValues("validation").Inc()
		return nil, fmt.Errorf("%w: no collection bound", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(h.path)
	if err != nil {
		metrics.AppendsTotal.WithLabelValues("io").Inc()
		return nil, &IOError{Op: "read", Path: h.path, Err: err}
	}
	u, err := parseUnit(h.path, data)
	if err != nil {
		metrics.AppendsTotal.WithLabelValues("parse").Inc()
		return nil, err
	}
	if existing, ok := u.lookup(key); ok {
		metrics.AppendsTotal.WithLabelValues("duplicate").Inc()
		return nil, fmt.Errorf("%w: %q conflicts with %q", ErrDuplicateKey, key, existing.Key)
	}

	u.entries = append(u.entries, Entry{Key: key, Snippet: snippet})
	payload, err := u.encode()
	if err != nil {
		metrics.AppendsTotal.WithLabelValues("io").Inc()
		return nil, &IOError{Op: "encode", Path: h.path, Err: err}
	}
	if err := writeAtomic(h.path, payload); err != nil {
		metrics.AppendsTotal.WithLabelValues("io").Inc()
		return nil, &IOError{Op: "write", Path: h.path, Err: err}
	}
	if s.cache != nil {
		s.cache.Remove(h.path)
	}

	metrics.AppendsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("template entry added",
		zap.String("unit", h.path),
		zap.String("key", key),
	)
	return u.collection(), nil
}

// scan visits each parsable unit in file-name order until visit returns false.
func (s *Store) scan(visit func(*unit) bool) error {
	// os.ReadDir returns entries sorted by file name.
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return &IOError{Op: "list", Path: s.dir, Err: err}
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), unitExt) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		u, err := s.load(path)
		if err != nil {
			metrics.UnitsSkippedTotal.Inc()
			s.logger.Warn("skipping template unit",
				zap.String("unit", path),
				zap.Error(err),
			)
			continue
		}
		if !visit(u) {
			return nil
		}
	}
	return nil
}

func (s *Store) load(path string) (*unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	if s.cache == nil {
		return parseUnit(path, data)
	}

	digest := blake3.Sum256(data)
	if c, ok := s.cache.Get(path); ok && c.digest == digest {
		return c.unit, nil
	}
	u, err := parseUnit(path, data)
	if err != nil {
		s.cache.Remove(path)
		return nil, err
	}
	s.cache.Add(path, cachedUnit{digest: digest, unit: u})
	return u, nil
}

// writeAtomic writes data to a temp file beside path then renames it over
// path, so a failed write leaves the previous unit intact.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
