// Package store persists References and reference tables in BadgerDB so
// that hashes handed to dependents can be resolved after a restart.
//
// Keys:
//
//	ref/<hash>    msgpack-encoded Reference, hash big-endian
//	table/<name>  zstd-compressed reference table of a named shape
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/chazu/toponame/pkg/kernel"
	"github.com/chazu/toponame/pkg/naming"
)

var (
	// ErrNotFound is returned when a hash or table name is not stored.
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference is returned when storing a Reference that hashes to 0.
	ErrInvalidReference = errors.New("invalid reference")
)

const (
	refPrefix   = "ref/"
	tablePrefix = "table/"

	defaultCacheSize = 1024
)

// Config holds configuration for a Store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in RAM.
	InMemory bool
	// SyncWrites makes every commit durable before returning.
	SyncWrites bool
	// CacheSize bounds the Resolve cache. Zero uses 1024.
	CacheSize int
	// Logger receives store and BadgerDB messages. Nil silences BadgerDB.
	Logger *slog.Logger
}

// DefaultConfig returns a durable on-disk configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true, CacheSize: defaultCacheSize}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true, CacheSize: defaultCacheSize}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Store is a persistent reference store. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	cache  *lru.Cache[uint64, naming.Reference]
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	logger *slog.Logger
}

// Open opens the store described by cfg. The caller must Close it.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
		logger = slog.New(slog.DiscardHandler)
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[uint64, naming.Reference](size)
	if err != nil {
		return nil, fmt.Errorf("create resolve cache: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		enc.Close()
		dec.Close()
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db, cache: cache, enc: enc, dec: dec, logger: logger}, nil
}

// Close releases the database and codecs.
func (s *Store) Close() error {
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		s.logger.Warn("closing zstd encoder", "error", err)
	}
	return s.db.Close()
}

func refKey(h uint64) []byte {
	k := make([]byte, len(refPrefix)+8)
	copy(k, refPrefix)
	binary.BigEndian.PutUint64(k[len(refPrefix):], h)
	return k
}

func tableKey(name string) []byte {
	return []byte(tablePrefix + name)
}

// PutReference stores ref under its hash and returns the hash.
func (s *Store) PutReference(ref naming.Reference) (uint64, error) {
	h := ref.Hash()
	if h == 0 {
		return 0, ErrInvalidReference
	}
	val, err := ref.MarshalMsg(make([]byte, 0, ref.Msgsize()))
	if err != nil {
		return 0, fmt.Errorf("encode reference %d: %w", h, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(refKey(h), val)
	})
	if err != nil {
		return 0, fmt.Errorf("put reference %d: %w", h, err)
	}
	s.cache.Add(h, ref)
	return h, nil
}

// Resolve returns the Reference stored under h.
func (s *Store) Resolve(h uint64) (naming.Reference, error) {
	if ref, ok := s.cache.Get(h); ok {
		return ref, nil
	}

	var ref naming.Reference
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(refKey(h))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			_, err := ref.UnmarshalMsg(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return naming.Reference{}, fmt.Errorf("reference %d: %w", h, ErrNotFound)
	}
	if err != nil {
		return naming.Reference{}, fmt.Errorf("resolve reference %d: %w", h, err)
	}
	s.cache.Add(h, ref)
	return ref, nil
}

// SaveTable stores the reference table of t under name, together with every
// Reference in it, in one transaction.
func (s *Store) SaveTable(name string, t *naming.TopoShape) error {
	if name == "" {
		return errors.New("save table: empty name")
	}
	raw, err := naming.MarshalTable(t)
	if err != nil {
		return fmt.Errorf("save table %s: %w", name, err)
	}
	entries := t.References()

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(tableKey(name), s.enc.EncodeAll(raw, nil)); err != nil {
			return err
		}
		for _, e := range entries {
			h := e.Ref.Hash()
			if h == 0 {
				continue
			}
			val, err := e.Ref.MarshalMsg(nil)
			if err != nil {
				return err
			}
			if err := txn.Set(refKey(h), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save table %s: %w", name, err)
	}
	for _, e := range entries {
		if h := e.Ref.Hash(); h != 0 {
			s.cache.Add(h, e.Ref)
		}
	}
	s.logger.Debug("saved table", "name", name, "references", len(entries), "bytes", len(raw))
	return nil
}

// LoadTable restores the table stored under name onto shape.
func (s *Store) LoadTable(name string, shape *kernel.Shape) (*naming.TopoShape, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tableKey(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			raw, err = s.dec.DecodeAll(val, nil)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("table %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", name, err)
	}
	t, err := naming.UnmarshalTable(raw, shape)
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", name, err)
	}
	return t, nil
}

// Tables lists the stored table names in key order.
func (s *Store) Tables() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(tablePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), tablePrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// Lineage resolves h and walks its ancestry depth-first, returning h's
// Reference followed by every ancestor once.
func (s *Store) Lineage(h uint64) ([]naming.Reference, error) {
	root, err := s.Resolve(h)
	if err != nil {
		return nil, err
	}
	var out []naming.Reference
	seen := make(map[uint64]bool)
	var walk func(naming.Reference)
	walk = func(r naming.Reference) {
		rh := r.Hash()
		if seen[rh] {
			return
		}
		seen[rh] = true
		out = append(out, r)
		for i := range r.NumBases() {
			walk(r.Base(i))
		}
	}
	walk(root)
	return out, nil
}
