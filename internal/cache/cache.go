// Package cache stores inference results on disk, keyed by model identity and
// input waveform, so repeated runs over the same audio skip the model.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ekisa-team/some/internal/pipeline"
)

// Options configures Open.
type Options struct {
	// Dir is the directory for the badger files. Required unless InMemory.
	Dir string

	// InMemory keeps everything in memory.
	InMemory bool

	// TTL expires entries after the given duration. Zero keeps them forever.
	TTL time.Duration
}

// Cache is a result cache backed by BadgerDB.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens or creates the cache.
func Open(opts Options) (*Cache, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("cache: Options.Dir is required for on-disk mode")
	}

	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(slogLogger{})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	} else if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create directory: %w", err)
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("cache: open: %w", err)
	}
	return &Cache{db: db, ttl: opts.TTL}, nil
}

// Key derives the cache key for one waveform under a model identity.
func Key(modelID string, waveform []float32) []byte {
	h := sha256.New()
	h.Write([]byte(modelID))
	h.Write([]byte{0})

	var b [4]byte
	for _, s := range waveform {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(s))
		h.Write(b[:])
	}
	return h.Sum([]byte("result:"))
}

// Get returns the results stored under key. The bool is false on a miss.
func (c *Cache) Get(key []byte) ([]pipeline.Result, bool, error) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}

	var res []pipeline.Result
	if err := msgpack.Unmarshal(val, &res); err != nil {
		return nil, false, fmt.Errorf("cache: decode: %w", err)
	}
	return res, true, nil
}

// Put stores results under key.
func (c *Cache) Put(key []byte, res []pipeline.Result) error {
	val, err := msgpack.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, val)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Len counts the stored entries.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close flushes and closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// slogLogger routes badger's warnings and errors to slog and drops the rest.
type slogLogger struct{}

func (slogLogger) Errorf(f string, v ...any)   { slog.Error("badger: " + fmt.Sprintf(f, v...)) }
func (slogLogger) Warningf(f string, v ...any) { slog.Warn("badger: " + fmt.Sprintf(f, v...)) }
func (slogLogger) Infof(string, ...any)        {}
func (slogLogger) Debugf(string, ...any)       {}
