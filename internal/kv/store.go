/*
Package kv is the embedded, transactional key-value store the event
database is built on. It wraps go.etcd.io/bbolt with:

  - named, typed tables opened inside a transaction (see table.go),
  - read_with/write_with style helpers (ReadWith/WriteWith),
  - write-transaction commit hooks that fire exactly once, after a
    transaction durably commits, never on abort, in registration order,
    with a panicking hook isolated from the rest,
  - a schema-version guard on Open.

Generalized from one hand-written method pair per entity to a generic
Table[K, V].
*/
package kv

import (
	"fmt"
	"path/filepath"

	"github.com/rostra-network/rostra/internal/rlog"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

var metaBucket = []byte("meta")
var schemaVersionKey = []byte("schema_version")

// Store is an open handle to a single bbolt-backed database file.
type Store struct {
	db     *bolt.DB
	logger zerolog.Logger
}

// Open opens (creating if absent) a bbolt file at <dataDir>/<filename>,
// ensures every bucket in buckets exists, and checks the stored schema
// version against schemaVersion:
//
//   - no stored version: this is a fresh database, the version is written
//     and nothing else happens.
//   - stored version == schemaVersion: nothing happens.
//   - stored version < schemaVersion: a no-op forward-migration
//     placeholder runs (logged) and the stored version is bumped. Real
//     migrations, when any are needed, replace this placeholder.
//   - stored version > schemaVersion: Open fails; this binary is older
//     than the data it is pointed at.
func Open(dataDir, filename string, schemaVersion uint64, buckets [][]byte) (*Store, error) {
	dbPath := filepath.Join(dataDir, filename)
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", dbPath, err)
	}

	s := &Store{db: db, logger: rlog.WithComponent("kv")}

	if err := db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return s.checkSchemaVersion(meta, schemaVersion)
	}); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) checkSchemaVersion(meta *bolt.Bucket, want uint64) error {
	raw := meta.Get(schemaVersionKey)
	if raw == nil {
		return meta.Put(schemaVersionKey, encodeUint64(want))
	}
	stored := decodeUint64(raw)
	switch {
	case stored == want:
		return nil
	case stored < want:
		s.logger.Info().Uint64("stored", stored).Uint64("want", want).
			Msg("running forward schema migration placeholder")
		return meta.Put(schemaVersionKey, encodeUint64(want))
	default:
		return fmt.Errorf("kv: database schema version %d is newer than this binary's %d", stored, want)
	}
}

// Close closes the underlying database file.
func (s *Store) Close() error { return s.db.Close() }

// ReadWith runs fn against a consistent, read-only snapshot. No write
// inside fn is observable by anyone; bbolt enforces this at the bucket
// level (a ReadTx is never handed write access).
func (s *Store) ReadWith(fn func(ReadTx) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(ReadTx{tx: tx})
	})
}

// WriteWith runs fn inside a single atomic write transaction. Either every
// write fn performs commits, or (on error, or a panic propagating out of
// fn) none of them do. Hooks registered via WriteTx.OnCommit run, in
// registration order, strictly after the underlying bbolt commit
// succeeds — never on rollback — and a hook that panics is recovered and
// logged so it cannot stop later hooks or the next transaction.
func (s *Store) WriteWith(fn func(WriteTx) error) error {
	var hooks []func()
	err := s.db.Update(func(tx *bolt.Tx) error {
		return fn(WriteTx{ReadTx: ReadTx{tx: tx}, hooks: &hooks})
	})
	if err != nil {
		return err
	}
	for _, h := range hooks {
		runHookSafely(s.logger, h)
	}
	return nil
}

func runHookSafely(logger zerolog.Logger, hook func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("commit hook panicked")
		}
	}()
	hook()
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * (7 - i)))
	}
	return b
}

func decodeUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8 && i < len(b); i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
