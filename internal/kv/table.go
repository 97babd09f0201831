package kv

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// ReadTx is a read-only view over a Store, handed to ReadWith callbacks.
type ReadTx struct {
	tx *bolt.Tx
}

// WriteTx is a read-write view over a Store, handed to WriteWith callbacks.
// It additionally collects commit hooks registered during the transaction.
type WriteTx struct {
	ReadTx
	hooks *[]func()
}

// OnCommit registers fn to run once this transaction durably commits. Hooks
// run in registration order, after the bbolt commit returns successfully,
// never on a rolled-back transaction.
func (tx WriteTx) OnCommit(fn func()) {
	*tx.hooks = append(*tx.hooks, fn)
}

// TableSpec describes how to store a K -> V mapping in a single named
// bucket: an encode/decode pair for keys, and one for values. K should be a
// small comparable type (an id, a counter); V can be any value the caller
// knows how to serialize.
type TableSpec[K any, V any] struct {
	Bucket    []byte
	EncodeKey func(K) []byte
	DecodeKey func([]byte) (K, error)
	EncodeVal func(V) ([]byte, error)
	DecodeVal func([]byte) (V, error)
}

// ReadTable binds a TableSpec to a ReadTx, giving typed read access to one
// bucket of the store.
func ReadTable[K any, V any](tx ReadTx, spec TableSpec[K, V]) ReadOnlyTable[K, V] {
	return ReadOnlyTable[K, V]{spec: spec, bucket: tx.tx.Bucket(spec.Bucket)}
}

// WriteTable binds a TableSpec to a WriteTx, giving typed read-write access
// to one bucket of the store.
func WriteTable[K any, V any](tx WriteTx, spec TableSpec[K, V]) Table[K, V] {
	return Table[K, V]{
		ReadOnlyTable: ReadOnlyTable[K, V]{spec: spec, bucket: tx.tx.Bucket(spec.Bucket)},
	}
}

// ReadOnlyTable is a typed view of a single bbolt bucket.
type ReadOnlyTable[K any, V any] struct {
	spec   TableSpec[K, V]
	bucket *bolt.Bucket
}

// Get looks up key, returning ok=false if it is absent.
func (t ReadOnlyTable[K, V]) Get(key K) (val V, ok bool, err error) {
	if t.bucket == nil {
		return val, false, nil
	}
	raw := t.bucket.Get(t.spec.EncodeKey(key))
	if raw == nil {
		return val, false, nil
	}
	val, err = t.spec.DecodeVal(raw)
	if err != nil {
		return val, false, fmt.Errorf("kv: decode value in bucket %s: %w", t.spec.Bucket, err)
	}
	return val, true, nil
}

// Exists reports whether key is present, without decoding its value.
func (t ReadOnlyTable[K, V]) Exists(key K) bool {
	if t.bucket == nil {
		return false
	}
	return t.bucket.Get(t.spec.EncodeKey(key)) != nil
}

// ForEach calls fn for every entry in key order, stopping early if fn
// returns an error.
func (t ReadOnlyTable[K, V]) ForEach(fn func(K, V) error) error {
	if t.bucket == nil {
		return nil
	}
	return t.bucket.ForEach(func(k, v []byte) error {
		key, err := t.spec.DecodeKey(k)
		if err != nil {
			return fmt.Errorf("kv: decode key in bucket %s: %w", t.spec.Bucket, err)
		}
		val, err := t.spec.DecodeVal(v)
		if err != nil {
			return fmt.Errorf("kv: decode value in bucket %s: %w", t.spec.Bucket, err)
		}
		return fn(key, val)
	})
}

// Count returns the number of entries in the table.
func (t ReadOnlyTable[K, V]) Count() int {
	if t.bucket == nil {
		return 0
	}
	return t.bucket.Stats().KeyN
}

// Table is a ReadOnlyTable with mutation methods, bound to a WriteTx.
type Table[K any, V any] struct {
	ReadOnlyTable[K, V]
}

// Put writes key -> val, overwriting any existing entry.
func (t Table[K, V]) Put(key K, val V) error {
	raw, err := t.spec.EncodeVal(val)
	if err != nil {
		return fmt.Errorf("kv: encode value for bucket %s: %w", t.spec.Bucket, err)
	}
	return t.bucket.Put(t.spec.EncodeKey(key), raw)
}

// Delete removes key, if present.
func (t Table[K, V]) Delete(key K) error {
	return t.bucket.Delete(t.spec.EncodeKey(key))
}
