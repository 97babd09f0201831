package kv

import (
	"encoding/binary"
	"errors"
	"testing"
)

var testBucket = []byte("widgets")

type widget struct {
	Name  string
	Count uint32
}

func widgetSpec() TableSpec[uint64, widget] {
	return TableSpec[uint64, widget]{
		Bucket: testBucket,
		EncodeKey: func(k uint64) []byte {
			b := make([]byte, 8)
			binary.BigEndian.PutUint64(b, k)
			return b
		},
		DecodeKey: func(b []byte) (uint64, error) {
			return binary.BigEndian.Uint64(b), nil
		},
		EncodeVal: func(w widget) ([]byte, error) {
			b := make([]byte, 4+len(w.Name))
			binary.LittleEndian.PutUint32(b, w.Count)
			copy(b[4:], w.Name)
			return b, nil
		},
		DecodeVal: func(b []byte) (widget, error) {
			if len(b) < 4 {
				return widget{}, errors.New("short widget record")
			}
			return widget{Count: binary.LittleEndian.Uint32(b), Name: string(b[4:])}, nil
		},
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), "test.db", 1, [][]byte{testBucket})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)
	spec := widgetSpec()

	if err := s.WriteWith(func(tx WriteTx) error {
		return WriteTable(tx, spec).Put(1, widget{Name: "a", Count: 7})
	}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := s.ReadWith(func(tx ReadTx) error {
		w, ok, err := ReadTable(tx, spec).Get(1)
		if err != nil {
			return err
		}
		if !ok || w.Name != "a" || w.Count != 7 {
			t.Fatalf("unexpected get result: %+v ok=%v", w, ok)
		}
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := s.WriteWith(func(tx WriteTx) error {
		return WriteTable(tx, spec).Delete(1)
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := s.ReadWith(func(tx ReadTx) error {
		if ReadTable(tx, spec).Exists(1) {
			t.Fatalf("expected widget 1 to be gone")
		}
		return nil
	}); err != nil {
		t.Fatalf("read after delete: %v", err)
	}
}

func TestForEachOrdersByKey(t *testing.T) {
	s := openTestStore(t)
	spec := widgetSpec()

	if err := s.WriteWith(func(tx WriteTx) error {
		tbl := WriteTable(tx, spec)
		for i := uint64(3); i >= 1; i-- {
			if err := tbl.Put(i, widget{Name: "w", Count: uint32(i)}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var seen []uint64
	if err := s.ReadWith(func(tx ReadTx) error {
		return ReadTable(tx, spec).ForEach(func(k uint64, _ widget) error {
			seen = append(seen, k)
			return nil
		})
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 3 {
		t.Fatalf("expected ordered [1 2 3], got %v", seen)
	}
}

func TestCommitHooksRunOnlyAfterCommit(t *testing.T) {
	s := openTestStore(t)
	spec := widgetSpec()

	var ran []string
	err := s.WriteWith(func(tx WriteTx) error {
		tx.OnCommit(func() { ran = append(ran, "first") })
		tx.OnCommit(func() { ran = append(ran, "second") })
		return WriteTable(tx, spec).Put(1, widget{Name: "x", Count: 1})
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(ran) != 2 || ran[0] != "first" || ran[1] != "second" {
		t.Fatalf("expected hooks to run in registration order, got %v", ran)
	}

	ran = nil
	wantErr := errors.New("boom")
	err = s.WriteWith(func(tx WriteTx) error {
		tx.OnCommit(func() { ran = append(ran, "should-not-run") })
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wantErr, got %v", err)
	}
	if len(ran) != 0 {
		t.Fatalf("commit hooks must not run on a rolled-back transaction, got %v", ran)
	}
}

func TestCommitHookPanicIsolated(t *testing.T) {
	s := openTestStore(t)
	spec := widgetSpec()

	var secondRan bool
	err := s.WriteWith(func(tx WriteTx) error {
		tx.OnCommit(func() { panic("hook blew up") })
		tx.OnCommit(func() { secondRan = true })
		return WriteTable(tx, spec).Put(2, widget{Name: "y", Count: 2})
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !secondRan {
		t.Fatalf("a panicking hook must not prevent later hooks from running")
	}
}

func TestSchemaVersionGuard(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "schema.db", 2, [][]byte{testBucket})
	if err != nil {
		t.Fatalf("open v2: %v", err)
	}
	s.Close()

	if _, err := Open(dir, "schema.db", 1, [][]byte{testBucket}); err == nil {
		t.Fatalf("expected Open with an older schema version to fail")
	}

	s2, err := Open(dir, "schema.db", 3, [][]byte{testBucket})
	if err != nil {
		t.Fatalf("open v3 (forward migration): %v", err)
	}
	s2.Close()
}
