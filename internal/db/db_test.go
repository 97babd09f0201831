package db

import (
	"crypto/ed25519"
	"testing"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/kv"
)

func openTestDB(t *testing.T) *kv.Store {
	t.Helper()
	s, err := kv.Open(t.TempDir(), "test.db", SchemaVersion, Buckets)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type chain struct {
	author ids.RostraId
	priv   ed25519.PrivateKey
}

func newChain(t *testing.T) chain {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var author ids.RostraId
	copy(author[:], pub)
	return chain{author: author, priv: priv}
}

// link builds and signs an event with the given parent_prev, timestamp and
// content, returning its VerifiedEvent.
func (c chain) link(t *testing.T, parentPrev ids.ShortEventId, ts uint64, content []byte) event.VerifiedEvent {
	t.Helper()
	ev := event.NewUnsigned(c.author, event.KindSocialPost, parentPrev, ids.ShortEventId{})
	ev.Timestamp = ts
	ev.ContentLen = uint32(len(content))
	ev.ContentHash = event.ComputeContentHash(content)
	signed, err := event.Sign(c.priv, ev)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ve, err := event.VerifyLocal(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	return ve
}

func insert(t *testing.T, s *kv.Store, ve event.VerifiedEvent) InsertResult {
	t.Helper()
	var res InsertResult
	err := s.WriteWith(func(tx kv.WriteTx) error {
		var err error
		res, err = InsertEventTx(tx, ve)
		return err
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return res
}

func headSet(t *testing.T, s *kv.Store, author ids.RostraId) map[ids.ShortEventId]bool {
	t.Helper()
	out := map[ids.ShortEventId]bool{}
	err := s.ReadWith(func(tx kv.ReadTx) error {
		heads := kv.ReadTable(tx, eventsHeadsTable())
		return heads.ForEach(func(k authorShortKeyT, _ struct{}) error {
			if k.Author == author {
				out[k.Short] = true
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("read heads: %v", err)
	}
	return out
}

func missingSet(t *testing.T, s *kv.Store, author ids.RostraId) map[ids.ShortEventId]bool {
	t.Helper()
	out := map[ids.ShortEventId]bool{}
	err := s.ReadWith(func(tx kv.ReadTx) error {
		missing := kv.ReadTable(tx, eventsMissingTable())
		return missing.ForEach(func(k authorShortKeyT, _ MissingRecord) error {
			if k.Author == author {
				out[k.Short] = true
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("read missing: %v", err)
	}
	return out
}

// S1 - Chain insert in order.
func TestChainInsertInOrder(t *testing.T) {
	s := openTestDB(t)
	c := newChain(t)

	e1 := c.link(t, ids.ShortEventId{}, 1, []byte("one"))
	r1 := insert(t, s, e1)
	if r1.Outcome != Inserted || r1.WasMissing {
		t.Fatalf("unexpected e1 result: %+v", r1)
	}

	e2 := c.link(t, e1.ShortID(), 2, []byte("two"))
	insert(t, s, e2)

	e3 := c.link(t, e2.ShortID(), 3, []byte("three"))
	insert(t, s, e3)

	heads := headSet(t, s, c.author)
	if len(heads) != 1 || !heads[e3.ShortID()] {
		t.Fatalf("expected heads={e3}, got %v", heads)
	}
	if len(missingSet(t, s, c.author)) != 0 {
		t.Fatalf("expected no missing parents")
	}
}

// S2 - Out-of-order insert.
func TestOutOfOrderInsert(t *testing.T) {
	s := openTestDB(t)
	c := newChain(t)

	e1 := c.link(t, ids.ShortEventId{}, 1, []byte("one"))
	e2 := c.link(t, e1.ShortID(), 2, []byte("two"))
	e3 := c.link(t, e2.ShortID(), 3, []byte("three"))

	insert(t, s, e3)
	heads := headSet(t, s, c.author)
	if len(heads) != 1 || !heads[e3.ShortID()] {
		t.Fatalf("after e3: expected heads={e3}, got %v", heads)
	}
	missing := missingSet(t, s, c.author)
	if len(missing) != 1 || !missing[e2.ShortID()] {
		t.Fatalf("after e3: expected missing={e2}, got %v", missing)
	}

	insert(t, s, e1)
	heads = headSet(t, s, c.author)
	if len(heads) != 2 || !heads[e3.ShortID()] || !heads[e1.ShortID()] {
		t.Fatalf("after e1: expected heads={e3,e1}, got %v", heads)
	}
	missing = missingSet(t, s, c.author)
	if len(missing) != 1 || !missing[e2.ShortID()] {
		t.Fatalf("after e1: expected missing={e2}, got %v", missing)
	}

	insert(t, s, e2)
	heads = headSet(t, s, c.author)
	if len(heads) != 1 || !heads[e3.ShortID()] {
		t.Fatalf("after e2: expected heads={e3}, got %v", heads)
	}
	if len(missingSet(t, s, c.author)) != 0 {
		t.Fatalf("after e2: expected no missing parents")
	}
}

// S3 - Delete event.
func TestDeleteEvent(t *testing.T) {
	s := openTestDB(t)
	c := newChain(t)

	content := []byte("hello")
	e1 := c.link(t, ids.ShortEventId{}, 1, content)
	insert(t, s, e1)

	err := s.WriteWith(func(tx kv.WriteTx) error {
		vec, err := event.Verify(e1, content)
		if err != nil {
			return err
		}
		_, err = InsertEventContentTx(tx, vec, 1_000_000)
		return err
	})
	if err != nil {
		t.Fatalf("insert content: %v", err)
	}

	delEv := event.NewUnsigned(c.author, event.KindRaw, e1.ShortID(), ids.ShortEventId{}).WithDelete(e1.ShortID())
	delEv.Timestamp = 2
	signed, err := event.Sign(c.priv, delEv)
	if err != nil {
		t.Fatalf("sign delete: %v", err)
	}
	delVE, err := event.VerifyLocal(signed)
	if err != nil {
		t.Fatalf("verify delete: %v", err)
	}
	insert(t, s, delVE)

	var state ContentState
	err = s.ReadWith(func(tx kv.ReadTx) error {
		var ok bool
		var err error
		state, ok, err = GetEventContent(tx, e1.ShortID())
		if err != nil {
			return err
		}
		if !ok {
			t.Fatalf("expected content state to exist")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	if state.Kind != ContentDeleted || state.DeletedBy != delVE.ShortID() {
		t.Fatalf("expected Deleted{by: delEv}, got %+v", state)
	}

	err = s.WriteWith(func(tx kv.WriteTx) error {
		vec, err := event.Verify(e1, content)
		if err != nil {
			return err
		}
		ok, err := InsertEventContentTx(tx, vec, 1_000_000)
		if err != nil {
			return err
		}
		if ok {
			t.Fatalf("expected insert into a deleted slot to be a no-op")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("no-op insert: %v", err)
	}
}

// S4 - Oversize content.
func TestOversizeContentIsPruned(t *testing.T) {
	s := openTestDB(t)
	c := newChain(t)
	const maxLen = 16

	content := make([]byte, maxLen+1)
	e1 := c.link(t, ids.ShortEventId{}, 1, content)
	insert(t, s, e1)

	err := s.WriteWith(func(tx kv.WriteTx) error {
		vec, err := event.Verify(e1, content)
		if err != nil {
			return err
		}
		ok, err := InsertEventContentTx(tx, vec, maxLen)
		if err != nil {
			return err
		}
		if ok {
			t.Fatalf("expected oversize content to be rejected")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert content: %v", err)
	}

	var state ContentState
	err = s.ReadWith(func(tx kv.ReadTx) error {
		var ok bool
		var err error
		state, ok, err = GetEventContent(tx, e1.ShortID())
		if err != nil {
			return err
		}
		if !ok {
			t.Fatalf("expected a content row")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if state.Kind != ContentPruned {
		t.Fatalf("expected Pruned, got %+v", state)
	}
}

// S5 - Follow/unfollow reorder.
func TestFollowUnfollowReorder(t *testing.T) {
	s := openTestDB(t)
	a := newChain(t)
	b := newChain(t)

	err := s.WriteWith(func(tx kv.WriteTx) error {
		if _, err := ApplyUnfollowTx(tx, a.author, 10, event.UnfollowPayload{Target: b.author}); err != nil {
			return err
		}
		_, err := ApplyFollowTx(tx, a.author, ids.ShortEventId{5}, 5, event.FollowPayload{Target: b.author, Persona: 2})
		return err
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	err = s.ReadWith(func(tx kv.ReadTx) error {
		followees := kv.ReadTable(tx, idsFolloweesTable())
		if followees.Exists(pairKeyT{A: a.author, B: b.author}) {
			t.Fatalf("expected followees row to stay absent after a shadowed follow")
		}
		unfollowed := kv.ReadTable(tx, idsUnfollowedTable())
		if !unfollowed.Exists(unfollowKeyT{Follower: a.author, Followee: b.author, Timestamp: 10}) {
			t.Fatalf("expected unfollow tombstone at t=10")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
}

// Invariant 5 (head correctness, via S1/S2) and invariant 6 (deletion monotonicity) are
// exercised directly above; this test covers invariant 7 (follow LWW) with
// an in-order apply for symmetry with TestFollowUnfollowReorder.
func TestFollowLWWInOrder(t *testing.T) {
	s := openTestDB(t)
	a := newChain(t)
	b := newChain(t)

	err := s.WriteWith(func(tx kv.WriteTx) error {
		if _, err := ApplyFollowTx(tx, a.author, ids.ShortEventId{5}, 5, event.FollowPayload{Target: b.author, Persona: 1}); err != nil {
			return err
		}
		_, err := ApplyUnfollowTx(tx, a.author, 10, event.UnfollowPayload{Target: b.author})
		return err
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	err = s.ReadWith(func(tx kv.ReadTx) error {
		followees := kv.ReadTable(tx, idsFolloweesTable())
		if followees.Exists(pairKeyT{A: a.author, B: b.author}) {
			t.Fatalf("expected unfollow at t=10 to remove the earlier follow")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
}

// Invariant 3: insert idempotence.
func TestInsertIdempotence(t *testing.T) {
	s := openTestDB(t)
	c := newChain(t)
	e1 := c.link(t, ids.ShortEventId{}, 1, []byte("one"))

	r1 := insert(t, s, e1)
	if r1.Outcome != Inserted {
		t.Fatalf("expected first insert to succeed, got %+v", r1)
	}
	r2 := insert(t, s, e1)
	if r2.Outcome != AlreadyPresent {
		t.Fatalf("expected second insert to report AlreadyPresent, got %+v", r2)
	}
}
