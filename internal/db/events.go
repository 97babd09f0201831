package db

import (
	"fmt"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/kv"
)

// Outcome is the coarse result of InsertEventTx.
type Outcome uint8

const (
	Inserted Outcome = iota
	AlreadyPresent
)

// InsertResult is the full result of InsertEventTx.
type InsertResult struct {
	Outcome        Outcome
	WasMissing     bool
	IsDeleted      bool
	MissingParents []ids.ShortEventId
}

// InsertEventTx applies ve's header to the events, events_by_time,
// events_heads and events_missing tables, and performs any deletion this
// event requests. ve must already have passed signature verification;
// InsertEventTx never re-verifies anything.
func InsertEventTx(tx kv.WriteTx, ve event.VerifiedEvent) (InsertResult, error) {
	ev := ve.Event()
	short := ve.ShortID()
	author := ve.Author()

	events := kv.WriteTable(tx, eventsTable())
	if events.Exists(short) {
		return InsertResult{Outcome: AlreadyPresent}, nil
	}
	if err := events.Put(short, ve.Signed()); err != nil {
		return InsertResult{}, fmt.Errorf("db: write event: %w", err)
	}

	byTime := kv.WriteTable(tx, eventsByTimeTable())
	if err := byTime.Put(timeKeyT{Timestamp: ev.Timestamp, Short: short}, struct{}{}); err != nil {
		return InsertResult{}, fmt.Errorf("db: write time index: %w", err)
	}

	missing := kv.WriteTable(tx, eventsMissingTable())
	heads := kv.WriteTable(tx, eventsHeadsTable())
	content := kv.WriteTable(tx, eventsContentTable())

	var missingParents []ids.ShortEventId
	for _, p := range ev.Parents() {
		if p.IsZero() {
			continue
		}
		if !events.Exists(p) {
			key := authorShortKeyT{Author: author, Short: p}
			existing, ok, err := missing.Get(key)
			if err != nil {
				return InsertResult{}, err
			}
			rec := existing
			if !ok {
				rec = MissingRecord{}
			}
			if !rec.HasDeletedBy && ev.IsDelete() && p == ev.ParentAux {
				rec.HasDeletedBy = true
				rec.DeletedBy = short
			}
			if err := missing.Put(key, rec); err != nil {
				return InsertResult{}, err
			}
			if !ok {
				missingParents = append(missingParents, p)
			}
		}

		if ev.IsDelete() && p == ev.ParentAux {
			state, ok, err := content.Get(p)
			if err != nil {
				return InsertResult{}, err
			}
			if events.Exists(p) && (!ok || state.Kind == ContentAbsent || state.Kind == ContentPresent) {
				if err := content.Put(p, ContentState{Kind: ContentDeleted, DeletedBy: short}); err != nil {
					return InsertResult{}, err
				}
			}
		}

		if err := heads.Delete(authorShortKeyT{Author: author, Short: p}); err != nil {
			return InsertResult{}, err
		}
	}

	selfKey := authorShortKeyT{Author: author, Short: short}
	wasMissingRec, wasMissing, err := missing.Get(selfKey)
	if err != nil {
		return InsertResult{}, err
	}
	if wasMissing {
		if err := missing.Delete(selfKey); err != nil {
			return InsertResult{}, err
		}
		if wasMissingRec.HasDeletedBy {
			if err := content.Put(short, ContentState{Kind: ContentDeleted, DeletedBy: wasMissingRec.DeletedBy}); err != nil {
				return InsertResult{}, err
			}
		}
	}

	if !wasMissing {
		if err := heads.Put(selfKey, struct{}{}); err != nil {
			return InsertResult{}, err
		}
	}

	finalState, ok, err := content.Get(short)
	if err != nil {
		return InsertResult{}, err
	}
	isDeleted := ok && finalState.Kind == ContentDeleted

	return InsertResult{
		Outcome:        Inserted,
		WasMissing:     wasMissing,
		IsDeleted:      isDeleted,
		MissingParents: missingParents,
	}, nil
}

// PruneContentTx transitions short's content state to Pruned, unless it is
// already Deleted (a terminal state that must never revert).
func PruneContentTx(tx kv.WriteTx, short ids.ShortEventId) error {
	content := kv.WriteTable(tx, eventsContentTable())
	state, ok, err := content.Get(short)
	if err != nil {
		return err
	}
	if ok && state.Kind == ContentDeleted {
		return nil
	}
	return content.Put(short, ContentState{Kind: ContentPruned})
}

// InsertEventContentTx stores verified content for an event already present
// in the events table, subject to the size ceiling maxContentLen. It
// returns true iff the content state transitioned to Present.
func InsertEventContentTx(tx kv.WriteTx, vec event.VerifiedEventContent, maxContentLen int) (bool, error) {
	short := vec.ShortID()
	content := kv.WriteTable(tx, eventsContentTable())
	state, ok, err := content.Get(short)
	if err != nil {
		return false, err
	}
	if ok && (state.Kind == ContentDeleted || state.Kind == ContentPruned || state.Kind == ContentPresent) {
		return false, nil
	}
	if len(vec.Bytes()) > maxContentLen {
		return false, content.Put(short, ContentState{Kind: ContentPruned})
	}
	if err := content.Put(short, ContentState{Kind: ContentPresent, Bytes: vec.Bytes()}); err != nil {
		return false, err
	}
	return true, nil
}

// HasEvent reports whether short is stored, regardless of content state.
func HasEvent(tx kv.ReadTx, short ids.ShortEventId) (bool, error) {
	events := kv.ReadTable(tx, eventsTable())
	return events.Exists(short), nil
}

// GetEvent returns the stored SignedEvent for short, if any.
func GetEvent(tx kv.ReadTx, short ids.ShortEventId) (event.SignedEvent, bool, error) {
	events := kv.ReadTable(tx, eventsTable())
	return events.Get(short)
}

// GetEventContent returns the stored content state for short.
func GetEventContent(tx kv.ReadTx, short ids.ShortEventId) (ContentState, bool, error) {
	content := kv.ReadTable(tx, eventsContentTable())
	return content.Get(short)
}

// CurrentHead returns author's current head: the smallest ShortEventId
// among the elements of its head set, for determinism when more than one
// exists. Returns ok=false if the author has no stored events.
func CurrentHead(tx kv.ReadTx, author ids.RostraId) (ids.ShortEventId, bool, error) {
	heads := kv.ReadTable(tx, eventsHeadsTable())
	var best ids.ShortEventId
	found := false
	err := heads.ForEach(func(k authorShortKeyT, _ struct{}) error {
		if k.Author != author {
			return nil
		}
		if !found || k.Short.Less(best) {
			best = k.Short
			found = true
		}
		return nil
	})
	if err != nil {
		return ids.ShortEventId{}, false, err
	}
	return best, found, nil
}

// RandomSelfEventID returns an arbitrary event id authored locally, used to
// advertise liveness to peers without revealing the actual head. Returns
// ok=false if no self event has been inserted yet.
func RandomSelfEventID(tx kv.ReadTx) (ids.ShortEventId, bool, error) {
	self := kv.ReadTable(tx, eventsSelfTable())
	var found ids.ShortEventId
	ok := false
	err := self.ForEach(func(k ids.ShortEventId, _ struct{}) error {
		if !ok {
			found = k
			ok = true
		}
		return nil
	})
	return found, ok, err
}

// MarkSelfEventTx records short as authored by the local node.
func MarkSelfEventTx(tx kv.WriteTx, short ids.ShortEventId) error {
	self := kv.WriteTable(tx, eventsSelfTable())
	return self.Put(short, struct{}{})
}

// GetNodeSecretTx reads the sealed transport secret, if one has been
// persisted yet.
func GetNodeSecretTx(tx kv.ReadTx) ([]byte, bool, error) {
	return kv.ReadTable(tx, nodeSecretTable()).Get(struct{}{})
}

// PutNodeSecretTx persists a sealed transport secret.
func PutNodeSecretTx(tx kv.WriteTx, sealed []byte) error {
	return kv.WriteTable(tx, nodeSecretTable()).Put(struct{}{}, sealed)
}
