/*
Package storage is the Storage Facade: the single owned handle through
which the rest of the node talks to the event database. It holds the
local identity, enforces the content-size policy, and fans out change
notifications through internal/notify's last-value broadcasters.

Every public method maps directly onto a teacher-style BoltStore method
(pkg/storage/boltdb.go) generalized to open a write or read transaction,
call into internal/db, and return — except here every mutation also
carries commit hooks for the broadcasters.
*/
package storage

import (
	"context"
	"fmt"

	"github.com/rostra-network/rostra/internal/db"
	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/kv"
	"github.com/rostra-network/rostra/internal/notify"
	"github.com/rostra-network/rostra/internal/rlog"
	"github.com/rostra-network/rostra/internal/rmetrics"
	"github.com/rs/zerolog"
)

// ProcessEventState is the derived outcome process_event reports, beyond
// the raw Inserted/AlreadyPresent split internal/db returns.
type ProcessEventState uint8

const (
	StateNew ProcessEventState = iota
	StateExisting
	StatePruned
	StateDeleted
)

// ContentWant is the result of WantsContent.
type ContentWant uint8

const (
	Wants ContentWant = iota
	MaybeWants
	DoesNotWant
)

// Facade is the async front to the event database.
type Facade struct {
	store         *kv.Store
	self          ids.RostraId
	maxContentLen int

	selfHeadUpdated       *notify.LastValue[*ids.ShortEventId]
	selfFolloweesUpdated  *notify.LastValue[struct{}]

	logger zerolog.Logger
}

// New builds a Facade over an already-open store.
func New(store *kv.Store, self ids.RostraId, maxContentLen int) *Facade {
	return &Facade{
		store:                store,
		self:                 self,
		maxContentLen:        maxContentLen,
		selfHeadUpdated:      notify.NewLastValue[*ids.ShortEventId](),
		selfFolloweesUpdated: notify.NewLastValue[struct{}](),
		logger:               rlog.WithComponent("storage"),
	}
}

// HasEvent reports whether short is stored.
func (f *Facade) HasEvent(ctx context.Context, short ids.ShortEventId) (bool, error) {
	var ok bool
	err := f.store.ReadWith(func(tx kv.ReadTx) error {
		var err error
		ok, err = db.HasEvent(tx, short)
		return err
	})
	return ok, err
}

// GetEvent returns the stored SignedEvent for short, if any.
func (f *Facade) GetEvent(ctx context.Context, short ids.ShortEventId) (event.SignedEvent, bool, error) {
	var se event.SignedEvent
	var ok bool
	err := f.store.ReadWith(func(tx kv.ReadTx) error {
		var err error
		se, ok, err = db.GetEvent(tx, short)
		return err
	})
	return se, ok, err
}

// GetEventContent returns present content bytes for short, if any. It
// returns ok=false for Absent, Deleted, and Pruned states alike; callers
// that need to distinguish those should use WantsContent first.
func (f *Facade) GetEventContent(ctx context.Context, short ids.ShortEventId) ([]byte, bool, error) {
	var state db.ContentState
	var found bool
	err := f.store.ReadWith(func(tx kv.ReadTx) error {
		var err error
		state, found, err = db.GetEventContent(tx, short)
		return err
	})
	if err != nil || !found || state.Kind != db.ContentPresent {
		return nil, false, err
	}
	return state.Bytes, true, nil
}

// GetHead returns author's current head; it is used both to answer
// incoming peer requests (see internal/rpc.Source) and to advertise the
// local node's own head. For any known author it is the same
// CurrentHead lookup the facade does for itself.
func (f *Facade) GetHead(ctx context.Context, author ids.RostraId) (ids.ShortEventId, bool, error) {
	var short ids.ShortEventId
	var ok bool
	err := f.store.ReadWith(func(tx kv.ReadTx) error {
		var err error
		short, ok, err = db.CurrentHead(tx, author)
		return err
	})
	return short, ok, err
}

// GetSelfCurrentHead returns the local author's current head.
func (f *Facade) GetSelfCurrentHead(ctx context.Context) (ids.ShortEventId, bool, error) {
	var short ids.ShortEventId
	var ok bool
	err := f.store.ReadWith(func(tx kv.ReadTx) error {
		var err error
		short, ok, err = db.CurrentHead(tx, f.self)
		return err
	})
	return short, ok, err
}

// GetSelfRandomEventID returns an arbitrary locally-authored event id.
func (f *Facade) GetSelfRandomEventID(ctx context.Context) (ids.ShortEventId, bool, error) {
	var short ids.ShortEventId
	var ok bool
	err := f.store.ReadWith(func(tx kv.ReadTx) error {
		var err error
		short, ok, err = db.RandomSelfEventID(tx)
		return err
	})
	return short, ok, err
}

// GetSelfFollowees lists who the local author follows.
func (f *Facade) GetSelfFollowees(ctx context.Context) ([]ids.RostraId, error) {
	var out []ids.RostraId
	err := f.store.ReadWith(func(tx kv.ReadTx) error {
		var err error
		out, err = db.ListFollowees(tx, f.self)
		return err
	})
	return out, err
}

// SubscribeSelfHeadUpdated subscribes to the last-value self head
// broadcaster.
func (f *Facade) SubscribeSelfHeadUpdated() notify.Subscription[*ids.ShortEventId] {
	return f.selfHeadUpdated.Subscribe()
}

// SubscribeSelfFolloweesUpdated subscribes to the last-value followee-set
// broadcaster.
func (f *Facade) SubscribeSelfFolloweesUpdated() notify.Subscription[struct{}] {
	return f.selfFolloweesUpdated.Subscribe()
}

// ProcessEvent inserts a verified event header, enforcing the content-size
// policy and firing the self-head broadcaster when appropriate. It is the
// single entry point used both for locally authored events and events
// pulled from peers.
func (f *Facade) ProcessEvent(ctx context.Context, ve event.VerifiedEvent) (ProcessEventState, []ids.ShortEventId, error) {
	var state ProcessEventState
	var missingParents []ids.ShortEventId

	err := f.store.WriteWith(func(tx kv.WriteTx) error {
		res, err := db.InsertEventTx(tx, ve)
		if err != nil {
			return err
		}

		if res.Outcome == db.AlreadyPresent {
			state = StateExisting
			return nil
		}
		missingParents = res.MissingParents

		if n := len(res.MissingParents); n > 0 {
			tx.OnCommit(func() { rmetrics.MissingParentsGauge.Add(float64(n)) })
		}
		if res.WasMissing {
			tx.OnCommit(func() { rmetrics.MissingParentsGauge.Dec() })
		}

		if ve.Author() == f.self {
			tx.OnCommit(func() { f.logger.Debug().Msg("marking self event") })
			if err := db.MarkSelfEventTx(tx, ve.ShortID()); err != nil {
				return err
			}
			if !res.WasMissing {
				short := ve.ShortID()
				tx.OnCommit(func() { f.selfHeadUpdated.Publish(&short) })
			}
		}

		switch {
		case ve.Event().ContentLen > uint32(f.maxContentLen):
			if err := db.PruneContentTx(tx, ve.ShortID()); err != nil {
				return err
			}
			state = StatePruned
			tx.OnCommit(func() { rmetrics.ContentPrunedTotal.Inc() })
		case res.IsDeleted:
			state = StateDeleted
		default:
			state = StateNew
		}

		kindLabel := fmt.Sprintf("%d", ve.Event().Kind)
		tx.OnCommit(func() { rmetrics.EventsInsertedTotal.WithLabelValues(kindLabel).Inc() })
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	if state == StateExisting {
		rmetrics.EventsAlreadyPresentTotal.Inc()
	}
	return state, missingParents, err
}

// ProcessEventContent stores verified content and applies any derived
// follow/unfollow/profile update its kind implies.
func (f *Facade) ProcessEventContent(ctx context.Context, ve event.VerifiedEvent, vec event.VerifiedEventContent) (bool, error) {
	var stored bool
	err := f.store.WriteWith(func(tx kv.WriteTx) error {
		var err error
		stored, err = db.InsertEventContentTx(tx, vec, f.maxContentLen)
		if err != nil || !stored {
			return err
		}
		n := len(vec.Bytes())
		tx.OnCommit(func() { rmetrics.ContentStoredBytesTotal.Add(float64(n)) })

		ev := ve.Event()
		updated, err := db.ApplyDerivedContentTx(tx, ve.Author(), ve.ShortID(), ev.Timestamp, ev.Kind, vec.Bytes())
		if err != nil {
			f.logger.Debug().Err(err).Msg("dropping malformed derived content")
			return nil
		}
		if updated && ve.Author() == f.self && (ev.Kind == event.KindFollow || ev.Kind == event.KindUnfollow) {
			tx.OnCommit(func() { f.selfFolloweesUpdated.Publish(struct{}{}) })
		}
		return nil
	})
	return stored, err
}

// ProcessEventWithContent is a convenience combining ProcessEvent and
// ProcessEventContent for a caller that already has both pieces in hand.
func (f *Facade) ProcessEventWithContent(ctx context.Context, ve event.VerifiedEvent, vec event.VerifiedEventContent) (ProcessEventState, error) {
	state, _, err := f.ProcessEvent(ctx, ve)
	if err != nil {
		return 0, err
	}
	if state == StateNew {
		if _, err := f.ProcessEventContent(ctx, ve, vec); err != nil {
			return state, err
		}
	}
	return state, nil
}

// WantsContent reports whether content for short is worth fetching, given
// the ProcessEventState its header insertion returned: New skips the DB
// check entirely, Existing consults current content state, and
// Pruned/Deleted never want anything.
func (f *Facade) WantsContent(ctx context.Context, short ids.ShortEventId, state ProcessEventState) (ContentWant, error) {
	switch state {
	case StateNew:
		return Wants, nil
	case StatePruned, StateDeleted:
		return DoesNotWant, nil
	}

	var contentState db.ContentState
	var found bool
	err := f.store.ReadWith(func(tx kv.ReadTx) error {
		var err error
		contentState, found, err = db.GetEventContent(tx, short)
		return err
	})
	if err != nil {
		return DoesNotWant, err
	}
	if !found || contentState.Kind == db.ContentAbsent {
		return Wants, nil
	}
	return DoesNotWant, nil
}
