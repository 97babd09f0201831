package db

import (
	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/kv"
)

// newer reports whether (ts, short) strictly postdates the stored record
// (ts2, short2), comparing timestamp first and then the short id
// lexicographically, matching the follow last-writer-wins rule.
func newer(ts uint64, short ids.ShortEventId, ts2 uint64, short2 ids.ShortEventId) bool {
	if ts != ts2 {
		return ts > ts2
	}
	return short2.Less(short)
}

// ApplyFollowTx applies a decoded FOLLOW payload from a verified event
// authored by author at the given timestamp/short id. It writes
// ids_followees/ids_followers when the event is not shadowed by an unfollow
// at the same or a later timestamp or by a newer existing follow record,
// and reports whether any
// visible row changed.
func ApplyFollowTx(tx kv.WriteTx, author ids.RostraId, short ids.ShortEventId, timestamp uint64, p event.FollowPayload) (updated bool, err error) {
	unfollowed := kv.WriteTable(tx, idsUnfollowedTable())
	shadowed, err := isShadowedByUnfollow(unfollowed, author, p.Target, timestamp)
	if err != nil {
		return false, err
	}
	if shadowed {
		return false, nil
	}

	followees := kv.WriteTable(tx, idsFolloweesTable())
	key := pairKeyT{A: author, B: p.Target}
	existing, ok, err := followees.Get(key)
	if err != nil {
		return false, err
	}
	if ok && !newer(timestamp, short, existing.Timestamp, existing.EventID) {
		return false, nil
	}

	rec := FollowRecord{Persona: p.Persona, Timestamp: timestamp, EventID: short}
	if err := followees.Put(key, rec); err != nil {
		return false, err
	}
	followers := kv.WriteTable(tx, idsFollowersTable())
	if err := followers.Put(pairKeyT{A: p.Target, B: author}, rec); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyUnfollowTx applies a decoded UNFOLLOW payload, removing the
// followees/followers rows when not shadowed by a newer record, and always
// recording a tombstone so future reordered FOLLOW events can be shadowed
// in turn.
func ApplyUnfollowTx(tx kv.WriteTx, author ids.RostraId, timestamp uint64, p event.UnfollowPayload) (updated bool, err error) {
	unfollowed := kv.WriteTable(tx, idsUnfollowedTable())
	if err := unfollowed.Put(unfollowKeyT{Follower: author, Followee: p.Target, Timestamp: timestamp}, struct{}{}); err != nil {
		return false, err
	}

	followees := kv.WriteTable(tx, idsFolloweesTable())
	key := pairKeyT{A: author, B: p.Target}
	existing, ok, err := followees.Get(key)
	if err != nil {
		return false, err
	}
	if !ok || existing.Timestamp > timestamp {
		return false, nil
	}

	if err := followees.Delete(key); err != nil {
		return false, err
	}
	followers := kv.WriteTable(tx, idsFollowersTable())
	if err := followers.Delete(pairKeyT{A: p.Target, B: author}); err != nil {
		return false, err
	}
	return true, nil
}

func isShadowedByUnfollow(unfollowed kv.Table[unfollowKeyT, struct{}], follower, followee ids.RostraId, ts uint64) (bool, error) {
	shadowed := false
	err := unfollowed.ForEach(func(k unfollowKeyT, _ struct{}) error {
		if k.Follower == follower && k.Followee == followee && k.Timestamp >= ts {
			shadowed = true
		}
		return nil
	})
	return shadowed, err
}

// ListFollowees returns every account author follows.
func ListFollowees(tx kv.ReadTx, author ids.RostraId) ([]ids.RostraId, error) {
	followees := kv.ReadTable(tx, idsFolloweesTable())
	var out []ids.RostraId
	err := followees.ForEach(func(k pairKeyT, _ FollowRecord) error {
		if k.A == author {
			out = append(out, k.B)
		}
		return nil
	})
	return out, err
}
