package db

import (
	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/kv"
)

// ApplyDerivedContentTx decodes content according to kind and applies the
// derived table update (follow graph, profile) it implies. A decode
// failure is returned to the caller as an error but never rejects the
// event itself — callers are expected to log it at debug level and
// otherwise ignore it, per the event header/content having already been
// stored unconditionally by the time this runs.
func ApplyDerivedContentTx(tx kv.WriteTx, author ids.RostraId, short ids.ShortEventId, timestamp uint64, kind event.Kind, content []byte) (updated bool, err error) {
	switch kind {
	case event.KindFollow:
		p, err := event.DecodeFollow(content)
		if err != nil {
			return false, err
		}
		return ApplyFollowTx(tx, author, short, timestamp, p)
	case event.KindUnfollow:
		p, err := event.DecodeUnfollow(content)
		if err != nil {
			return false, err
		}
		return ApplyUnfollowTx(tx, author, timestamp, p)
	case event.KindProfileUpdate:
		p, err := event.DecodeProfile(content)
		if err != nil {
			return false, err
		}
		return ApplyProfileTx(tx, author, short, timestamp, p)
	default:
		return false, nil
	}
}
