package db

import (
	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/kv"
)

// ApplyProfileTx records a decoded PROFILE_UPDATE payload as author's latest
// profile, last-writer-wins by (timestamp, short id) exactly like follow
// records. It reports whether the stored profile changed.
func ApplyProfileTx(tx kv.WriteTx, author ids.RostraId, short ids.ShortEventId, timestamp uint64, p event.ProfilePayload) (updated bool, err error) {
	profiles := kv.WriteTable(tx, idSocialProfileTable())
	existing, ok, err := profiles.Get(author)
	if err != nil {
		return false, err
	}
	if ok && !newer(timestamp, short, existing.Timestamp, existing.EventID) {
		return false, nil
	}
	rec := ProfileRecord{EventID: short, Timestamp: timestamp, Profile: p}
	if err := profiles.Put(author, rec); err != nil {
		return false, err
	}
	return true, nil
}

// GetProfile returns author's latest known profile.
func GetProfile(tx kv.ReadTx, author ids.RostraId) (ProfileRecord, bool, error) {
	profiles := kv.ReadTable(tx, idSocialProfileTable())
	return profiles.Get(author)
}
