/*
Package db implements the event graph's table schema and the atomic
multi-table operations that insert events and content, maintain the
per-author head set and missing-parent tracking, and apply follow and
profile updates. It is built directly on internal/kv: every exported
function takes the caller's write (or read) transaction, binds the tables
it needs, and returns, so a caller can group several of them into one
atomic transaction.
*/
package db

import (
	"encoding/binary"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/kv"
)

var (
	bucketEvents         = []byte("events")
	bucketEventsContent  = []byte("events_content")
	bucketEventsByTime   = []byte("events_by_time")
	bucketEventsSelf     = []byte("events_self")
	bucketEventsHeads    = []byte("events_heads")
	bucketEventsMissing  = []byte("events_missing")
	bucketIdsFollowees   = []byte("ids_followees")
	bucketIdsFollowers   = []byte("ids_followers")
	bucketIdsUnfollowed  = []byte("ids_unfollowed")
	bucketIdSocialProfile = []byte("id_social_profile")
	bucketNodeSecret     = []byte("node_secret")
)

// Buckets lists every bucket the schema needs; pass this to kv.Open.
var Buckets = [][]byte{
	bucketEvents,
	bucketEventsContent,
	bucketEventsByTime,
	bucketEventsSelf,
	bucketEventsHeads,
	bucketEventsMissing,
	bucketIdsFollowees,
	bucketIdsFollowers,
	bucketIdsUnfollowed,
	bucketIdSocialProfile,
	bucketNodeSecret,
}

// SchemaVersion is the current on-disk schema version.
const SchemaVersion = 1

// ContentStateKind tags the lattice position of a content row.
type ContentStateKind uint8

const (
	ContentAbsent ContentStateKind = iota
	ContentPresent
	ContentDeleted
	ContentPruned
)

// ContentState is the stored value of the events_content table.
type ContentState struct {
	Kind      ContentStateKind
	Bytes     []byte            // only meaningful when Kind == ContentPresent
	DeletedBy ids.ShortEventId  // only meaningful when Kind == ContentDeleted
}

// MissingRecord is the stored value of the events_missing table.
type MissingRecord struct {
	DeletedBy    ids.ShortEventId
	HasDeletedBy bool
}

// FollowRecord is the stored value of ids_followees / ids_followers.
type FollowRecord struct {
	Persona   ids.PersonaId
	Timestamp uint64
	EventID   ids.ShortEventId
}

// ProfileRecord is the stored value of id_social_profile.
type ProfileRecord struct {
	EventID   ids.ShortEventId
	Timestamp uint64
	Profile   event.ProfilePayload
}

// --- key encodings -------------------------------------------------------

func encodeShortEventId(id ids.ShortEventId) []byte { return append([]byte{}, id[:]...) }
func decodeShortEventId(b []byte) (ids.ShortEventId, error) {
	var id ids.ShortEventId
	copy(id[:], b)
	return id, nil
}

func encodeRostraId(id ids.RostraId) []byte { return append([]byte{}, id[:]...) }
func decodeRostraId(b []byte) (ids.RostraId, error) {
	var id ids.RostraId
	copy(id[:], b)
	return id, nil
}

// authorShortKey concatenates an author id and a short event id, used as
// the key for per-author tables (events_heads, events_missing).
func authorShortKey(author ids.RostraId, short ids.ShortEventId) []byte {
	b := make([]byte, ids.RostraIdLen+ids.ShortEventIdLen)
	copy(b, author[:])
	copy(b[ids.RostraIdLen:], short[:])
	return b
}

func decodeAuthorShortKey(b []byte) (ids.RostraId, ids.ShortEventId, error) {
	var author ids.RostraId
	var short ids.ShortEventId
	copy(author[:], b[:ids.RostraIdLen])
	copy(short[:], b[ids.RostraIdLen:])
	return author, short, nil
}

// pairKey concatenates two RostraIds, used for ids_followees/ids_followers.
func pairKey(a, b ids.RostraId) []byte {
	out := make([]byte, ids.RostraIdLen*2)
	copy(out, a[:])
	copy(out[ids.RostraIdLen:], b[:])
	return out
}

func decodePairKey(b []byte) (ids.RostraId, ids.RostraId, error) {
	var a, c ids.RostraId
	copy(a[:], b[:ids.RostraIdLen])
	copy(c[:], b[ids.RostraIdLen:])
	return a, c, nil
}

// timeKey encodes (timestamp, short id) big-endian so byte order sorts by
// timestamp, ascending, then short id.
func timeKey(ts uint64, short ids.ShortEventId) []byte {
	b := make([]byte, 8+ids.ShortEventIdLen)
	binary.BigEndian.PutUint64(b, ts)
	copy(b[8:], short[:])
	return b
}

// unfollowKey encodes (follower, followee, timestamp).
func unfollowKey(follower, followee ids.RostraId, ts uint64) []byte {
	b := make([]byte, ids.RostraIdLen*2+8)
	copy(b, follower[:])
	copy(b[ids.RostraIdLen:], followee[:])
	binary.BigEndian.PutUint64(b[ids.RostraIdLen*2:], ts)
	return b
}

// --- table specs ---------------------------------------------------------

func eventsTable() kv.TableSpec[ids.ShortEventId, event.SignedEvent] {
	return kv.TableSpec[ids.ShortEventId, event.SignedEvent]{
		Bucket:    bucketEvents,
		EncodeKey: encodeShortEventId,
		DecodeKey: decodeShortEventId,
		EncodeVal: func(se event.SignedEvent) ([]byte, error) {
			return event.EncodeSigned(se), nil
		},
		DecodeVal: event.DecodeSigned,
	}
}

func eventsContentTable() kv.TableSpec[ids.ShortEventId, ContentState] {
	return kv.TableSpec[ids.ShortEventId, ContentState]{
		Bucket:    bucketEventsContent,
		EncodeKey: encodeShortEventId,
		DecodeKey: decodeShortEventId,
		EncodeVal: encodeContentState,
		DecodeVal: decodeContentState,
	}
}

func eventsByTimeTable() kv.TableSpec[timeKeyT, struct{}] {
	return kv.TableSpec[timeKeyT, struct{}]{
		Bucket:    bucketEventsByTime,
		EncodeKey: func(k timeKeyT) []byte { return timeKey(k.Timestamp, k.Short) },
		DecodeKey: func(b []byte) (timeKeyT, error) {
			var k timeKeyT
			k.Timestamp = binary.BigEndian.Uint64(b[:8])
			copy(k.Short[:], b[8:])
			return k, nil
		},
		EncodeVal: func(struct{}) ([]byte, error) { return []byte{}, nil },
		DecodeVal: func([]byte) (struct{}, error) { return struct{}{}, nil },
	}
}

// timeKeyT is the composite key of events_by_time.
type timeKeyT struct {
	Timestamp uint64
	Short     ids.ShortEventId
}

func eventsSelfTable() kv.TableSpec[ids.ShortEventId, struct{}] {
	return kv.TableSpec[ids.ShortEventId, struct{}]{
		Bucket:    bucketEventsSelf,
		EncodeKey: encodeShortEventId,
		DecodeKey: decodeShortEventId,
		EncodeVal: func(struct{}) ([]byte, error) { return []byte{}, nil },
		DecodeVal: func([]byte) (struct{}, error) { return struct{}{}, nil },
	}
}

// authorShortKeyT is the composite key shared by events_heads and
// events_missing.
type authorShortKeyT struct {
	Author ids.RostraId
	Short  ids.ShortEventId
}

func eventsHeadsTable() kv.TableSpec[authorShortKeyT, struct{}] {
	return kv.TableSpec[authorShortKeyT, struct{}]{
		Bucket:    bucketEventsHeads,
		EncodeKey: func(k authorShortKeyT) []byte { return authorShortKey(k.Author, k.Short) },
		DecodeKey: func(b []byte) (authorShortKeyT, error) {
			a, s, err := decodeAuthorShortKey(b)
			return authorShortKeyT{Author: a, Short: s}, err
		},
		EncodeVal: func(struct{}) ([]byte, error) { return []byte{}, nil },
		DecodeVal: func([]byte) (struct{}, error) { return struct{}{}, nil },
	}
}

func eventsMissingTable() kv.TableSpec[authorShortKeyT, MissingRecord] {
	return kv.TableSpec[authorShortKeyT, MissingRecord]{
		Bucket:    bucketEventsMissing,
		EncodeKey: func(k authorShortKeyT) []byte { return authorShortKey(k.Author, k.Short) },
		DecodeKey: func(b []byte) (authorShortKeyT, error) {
			a, s, err := decodeAuthorShortKey(b)
			return authorShortKeyT{Author: a, Short: s}, err
		},
		EncodeVal: encodeMissingRecord,
		DecodeVal: decodeMissingRecord,
	}
}

// pairKeyT is the composite key of ids_followees / ids_followers.
type pairKeyT struct {
	A, B ids.RostraId
}

func idsFolloweesTable() kv.TableSpec[pairKeyT, FollowRecord] {
	return kv.TableSpec[pairKeyT, FollowRecord]{
		Bucket:    bucketIdsFollowees,
		EncodeKey: func(k pairKeyT) []byte { return pairKey(k.A, k.B) },
		DecodeKey: func(b []byte) (pairKeyT, error) {
			a, c, err := decodePairKey(b)
			return pairKeyT{A: a, B: c}, err
		},
		EncodeVal: encodeFollowRecord,
		DecodeVal: decodeFollowRecord,
	}
}

func idsFollowersTable() kv.TableSpec[pairKeyT, FollowRecord] {
	return kv.TableSpec[pairKeyT, FollowRecord]{
		Bucket:    bucketIdsFollowers,
		EncodeKey: func(k pairKeyT) []byte { return pairKey(k.A, k.B) },
		DecodeKey: func(b []byte) (pairKeyT, error) {
			a, c, err := decodePairKey(b)
			return pairKeyT{A: a, B: c}, err
		},
		EncodeVal: encodeFollowRecord,
		DecodeVal: decodeFollowRecord,
	}
}

// unfollowKeyT is the composite key of ids_unfollowed.
type unfollowKeyT struct {
	Follower, Followee ids.RostraId
	Timestamp          uint64
}

func idsUnfollowedTable() kv.TableSpec[unfollowKeyT, struct{}] {
	return kv.TableSpec[unfollowKeyT, struct{}]{
		Bucket: bucketIdsUnfollowed,
		EncodeKey: func(k unfollowKeyT) []byte {
			return unfollowKey(k.Follower, k.Followee, k.Timestamp)
		},
		DecodeKey: func(b []byte) (unfollowKeyT, error) {
			var k unfollowKeyT
			copy(k.Follower[:], b[:ids.RostraIdLen])
			copy(k.Followee[:], b[ids.RostraIdLen:ids.RostraIdLen*2])
			k.Timestamp = binary.BigEndian.Uint64(b[ids.RostraIdLen*2:])
			return k, nil
		},
		EncodeVal: func(struct{}) ([]byte, error) { return []byte{}, nil },
		DecodeVal: func([]byte) (struct{}, error) { return struct{}{}, nil },
	}
}

func idSocialProfileTable() kv.TableSpec[ids.RostraId, ProfileRecord] {
	return kv.TableSpec[ids.RostraId, ProfileRecord]{
		Bucket:    bucketIdSocialProfile,
		EncodeKey: encodeRostraId,
		DecodeKey: decodeRostraId,
		EncodeVal: encodeProfileRecord,
		DecodeVal: decodeProfileRecord,
	}
}

func nodeSecretTable() kv.TableSpec[struct{}, []byte] {
	return kv.TableSpec[struct{}, []byte]{
		Bucket:    bucketNodeSecret,
		EncodeKey: func(struct{}) []byte { return []byte("secret") },
		DecodeKey: func([]byte) (struct{}, error) { return struct{}{}, nil },
		EncodeVal: func(b []byte) ([]byte, error) { return b, nil },
		DecodeVal: func(b []byte) ([]byte, error) { return b, nil },
	}
}
