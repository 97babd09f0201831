package db

import (
	"encoding/binary"
	"fmt"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
)

// encodeContentState / decodeContentState: kind(u8) + kind-specific payload.
func encodeContentState(s ContentState) ([]byte, error) {
	switch s.Kind {
	case ContentAbsent, ContentPruned:
		return []byte{byte(s.Kind)}, nil
	case ContentPresent:
		return append([]byte{byte(s.Kind)}, s.Bytes...), nil
	case ContentDeleted:
		return append([]byte{byte(s.Kind)}, s.DeletedBy[:]...), nil
	default:
		return nil, fmt.Errorf("db: unknown content state kind %d", s.Kind)
	}
}

func decodeContentState(b []byte) (ContentState, error) {
	if len(b) < 1 {
		return ContentState{}, fmt.Errorf("db: empty content state record")
	}
	kind := ContentStateKind(b[0])
	switch kind {
	case ContentAbsent, ContentPruned:
		return ContentState{Kind: kind}, nil
	case ContentPresent:
		return ContentState{Kind: kind, Bytes: append([]byte{}, b[1:]...)}, nil
	case ContentDeleted:
		if len(b) != 1+ids.ShortEventIdLen {
			return ContentState{}, fmt.Errorf("db: malformed deleted content record")
		}
		var by ids.ShortEventId
		copy(by[:], b[1:])
		return ContentState{Kind: kind, DeletedBy: by}, nil
	default:
		return ContentState{}, fmt.Errorf("db: unknown content state kind %d", kind)
	}
}

// encodeMissingRecord / decodeMissingRecord: has_deleted_by(u8) + [16]byte.
func encodeMissingRecord(r MissingRecord) ([]byte, error) {
	b := make([]byte, 1+ids.ShortEventIdLen)
	if r.HasDeletedBy {
		b[0] = 1
		copy(b[1:], r.DeletedBy[:])
	}
	return b, nil
}

func decodeMissingRecord(b []byte) (MissingRecord, error) {
	if len(b) != 1+ids.ShortEventIdLen {
		return MissingRecord{}, fmt.Errorf("db: malformed missing record")
	}
	var r MissingRecord
	r.HasDeletedBy = b[0] == 1
	copy(r.DeletedBy[:], b[1:])
	return r, nil
}

// encodeFollowRecord / decodeFollowRecord: persona(u16 LE) + timestamp(u64 LE) + event_id(16).
func encodeFollowRecord(r FollowRecord) ([]byte, error) {
	b := make([]byte, 10+ids.ShortEventIdLen)
	binary.LittleEndian.PutUint16(b, uint16(r.Persona))
	binary.LittleEndian.PutUint64(b[2:], r.Timestamp)
	copy(b[10:], r.EventID[:])
	return b, nil
}

func decodeFollowRecord(b []byte) (FollowRecord, error) {
	if len(b) != 10+ids.ShortEventIdLen {
		return FollowRecord{}, fmt.Errorf("db: malformed follow record")
	}
	var r FollowRecord
	r.Persona = ids.PersonaId(binary.LittleEndian.Uint16(b))
	r.Timestamp = binary.LittleEndian.Uint64(b[2:])
	copy(r.EventID[:], b[10:])
	return r, nil
}

// encodeProfileRecord / decodeProfileRecord: event_id(16) + timestamp(u64 LE) + profile payload.
func encodeProfileRecord(r ProfileRecord) ([]byte, error) {
	payload, err := event.EncodeProfile(r.Profile)
	if err != nil {
		return nil, err
	}
	head := make([]byte, ids.ShortEventIdLen+8)
	copy(head, r.EventID[:])
	binary.LittleEndian.PutUint64(head[ids.ShortEventIdLen:], r.Timestamp)
	return append(head, payload...), nil
}

func decodeProfileRecord(b []byte) (ProfileRecord, error) {
	if len(b) < ids.ShortEventIdLen+8 {
		return ProfileRecord{}, fmt.Errorf("db: malformed profile record")
	}
	var r ProfileRecord
	copy(r.EventID[:], b[:ids.ShortEventIdLen])
	r.Timestamp = binary.LittleEndian.Uint64(b[ids.ShortEventIdLen:])
	profile, err := event.DecodeProfile(b[ids.ShortEventIdLen+8:])
	if err != nil {
		return ProfileRecord{}, err
	}
	r.Profile = profile
	return r, nil
}
