package event

import (
	"encoding/binary"
	"fmt"

	"github.com/rostra-network/rostra/internal/ids"
)

// Content payload codecs for the reserved kinds. These share the event
// header's length-prefixed-field convention but are decoded lazily, only
// once content is available, and only to drive a *derived* database
// update (follow graph, profile table) — a decode failure never rejects
// the event itself, per the error handling design: the header and content
// are still stored verbatim.

// FollowPayload is the content of a FOLLOW event.
type FollowPayload struct {
	Target  ids.RostraId
	Persona ids.PersonaId
}

// EncodeFollow serializes a FollowPayload: target(32) + persona(u16 LE).
func EncodeFollow(p FollowPayload) []byte {
	buf := make([]byte, ids.RostraIdLen+2)
	copy(buf, p.Target[:])
	binary.LittleEndian.PutUint16(buf[ids.RostraIdLen:], uint16(p.Persona))
	return buf
}

// DecodeFollow parses a FOLLOW event's content.
func DecodeFollow(b []byte) (FollowPayload, error) {
	if len(b) != ids.RostraIdLen+2 {
		return FollowPayload{}, fmt.Errorf("event: malformed follow payload: want %d bytes, got %d", ids.RostraIdLen+2, len(b))
	}
	var p FollowPayload
	copy(p.Target[:], b[:ids.RostraIdLen])
	p.Persona = ids.PersonaId(binary.LittleEndian.Uint16(b[ids.RostraIdLen:]))
	return p, nil
}

// UnfollowPayload is the content of an UNFOLLOW event.
type UnfollowPayload struct {
	Target ids.RostraId
}

// EncodeUnfollow serializes an UnfollowPayload: target(32).
func EncodeUnfollow(p UnfollowPayload) []byte {
	buf := make([]byte, ids.RostraIdLen)
	copy(buf, p.Target[:])
	return buf
}

// DecodeUnfollow parses an UNFOLLOW event's content.
func DecodeUnfollow(b []byte) (UnfollowPayload, error) {
	if len(b) != ids.RostraIdLen {
		return UnfollowPayload{}, fmt.Errorf("event: malformed unfollow payload: want %d bytes, got %d", ids.RostraIdLen, len(b))
	}
	var p UnfollowPayload
	copy(p.Target[:], b)
	return p, nil
}

const (
	maxDisplayNameLen = 128
	maxBioLen         = 4096
)

// ProfilePayload is the content of a PROFILE_UPDATE event: a display name,
// a bio, and an optional avatar content hash.
type ProfilePayload struct {
	DisplayName string
	Bio         string
	Avatar      ids.ContentHash // zero value means "no avatar"
}

// EncodeProfile serializes a ProfilePayload: u8-length-prefixed name,
// u16-length-prefixed bio, 32-byte avatar hash (zero = none).
func EncodeProfile(p ProfilePayload) ([]byte, error) {
	if len(p.DisplayName) > maxDisplayNameLen {
		return nil, fmt.Errorf("event: display name exceeds %d bytes", maxDisplayNameLen)
	}
	if len(p.Bio) > maxBioLen {
		return nil, fmt.Errorf("event: bio exceeds %d bytes", maxBioLen)
	}
	buf := make([]byte, 0, 1+len(p.DisplayName)+2+len(p.Bio)+ids.ContentHashLen)
	buf = append(buf, byte(len(p.DisplayName)))
	buf = append(buf, p.DisplayName...)
	bioLen := make([]byte, 2)
	binary.LittleEndian.PutUint16(bioLen, uint16(len(p.Bio)))
	buf = append(buf, bioLen...)
	buf = append(buf, p.Bio...)
	buf = append(buf, p.Avatar[:]...)
	return buf, nil
}

// DecodeProfile parses a PROFILE_UPDATE event's content.
func DecodeProfile(b []byte) (ProfilePayload, error) {
	if len(b) < 1 {
		return ProfilePayload{}, fmt.Errorf("event: malformed profile payload: empty")
	}
	nameLen := int(b[0])
	off := 1
	if off+nameLen+2 > len(b) {
		return ProfilePayload{}, fmt.Errorf("event: malformed profile payload: truncated name")
	}
	name := string(b[off : off+nameLen])
	off += nameLen
	bioLen := int(binary.LittleEndian.Uint16(b[off : off+2]))
	off += 2
	if off+bioLen+ids.ContentHashLen != len(b) {
		return ProfilePayload{}, fmt.Errorf("event: malformed profile payload: truncated bio/avatar")
	}
	bio := string(b[off : off+bioLen])
	off += bioLen
	var avatar ids.ContentHash
	copy(avatar[:], b[off:off+ids.ContentHashLen])
	return ProfilePayload{DisplayName: name, Bio: bio, Avatar: avatar}, nil
}
