package event

import (
	"encoding/binary"
	"fmt"

	"github.com/rostra-network/rostra/internal/ids"
	"github.com/zeebo/blake3"
)

// EncodedLen is the fixed size of an encoded Event header on the wire.
const EncodedLen = 128

// Field layout: version(1) flags(1) kind(2) content_len(4) padding(16)
// timestamp(8) author(32) parent_prev(16) parent_aux(16) content_hash(32)
// = 128 bytes total.
const (
	offVersion     = 0
	offFlags       = 1
	offKind        = 2
	offContentLen  = 4
	offPadding     = 8
	offTimestamp   = 24
	offAuthor      = 32
	offParentPrev  = 64
	offParentAux   = 80
	offContentHash = 96
)

// Encode serializes ev into its canonical 128-byte little-endian layout.
func Encode(ev Event) [EncodedLen]byte {
	var buf [EncodedLen]byte
	buf[offVersion] = ev.Version
	buf[offFlags] = uint8(ev.Flags)
	binary.LittleEndian.PutUint16(buf[offKind:], uint16(ev.Kind))
	binary.LittleEndian.PutUint32(buf[offContentLen:], ev.ContentLen)
	// buf[offPadding:offPadding+16] stays zero.
	binary.LittleEndian.PutUint64(buf[offTimestamp:], ev.Timestamp)
	copy(buf[offAuthor:], ev.Author[:])
	copy(buf[offParentPrev:], ev.ParentPrev[:])
	copy(buf[offParentAux:], ev.ParentAux[:])
	copy(buf[offContentHash:], ev.ContentHash[:])
	return buf
}

// Decode parses the canonical 128-byte layout back into an Event. It
// round-trips with Encode: Decode(Encode(e)) == e for any valid Event.
func Decode(buf []byte) (Event, error) {
	if len(buf) != EncodedLen {
		return Event{}, fmt.Errorf("event: encoded length must be %d, got %d", EncodedLen, len(buf))
	}
	var ev Event
	ev.Version = buf[offVersion]
	ev.Flags = Flags(buf[offFlags])
	ev.Kind = Kind(binary.LittleEndian.Uint16(buf[offKind:]))
	ev.ContentLen = binary.LittleEndian.Uint32(buf[offContentLen:])
	for _, b := range buf[offPadding : offPadding+16] {
		if b != 0 {
			return Event{}, fmt.Errorf("event: non-zero padding byte")
		}
	}
	ev.Timestamp = binary.LittleEndian.Uint64(buf[offTimestamp:])
	copy(ev.Author[:], buf[offAuthor:offAuthor+ids.RostraIdLen])
	copy(ev.ParentPrev[:], buf[offParentPrev:offParentPrev+ids.ShortEventIdLen])
	copy(ev.ParentAux[:], buf[offParentAux:offParentAux+ids.ShortEventIdLen])
	copy(ev.ContentHash[:], buf[offContentHash:offContentHash+ids.ContentHashLen])
	return ev, nil
}

// ComputeEventId returns the BLAKE3 digest of ev's canonical encoding.
func ComputeEventId(ev Event) ids.EventId {
	enc := Encode(ev)
	sum := blake3.Sum256(enc[:])
	return ids.EventId(sum)
}

// ComputeShortEventId is a convenience for ComputeEventId(ev).Short().
func ComputeShortEventId(ev Event) ids.ShortEventId {
	return ComputeEventId(ev).Short()
}

// ComputeContentHash returns the BLAKE3 digest of content bytes.
func ComputeContentHash(content []byte) ids.ContentHash {
	return ids.ContentHash(blake3.Sum256(content))
}

// EncodeSigned appends sig to ev's encoding, producing the 192-byte wire
// form of a SignedEvent.
func EncodeSigned(se SignedEvent) []byte {
	enc := Encode(se.Event)
	out := make([]byte, 0, EncodedLen+SignatureLen)
	out = append(out, enc[:]...)
	out = append(out, se.Signature[:]...)
	return out
}

// DecodeSigned parses the 192-byte wire form of a SignedEvent.
func DecodeSigned(buf []byte) (SignedEvent, error) {
	if len(buf) != EncodedLen+SignatureLen {
		return SignedEvent{}, fmt.Errorf("event: signed encoded length must be %d, got %d", EncodedLen+SignatureLen, len(buf))
	}
	ev, err := Decode(buf[:EncodedLen])
	if err != nil {
		return SignedEvent{}, err
	}
	var sig Signature
	copy(sig[:], buf[EncodedLen:])
	return SignedEvent{Event: ev, Signature: sig}, nil
}
