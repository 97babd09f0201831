/*
Package event implements the canonical binary encoding of a Rostra chain
entry, its content-addressing, and signature verification.

The wire layout is bit-exact (see Encode/Decode in codec.go): 128 fixed
bytes, little-endian, followed on the wire by a 64-byte detached signature.
Nothing in this package ever mutates a database; it only produces the typed
proofs (VerifiedEvent, VerifiedEventContent) that internal/db requires as
inputs, per the "verification as type" design note.
*/
package event

import (
	"time"

	"github.com/rostra-network/rostra/internal/ids"
)

// Kind tags the payload an event carries. Unknown kinds are stored and
// propagated unchanged.
type Kind uint16

const (
	KindRaw           Kind = 0
	KindFollow        Kind = 1
	KindUnfollow      Kind = 2
	KindSocialPost    Kind = 3
	KindProfileUpdate Kind = 4
)

// Flags bit 0 marks a delete event.
type Flags uint8

const FlagDelete Flags = 1 << 0

func (f Flags) IsDelete() bool { return f&FlagDelete != 0 }

// CurrentVersion is the only wire version this package emits or accepts.
const CurrentVersion uint8 = 0

// Event is the signed, fixed-layout header of a chain entry. Field order
// matches the canonical encoding exactly; see codec.go.
type Event struct {
	Version     uint8
	Flags       Flags
	Kind        Kind
	ContentLen  uint32
	Timestamp   uint64 // seconds since Unix epoch
	Author      ids.RostraId
	ParentPrev  ids.ShortEventId
	ParentAux   ids.ShortEventId
	ContentHash ids.ContentHash
}

// SignatureLen is the size of a detached signature over an encoded Event.
const SignatureLen = 64

// Signature is a detached Ed25519-like signature over an Event's canonical
// encoding.
type Signature [SignatureLen]byte

// SignedEvent is an Event plus the signature that authenticates it.
type SignedEvent struct {
	Event     Event
	Signature Signature
}

// NewUnsigned builds an Event with the fields a caller typically controls,
// leaving Version/Flags zeroed and the content fields to be filled in by
// the caller once content is known. Timestamp defaults to now.
func NewUnsigned(author ids.RostraId, kind Kind, parentPrev, parentAux ids.ShortEventId) Event {
	return Event{
		Version:    CurrentVersion,
		Kind:       kind,
		Author:     author,
		ParentPrev: parentPrev,
		ParentAux:  parentAux,
		Timestamp:  uint64(time.Now().Unix()),
	}
}

// WithDelete marks ev as a deletion of the event named by target, setting
// parent_aux to the target. Combining a delete with a merge link is
// invalid and panics: parent_aux is either a delete target or a
// cross-link, never both.
func (ev Event) WithDelete(target ids.ShortEventId) Event {
	if !ev.ParentAux.IsZero() && ev.ParentAux != target {
		panic("event: parent_aux already set to a non-delete target")
	}
	ev.Flags |= FlagDelete
	ev.ParentAux = target
	return ev
}

// IsDelete reports whether ev requests deletion of ev.ParentAux.
func (ev Event) IsDelete() bool { return ev.Flags.IsDelete() }

// Parents returns the event's up-to-two non-zero parent references.
func (ev Event) Parents() []ids.ShortEventId {
	var out []ids.ShortEventId
	if !ev.ParentPrev.IsZero() {
		out = append(out, ev.ParentPrev)
	}
	if !ev.ParentAux.IsZero() && ev.ParentAux != ev.ParentPrev {
		out = append(out, ev.ParentAux)
	}
	return out
}
