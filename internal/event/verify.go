package event

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/rostra-network/rostra/internal/ids"
)

// Verification errors. These are never persisted; callers surface them
// directly, and the head checker aborts the current walk on any of them.
var (
	ErrAuthorMismatch       = errors.New("event: author mismatch")
	ErrIdMismatch           = errors.New("event: id mismatch")
	ErrBadSignature         = errors.New("event: bad signature")
	ErrContentLenMismatch   = errors.New("event: content length mismatch")
	ErrContentHashMismatch  = errors.New("event: content hash mismatch")
)

// VerifiedEvent is proof that a SignedEvent was produced by the claimed
// author and matches an expected short id. It can only be constructed by
// VerifyResponse, so internal/db's mutators can require one as an input
// and thereby refuse to apply anything that hasn't passed verification.
type VerifiedEvent struct {
	signed  SignedEvent
	shortID ids.ShortEventId
	eventID ids.EventId
}

func (v VerifiedEvent) Event() Event                 { return v.signed.Event }
func (v VerifiedEvent) Signed() SignedEvent           { return v.signed }
func (v VerifiedEvent) ShortID() ids.ShortEventId     { return v.shortID }
func (v VerifiedEvent) EventID() ids.EventId          { return v.eventID }
func (v VerifiedEvent) Author() ids.RostraId          { return v.signed.Event.Author }

// VerifyResponse checks that a SignedEvent received from (or claimed to be
// from) expectedAuthor really is that author's, and really is the event
// named by expectedShortID, returning a VerifiedEvent on success.
//
//  1. event.Author != expectedAuthor -> ErrAuthorMismatch
//  2. short id of the encoded event != expectedShortID -> ErrIdMismatch
//  3. signature does not verify under event.Author -> ErrBadSignature
func VerifyResponse(expectedAuthor ids.RostraId, expectedShortID ids.ShortEventId, signed SignedEvent) (VerifiedEvent, error) {
	if signed.Event.Author != expectedAuthor {
		return VerifiedEvent{}, ErrAuthorMismatch
	}
	eventID := ComputeEventId(signed.Event)
	shortID := eventID.Short()
	if shortID != expectedShortID {
		return VerifiedEvent{}, ErrIdMismatch
	}
	enc := Encode(signed.Event)
	if !ed25519.Verify(ed25519.PublicKey(signed.Event.Author[:]), enc[:], signed.Signature[:]) {
		return VerifiedEvent{}, ErrBadSignature
	}
	return VerifiedEvent{signed: signed, shortID: shortID, eventID: eventID}, nil
}

// VerifyLocal verifies a SignedEvent of unknown short id, computing it from
// the encoding instead of checking it against an expectation. Used when
// inserting locally-authored events, which are self-consistent by
// construction but still pass through the same typed gate.
func VerifyLocal(signed SignedEvent) (VerifiedEvent, error) {
	eventID := ComputeEventId(signed.Event)
	return VerifyResponse(signed.Event.Author, eventID.Short(), signed)
}

// VerifiedEventContent is proof that a byte blob matches the content_len
// and content_hash declared by a VerifiedEvent.
type VerifiedEventContent struct {
	shortID ids.ShortEventId
	bytes   []byte
}

func (v VerifiedEventContent) ShortID() ids.ShortEventId { return v.shortID }
func (v VerifiedEventContent) Bytes() []byte             { return v.bytes }

// Verify checks that content matches the length and hash declared by ve,
// returning a VerifiedEventContent on success.
func Verify(ve VerifiedEvent, content []byte) (VerifiedEventContent, error) {
	if uint32(len(content)) != ve.signed.Event.ContentLen {
		return VerifiedEventContent{}, ErrContentLenMismatch
	}
	if ComputeContentHash(content) != ve.signed.Event.ContentHash {
		return VerifiedEventContent{}, ErrContentHashMismatch
	}
	return VerifiedEventContent{shortID: ve.shortID, bytes: content}, nil
}

// Sign produces a SignedEvent by signing ev's canonical encoding with priv.
func Sign(priv ed25519.PrivateKey, ev Event) (SignedEvent, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return SignedEvent{}, fmt.Errorf("event: private key must be %d bytes", ed25519.PrivateKeySize)
	}
	enc := Encode(ev)
	sig := ed25519.Sign(priv, enc[:])
	var s Signature
	copy(s[:], sig)
	return SignedEvent{Event: ev, Signature: s}, nil
}
