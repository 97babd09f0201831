/*
Package rpc is the abstract remote-peer contract the followee head checker
pulls from, plus a concrete point-to-point implementation over a
length-prefixed binary framing and an in-memory test double.

The core only ever depends on the Peer interface; internal/headcheck takes
one as a constructor argument and never type-asserts it back to a concrete
transport.
*/
package rpc

import (
	"context"
	"errors"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
)

// Error taxonomy for the RPC surface. These are transient by nature — the
// head checker logs them and retries on the next tick, it never treats
// them as verification failures.
var (
	ErrConnection        = errors.New("rpc: connection failed")
	ErrWrite             = errors.New("rpc: write failed")
	ErrRead              = errors.New("rpc: read failed")
	ErrRequestTooLarge   = errors.New("rpc: request exceeds size limit")
	ErrResponseTooLarge  = errors.New("rpc: response exceeds size limit")
	ErrResponseDecoding  = errors.New("rpc: response decoding failed")
)

// Peer is the abstract contract the core consumes to pull data from a
// remote participant. Implementations own connection setup, framing, and
// size enforcement; they never perform signature verification themselves
// (that is the caller's job, gated through internal/event).
type Peer interface {
	// GetHead returns the given author's currently advertised head, or
	// ok=false if the peer has nothing for that author.
	GetHead(ctx context.Context, author ids.RostraId) (short ids.ShortEventId, ok bool, err error)

	// ResolveIDData is the second, independent head lookup path: a
	// naming-layer resolution of author's currently published head. The
	// head checker joins this against GetHead rather than trusting either
	// alone, since the two can disagree during propagation.
	ResolveIDData(ctx context.Context, author ids.RostraId) (short ids.ShortEventId, ok bool, err error)

	// GetEvent fetches one event header and signature by short id.
	GetEvent(ctx context.Context, short ids.ShortEventId) (signed event.SignedEvent, ok bool, err error)

	// GetEventContent fetches content bytes for an event whose header is
	// already known; the transport is expected (but not required) to
	// verify content_hash itself, and the caller re-verifies regardless.
	GetEventContent(ctx context.Context, short ids.ShortEventId, contentLen uint32, contentHash ids.ContentHash) (content []byte, ok bool, err error)

	// Close releases any underlying connection.
	Close() error
}

// Dialer opens a Peer connection to a remote address. Implementations may
// also resolve an address through a naming layer; the core only depends on
// the resulting Peer.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Peer, error)
}
