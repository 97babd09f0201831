package headcheck

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/rostra-network/rostra/internal/db"
	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/kv"
	"github.com/rostra-network/rostra/internal/rpc"
	"github.com/rostra-network/rostra/internal/rpc/rpcmock"
	"github.com/rostra-network/rostra/internal/storage"
)

type chain struct {
	author ids.RostraId
	priv   ed25519.PrivateKey
}

func newChain(t *testing.T) chain {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var author ids.RostraId
	copy(author[:], pub)
	return chain{author: author, priv: priv}
}

func (c chain) link(t *testing.T, parentPrev ids.ShortEventId, ts uint64, content []byte) event.VerifiedEvent {
	t.Helper()
	ev := event.NewUnsigned(c.author, event.KindSocialPost, parentPrev, ids.ShortEventId{})
	ev.Timestamp = ts
	ev.ContentLen = uint32(len(content))
	ev.ContentHash = event.ComputeContentHash(content)
	signed, err := event.Sign(c.priv, ev)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ve, err := event.VerifyLocal(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	return ve
}

func openTestFacade(t *testing.T, self ids.RostraId) *storage.Facade {
	t.Helper()
	s, err := kv.Open(t.TempDir(), "test.db", db.SchemaVersion, db.Buckets)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return storage.New(s, self, 1_000_000)
}

// singlePeerDialer always returns the same pre-built Peer, as if every
// followee address resolved to one already-connected mock peer.
type singlePeerDialer struct {
	peer rpc.Peer
}

func (d singlePeerDialer) Dial(ctx context.Context, addr string) (rpc.Peer, error) {
	return d.peer, nil
}

func TestDownloadNewDataWalksChainFromHead(t *testing.T) {
	var self ids.RostraId
	self[0] = 1
	facade := openTestFacade(t, self)

	followee := newChain(t)
	genesis := followee.link(t, ids.ShortEventId{}, 1, []byte("first"))
	second := followee.link(t, genesis.ShortID(), 2, []byte("second"))

	peer := rpcmock.New()
	peer.AddEvent(genesis.ShortID(), genesis.Signed(), []byte("first"))
	peer.AddEvent(second.ShortID(), second.Signed(), []byte("second"))
	peer.SetHead(followee.author, second.ShortID())

	c := New(facade, singlePeerDialer{peer: peer}, nil, func() time.Duration { return time.Hour })

	if err := c.downloadNewData(context.Background(), peer, followee.author, second.ShortID()); err != nil {
		t.Fatalf("walk: %v", err)
	}

	has, err := facade.HasEvent(context.Background(), genesis.ShortID())
	if err != nil || !has {
		t.Fatalf("expected genesis to be fetched via missing-parent walk: has=%v err=%v", has, err)
	}
	content, ok, err := facade.GetEventContent(context.Background(), second.ShortID())
	if err != nil || !ok || string(content) != "second" {
		t.Fatalf("expected second's content stored: ok=%v err=%v content=%q", ok, err, content)
	}
}

func TestDownloadNewDataStopsOnVerificationFailure(t *testing.T) {
	var self ids.RostraId
	self[0] = 1
	facade := openTestFacade(t, self)

	followee := newChain(t)
	genesis := followee.link(t, ids.ShortEventId{}, 1, []byte("first"))

	// Craft an event that claims followee's authorship but is signed by a
	// different key, simulating a peer serving a forged event.
	impostor := newChain(t)
	forgedEv := event.NewUnsigned(followee.author, event.KindSocialPost, ids.ShortEventId{}, ids.ShortEventId{})
	forgedEv.Timestamp = 1
	forgedEv.ContentLen = uint32(len("forged"))
	forgedEv.ContentHash = event.ComputeContentHash([]byte("forged"))
	forgedSigned, err := event.Sign(impostor.priv, forgedEv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	forgedShort := event.ComputeEventId(forgedEv).Short()

	peer := rpcmock.New()
	peer.AddEvent(genesis.ShortID(), genesis.Signed(), []byte("first"))
	peer.AddEvent(forgedShort, forgedSigned, []byte("forged"))

	c := New(facade, singlePeerDialer{peer: peer}, nil, func() time.Duration { return time.Hour })

	if err := c.downloadNewData(context.Background(), peer, followee.author, forgedShort); err == nil {
		t.Fatalf("expected verification error to abort the walk")
	}

	has, _ := facade.HasEvent(context.Background(), forgedShort)
	if has {
		t.Fatalf("forged event must never be stored")
	}
}

func TestDownloadNewDataRejectsEventFromWrongAuthor(t *testing.T) {
	var self ids.RostraId
	self[0] = 1
	facade := openTestFacade(t, self)

	followee := newChain(t)
	stranger := newChain(t)

	// stranger serves a validly self-signed event of its own during a walk
	// started for followee; nothing about the signature or hash is wrong,
	// only the claim that this event belongs to followee's graph.
	strangerEv := stranger.link(t, ids.ShortEventId{}, 1, []byte("unrelated"))

	peer := rpcmock.New()
	peer.AddEvent(strangerEv.ShortID(), strangerEv.Signed(), []byte("unrelated"))

	c := New(facade, singlePeerDialer{peer: peer}, nil, func() time.Duration { return time.Hour })

	err := c.downloadNewData(context.Background(), peer, followee.author, strangerEv.ShortID())
	if !errors.Is(err, event.ErrAuthorMismatch) {
		t.Fatalf("expected ErrAuthorMismatch, got %v", err)
	}

	has, _ := facade.HasEvent(context.Background(), strangerEv.ShortID())
	if has {
		t.Fatalf("event from unrelated author must never be stored during followee's walk")
	}
}

func TestProbeHeadsJoinsBothPaths(t *testing.T) {
	followee := newChain(t)
	genesis := followee.link(t, ids.ShortEventId{}, 1, []byte("x"))

	peer := rpcmock.New()
	peer.SetHead(followee.author, genesis.ShortID())

	var other ids.ShortEventId
	other[0] = 0xFF
	peer.SetNameHead(followee.author, other)

	direct, naming := probeHeads(context.Background(), peer, followee.author)
	if !direct.ok || direct.short != genesis.ShortID() {
		t.Fatalf("unexpected direct probe result: %+v", direct)
	}
	if !naming.ok || naming.short != other {
		t.Fatalf("unexpected naming probe result: %+v", naming)
	}
}
