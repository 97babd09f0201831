/*
Package rpcmock is an in-memory rpc.Peer test double: head checker tests
build one directly from a set of SignedEvents instead of standing up a
TCPServer and TCPPeer pair.
*/
package rpcmock

import (
	"context"
	"sync"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
)

// Peer is a fully in-memory rpc.Peer.
type Peer struct {
	mu        sync.Mutex
	heads     map[ids.RostraId]ids.ShortEventId
	nameHeads map[ids.RostraId]ids.ShortEventId
	events    map[ids.ShortEventId]event.SignedEvent
	content   map[ids.ShortEventId][]byte
	errs      map[ids.ShortEventId]error
}

// New builds an empty mock peer.
func New() *Peer {
	return &Peer{
		heads:     make(map[ids.RostraId]ids.ShortEventId),
		nameHeads: make(map[ids.RostraId]ids.ShortEventId),
		events:    make(map[ids.ShortEventId]event.SignedEvent),
		content:   make(map[ids.ShortEventId][]byte),
		errs:      make(map[ids.ShortEventId]error),
	}
}

// SetHead makes author's advertised head short on both probe paths, unless
// SetNameHead is called afterward to make them disagree.
func (p *Peer) SetHead(author ids.RostraId, short ids.ShortEventId) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.heads[author] = short
	p.nameHeads[author] = short
}

// SetNameHead overrides just the naming-layer probe, for tests exercising
// disagreement between the two head lookups.
func (p *Peer) SetNameHead(author ids.RostraId, short ids.ShortEventId) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nameHeads[author] = short
}

// AddEvent makes se servable by its short id, optionally with content.
func (p *Peer) AddEvent(short ids.ShortEventId, se event.SignedEvent, content []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[short] = se
	if content != nil {
		p.content[short] = content
	}
}

// FailEvent makes GetEvent(short) return err instead of a result.
func (p *Peer) FailEvent(short ids.ShortEventId, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[short] = err
}

func (p *Peer) GetHead(_ context.Context, author ids.RostraId) (ids.ShortEventId, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	short, ok := p.heads[author]
	return short, ok, nil
}

func (p *Peer) ResolveIDData(_ context.Context, author ids.RostraId) (ids.ShortEventId, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	short, ok := p.nameHeads[author]
	return short, ok, nil
}

func (p *Peer) GetEvent(_ context.Context, short ids.ShortEventId) (event.SignedEvent, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.errs[short]; ok {
		return event.SignedEvent{}, false, err
	}
	se, ok := p.events[short]
	return se, ok, nil
}

func (p *Peer) GetEventContent(_ context.Context, short ids.ShortEventId, _ uint32, _ ids.ContentHash) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.content[short]
	return c, ok, nil
}

func (p *Peer) Close() error { return nil }
