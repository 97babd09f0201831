/*
Package headcheck is the Followee Head Checker: a ticker-driven
reconciliation loop that walks each followee's event graph back from its
advertised head, downloading and verifying anything the local node is
missing.

A run() goroutine selecting on a ticker and a stop channel, Start/Stop,
a component logger, and per-cycle metrics via internal/rmetrics's Timer.
*/
package headcheck

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/rlog"
	"github.com/rostra-network/rostra/internal/rmetrics"
	"github.com/rostra-network/rostra/internal/rpc"
	"github.com/rostra-network/rostra/internal/storage"
	"github.com/rs/zerolog"
)

// Storage is what the checker needs from the local node's database, a
// narrow slice of *storage.Facade's method set.
type Storage interface {
	GetSelfFollowees(ctx context.Context) ([]ids.RostraId, error)
	ProcessEvent(ctx context.Context, ve event.VerifiedEvent) (storage.ProcessEventState, []ids.ShortEventId, error)
	ProcessEventContent(ctx context.Context, ve event.VerifiedEvent, vec event.VerifiedEventContent) (bool, error)
	WantsContent(ctx context.Context, short ids.ShortEventId, state storage.ProcessEventState) (storage.ContentWant, error)
}

// Checker periodically reconciles local state against the followee set's
// advertised heads.
type Checker struct {
	storage Storage
	dialer  rpc.Dialer
	addrOf  func(ids.RostraId) (string, bool)
	interval func() time.Duration

	logger zerolog.Logger
	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Checker. addrOf resolves a followee's RostraId to a dialable
// network address; interval returns the current tick period (shorter in
// dev mode).
func New(s Storage, dialer rpc.Dialer, addrOf func(ids.RostraId) (string, bool), interval func() time.Duration) *Checker {
	return &Checker{
		storage:  s,
		dialer:   dialer,
		addrOf:   addrOf,
		interval: interval,
		logger:   rlog.WithComponent("headcheck"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the reconciliation loop in its own goroutine.
func (c *Checker) Start() {
	go c.run()
}

// Stop signals the loop to exit and waits for it to finish.
func (c *Checker) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *Checker) run() {
	defer close(c.doneCh)
	ticker := time.NewTicker(c.interval())
	defer ticker.Stop()

	c.logger.Info().Msg("followee head checker started")

	for {
		select {
		case <-ticker.C:
			c.tick()
		case <-c.stopCh:
			c.logger.Info().Msg("followee head checker stopped")
			return
		}
	}
}

func (c *Checker) tick() {
	timer := rmetrics.NewTimer()
	defer func() {
		timer.ObserveDuration(rmetrics.HeadCheckCycleDuration)
		rmetrics.HeadCheckCyclesTotal.Inc()
	}()

	ctx := context.Background()
	followees, err := c.storage.GetSelfFollowees(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to list followees")
		return
	}

	for _, followee := range followees {
		c.reconcileFollowee(ctx, followee)
	}
}

// reconcileFollowee resolves one followee's head via both probe paths,
// joined concurrently, and walks any new events down from whichever head
// is reported.
func (c *Checker) reconcileFollowee(ctx context.Context, author ids.RostraId) {
	addr, ok := c.addrOf(author)
	if !ok {
		c.logger.Debug().Str("author", author.String()).Msg("no known address for followee")
		return
	}

	peer, err := c.dialer.Dial(ctx, addr)
	if err != nil {
		c.logger.Debug().Err(err).Str("author", author.String()).Msg("dial failed")
		return
	}
	defer peer.Close()

	direct, naming := probeHeads(ctx, peer, author)

	seen := map[ids.ShortEventId]bool{}
	for _, head := range []struct {
		ok    bool
		short ids.ShortEventId
	}{direct, naming} {
		if !head.ok || seen[head.short] {
			continue
		}
		seen[head.short] = true
		if err := c.downloadNewData(ctx, peer, author, head.short); err != nil {
			c.logger.Warn().Err(err).Str("author", author.String()).Msg("aborting walk")
		}
	}
}

type headProbe struct {
	ok    bool
	short ids.ShortEventId
}

// probeHeads runs the direct-transport and naming-layer head lookups
// concurrently and returns both results, each independently ok/err.
func probeHeads(ctx context.Context, peer rpc.Peer, author ids.RostraId) (direct, naming headProbe) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		short, ok, err := peer.GetHead(ctx, author)
		if err == nil {
			direct = headProbe{ok: ok, short: short}
		}
	}()
	go func() {
		defer wg.Done()
		short, ok, err := peer.ResolveIDData(ctx, author)
		if err == nil {
			naming = headProbe{ok: ok, short: short}
		}
	}()

	wg.Wait()
	return direct, naming
}

// walkItem is one entry in the priority queue: depth from the walk's
// starting head, smallest depth first, ties broken by smallest short id.
type walkItem struct {
	depth int
	short ids.ShortEventId
}

type walkQueue []walkItem

func (q walkQueue) Len() int            { return len(q) }
func (q walkQueue) Less(i, j int) bool {
	if q[i].depth != q[j].depth {
		return q[i].depth < q[j].depth
	}
	return q[i].short.Less(q[j].short)
}
func (q walkQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *walkQueue) Push(x interface{}) { *q = append(*q, x.(walkItem)) }
func (q *walkQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// downloadNewData is the max-priority (smallest-depth-first) graph walk
// starting at head: fetch, verify, store, then enqueue any parents the
// local database reported missing, one depth deeper.
func (c *Checker) downloadNewData(ctx context.Context, peer rpc.Peer, author ids.RostraId, head ids.ShortEventId) error {
	q := &walkQueue{{depth: 0, short: head}}
	heap.Init(q)
	visited := map[ids.ShortEventId]bool{}

	for q.Len() > 0 {
		rmetrics.WalkQueueDepth.Set(float64(q.Len()))
		item := heap.Pop(q).(walkItem)
		if visited[item.short] {
			continue
		}
		visited[item.short] = true

		signed, ok, err := peer.GetEvent(ctx, item.short)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		ve, err := event.VerifyResponse(author, item.short, signed)
		if err != nil {
			return err
		}

		state, missingParents, err := c.storage.ProcessEvent(ctx, ve)
		if err != nil {
			return err
		}

		for _, parent := range missingParents {
			if !visited[parent] {
				heap.Push(q, walkItem{depth: item.depth + 1, short: parent})
			}
		}

		want, err := c.storage.WantsContent(ctx, item.short, state)
		if err != nil {
			return err
		}
		if want == storage.DoesNotWant {
			continue
		}

		ev := ve.Event()
		content, ok, err := peer.GetEventContent(ctx, item.short, ev.ContentLen, ev.ContentHash)
		if err != nil {
			c.logger.Debug().Err(err).Msg("content fetch failed, continuing walk")
			continue
		}
		if !ok {
			continue
		}

		vec, err := event.Verify(ve, content)
		if err != nil {
			return err
		}
		if _, err := c.storage.ProcessEventContent(ctx, ve, vec); err != nil {
			return err
		}
	}

	rmetrics.WalkQueueDepth.Set(0)
	return nil
}
