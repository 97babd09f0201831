package rpc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/rmetrics"
)

// TCPPeer is a Peer implementation over a single persistent TCP
// connection, framed with a u32-big-endian length prefix per message.
type TCPPeer struct {
	conn            net.Conn
	r               *bufio.Reader
	maxRequestSize  int
	maxResponseSize int
}

// TCPDialer dials TCPPeer connections.
type TCPDialer struct {
	MaxRequestSize  int
	MaxResponseSize int
	DialTimeout     time.Duration
}

// Dial opens a TCP connection to addr, sends the protocol tag, and
// returns a ready-to-use Peer.
func (d TCPDialer) Dial(ctx context.Context, addr string) (Peer, error) {
	timeout := d.DialTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if _, err := conn.Write([]byte(ProtocolTag)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	reqMax := d.MaxRequestSize
	if reqMax == 0 {
		reqMax = DefaultMaxRequestSize
	}
	respMax := d.MaxResponseSize
	if respMax == 0 {
		respMax = DefaultMaxResponseSize
	}

	return &TCPPeer{
		conn:            conn,
		r:               bufio.NewReader(conn),
		maxRequestSize:  reqMax,
		maxResponseSize: respMax,
	}, nil
}

// roundTrip sends req and reads the matching response, recording the
// call's latency and, on failure, incrementing the per-method error
// counter. method is a label value, not wire data.
func (p *TCPPeer) roundTrip(ctx context.Context, method string, req []byte) ([]byte, error) {
	timer := rmetrics.NewTimer()
	defer timer.ObserveDurationVec(rmetrics.PeerRPCDuration, method)

	if deadline, ok := ctx.Deadline(); ok {
		p.conn.SetDeadline(deadline)
		defer p.conn.SetDeadline(time.Time{})
	}
	if err := writeFrame(p.conn, req, p.maxRequestSize); err != nil {
		rmetrics.PeerRPCErrorsTotal.WithLabelValues(method).Inc()
		return nil, err
	}
	resp, err := readFrame(p.r, p.maxResponseSize)
	if err != nil {
		rmetrics.PeerRPCErrorsTotal.WithLabelValues(method).Inc()
		return nil, err
	}
	return resp, nil
}

func (p *TCPPeer) GetHead(ctx context.Context, author ids.RostraId) (ids.ShortEventId, bool, error) {
	resp, err := p.roundTrip(ctx, "get_head", encodeGetHeadRequest(author))
	if err != nil {
		return ids.ShortEventId{}, false, err
	}
	return decodeGetHeadResponse(resp)
}

func (p *TCPPeer) ResolveIDData(ctx context.Context, author ids.RostraId) (ids.ShortEventId, bool, error) {
	resp, err := p.roundTrip(ctx, "resolve_id_data", encodeResolveIDDataRequest(author))
	if err != nil {
		return ids.ShortEventId{}, false, err
	}
	return decodeGetHeadResponse(resp)
}

func (p *TCPPeer) GetEvent(ctx context.Context, short ids.ShortEventId) (event.SignedEvent, bool, error) {
	resp, err := p.roundTrip(ctx, "get_event", encodeGetEventRequest(short))
	if err != nil {
		return event.SignedEvent{}, false, err
	}
	return decodeGetEventResponse(resp)
}

func (p *TCPPeer) GetEventContent(ctx context.Context, short ids.ShortEventId, contentLen uint32, contentHash ids.ContentHash) ([]byte, bool, error) {
	resp, err := p.roundTrip(ctx, "get_event_content", encodeGetEventContentRequest(short, contentLen, contentHash))
	if err != nil {
		return nil, false, err
	}
	return decodeGetEventContentResponse(resp)
}

func (p *TCPPeer) Close() error { return p.conn.Close() }
