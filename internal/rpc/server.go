package rpc

import (
	"context"
	"errors"
	"io"
	"net"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/rlog"
	"github.com/rs/zerolog"
)

// Source is what TCPServer needs from local storage to answer requests. It
// is satisfied by internal/storage.Facade.
type Source interface {
	GetHead(ctx context.Context, author ids.RostraId) (ids.ShortEventId, bool, error)
	GetEvent(ctx context.Context, short ids.ShortEventId) (event.SignedEvent, bool, error)
	GetEventContent(ctx context.Context, short ids.ShortEventId) ([]byte, bool, error)
}

// TCPServer answers Peer requests over accepted TCP connections.
type TCPServer struct {
	source          Source
	maxRequestSize  int
	maxResponseSize int
	logger          zerolog.Logger
}

// NewTCPServer constructs a server backed by source.
func NewTCPServer(source Source) *TCPServer {
	return &TCPServer{
		source:          source,
		maxRequestSize:  DefaultMaxRequestSize,
		maxResponseSize: DefaultMaxResponseSize,
		logger:          rlog.WithComponent("rpc-server"),
	}
}

// Serve accepts connections on ln until it returns an error (typically
// from ln.Close()).
func (s *TCPServer) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *TCPServer) handleConn(conn net.Conn) {
	defer conn.Close()
	logger := rlog.WithPeer(s.logger, conn.RemoteAddr().String())

	tag := make([]byte, len(ProtocolTag))
	if _, err := io.ReadFull(conn, tag); err != nil {
		logger.Debug().Err(err).Msg("failed to read protocol tag")
		return
	}
	if string(tag) != ProtocolTag {
		logger.Warn().Str("tag", string(tag)).Msg("unexpected protocol tag")
		return
	}

	ctx := context.Background()
	for {
		req, err := readFrame(conn, s.maxRequestSize)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug().Err(err).Msg("connection closed")
			}
			return
		}
		resp, err := s.dispatch(ctx, req)
		if err != nil {
			logger.Debug().Err(err).Msg("request failed")
			return
		}
		if err := writeFrame(conn, resp, s.maxResponseSize); err != nil {
			logger.Debug().Err(err).Msg("failed to write response")
			return
		}
	}
}

func (s *TCPServer) dispatch(ctx context.Context, req []byte) ([]byte, error) {
	if len(req) == 0 {
		return nil, ErrResponseDecoding
	}
	switch Method(req[0]) {
	case MethodGetHead:
		author, err := decodeGetHeadRequest(req[1:])
		if err != nil {
			return nil, err
		}
		short, ok, err := s.source.GetHead(ctx, author)
		if err != nil {
			return nil, err
		}
		return encodeGetHeadResponse(short, ok), nil

	case MethodResolveIDData:
		author, err := decodeGetHeadRequest(req[1:])
		if err != nil {
			return nil, err
		}
		short, ok, err := s.source.GetHead(ctx, author)
		if err != nil {
			return nil, err
		}
		return encodeGetHeadResponse(short, ok), nil

	case MethodGetEvent:
		short, err := decodeGetEventRequest(req[1:])
		if err != nil {
			return nil, err
		}
		signed, ok, err := s.source.GetEvent(ctx, short)
		if err != nil {
			return nil, err
		}
		return encodeGetEventResponse(signed, ok), nil

	case MethodGetEventContent:
		short, _, _, err := decodeGetEventContentRequest(req[1:])
		if err != nil {
			return nil, err
		}
		content, ok, err := s.source.GetEventContent(ctx, short)
		if err != nil {
			return nil, err
		}
		return encodeGetEventContentResponse(content, ok), nil

	default:
		return nil, ErrResponseDecoding
	}
}
