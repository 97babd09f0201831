package rpc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
)

// ProtocolTag is the fixed ASCII identifier exchanged once at connect time.
const ProtocolTag = "ROSTRA-EVENTGRAPH-1"

// Default size ceilings; MaxResponseSize must cover at least two content
// payloads per the framing contract.
const (
	DefaultMaxRequestSize  = 1 << 16
	DefaultMaxResponseSize = 2 * 1_000_000 * 2
)

// Method tags the request/response pair being framed.
type Method byte

const (
	MethodGetHead Method = iota + 1
	MethodGetEvent
	MethodGetEventContent
	MethodResolveIDData
)

// writeFrame writes a u32-big-endian length prefix followed by payload,
// failing if payload exceeds maxLen.
func writeFrame(w io.Writer, payload []byte, maxLen int) error {
	if len(payload) > maxLen {
		return ErrRequestTooLarge
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// readFrame reads one length-prefixed frame, rejecting anything over
// maxLen before attempting to allocate or read the body.
func readFrame(r io.Reader, maxLen int) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if int(n) > maxLen {
		return nil, ErrResponseTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return buf, nil
}

// --- GetHead ---------------------------------------------------------

func encodeGetHeadRequest(author ids.RostraId) []byte {
	buf := make([]byte, 1+ids.RostraIdLen)
	buf[0] = byte(MethodGetHead)
	copy(buf[1:], author[:])
	return buf
}

func decodeGetHeadRequest(b []byte) (ids.RostraId, error) {
	if len(b) != ids.RostraIdLen {
		return ids.RostraId{}, fmt.Errorf("%w: bad GetHead request length %d", ErrResponseDecoding, len(b))
	}
	var author ids.RostraId
	copy(author[:], b)
	return author, nil
}

func encodeGetHeadResponse(short ids.ShortEventId, ok bool) []byte {
	if !ok {
		return []byte{0}
	}
	buf := make([]byte, 1+ids.ShortEventIdLen)
	buf[0] = 1
	copy(buf[1:], short[:])
	return buf
}

func decodeGetHeadResponse(b []byte) (ids.ShortEventId, bool, error) {
	if len(b) == 0 {
		return ids.ShortEventId{}, false, fmt.Errorf("%w: empty GetHead response", ErrResponseDecoding)
	}
	if b[0] == 0 {
		return ids.ShortEventId{}, false, nil
	}
	if len(b) != 1+ids.ShortEventIdLen {
		return ids.ShortEventId{}, false, fmt.Errorf("%w: bad GetHead response length %d", ErrResponseDecoding, len(b))
	}
	var short ids.ShortEventId
	copy(short[:], b[1:])
	return short, true, nil
}

// --- ResolveIDData ------------------------------------------------------
//
// Same wire shape as GetHead (an author in, a short id out): this node has
// no separate naming-layer transport of its own, so the naming-layer probe
// is framed identically and only distinguished by method tag, letting a
// single TCPServer answer both the direct and naming-layer head lookups.

func encodeResolveIDDataRequest(author ids.RostraId) []byte {
	buf := encodeGetHeadRequest(author)
	buf[0] = byte(MethodResolveIDData)
	return buf
}

// --- GetEvent ---------------------------------------------------------

func encodeGetEventRequest(short ids.ShortEventId) []byte {
	buf := make([]byte, 1+ids.ShortEventIdLen)
	buf[0] = byte(MethodGetEvent)
	copy(buf[1:], short[:])
	return buf
}

func decodeGetEventRequest(b []byte) (ids.ShortEventId, error) {
	if len(b) != ids.ShortEventIdLen {
		return ids.ShortEventId{}, fmt.Errorf("%w: bad GetEvent request length %d", ErrResponseDecoding, len(b))
	}
	var short ids.ShortEventId
	copy(short[:], b)
	return short, nil
}

func encodeGetEventResponse(signed event.SignedEvent, ok bool) []byte {
	if !ok {
		return []byte{0}
	}
	return append([]byte{1}, event.EncodeSigned(signed)...)
}

func decodeGetEventResponse(b []byte) (event.SignedEvent, bool, error) {
	if len(b) == 0 {
		return event.SignedEvent{}, false, fmt.Errorf("%w: empty GetEvent response", ErrResponseDecoding)
	}
	if b[0] == 0 {
		return event.SignedEvent{}, false, nil
	}
	signed, err := event.DecodeSigned(b[1:])
	if err != nil {
		return event.SignedEvent{}, false, fmt.Errorf("%w: %v", ErrResponseDecoding, err)
	}
	return signed, true, nil
}

// --- GetEventContent ---------------------------------------------------

func encodeGetEventContentRequest(short ids.ShortEventId, contentLen uint32, contentHash ids.ContentHash) []byte {
	buf := make([]byte, 1+ids.ShortEventIdLen+4+ids.ContentHashLen)
	buf[0] = byte(MethodGetEventContent)
	off := 1
	copy(buf[off:], short[:])
	off += ids.ShortEventIdLen
	binary.BigEndian.PutUint32(buf[off:], contentLen)
	off += 4
	copy(buf[off:], contentHash[:])
	return buf
}

func decodeGetEventContentRequest(b []byte) (ids.ShortEventId, uint32, ids.ContentHash, error) {
	want := ids.ShortEventIdLen + 4 + ids.ContentHashLen
	if len(b) != want {
		return ids.ShortEventId{}, 0, ids.ContentHash{}, fmt.Errorf("%w: bad GetEventContent request length %d", ErrResponseDecoding, len(b))
	}
	var short ids.ShortEventId
	off := 0
	copy(short[:], b[off:])
	off += ids.ShortEventIdLen
	contentLen := binary.BigEndian.Uint32(b[off:])
	off += 4
	var hash ids.ContentHash
	copy(hash[:], b[off:])
	return short, contentLen, hash, nil
}

func encodeGetEventContentResponse(content []byte, ok bool) []byte {
	if !ok {
		return []byte{0}
	}
	buf := make([]byte, 1+4+len(content))
	buf[0] = 1
	binary.BigEndian.PutUint32(buf[1:], uint32(len(content)))
	copy(buf[5:], content)
	return buf
}

func decodeGetEventContentResponse(b []byte) ([]byte, bool, error) {
	if len(b) == 0 {
		return nil, false, fmt.Errorf("%w: empty GetEventContent response", ErrResponseDecoding)
	}
	if b[0] == 0 {
		return nil, false, nil
	}
	if len(b) < 5 {
		return nil, false, fmt.Errorf("%w: truncated GetEventContent response", ErrResponseDecoding)
	}
	n := binary.BigEndian.Uint32(b[1:5])
	if int(n) != len(b)-5 {
		return nil, false, fmt.Errorf("%w: GetEventContent length mismatch", ErrResponseDecoding)
	}
	return append([]byte{}, b[5:]...), true, nil
}
