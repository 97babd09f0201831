package rpc

import (
	"bytes"
	"testing"

	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello frame")
	if err := writeFrame(&buf, payload, 1024); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := readFrame(&buf, 1024)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestFrameRejectsOversizeWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, make([]byte, 10), 5); err != ErrRequestTooLarge {
		t.Fatalf("expected ErrRequestTooLarge, got %v", err)
	}
}

func TestFrameRejectsOversizeRead(t *testing.T) {
	var buf bytes.Buffer
	writeFrame(&buf, make([]byte, 10), 1024)
	if _, err := readFrame(&buf, 5); err != ErrResponseTooLarge {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}
}

func TestGetHeadRequestResponseRoundTrip(t *testing.T) {
	var author ids.RostraId
	author[0] = 9
	req := encodeGetHeadRequest(author)
	gotAuthor, err := decodeGetHeadRequest(req[1:])
	require.NoError(t, err)
	require.Equal(t, author, gotAuthor)

	var short ids.ShortEventId
	short[0] = 3
	resp := encodeGetHeadResponse(short, true)
	gotShort, ok, err := decodeGetHeadResponse(resp)
	if err != nil || !ok || gotShort != short {
		t.Fatalf("response round trip failed: ok=%v err=%v", ok, err)
	}

	absentResp := encodeGetHeadResponse(ids.ShortEventId{}, false)
	_, ok, err = decodeGetHeadResponse(absentResp)
	if err != nil || ok {
		t.Fatalf("expected absent response, got ok=%v err=%v", ok, err)
	}
}

func TestResolveIDDataRequestUsesDistinctMethodTag(t *testing.T) {
	var author ids.RostraId
	author[0] = 5
	req := encodeResolveIDDataRequest(author)
	require.Equal(t, byte(MethodResolveIDData), req[0])

	gotAuthor, err := decodeGetHeadRequest(req[1:])
	require.NoError(t, err)
	require.Equal(t, author, gotAuthor)
}

func TestGetEventRequestResponseRoundTrip(t *testing.T) {
	var short ids.ShortEventId
	short[0] = 1
	req := encodeGetEventRequest(short)
	gotShort, err := decodeGetEventRequest(req[1:])
	if err != nil || gotShort != short {
		t.Fatalf("request round trip failed: %v", err)
	}

	se := event.SignedEvent{Event: event.NewUnsigned(ids.RostraId{}, event.KindSocialPost, ids.ShortEventId{}, ids.ShortEventId{})}
	resp := encodeGetEventResponse(se, true)
	got, ok, err := decodeGetEventResponse(resp)
	if err != nil || !ok || got.Event.Kind != event.KindSocialPost {
		t.Fatalf("response round trip failed: ok=%v err=%v got=%+v", ok, err, got)
	}
}

func TestGetEventContentRequestResponseRoundTrip(t *testing.T) {
	var short ids.ShortEventId
	short[0] = 7
	hash := event.ComputeContentHash([]byte("content"))
	req := encodeGetEventContentRequest(short, 7, hash)
	gotShort, gotLen, gotHash, err := decodeGetEventContentRequest(req[1:])
	if err != nil || gotShort != short || gotLen != 7 || gotHash != hash {
		t.Fatalf("request round trip failed: %v", err)
	}

	resp := encodeGetEventContentResponse([]byte("content"), true)
	content, ok, err := decodeGetEventContentResponse(resp)
	if err != nil || !ok || string(content) != "content" {
		t.Fatalf("response round trip failed: ok=%v err=%v content=%q", ok, err, content)
	}
}
