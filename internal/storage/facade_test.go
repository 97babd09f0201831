package storage

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/rostra-network/rostra/internal/db"
	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/kv"
)

func openTestFacade(t *testing.T, self ids.RostraId, maxContentLen int) *Facade {
	t.Helper()
	store, err := kv.Open(t.TempDir(), "test.db", db.SchemaVersion, db.Buckets)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, self, maxContentLen)
}

func signedPost(t *testing.T, priv ed25519.PrivateKey, author ids.RostraId, parent ids.ShortEventId, ts uint64, content []byte) event.VerifiedEvent {
	t.Helper()
	ev := event.NewUnsigned(author, event.KindSocialPost, parent, ids.ShortEventId{})
	ev.Timestamp = ts
	ev.ContentLen = uint32(len(content))
	ev.ContentHash = event.ComputeContentHash(content)
	signed, err := event.Sign(priv, ev)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ve, err := event.VerifyLocal(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	return ve
}

func TestProcessEventPublishesSelfHead(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	var self ids.RostraId
	copy(self[:], pub)

	f := openTestFacade(t, self, 1_000_000)
	sub := f.SubscribeSelfHeadUpdated()

	ve := signedPost(t, priv, self, ids.ShortEventId{}, 1, []byte("hello"))
	state, _, err := f.ProcessEvent(context.Background(), ve)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if state != StateNew {
		t.Fatalf("expected StateNew, got %v", state)
	}

	select {
	case head := <-sub.C():
		if head == nil || *head != ve.ShortID() {
			t.Fatalf("expected published head %v, got %v", ve.ShortID(), head)
		}
	default:
		t.Fatalf("expected a published self head update")
	}
}

func TestProcessEventOversizeIsPruned(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	var self ids.RostraId
	copy(self[:], pub)

	f := openTestFacade(t, self, 4)
	ve := signedPost(t, priv, self, ids.ShortEventId{}, 1, []byte("too long"))

	state, _, err := f.ProcessEvent(context.Background(), ve)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if state != StatePruned {
		t.Fatalf("expected StatePruned, got %v", state)
	}

	want, err := f.WantsContent(context.Background(), ve.ShortID(), state)
	if err != nil {
		t.Fatalf("wants content: %v", err)
	}
	if want != DoesNotWant {
		t.Fatalf("expected DoesNotWant, got %v", want)
	}
}

func TestProcessEventContentRoundTrip(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	var self ids.RostraId
	copy(self[:], pub)

	f := openTestFacade(t, self, 1_000_000)
	content := []byte("hello world")
	ve := signedPost(t, priv, self, ids.ShortEventId{}, 1, content)

	ctx := context.Background()
	state, _, err := f.ProcessEvent(ctx, ve)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	want, err := f.WantsContent(ctx, ve.ShortID(), state)
	if err != nil || want != Wants {
		t.Fatalf("expected Wants, got %v err=%v", want, err)
	}

	vec, err := event.Verify(ve, content)
	if err != nil {
		t.Fatalf("verify content: %v", err)
	}
	stored, err := f.ProcessEventContent(ctx, ve, vec)
	if err != nil || !stored {
		t.Fatalf("expected content to be stored, got stored=%v err=%v", stored, err)
	}

	got, ok, err := f.GetEventContent(ctx, ve.ShortID())
	if err != nil || !ok || string(got) != "hello world" {
		t.Fatalf("unexpected content read: ok=%v err=%v got=%q", ok, err, got)
	}
}
