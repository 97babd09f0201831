package main

import (
	"fmt"
	"os"

	"github.com/rostra-network/rostra/internal/config"
	"github.com/rostra-network/rostra/internal/db"
	"github.com/rostra-network/rostra/internal/event"
	"github.com/rostra-network/rostra/internal/identity"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/kv"
	"github.com/rostra-network/rostra/internal/secretbox"
	"github.com/rostra-network/rostra/internal/storage"
)

const passphraseEnvVar = "ROSTRA_PASSPHRASE"

// openNode opens the event database and loads (or creates) the local
// identity, returning a ready-to-use Storage Facade. Callers are
// responsible for closing the returned store.
func openNode(cfg config.Config) (*kv.Store, *storage.Facade, identity.Identity, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, nil, identity.Identity{}, fmt.Errorf("create data dir: %w", err)
	}

	store, err := kv.Open(cfg.DataDir, "events.db", db.SchemaVersion, db.Buckets)
	if err != nil {
		return nil, nil, identity.Identity{}, fmt.Errorf("open database: %w", err)
	}

	passphrase := os.Getenv(passphraseEnvVar)
	if passphrase == "" {
		passphrase = "rostra-dev-passphrase-change-me"
	}
	box, err := secretbox.NewFromPassphrase(passphrase)
	if err != nil {
		store.Close()
		return nil, nil, identity.Identity{}, fmt.Errorf("build secret box: %w", err)
	}

	id, err := identity.LoadOrCreate(store, box)
	if err != nil {
		store.Close()
		return nil, nil, identity.Identity{}, fmt.Errorf("load identity: %w", err)
	}

	facade := storage.New(store, id.RostraId, cfg.MaxContentLen)
	return store, facade, id, nil
}

// signEvent builds, signs, and verifies a locally authored event of kind
// kind carrying content, chained off parentPrev.
func signEvent(id identity.Identity, kind event.Kind, parentPrev, parentAux ids.ShortEventId, content []byte) (event.VerifiedEvent, event.VerifiedEventContent, error) {
	ev := event.NewUnsigned(id.RostraId, kind, parentPrev, parentAux)
	ev.ContentLen = uint32(len(content))
	ev.ContentHash = event.ComputeContentHash(content)

	signed, err := event.Sign(id.Private, ev)
	if err != nil {
		return event.VerifiedEvent{}, event.VerifiedEventContent{}, fmt.Errorf("sign event: %w", err)
	}
	ve, err := event.VerifyLocal(signed)
	if err != nil {
		return event.VerifiedEvent{}, event.VerifiedEventContent{}, fmt.Errorf("verify own event: %w", err)
	}
	vec, err := event.Verify(ve, content)
	if err != nil {
		return event.VerifiedEvent{}, event.VerifiedEventContent{}, fmt.Errorf("verify own content: %w", err)
	}
	return ve, vec, nil
}
