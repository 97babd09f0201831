/*
Package identity owns the node's persistent transport Ed25519 keypair: the
private half is sealed with internal/secretbox and stored in the
node_secret table, generated once on first run.
*/
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/rostra-network/rostra/internal/db"
	"github.com/rostra-network/rostra/internal/ids"
	"github.com/rostra-network/rostra/internal/kv"
	"github.com/rostra-network/rostra/internal/secretbox"
)

// Identity is the node's own signing keypair and derived RostraId.
type Identity struct {
	RostraId ids.RostraId
	Private  ed25519.PrivateKey
}

// LoadOrCreate reads the sealed node secret from store, unsealing it with
// box; if none exists yet, it generates a fresh keypair, seals it, and
// persists it before returning.
func LoadOrCreate(store *kv.Store, box *secretbox.Box) (Identity, error) {
	var sealed []byte
	var found bool
	err := store.ReadWith(func(tx kv.ReadTx) error {
		var err error
		sealed, found, err = db.GetNodeSecretTx(tx)
		return err
	})
	if err != nil {
		return Identity{}, fmt.Errorf("identity: read node secret: %w", err)
	}

	if found {
		raw, err := box.Open(sealed)
		if err != nil {
			return Identity{}, fmt.Errorf("identity: unseal node secret: %w", err)
		}
		return fromPrivateKeyBytes(raw)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, fmt.Errorf("identity: generate keypair: %w", err)
	}
	sealed, err = box.Seal(priv)
	if err != nil {
		return Identity{}, fmt.Errorf("identity: seal node secret: %w", err)
	}
	if err := store.WriteWith(func(tx kv.WriteTx) error {
		return db.PutNodeSecretTx(tx, sealed)
	}); err != nil {
		return Identity{}, fmt.Errorf("identity: persist node secret: %w", err)
	}

	var id ids.RostraId
	copy(id[:], pub)
	return Identity{RostraId: id, Private: priv}, nil
}

func fromPrivateKeyBytes(raw []byte) (Identity, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return Identity{}, fmt.Errorf("identity: stored private key has wrong size %d", len(raw))
	}
	priv := ed25519.PrivateKey(raw)
	pub := priv.Public().(ed25519.PublicKey)
	var id ids.RostraId
	copy(id[:], pub)
	return Identity{RostraId: id, Private: priv}, nil
}
