// Package vault implements the Keypair Vault (spec.md §4.1, §6): the sole
// component that ever holds an escrow keypair's plaintext.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/scrypt"

	acperrors "github.com/agentcommerce/acp-core/internal/errors"
	"github.com/agentcommerce/acp-core/internal/logger"
)

const (
	envelopeVersion = "v1"
	saltSize        = 16
	ivSize          = 12
	keySize         = 32
)

// Store is the row-level persistence boundary the vault writes envelopes
// through; internal/storage provides the concrete implementation.
type Store interface {
	PutKeypairEnvelope(ctx context.Context, escrowID, envelope string) error
	GetKeypairEnvelope(ctx context.Context, escrowID string) (string, bool, error)
	DeleteKeypairEnvelope(ctx context.Context, escrowID string) error
}

// Vault encrypts and caches escrow keypairs. It never exposes plaintext
// except through Get, which downstream callers must treat as a capability
// to be handed to a signing callback, never logged or persisted again.
type Vault struct {
	store  Store
	secret string
	log    *logger.Logger

	mu    sync.RWMutex
	cache map[string][]byte
}

// New constructs a Vault. secret must be non-empty (spec.md §4.1: missing
// secret is a ConfigError on first use).
func New(store Store, secret string, log *logger.Logger) *Vault {
	if log == nil {
		log = logger.NewDefault("vault")
	}
	return &Vault{
		store:  store,
		secret: secret,
		log:    log,
		cache:  make(map[string][]byte),
	}
}

// Put encrypts and persists a keypair's secret bytes for escrowID.
func (v *Vault) Put(ctx context.Context, escrowID string, secretKey []byte) error {
	if v.secret == "" {
		return acperrors.Config("vault process secret is not configured")
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return acperrors.Wrap(acperrors.CodeIntegrity, "generate vault salt", err)
	}

	key, err := scrypt.Key([]byte(v.secret), salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return acperrors.Wrap(acperrors.CodeIntegrity, "derive vault key", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return acperrors.Wrap(acperrors.CodeIntegrity, "init cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return acperrors.Wrap(acperrors.CodeIntegrity, "init gcm", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return acperrors.Wrap(acperrors.CodeIntegrity, "generate vault iv", err)
	}

	sealed := gcm.Seal(nil, iv, secretKey, nil)
	ciphertext := sealed[:len(sealed)-gcm.Overhead()]
	tag := sealed[len(sealed)-gcm.Overhead():]

	envelope := fmt.Sprintf("%s:%s:%s:%s:%s",
		envelopeVersion,
		hex.EncodeToString(salt),
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	)

	if err := v.store.PutKeypairEnvelope(ctx, escrowID, envelope); err != nil {
		return acperrors.Store("put keypair envelope", err)
	}

	v.mu.Lock()
	v.cache[escrowID] = append([]byte(nil), secretKey...)
	v.mu.Unlock()

	v.log.WithField("escrowId", escrowID).Debug("vault: keypair stored")
	return nil
}

// Get returns the decrypted secret bytes for escrowID, or ok=false if
// absent. It consults the cache first, falling back to the store.
func (v *Vault) Get(ctx context.Context, escrowID string) ([]byte, bool, error) {
	v.mu.RLock()
	if cached, ok := v.cache[escrowID]; ok {
		v.mu.RUnlock()
		return append([]byte(nil), cached...), true, nil
	}
	v.mu.RUnlock()

	if v.secret == "" {
		return nil, false, acperrors.Config("vault process secret is not configured")
	}

	envelope, ok, err := v.store.GetKeypairEnvelope(ctx, escrowID)
	if err != nil {
		return nil, false, acperrors.Store("get keypair envelope", err)
	}
	if !ok {
		return nil, false, nil
	}

	plaintext, err := v.decrypt(envelope)
	if err != nil {
		return nil, false, err
	}

	v.mu.Lock()
	v.cache[escrowID] = append([]byte(nil), plaintext...)
	v.mu.Unlock()

	return plaintext, true, nil
}

func (v *Vault) decrypt(envelope string) ([]byte, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 5 || parts[0] != envelopeVersion {
		return nil, acperrors.Integrity("unrecognized keypair envelope format", nil)
	}

	salt, err1 := hex.DecodeString(parts[1])
	iv, err2 := hex.DecodeString(parts[2])
	tag, err3 := hex.DecodeString(parts[3])
	ciphertext, err4 := hex.DecodeString(parts[4])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return nil, acperrors.Integrity("malformed keypair envelope hex", nil)
	}

	key, err := scrypt.Key([]byte(v.secret), salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, acperrors.Wrap(acperrors.CodeIntegrity, "derive vault key", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, acperrors.Wrap(acperrors.CodeIntegrity, "init cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, acperrors.Wrap(acperrors.CodeIntegrity, "init gcm", err)
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, acperrors.Integrity("keypair envelope authentication failed", err)
	}
	return plaintext, nil
}

// Clear purges escrowID from both cache and store. Idempotent.
func (v *Vault) Clear(ctx context.Context, escrowID string) error {
	v.mu.Lock()
	delete(v.cache, escrowID)
	v.mu.Unlock()

	if err := v.store.DeleteKeypairEnvelope(ctx, escrowID); err != nil {
		return acperrors.Store("delete keypair envelope", err)
	}
	v.log.WithField("escrowId", escrowID).Debug("vault: keypair cleared")
	return nil
}
