package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/agentcommerce/acp-core/internal/domain/agreement"
	acperrors "github.com/agentcommerce/acp-core/internal/errors"
)

// SignParty produces a detached Ed25519 signature envelope for signerAddress
// over (agreementID, agreementHash), per spec.md §4.4's "Signing" clause.
func SignParty(priv ed25519.PrivateKey, agreementID, agreementHash, signerAddress string, timestamp int64) (agreement.Signature, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return agreement.Signature{}, acperrors.Wrap(acperrors.CodeIntegrity, "generate nonce", err)
	}

	payload := agreement.SignaturePayload{
		AgreementID:   agreementID,
		AgreementHash: agreementHash,
		SignerAddress: signerAddress,
		Timestamp:     timestamp,
		Nonce:         hex.EncodeToString(nonce),
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return agreement.Signature{}, acperrors.Wrap(acperrors.CodeIntegrity, "serialize signature payload", err)
	}

	sig := ed25519.Sign(priv, serialized)

	return agreement.Signature{
		Payload:   payload,
		Signature: base58.Encode(sig),
	}, nil
}

// VerifyParty re-serializes the payload and checks the three conditions
// named in spec.md §4.4: matching agreementId, matching agreementHash, and
// a valid Ed25519 signature under pub.
func VerifyParty(pub ed25519.PublicKey, agreementID, agreementHash string, sig agreement.Signature) bool {
	if sig.Payload.AgreementID != agreementID {
		return false
	}
	if sig.Payload.AgreementHash != agreementHash {
		return false
	}

	serialized, err := json.Marshal(sig.Payload)
	if err != nil {
		return false
	}

	raw, err := base58.Decode(sig.Signature)
	if err != nil {
		return false
	}

	return ed25519.Verify(pub, serialized, raw)
}

// ParsePublicKey decodes a base58 or hex-encoded Ed25519 public key.
func ParsePublicKey(encoded string) (ed25519.PublicKey, error) {
	if raw, err := base58.Decode(encoded); err == nil && len(raw) == ed25519.PublicKeySize {
		return ed25519.PublicKey(raw), nil
	}
	raw, err := hex.DecodeString(encoded)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid ed25519 public key encoding")
	}
	return ed25519.PublicKey(raw), nil
}
