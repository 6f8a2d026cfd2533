package privacy

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const (
	PseudonymHexLen = 12

	minKeySize = 16
)

// Anonymizer turns identifiers into stable tokens for the lifetime of its
// key. Tokens are recomputed on every call; nothing about past inputs is kept.
type Anonymizer struct {
	key []byte
}

func NewAnonymizer(key []byte) (*Anonymizer, error) {
	if len(key) < minKeySize || len(key) > blake2b.Size {
		return nil, fmt.Errorf("anonymizer key must be %d-%d bytes, got %d", minKeySize, blake2b.Size, len(key))
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Anonymizer{key: k}, nil
}

// Pseudonymize returns "block_<hex>" for raw.
func (a *Anonymizer) Pseudonymize(raw string) string {
	return a.PseudonymizeAs("block", raw)
}

// PseudonymizeAs returns "<kind>_<hex>" where hex is the truncated keyed
// BLAKE2b-256 digest of raw.
func (a *Anonymizer) PseudonymizeAs(kind, raw string) string {
	if raw == "" {
		return EmptyToken
	}
	h, err := blake2b.New256(a.key)
	if err != nil {
		// key length is checked in NewAnonymizer
		return Placeholder
	}
	h.Write([]byte(raw))
	return kind + "_" + hex.EncodeToString(h.Sum(nil))[:PseudonymHexLen]
}
