// Package crypto manages the per-process secret that keys log pseudonyms.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

const KeySize = 32

func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

func EncodeKey(key []byte) string {
	return base64.URLEncoding.EncodeToString(key)
}

func DecodeKey(encoded string) ([]byte, error) {
	key, err := base64.URLEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), KeySize)
	}
	return key, nil
}

// ResolveKey decodes a configured secret, or generates a fresh one when
// encoded is empty. generated reports which of the two happened.
func ResolveKey(encoded string) (key []byte, generated bool, err error) {
	if strings.TrimSpace(encoded) == "" {
		key, err = GenerateKey()
		return key, true, err
	}
	key, err = DecodeKey(encoded)
	return key, false, err
}
