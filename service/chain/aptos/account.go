package aptos

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ed25519 single signer authentication scheme
const schemeEd25519 = 0x00

// Address derives the account address of an ed25519 public key.
func Address(pub ed25519.PublicKey) string {
	h := sha3.New256()
	h.Write(pub)
	h.Write([]byte{schemeEd25519})
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// ParseKey decodes a hex encoded ed25519 seed.
func ParseKey(key string) (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(key, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid private key: want %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	return ed25519.NewKeyFromSeed(seed), nil
}

// EncodeKey is the inverse of ParseKey.
func EncodeKey(pk ed25519.PrivateKey) string {
	return "0x" + hex.EncodeToString(pk.Seed())
}
