package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/ed25519"

	"github.com/razeblock/raze/src/common"
)

// KeyPair holds an ed25519 private key and its derived public key. The
// public key doubles as the account address.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// GenerateKeyPair creates a new random keypair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: priv, Public: pub}, nil
}

// KeyPairFromSeed derives the keypair from a 32 byte seed.
func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &KeyPair{
		Private: priv,
		Public:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// KeyPairFromSeedHex derives the keypair from a hex-encoded seed.
func KeyPairFromSeedHex(seedHex string) (*KeyPair, error) {
	seed, err := common.DecodeFromString(seedHex)
	if err != nil {
		return nil, err
	}
	return KeyPairFromSeed(seed)
}

// Seed returns the private key's 32 byte seed.
func (k *KeyPair) Seed() []byte {
	return k.Private.Seed()
}

// Sign signs the digest with the private key.
func (k *KeyPair) Sign(digest []byte) []byte {
	return ed25519.Sign(k.Private, digest)
}

// Verify reports whether signature is a valid signature of digest by pub.
func Verify(pub ed25519.PublicKey, digest []byte, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, digest, signature)
}
