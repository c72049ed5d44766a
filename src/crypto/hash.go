package crypto

import (
	"golang.org/x/crypto/blake2b"
)

// HashSize is the byte length of block and vote digests.
const HashSize = 32

// Blake2b returns the 32-byte blake2b digest of the concatenation of the
// given slices.
func Blake2b(data ...[]byte) []byte {
	hasher, _ := blake2b.New256(nil)
	for _, d := range data {
		hasher.Write(d)
	}
	return hasher.Sum(nil)
}

// Blake2bSized returns a digest of the given size in bytes.
func Blake2bSized(size int, data ...[]byte) []byte {
	hasher, _ := blake2b.New(size, nil)
	for _, d := range data {
		hasher.Write(d)
	}
	return hasher.Sum(nil)
}
