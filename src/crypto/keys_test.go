package crypto

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestKeyPairFromSeed(t *testing.T) {
	seed := make([]byte, 32)
	seed[31] = 1

	a, err := KeyPairFromSeed(seed)
	if err != nil {
		t.Fatal(err)
	}
	b, err := KeyPairFromSeed(seed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Public, b.Public) {
		t.Fatalf("same seed should derive the same key")
	}
	if !bytes.Equal(a.Seed(), seed) {
		t.Fatalf("seed did not roundtrip")
	}
}

func TestSignVerify(t *testing.T) {
	key, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}

	digest := Blake2b([]byte("payload"))
	sig := key.Sign(digest)

	if !Verify(key.Public, digest, sig) {
		t.Fatalf("signature should verify")
	}
	if Verify(key.Public, Blake2b([]byte("other")), sig) {
		t.Fatalf("signature should not verify a different digest")
	}

	sig[0] ^= 0xff
	if Verify(key.Public, digest, sig) {
		t.Fatalf("corrupted signature should not verify")
	}
	if Verify(key.Public[:31], digest, sig) {
		t.Fatalf("short key should not verify")
	}
}

func TestKeyFileRoundtrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "keyfile")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	keyfile := NewKeyFile(filepath.Join(dir, "sub", "vote_key"))

	if _, err := keyfile.ReadKey(); err == nil {
		t.Fatalf("reading a missing keyfile should fail")
	}

	key, err := GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	if err := keyfile.WriteKey(key); err != nil {
		t.Fatal(err)
	}

	read, err := keyfile.ReadKey()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(read.Public, key.Public) {
		t.Fatalf("keyfile did not roundtrip")
	}
}
