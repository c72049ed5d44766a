package crypto

import (
	"encoding/hex"
	"io/ioutil"
	"os"
	"path"
	"strings"
	"sync"
)

// KeyFile reads and writes a hex-encoded ed25519 seed on disk.
type KeyFile struct {
	l       sync.Mutex
	keyfile string
}

func NewKeyFile(keyfile string) *KeyFile {
	return &KeyFile{
		keyfile: keyfile,
	}
}

func (k *KeyFile) ReadKey() (*KeyPair, error) {
	k.l.Lock()
	defer k.l.Unlock()

	buf, err := ioutil.ReadFile(k.keyfile)
	if err != nil {
		return nil, err
	}

	seed, err := hex.DecodeString(strings.TrimSpace(string(buf)))
	if err != nil {
		return nil, err
	}

	return KeyPairFromSeed(seed)
}

func (k *KeyFile) WriteKey(key *KeyPair) error {
	k.l.Lock()
	defer k.l.Unlock()

	encoded := hex.EncodeToString(key.Seed())

	if err := os.MkdirAll(path.Dir(k.keyfile), 0700); err != nil {
		return err
	}

	return ioutil.WriteFile(k.keyfile, []byte(encoded), 0600)
}
