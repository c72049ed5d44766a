package crypto

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkThreshold is the minimum work value a nonce must reach for its root.
const WorkThreshold uint64 = 0xffffffc000000000

// WorkValue scores a nonce against a root. The digest is the 8 byte blake2b
// of the little-endian nonce followed by the root.
func WorkValue(root []byte, nonce uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], nonce)
	digest := Blake2bSized(8, buf[:], root)
	return binary.LittleEndian.Uint64(digest)
}

// WorkValidate reports whether nonce meets the threshold for root.
func WorkValidate(root []byte, nonce uint64) bool {
	return WorkValue(root, nonce) >= WorkThreshold
}

// WorkPool generates proof-of-work nonces with one goroutine per CPU.
type WorkPool struct {
	threads   int
	cancelled uint32
}

// NewWorkPool creates a pool sized to the machine.
func NewWorkPool() *WorkPool {
	threads := runtime.NumCPU()
	if threads < 1 {
		threads = 1
	}
	return &WorkPool{threads: threads}
}

// Generate searches for a nonce meeting the threshold for root. It returns
// false if Cancel was called before a nonce was found.
func (p *WorkPool) Generate(root []byte) (uint64, bool) {
	atomic.StoreUint32(&p.cancelled, 0)

	var (
		wg     sync.WaitGroup
		found  uint32
		result uint64
	)

	for i := 0; i < p.threads; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for atomic.LoadUint32(&found) == 0 && atomic.LoadUint32(&p.cancelled) == 0 {
				nonce := rng.Uint64()
				for i := 0; i < 256; i++ {
					if WorkValue(root, nonce) >= WorkThreshold {
						if atomic.CompareAndSwapUint32(&found, 0, 1) {
							atomic.StoreUint64(&result, nonce)
						}
						return
					}
					nonce++
				}
			}
		}(randomSeed())
	}

	wg.Wait()

	if atomic.LoadUint32(&found) == 1 {
		return atomic.LoadUint64(&result), true
	}
	return 0, false
}

// Cancel aborts an in-flight Generate.
func (p *WorkPool) Cancel() {
	atomic.StoreUint32(&p.cancelled, 1)
}

func randomSeed() int64 {
	var buf [8]byte
	crand.Read(buf[:])
	return int64(binary.LittleEndian.Uint64(buf[:]))
}
