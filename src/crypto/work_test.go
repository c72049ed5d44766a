package crypto

import (
	"testing"
	"time"
)

func TestWorkValueDeterministic(t *testing.T) {
	root := Blake2b([]byte("root"))

	a := WorkValue(root, 12345)
	b := WorkValue(root, 12345)
	if a != b {
		t.Fatalf("work value must be deterministic")
	}
	if WorkValue(root, 12346) == a {
		t.Fatalf("different nonces should score differently")
	}

	other := Blake2b([]byte("other"))
	if WorkValue(other, 12345) == a {
		t.Fatalf("work must be bound to the root")
	}
}

func TestWorkValidateThreshold(t *testing.T) {
	root := Blake2b([]byte("root"))

	// Exhaustively finding a valid nonce is too expensive here, but
	// consistency with WorkValue for an arbitrary nonce can be checked
	// cheaply.
	nonce := uint64(1)
	if WorkValidate(root, nonce) != (WorkValue(root, nonce) >= WorkThreshold) {
		t.Fatalf("validate disagrees with value")
	}
}

func TestWorkPoolCancel(t *testing.T) {
	pool := NewWorkPool()
	root := Blake2b([]byte("cancel"))

	done := make(chan bool, 1)
	go func() {
		_, ok := pool.Generate(root)
		done <- ok
	}()

	time.Sleep(50 * time.Millisecond)
	pool.Cancel()

	select {
	case ok := <-done:
		// A lucky nonce can legitimately land before the cancel.
		_ = ok
	case <-time.After(10 * time.Second):
		t.Fatalf("generate did not return after cancel")
	}
}
