package raze

import (
	"fmt"
	"math/big"
)

// Amount is a 128 bit balance in raw, big-endian.
type Amount [16]byte

var (
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	// MrazeRatio is 10^30 raw.
	MrazeRatio = mustRatio("1000000000000000000000000000000")
	// GrazeRatio is 10^33 raw.
	GrazeRatio = mustRatio("1000000000000000000000000000000000")
	// RazeRatio is 10^24 raw, the usual display unit.
	RazeRatio = mustRatio("1000000000000000000000000")
)

func mustRatio(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad ratio constant: " + s)
	}
	return n
}

// AmountFromBig converts a big integer to an Amount. It fails when the value
// is negative or does not fit in 128 bits.
func AmountFromBig(n *big.Int) (Amount, error) {
	var a Amount
	if n.Sign() < 0 || n.Cmp(maxUint128) > 0 {
		return a, fmt.Errorf("amount out of range: %s", n)
	}
	n.FillBytes(a[:])
	return a, nil
}

// AmountFromString parses a base 10 raw amount.
func AmountFromString(s string) (Amount, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("bad amount: %q", s)
	}
	return AmountFromBig(n)
}

// MaxAmount is the full supply, held by genesis before distribution.
func MaxAmount() Amount {
	var a Amount
	for i := range a {
		a[i] = 0xff
	}
	return a
}

// Big returns the amount as a big integer.
func (a Amount) Big() *big.Int {
	return new(big.Int).SetBytes(a[:])
}

// Add returns a+b. It fails on 128 bit overflow.
func (a Amount) Add(b Amount) (Amount, error) {
	return AmountFromBig(new(big.Int).Add(a.Big(), b.Big()))
}

// Sub returns a-b. It fails when the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	return AmountFromBig(new(big.Int).Sub(a.Big(), b.Big()))
}

// Cmp compares two amounts, returning -1, 0 or 1.
func (a Amount) Cmp(b Amount) int {
	return a.Big().Cmp(b.Big())
}

// IsZero reports whether the amount is zero raw.
func (a Amount) IsZero() bool {
	return a == Amount{}
}

// String renders the amount in raw.
func (a Amount) String() string {
	return a.Big().String()
}
