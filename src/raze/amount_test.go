package raze

import (
	"math/big"
	"testing"
)

func TestAmountRange(t *testing.T) {
	if _, err := AmountFromBig(big.NewInt(-1)); err == nil {
		t.Fatalf("negative amounts should be rejected")
	}

	over := new(big.Int).Add(MaxAmount().Big(), big.NewInt(1))
	if _, err := AmountFromBig(over); err == nil {
		t.Fatalf("amounts above 2^128-1 should be rejected")
	}

	max, err := AmountFromBig(MaxAmount().Big())
	if err != nil {
		t.Fatal(err)
	}
	if max != MaxAmount() {
		t.Fatalf("max amount did not roundtrip")
	}
}

func TestAmountArithmetic(t *testing.T) {
	a, _ := AmountFromString("1000")
	b, _ := AmountFromString("300")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatal(err)
	}
	if sum.String() != "1300" {
		t.Fatalf("expected 1300, got %s", sum.String())
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff.String() != "700" {
		t.Fatalf("expected 700, got %s", diff.String())
	}

	if _, err := b.Sub(a); err == nil {
		t.Fatalf("underflow should be rejected")
	}
	if _, err := MaxAmount().Add(a); err == nil {
		t.Fatalf("overflow should be rejected")
	}

	if a.Cmp(b) <= 0 || b.Cmp(a) >= 0 || a.Cmp(a) != 0 {
		t.Fatalf("comparison is inconsistent")
	}
	var zero Amount
	if !zero.IsZero() || a.IsZero() {
		t.Fatalf("zero detection is wrong")
	}
}

func TestRatios(t *testing.T) {
	if GrazeRatio.Cmp(new(big.Int).Mul(MrazeRatio, big.NewInt(1000))) != 0 {
		t.Fatalf("Graze should be 1000 Mraze")
	}
	mraze, err := AmountFromBig(MrazeRatio)
	if err != nil {
		t.Fatal(err)
	}
	if mraze.Big().Cmp(MrazeRatio) != 0 {
		t.Fatalf("Mraze did not roundtrip through Amount")
	}
}
