package raze

import (
	"reflect"
	"testing"

	"github.com/razeblock/raze/src/crypto"
)

func testKey(t *testing.T, seed byte) *crypto.KeyPair {
	t.Helper()
	raw := make([]byte, 32)
	raw[0] = seed
	key, err := crypto.KeyPairFromSeed(raw)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestSendBlockSignature(t *testing.T) {
	key := testKey(t, 1)
	other := testKey(t, 2)

	balance, _ := AmountFromString("1000")
	block := NewSendBlock(Hash{1}, AccountFromKey(other), balance, key, 7)

	if !ValidateBlockSignature(block, AccountFromKey(key)) {
		t.Fatalf("signature from signing key should validate")
	}
	if ValidateBlockSignature(block, AccountFromKey(other)) {
		t.Fatalf("signature should not validate against another account")
	}
}

func TestWorkExcludedFromHash(t *testing.T) {
	key := testKey(t, 1)
	balance, _ := AmountFromString("42")

	block := NewSendBlock(Hash{1}, AccountFromKey(key), balance, key, 7)
	before := block.Hash()
	block.SetBlockWork(123456)
	if block.Hash() != before {
		t.Fatalf("changing work must not change the hash")
	}
	if block.BlockWork() != 123456 {
		t.Fatalf("work not updated")
	}
}

func TestOpenBlockRoot(t *testing.T) {
	key := testKey(t, 3)
	account := AccountFromKey(key)

	block := NewOpenBlock(Hash{9}, account, account, key, 0)
	if block.Root() != Hash(account) {
		t.Fatalf("open root should be the account, got %v", block.Root())
	}
	if !block.Previous().IsZero() {
		t.Fatalf("open block has no previous")
	}
}

func TestBlockRoundtrips(t *testing.T) {
	key := testKey(t, 4)
	account := AccountFromKey(key)
	balance, _ := AmountFromString("123456789")

	blocks := []Block{
		NewSendBlock(Hash{1}, account, balance, key, 11),
		NewReceiveBlock(Hash{2}, Hash{3}, key, 12),
		NewOpenBlock(Hash{4}, account, account, key, 13),
		NewChangeBlock(Hash{5}, account, key, 14),
	}

	for _, block := range blocks {
		data := block.Marshal()
		if len(data) != BlockSize(block.Type()) {
			t.Fatalf("%s marshals to %d bytes, expected %d", block.Type(), len(data), BlockSize(block.Type()))
		}
		decoded, err := UnmarshalBlock(block.Type(), data)
		if err != nil {
			t.Fatalf("%s: %v", block.Type(), err)
		}
		if !reflect.DeepEqual(decoded, block) {
			t.Fatalf("%s did not survive the roundtrip", block.Type())
		}
		if decoded.Hash() != block.Hash() {
			t.Fatalf("%s hash changed across the roundtrip", block.Type())
		}
	}
}

func TestUnmarshalBlockShort(t *testing.T) {
	if _, err := UnmarshalBlock(BlockSend, make([]byte, 10)); err == nil {
		t.Fatalf("short send should be rejected")
	}
	if _, err := UnmarshalBlock(BlockInvalid, make([]byte, 200)); err == nil {
		t.Fatalf("invalid block type should be rejected")
	}
}
