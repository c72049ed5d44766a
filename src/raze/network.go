package raze

import (
	"github.com/razeblock/raze/src/common"
	"github.com/razeblock/raze/src/crypto"
)

// NetworkID selects one of the three wire-incompatible networks.
type NetworkID byte

const (
	NetworkLive NetworkID = iota
	NetworkBeta
	NetworkTest
)

func (n NetworkID) String() string {
	switch n {
	case NetworkLive:
		return "live"
	case NetworkBeta:
		return "beta"
	case NetworkTest:
		return "test"
	}
	return "unknown"
}

// Network pins the constants that differ between live, beta and test:
// the wire magic, the default port, the genesis block and the
// preconfigured representatives every node trusts until it learns better.
type Network struct {
	ID                NetworkID
	Magic             [2]byte
	Port              uint16
	AllowLoopback     bool
	GenesisAccount    Account
	Genesis           *OpenBlock
	PreconfiguredReps []Account
}

var liveRepresentatives = []string{
	"A30E0A32ED41C8607AA9212843392E853FCBCB4E7CB194E35C94F07F91DE59EF",
	"67556D31DDFC2A440BF6147501449B4CB9572278D034EE686A6BEE29851681DF",
	"5C2FBB148E006A8E8BA7A75DD86C9FE00C83F5FFDBFD76EAA09531071436B6AF",
	"AE7AC63990DAAAF2A69BF11C913B928844BF5012355456F2F164166464024B29",
	"BD6267D6ECD8038327D2BCC0850BDF8F56EC0414912207E81BCF90DFAC8A4AAA",
	"2399A083C600AA0572F5E36247D978FCFC840405F8D4B6D33161C0066A55F431",
	"2298FAB7C61058E77EA554CB93EDEEDA0692CBFCC540AB213B2836B29029E23A",
	"3FE80B4BC842E82C1C18ABFEEC47EA989E63953BC82AC411F304D13833D52A56",
}

var betaRepresentatives = []string{
	"C14D45B26BD3F5368A905D0C302D29C04A6CFF0760B9969A95A12DE92B49EC67",
	"7ED4DE61B3AA365AA13FDB2DDAB2F0B459524D2C8D0C0FF9BE5D6708B68E2A94",
	"1C9B4A9163F022DED2E4A0BF5A533EA965DB9F4D5F8B8A0A6E05BBA99CD2E2DF",
	"53A8AF83F06DE9CC1A25AF1955CE617F0E7B2AC217A83E5C9A49896DAFD4C9A7",
}

const (
	liveGenesisAccount   = "E89208DD038FBB269987689621D52292AE9C35941A7484756ECCED92A65093BA"
	liveGenesisSignature = "9F0C933C8ADE004D808EA1985FA746A7E95BA2A38F867640F53EC8F180BDFE9E2C1268DEAD7C2664F356E37ABA362BC58E46DBA03E523A7B5A19E4B6EB12BB02"
	liveGenesisWork      = 0x62f05417dd3fb691

	betaGenesisAccount   = "A59A47CC4F593E75AE9AD653FDA9358E2F7898D9ACC8C60E80D0495CE20FBA9F"
	betaGenesisSignature = "A726490E3325E4FA59C1C900D5B6EEBB15FE13D99F49D475B93F0AACC5635929A0614CF3892764A04D1C6732A0D716FFEB254D4154C6F544D11E6630F201450B"
	betaGenesisWork      = 0x000000000f0aaeeb

	testGenesisSeed = "0000000000000000000000000000000000000000000000000000000000000000"
)

func mustAccount(hexAccount string) Account {
	a, err := AccountFromString(hexAccount)
	if err != nil {
		panic("bad account constant: " + hexAccount)
	}
	return a
}

func mustSignature(hexSig string) Signature {
	var s Signature
	raw, err := common.DecodeFromString(hexSig)
	if err != nil || len(raw) != len(s) {
		panic("bad signature constant: " + hexSig)
	}
	copy(s[:], raw)
	return s
}

func accountSlice(hexAccounts []string) []Account {
	accounts := make([]Account, 0, len(hexAccounts))
	for _, h := range hexAccounts {
		accounts = append(accounts, mustAccount(h))
	}
	return accounts
}

func pinnedGenesis(account Account, signature Signature, work uint64) *OpenBlock {
	b := &OpenBlock{
		Hashables: OpenHashables{
			Source:         Hash(account),
			Representative: account,
			Account:        account,
		},
	}
	b.SetBlockSignature(signature)
	b.SetBlockWork(work)
	return b
}

// LiveNetwork returns the production network parameters.
func LiveNetwork() *Network {
	account := mustAccount(liveGenesisAccount)
	return &Network{
		ID:                NetworkLive,
		Magic:             [2]byte{'R', 'C'},
		Port:              7075,
		GenesisAccount:    account,
		Genesis:           pinnedGenesis(account, mustSignature(liveGenesisSignature), liveGenesisWork),
		PreconfiguredReps: accountSlice(liveRepresentatives),
	}
}

// BetaNetwork returns the public test network parameters.
func BetaNetwork() *Network {
	account := mustAccount(betaGenesisAccount)
	return &Network{
		ID:                NetworkBeta,
		Magic:             [2]byte{'R', 'B'},
		Port:              54000,
		GenesisAccount:    account,
		Genesis:           pinnedGenesis(account, mustSignature(betaGenesisSignature), betaGenesisWork),
		PreconfiguredReps: accountSlice(betaRepresentatives),
	}
}

// TestGenesisKey is the well known keypair holding the entire test network
// supply, so tests can distribute weight deterministically.
func TestGenesisKey() *crypto.KeyPair {
	key, err := crypto.KeyPairFromSeedHex(testGenesisSeed)
	if err != nil {
		panic(err)
	}
	return key
}

// TestNetwork returns the local test network parameters. Its genesis is
// derived from TestGenesisKey and loopback peers are allowed.
func TestNetwork() *Network {
	key := TestGenesisKey()
	account := AccountFromKey(key)
	genesis := NewOpenBlock(Hash(account), account, account, key, 0)
	return &Network{
		ID:                NetworkTest,
		Magic:             [2]byte{'R', 'A'},
		Port:              54000,
		AllowLoopback:     true,
		GenesisAccount:    account,
		Genesis:           genesis,
		PreconfiguredReps: []Account{account},
	}
}
