package ledger

// ProcessResult is the outcome of feeding one block to the ledger.
// Consensus outcomes are codes, not errors; errors are reserved for store
// failures.
type ProcessResult int

const (
	// Progress means the block extended the ledger.
	Progress ProcessResult = iota
	// Old means the block is already settled.
	Old
	// GapPrevious means the predecessor is unknown.
	GapPrevious
	// GapSource means the source send is unknown.
	GapSource
	// Fork means the root already has a different successor.
	Fork
	// BadSignature means the signature does not match the account.
	BadSignature
	// NegativeSpend means a send balance exceeds the previous balance.
	NegativeSpend
	// Unreceivable means no pending entry exists for the source.
	Unreceivable
	// NotReceiveFromSend means the source block is not a send.
	NotReceiveFromSend
	// AccountMismatch means the pending entry names another destination.
	AccountMismatch
	// OpenedBurnAccount means an open block claims the burn address.
	OpenedBurnAccount
)

var processResultNames = map[ProcessResult]string{
	Progress:           "progress",
	Old:                "old",
	GapPrevious:        "gap_previous",
	GapSource:          "gap_source",
	Fork:               "fork",
	BadSignature:       "bad_signature",
	NegativeSpend:      "negative_spend",
	Unreceivable:       "unreceivable",
	NotReceiveFromSend: "not_receive_from_send",
	AccountMismatch:    "account_mismatch",
	OpenedBurnAccount:  "opened_burn_account",
}

func (r ProcessResult) String() string {
	if n, ok := processResultNames[r]; ok {
		return n
	}
	return "unknown"
}

// VoteResult is the outcome of validating an incoming vote.
type VoteResult int

const (
	// VoteValid means a fresh vote with the highest sequence yet.
	VoteValid VoteResult = iota
	// VoteReplay means the sequence does not beat the stored one.
	VoteReplay
	// VoteInvalid means the signature check failed.
	VoteInvalid
)

func (r VoteResult) String() string {
	switch r {
	case VoteValid:
		return "vote"
	case VoteReplay:
		return "replay"
	case VoteInvalid:
		return "invalid"
	}
	return "unknown"
}
