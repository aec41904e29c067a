package stream

import (
	"strings"

	"github.com/pkg/errors"
)

// CommitmentLevel is the bank commitment a subscription observes.
type CommitmentLevel int32

// Commitment levels, numbered as on the wire.
const (
	Processed CommitmentLevel = 0
	Confirmed CommitmentLevel = 1
	Finalized CommitmentLevel = 2
)

var commitmentNames = map[CommitmentLevel]string{
	Processed: "processed",
	Confirmed: "confirmed",
	Finalized: "finalized",
}

func (c CommitmentLevel) String() string {
	if n, ok := commitmentNames[c]; ok {
		return n
	}
	return "unknown"
}

// ParseCommitment resolves a commitment level by name, ignoring case.
func ParseCommitment(name string) (CommitmentLevel, error) {
	for lvl, n := range commitmentNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return lvl, nil
		}
	}
	return 0, errors.Errorf("unknown commitment level %q", name)
}

const (
	// VoteTransactionsFilter names the vote transaction filter of a subscription.
	VoteTransactionsFilter = "vote_transactions"
	// FinalizedBlocksFilter names the block filter of a subscription.
	FinalizedBlocksFilter = "finalized_blocks"
	// KeepaliveID is the id sent in keepalive replies.
	KeepaliveID int32 = 1
)

// SubscribeRequest configures or refreshes a subscription.
type SubscribeRequest struct {
	Transactions map[string]*TransactionFilter
	Blocks       map[string]*BlockFilter
	Commitment   *CommitmentLevel
	Ping         *Ping
}

// TransactionFilter selects transactions. Nil pointers leave a criterion unset.
type TransactionFilter struct {
	Vote            *bool
	Failed          *bool
	Signature       *string
	AccountInclude  []string
	AccountExclude  []string
	AccountRequired []string
}

// BlockFilter selects blocks and the parts of a block included in updates.
type BlockFilter struct {
	AccountInclude      []string
	IncludeTransactions *bool
	IncludeAccounts     *bool
	IncludeEntries      *bool
}

// Ping is a client keepalive.
type Ping struct {
	ID int32
}

// VoteSubscription subscribes to the vote transactions of voteAccount and to
// blocks touching it, including their transactions.
func VoteSubscription(voteAccount string, commitment CommitmentLevel) *SubscribeRequest {
	yes, no := true, false
	return &SubscribeRequest{
		Transactions: map[string]*TransactionFilter{
			VoteTransactionsFilter: {
				Vote:           &yes,
				Failed:         &yes,
				AccountInclude: []string{voteAccount},
			},
		},
		Blocks: map[string]*BlockFilter{
			FinalizedBlocksFilter: {
				AccountInclude:      []string{voteAccount},
				IncludeTransactions: &yes,
				IncludeAccounts:     &no,
				IncludeEntries:      &no,
			},
		},
		Commitment: &commitment,
	}
}

// KeepaliveReply is sent in response to every server ping.
func KeepaliveReply() *SubscribeRequest {
	return &SubscribeRequest{Ping: &Ping{ID: KeepaliveID}}
}
