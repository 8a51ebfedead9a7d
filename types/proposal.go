package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type ProposalState uint8

const (
	ProposalStatePending ProposalState = iota
	ProposalStateActive
	ProposalStateCanceled
	ProposalStateDefeated
	ProposalStateSucceeded
	ProposalStateQueued
	ProposalStateExpired
	ProposalStateExecuted
)

var proposalStateNames = []string{
	"Pending", "Active", "Canceled", "Defeated", "Succeeded", "Queued", "Expired", "Executed",
}

func (s ProposalState) String() string {
	if int(s) < len(proposalStateNames) {
		return proposalStateNames[s]
	}
	return fmt.Sprintf("ProposalState(%d)", uint8(s))
}

func ParseProposalState(name string) (ProposalState, error) {
	for i, n := range proposalStateNames {
		if strings.EqualFold(n, name) {
			return ProposalState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown proposal state %q", name)
}

// VoteType is the support value of a ballot.
type VoteType uint8

const (
	VoteAgainst VoteType = 0
	VoteFor     VoteType = 1
	VoteAbstain VoteType = 2
)

func (v VoteType) Valid() bool {
	return v <= VoteAbstain
}

func (v VoteType) String() string {
	switch v {
	case VoteAgainst:
		return "Against"
	case VoteFor:
		return "For"
	case VoteAbstain:
		return "Abstain"
	default:
		return fmt.Sprintf("VoteType(%d)", uint8(v))
	}
}

// ProposalView is the query representation of a proposal at a given height.
type ProposalView struct {
	Id           common.Hash    `json:"id" yaml:"id"`
	Proposer     common.Address `json:"proposer" yaml:"proposer"`
	State        string         `json:"state" yaml:"state"`
	Snapshot     uint64         `json:"snapshot" yaml:"snapshot"`
	VoteStart    uint64         `json:"voteStart" yaml:"voteStart"`
	VoteEnd      uint64         `json:"voteEnd" yaml:"voteEnd"`
	Eta          uint64         `json:"eta" yaml:"eta"`
	Quorum       *big.Int       `json:"quorum" yaml:"quorum"`
	AgainstVotes *big.Int       `json:"againstVotes" yaml:"againstVotes"`
	ForVotes     *big.Int       `json:"forVotes" yaml:"forVotes"`
	AbstainVotes *big.Int       `json:"abstainVotes" yaml:"abstainVotes"`
	Height       uint64         `json:"height" yaml:"height"`
}

type ReceiptView struct {
	HasVoted bool     `json:"hasVoted" yaml:"hasVoted"`
	Support  VoteType `json:"support" yaml:"support"`
	Weight   *big.Int `json:"weight" yaml:"weight"`
}
