package governance

import (
	"math/big"

	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

const QuorumDenominator = 100

// VotingPowerOracle answers historical voting power. Reads at or below the
// current height never change; reads above it fail.
type VotingPowerOracle interface {
	GetPastVotes(s state.KVStore, current uint64, account common.Address, height uint64) (*big.Int, error)
	GetPastTotalSupply(s state.KVStore, current uint64, height uint64) (*big.Int, error)
}

// Params are fixed at deployment and change only through an executed proposal.
type Params struct {
	Name                  string   `json:"name" yaml:"name"`
	VotingDelay           uint64   `json:"votingDelay" yaml:"votingDelay"`
	VotingPeriod          uint64   `json:"votingPeriod" yaml:"votingPeriod"`
	ProposalThreshold     *big.Int `json:"proposalThreshold" yaml:"proposalThreshold"`
	QuorumNumerator       uint64   `json:"quorumNumerator" yaml:"quorumNumerator"`
	GracePeriod           uint64   `json:"gracePeriod" yaml:"gracePeriod"`
	RejectZeroWeightVotes bool     `json:"rejectZeroWeightVotes" yaml:"rejectZeroWeightVotes"`
}

func (p *Params) Validate() error {
	if p.VotingPeriod == 0 {
		return types.Wrapf(types.ErrInvalidParam, "voting period must be positive")
	}
	if p.QuorumNumerator > QuorumDenominator {
		return types.Wrapf(types.ErrInvalidParam, "quorum numerator %d over %d", p.QuorumNumerator, QuorumDenominator)
	}
	if p.ProposalThreshold != nil && p.ProposalThreshold.Sign() < 0 {
		return types.Wrapf(types.ErrInvalidParam, "negative proposal threshold")
	}
	return nil
}

func (e *Engine) Params(s state.KVStore) (*Params, error) {
	p := new(Params)
	if _, err := state.GetJSON(s, e.key("params"), p); err != nil {
		return nil, err
	}
	if p.ProposalThreshold == nil {
		p.ProposalThreshold = new(big.Int)
	}
	return p, nil
}

func (e *Engine) setParams(s state.KVStore, p *Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return state.SetJSON(s, e.key("params"), p)
}
