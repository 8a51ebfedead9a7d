package governance

import (
	"math/big"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

// Proposal is the stored record. Only the id of the action set is kept; the
// actions themselves travel in the creation event.
type Proposal struct {
	Id              common.Hash
	Seq             uint64
	Proposer        common.Address
	Snapshot        uint64
	VoteStart       uint64
	VoteEnd         uint64
	QuorumNumerator uint64
	AgainstVotes    *big.Int
	ForVotes        *big.Int
	AbstainVotes    *big.Int
	Queued          bool
	Eta             uint64
	OperationId     common.Hash
	Executed        bool
	Canceled        bool
}

type Receipt struct {
	HasVoted bool
	Support  uint8
	Weight   *big.Int
}

// Registry is the proposal book of one governor. It stores tallies and
// receipts and decides the tally outcome; lifecycle decisions live in Engine.
type Registry struct {
	self   common.Address
	oracle VotingPowerOracle
}

func NewRegistry(governor common.Address, oracle VotingPowerOracle) *Registry {
	return &Registry{self: governor, oracle: oracle}
}

func (r *Registry) key(format string, args ...any) []byte {
	return contract.StorageKey(r.self, format, args...)
}

func (r *Registry) Count(s state.KVStore) (uint64, error) {
	return state.GetUint64(s, r.key("pcount"))
}

// IdAt returns the id of the seq-th proposal, zero-based.
func (r *Registry) IdAt(s state.KVStore, seq uint64) (common.Hash, error) {
	val, err := s.Get(r.key("pseq%016x", seq))
	return common.BytesToHash(val), err
}

func (r *Registry) Create(s state.KVStore, id common.Hash, proposer common.Address, snapshot, voteStart, voteEnd, quorumNumerator uint64) (*Proposal, error) {
	exists, err := s.Has(r.key("p%x", id.Bytes()))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, types.Wrapf(types.ErrDuplicateProposal, "%s", id.Hex())
	}
	seq, err := r.Count(s)
	if err != nil {
		return nil, err
	}
	p := &Proposal{
		Id:              id,
		Seq:             seq,
		Proposer:        proposer,
		Snapshot:        snapshot,
		VoteStart:       voteStart,
		VoteEnd:         voteEnd,
		QuorumNumerator: quorumNumerator,
		AgainstVotes:    new(big.Int),
		ForVotes:        new(big.Int),
		AbstainVotes:    new(big.Int),
	}
	if err = r.Save(s, p); err != nil {
		return nil, err
	}
	if err = s.Set(r.key("pseq%016x", seq), id.Bytes()); err != nil {
		return nil, err
	}
	if err = state.SetUint64(s, r.key("pcount"), seq+1); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Registry) Get(s state.KVStore, id common.Hash) (*Proposal, error) {
	p := new(Proposal)
	found, err := state.GetRLP(s, r.key("p%x", id.Bytes()), p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.Wrapf(types.ErrUnknownProposal, "%s", id.Hex())
	}
	return p, nil
}

func (r *Registry) Save(s state.KVStore, p *Proposal) error {
	return state.SetRLP(s, r.key("p%x", p.Id.Bytes()), p)
}

func (r *Registry) Receipt(s state.KVStore, id common.Hash, voter common.Address) (*Receipt, error) {
	rc := &Receipt{Weight: new(big.Int)}
	_, err := state.GetRLP(s, r.key("v%x%x", id.Bytes(), voter.Bytes()), rc)
	return rc, err
}

// RecordVote adds weight to one bucket of the tally. Each voter gets exactly
// one receipt per proposal, whatever its weight.
func (r *Registry) RecordVote(s state.KVStore, now uint64, id common.Hash, voter common.Address, support types.VoteType, weight *big.Int) error {
	p, err := r.Get(s, id)
	if err != nil {
		return err
	}
	if now < p.VoteStart || now >= p.VoteEnd {
		return types.Wrapf(types.ErrVotingClosed, "height %d outside [%d, %d)", now, p.VoteStart, p.VoteEnd)
	}
	rc, err := r.Receipt(s, id, voter)
	if err != nil {
		return err
	}
	if rc.HasVoted {
		return types.Wrapf(types.ErrAlreadyVoted, "%s on %s", voter.Hex(), id.Hex())
	}
	switch support {
	case types.VoteAgainst:
		p.AgainstVotes.Add(p.AgainstVotes, weight)
	case types.VoteFor:
		p.ForVotes.Add(p.ForVotes, weight)
	case types.VoteAbstain:
		p.AbstainVotes.Add(p.AbstainVotes, weight)
	default:
		return types.Wrapf(types.ErrInvalidSupport, "%d", support)
	}
	if err = r.Save(s, p); err != nil {
		return err
	}
	return state.SetRLP(s, r.key("v%x%x", id.Bytes(), voter.Bytes()), &Receipt{HasVoted: true, Support: uint8(support), Weight: weight})
}

// Quorum is the participation p needs: floor(supply at snapshot * numerator / 100).
func (r *Registry) Quorum(s state.KVStore, current uint64, p *Proposal) (*big.Int, error) {
	return quorumAt(s, r.oracle, current, p.Snapshot, p.QuorumNumerator)
}

func quorumAt(s state.KVStore, oracle VotingPowerOracle, current, height, numerator uint64) (*big.Int, error) {
	supply, err := oracle.GetPastTotalSupply(s, current, height)
	if err != nil {
		return nil, err
	}
	q := new(big.Int).Mul(supply, new(big.Int).SetUint64(numerator))
	return q.Div(q, big.NewInt(QuorumDenominator)), nil
}

// TallyResult reports Succeeded when for beats against and participation
// meets quorum, Defeated otherwise.
func (r *Registry) TallyResult(s state.KVStore, current uint64, p *Proposal) (types.ProposalState, error) {
	quorum, err := r.Quorum(s, current, p)
	if err != nil {
		return types.ProposalStateDefeated, err
	}
	total := new(big.Int).Add(p.ForVotes, p.AgainstVotes)
	total.Add(total, p.AbstainVotes)
	if p.ForVotes.Cmp(p.AgainstVotes) > 0 && total.Cmp(quorum) >= 0 {
		return types.ProposalStateSucceeded, nil
	}
	return types.ProposalStateDefeated, nil
}
