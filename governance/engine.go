package governance

import (
	"fmt"
	"math/big"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/timelock"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

// Engine is the governor: it turns proposals and ballots into timelock
// operations. Height is its clock for voting windows; block time is the
// timelock's clock for eta and expiry.
type Engine struct {
	Self     common.Address
	Registry *Registry

	oracle   VotingPowerOracle
	timelock *timelock.Timelock
}

func NewEngine(addr common.Address, oracle VotingPowerOracle, tl *timelock.Timelock) *Engine {
	return &Engine{
		Self:     addr,
		Registry: NewRegistry(addr, oracle),
		oracle:   oracle,
		timelock: tl,
	}
}

func (e *Engine) key(format string, args ...any) []byte {
	return contract.StorageKey(e.Self, format, args...)
}

func (e *Engine) Init(ctx *contract.Context, params *Params) error {
	return e.setParams(ctx.Store(), params)
}

func (e *Engine) Timelock() common.Address {
	return e.timelock.Self
}

// Actions is the full argument set naming a proposal.
type Actions struct {
	Targets   []common.Address
	Values    []*big.Int
	Calldatas [][]byte
}

func (a *Actions) validate() error {
	if len(a.Targets) == 0 {
		return types.Wrapf(types.ErrEmptyProposal, "no targets")
	}
	if len(a.Targets) != len(a.Values) || len(a.Targets) != len(a.Calldatas) {
		return types.Wrapf(types.ErrEmptyProposal, "targets %d, values %d, calldatas %d", len(a.Targets), len(a.Values), len(a.Calldatas))
	}
	for i, v := range a.Values {
		if v != nil && v.Sign() < 0 {
			return types.Wrapf(types.ErrInvalidParam, "negative value at %d", i)
		}
		if v != nil && v.BitLen() > 256 {
			return types.Wrapf(types.ErrInvalidParam, "value at %d exceeds uint256", i)
		}
	}
	a.Values = Values(a.Values)
	return nil
}

func (a *Actions) Id(descriptionHash common.Hash) common.Hash {
	return HashProposal(a.Targets, a.Values, a.Calldatas, descriptionHash)
}

// Propose registers a proposal whose vote opens votingDelay blocks from now.
func (e *Engine) Propose(ctx *contract.Context, actions Actions, description string) (common.Hash, error) {
	if err := actions.validate(); err != nil {
		return common.Hash{}, err
	}
	if description == "" {
		return common.Hash{}, types.ErrEmptyDescription
	}
	s := ctx.Store()
	params, err := e.Params(s)
	if err != nil {
		return common.Hash{}, err
	}
	now := ctx.Block.Height
	proposer := ctx.Caller
	power, err := e.oracle.GetPastVotes(s, now, proposer, now)
	if err != nil {
		return common.Hash{}, err
	}
	if power.Cmp(params.ProposalThreshold) < 0 {
		return common.Hash{}, types.Wrapf(types.ErrBelowThreshold, "%s has %s, threshold %s", proposer.Hex(), power, params.ProposalThreshold)
	}
	id := actions.Id(HashDescription(description))
	snapshot := now + params.VotingDelay
	voteEnd := snapshot + params.VotingPeriod
	if _, err = e.Registry.Create(s, id, proposer, snapshot, snapshot, voteEnd, params.QuorumNumerator); err != nil {
		return common.Hash{}, err
	}
	ctx.EmitFrom(e.Self, types.EncodeEventProposalCreated(&types.EventProposalCreated{
		ProposalId:  id,
		Proposer:    proposer,
		Targets:     actions.Targets,
		Values:      actions.Values,
		Calldatas:   actions.Calldatas,
		VoteStart:   snapshot,
		VoteEnd:     voteEnd,
		Description: description,
	}))
	ctx.Logger().Debug("proposal created", "id", id.Hex(), "proposer", proposer.Hex(), "start", snapshot, "end", voteEnd)
	return id, nil
}

// State derives the lifecycle state of id at blk. Nothing is written; every
// transition past Active is evaluated lazily.
func (e *Engine) State(s state.KVStore, blk contract.Block, id common.Hash) (types.ProposalState, error) {
	p, err := e.Registry.Get(s, id)
	if err != nil {
		return 0, err
	}
	return e.state(s, blk, p)
}

func (e *Engine) state(s state.KVStore, blk contract.Block, p *Proposal) (types.ProposalState, error) {
	switch {
	case p.Executed:
		return types.ProposalStateExecuted, nil
	case p.Canceled:
		return types.ProposalStateCanceled, nil
	case blk.Height < p.VoteStart:
		return types.ProposalStatePending, nil
	case blk.Height < p.VoteEnd:
		return types.ProposalStateActive, nil
	case !p.Queued:
		return e.Registry.TallyResult(s, blk.Height, p)
	}
	op, found, err := e.timelock.GetOperation(s, p.OperationId)
	if err != nil {
		return 0, err
	}
	if !found {
		return types.ProposalStateCanceled, nil
	}
	if op.Executed {
		return types.ProposalStateExecuted, nil
	}
	params, err := e.Params(s)
	if err != nil {
		return 0, err
	}
	if params.GracePeriod > 0 && blk.Time >= p.Eta+params.GracePeriod {
		return types.ProposalStateExpired, nil
	}
	return types.ProposalStateQueued, nil
}

// CastVote records the caller's ballot weighted by its power at the snapshot.
func (e *Engine) CastVote(ctx *contract.Context, id common.Hash, support types.VoteType, reason string) (*big.Int, error) {
	s := ctx.Store()
	p, err := e.Registry.Get(s, id)
	if err != nil {
		return nil, err
	}
	st, err := e.state(s, ctx.Block, p)
	if err != nil {
		return nil, err
	}
	if st != types.ProposalStateActive {
		return nil, types.Wrapf(types.ErrVotingClosed, "proposal is %s", st)
	}
	voter := ctx.Caller
	weight, err := e.oracle.GetPastVotes(s, ctx.Block.Height, voter, p.Snapshot)
	if err != nil {
		return nil, err
	}
	params, err := e.Params(s)
	if err != nil {
		return nil, err
	}
	if weight.Sign() == 0 && params.RejectZeroWeightVotes {
		return nil, types.Wrapf(types.ErrVoterHasNoWeight, "%s", voter.Hex())
	}
	if err = e.Registry.RecordVote(s, ctx.Block.Height, id, voter, support, weight); err != nil {
		return nil, err
	}
	ctx.EmitFrom(e.Self, types.EncodeEventVoteCast(&types.EventVoteCast{
		Voter:      voter,
		ProposalId: id,
		Support:    support,
		Weight:     weight,
		Reason:     reason,
	}))
	return weight, nil
}

// Queue schedules a succeeded proposal on the timelock with the minimum delay.
func (e *Engine) Queue(ctx *contract.Context, actions Actions, descriptionHash common.Hash) (common.Hash, error) {
	if err := actions.validate(); err != nil {
		return common.Hash{}, err
	}
	id := actions.Id(descriptionHash)
	s := ctx.Store()
	p, err := e.Registry.Get(s, id)
	if err != nil {
		return id, err
	}
	st, err := e.state(s, ctx.Block, p)
	if err != nil {
		return id, err
	}
	switch st {
	case types.ProposalStateSucceeded:
	case types.ProposalStateQueued, types.ProposalStateExecuted:
		return id, types.Wrapf(types.ErrAlreadyQueued, "%s", id.Hex())
	default:
		return id, types.Wrapf(types.ErrProposalNotSucceeded, "proposal is %s", st)
	}
	delay, err := e.timelock.GetMinDelay(s)
	if err != nil {
		return id, err
	}
	eta := ctx.Block.Time + delay
	opId, err := e.timelock.ScheduleBatch(ctx.WithCaller(e.Self), actions.Targets, actions.Values, actions.Calldatas,
		common.Hash{}, TimelockSalt(e.Self, descriptionHash), eta)
	if err != nil {
		return id, err
	}
	p.Queued = true
	p.Eta = eta
	p.OperationId = opId
	if err = e.Registry.Save(s, p); err != nil {
		return id, err
	}
	ctx.EmitFrom(e.Self, types.EncodeEventProposalTransition(&types.EventProposalTransition{
		Type:       types.EventProposalQueuedType,
		ProposalId: id,
		Eta:        eta,
	}))
	return id, nil
}

// Execute runs a queued proposal through the timelock. A failing action
// reverts the whole batch.
func (e *Engine) Execute(ctx *contract.Context, actions Actions, descriptionHash common.Hash) (common.Hash, error) {
	if err := actions.validate(); err != nil {
		return common.Hash{}, err
	}
	id := actions.Id(descriptionHash)
	s := ctx.Store()
	p, err := e.Registry.Get(s, id)
	if err != nil {
		return id, err
	}
	st, err := e.state(s, ctx.Block, p)
	if err != nil {
		return id, err
	}
	switch st {
	case types.ProposalStateQueued:
	case types.ProposalStateExecuted:
		return id, types.Wrapf(types.ErrOperationExecuted, "%s", id.Hex())
	case types.ProposalStateExpired:
		return id, types.Wrapf(types.ErrProposalExpired, "%s", id.Hex())
	default:
		return id, types.Wrapf(types.ErrProposalNotQueued, "proposal is %s", st)
	}
	// executed is set before the batch runs so an action calling back into
	// the governor sees it
	frame := ctx.Branch()
	p.Executed = true
	if err = e.Registry.Save(frame.Store(), p); err != nil {
		return id, err
	}
	if _, err = e.timelock.ExecuteBatch(frame.WithCaller(e.Self), actions.Targets, actions.Values, actions.Calldatas,
		common.Hash{}, TimelockSalt(e.Self, descriptionHash)); err != nil {
		return id, err
	}
	if err = frame.Commit(); err != nil {
		return id, err
	}
	ctx.EmitFrom(e.Self, types.EncodeEventProposalTransition(&types.EventProposalTransition{
		Type:       types.EventProposalExecutedType,
		ProposalId: id,
	}))
	return id, nil
}

// Cancel lets the proposer withdraw a proposal that has not run. A queued
// proposal also loses its timelock operation.
func (e *Engine) Cancel(ctx *contract.Context, actions Actions, descriptionHash common.Hash) (common.Hash, error) {
	if err := actions.validate(); err != nil {
		return common.Hash{}, err
	}
	id := actions.Id(descriptionHash)
	s := ctx.Store()
	p, err := e.Registry.Get(s, id)
	if err != nil {
		return id, err
	}
	if ctx.Caller != p.Proposer {
		return id, types.Wrapf(types.ErrOnlyProposerCanCancel, "%s", ctx.Caller.Hex())
	}
	st, err := e.state(s, ctx.Block, p)
	if err != nil {
		return id, err
	}
	switch st {
	case types.ProposalStateExecuted, types.ProposalStateCanceled, types.ProposalStateExpired:
		return id, types.Wrapf(types.ErrProposalNotCancelable, "proposal is %s", st)
	case types.ProposalStateQueued:
		if err = e.timelock.Cancel(ctx.WithCaller(e.Self), p.OperationId); err != nil {
			return id, err
		}
	}
	p.Canceled = true
	if err = e.Registry.Save(s, p); err != nil {
		return id, err
	}
	ctx.EmitFrom(e.Self, types.EncodeEventProposalTransition(&types.EventProposalTransition{
		Type:       types.EventProposalCanceledType,
		ProposalId: id,
	}))
	return id, nil
}

func (e *Engine) onlyGovernance(ctx *contract.Context) error {
	if ctx.Caller != e.timelock.Self {
		return types.Wrapf(types.ErrUnauthorized, "%s is not the timelock", ctx.Caller.Hex())
	}
	return nil
}

// UpdateParam applies one governance-only setter.
func (e *Engine) UpdateParam(ctx *contract.Context, name string, value *big.Int) error {
	if err := e.onlyGovernance(ctx); err != nil {
		return err
	}
	s := ctx.Store()
	params, err := e.Params(s)
	if err != nil {
		return err
	}
	var old string
	if name != ParamProposalThreshold && !value.IsUint64() {
		return types.Wrapf(types.ErrInvalidParam, "%s out of range", name)
	}
	switch name {
	case ParamVotingDelay:
		old = fmt.Sprint(params.VotingDelay)
		params.VotingDelay = value.Uint64()
	case ParamVotingPeriod:
		old = fmt.Sprint(params.VotingPeriod)
		params.VotingPeriod = value.Uint64()
	case ParamProposalThreshold:
		old = params.ProposalThreshold.String()
		params.ProposalThreshold = new(big.Int).Set(value)
	case ParamQuorumNumerator:
		old = fmt.Sprint(params.QuorumNumerator)
		params.QuorumNumerator = value.Uint64()
	case ParamGracePeriod:
		old = fmt.Sprint(params.GracePeriod)
		params.GracePeriod = value.Uint64()
	default:
		return types.Wrapf(types.ErrInvalidParam, "unknown parameter %s", name)
	}
	if err = e.setParams(s, params); err != nil {
		return err
	}
	ctx.EmitFrom(e.Self, types.EncodeEventGovernorParam(&types.EventGovernorParam{Param: name, Old: old, New: value.String()}))
	return nil
}

const (
	ParamVotingDelay       = "votingDelay"
	ParamVotingPeriod      = "votingPeriod"
	ParamProposalThreshold = "proposalThreshold"
	ParamQuorumNumerator   = "quorumNumerator"
	ParamGracePeriod       = "gracePeriod"
)

// Quorum is the participation required of a proposal snapshotted at height
// under the current numerator.
func (e *Engine) Quorum(s state.KVStore, current, height uint64) (*big.Int, error) {
	params, err := e.Params(s)
	if err != nil {
		return nil, err
	}
	return quorumAt(s, e.oracle, current, height, params.QuorumNumerator)
}

// View assembles the query representation of a proposal.
func (e *Engine) View(s state.KVStore, blk contract.Block, id common.Hash) (*types.ProposalView, error) {
	p, err := e.Registry.Get(s, id)
	if err != nil {
		return nil, err
	}
	st, err := e.state(s, blk, p)
	if err != nil {
		return nil, err
	}
	view := &types.ProposalView{
		Id:           p.Id,
		Proposer:     p.Proposer,
		State:        st.String(),
		Snapshot:     p.Snapshot,
		VoteStart:    p.VoteStart,
		VoteEnd:      p.VoteEnd,
		Eta:          p.Eta,
		AgainstVotes: p.AgainstVotes,
		ForVotes:     p.ForVotes,
		AbstainVotes: p.AbstainVotes,
		Height:       blk.Height,
	}
	if p.Snapshot <= blk.Height {
		if view.Quorum, err = e.Registry.Quorum(s, blk.Height, p); err != nil {
			return nil, err
		}
	}
	return view, nil
}
