package governance

import (
	"math/big"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var actionArgs = contract.Args("address[] targets", "uint256[] values", "bytes[] calldatas", "bytes32 descriptionHash")

var ABI = contract.NewABI(
	contract.Fn("name", contract.View, nil, "string"),
	contract.Fn("timelock", contract.View, nil, "address"),
	contract.Fn("votingDelay", contract.View, nil, "uint256"),
	contract.Fn("votingPeriod", contract.View, nil, "uint256"),
	contract.Fn("proposalThreshold", contract.View, nil, "uint256"),
	contract.Fn("quorumNumerator", contract.View, nil, "uint256"),
	contract.Fn("quorumDenominator", contract.View, nil, "uint256"),
	contract.Fn("gracePeriod", contract.View, nil, "uint256"),
	contract.Fn("proposalCount", contract.View, nil, "uint256"),
	contract.Fn("quorum", contract.View, contract.Args("uint256 timepoint"), "uint256"),
	contract.Fn("getVotes", contract.View, contract.Args("address account", "uint256 timepoint"), "uint256"),
	contract.Fn("hashProposal", contract.View, actionArgs, "bytes32"),
	contract.Fn("state", contract.View, contract.Args("bytes32 proposalId"), "uint8"),
	contract.Fn("proposalVotes", contract.View, contract.Args("bytes32 proposalId"),
		"uint256 againstVotes", "uint256 forVotes", "uint256 abstainVotes"),
	contract.Fn("proposalSnapshot", contract.View, contract.Args("bytes32 proposalId"), "uint256"),
	contract.Fn("proposalDeadline", contract.View, contract.Args("bytes32 proposalId"), "uint256"),
	contract.Fn("proposalProposer", contract.View, contract.Args("bytes32 proposalId"), "address"),
	contract.Fn("proposalEta", contract.View, contract.Args("bytes32 proposalId"), "uint256"),
	contract.Fn("hasVoted", contract.View, contract.Args("bytes32 proposalId", "address account"), "bool"),
	contract.Fn("propose", contract.NonPayable,
		contract.Args("address[] targets", "uint256[] values", "bytes[] calldatas", "string description"), "bytes32"),
	contract.Fn("castVote", contract.NonPayable, contract.Args("bytes32 proposalId", "uint8 support"), "uint256"),
	contract.Fn("castVoteWithReason", contract.NonPayable,
		contract.Args("bytes32 proposalId", "uint8 support", "string reason"), "uint256"),
	contract.Fn("queue", contract.NonPayable, actionArgs, "bytes32"),
	contract.Fn("execute", contract.NonPayable, actionArgs, "bytes32"),
	contract.Fn("cancel", contract.NonPayable, actionArgs, "bytes32"),
	contract.Fn("setVotingDelay", contract.NonPayable, contract.Args("uint256 newVotingDelay")),
	contract.Fn("setVotingPeriod", contract.NonPayable, contract.Args("uint256 newVotingPeriod")),
	contract.Fn("setProposalThreshold", contract.NonPayable, contract.Args("uint256 newProposalThreshold")),
	contract.Fn("updateQuorumNumerator", contract.NonPayable, contract.Args("uint256 newQuorumNumerator")),
	contract.Fn("setGracePeriod", contract.NonPayable, contract.Args("uint256 newGracePeriod")),
)

var setters = map[string]string{
	"setVotingDelay":        ParamVotingDelay,
	"setVotingPeriod":       ParamVotingPeriod,
	"setProposalThreshold":  ParamProposalThreshold,
	"updateQuorumNumerator": ParamQuorumNumerator,
	"setGracePeriod":        ParamGracePeriod,
}

func (e *Engine) Address() common.Address {
	return e.Self
}

func (e *Engine) ABI() *abi.ABI {
	return ABI
}

func unpackActions(args []any) (a Actions, descriptionHash common.Hash, err error) {
	if a.Targets, err = contract.Arg[[]common.Address](args, 0); err != nil {
		return
	}
	if a.Values, err = contract.Arg[[]*big.Int](args, 1); err != nil {
		return
	}
	if a.Calldatas, err = contract.Arg[[][]byte](args, 2); err != nil {
		return
	}
	if len(args) > 3 {
		if h, ok := args[3].([32]byte); ok {
			descriptionHash = h
		}
	}
	return
}

func proposalIdArg(args []any) (common.Hash, error) {
	id, err := contract.Arg[[32]byte](args, 0)
	return id, err
}

func (e *Engine) Run(ctx *contract.Context, method *abi.Method, args []any, value *big.Int) ([]any, error) {
	s := ctx.Store()
	if param, ok := setters[method.Name]; ok {
		v, err := contract.Arg[*big.Int](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, e.UpdateParam(ctx, param, v)
	}
	switch method.Name {
	case "name", "votingDelay", "votingPeriod", "proposalThreshold", "quorumNumerator", "gracePeriod":
		params, err := e.Params(s)
		if err != nil {
			return nil, err
		}
		switch method.Name {
		case "name":
			return []any{params.Name}, nil
		case "votingDelay":
			return []any{contract.U256(params.VotingDelay)}, nil
		case "votingPeriod":
			return []any{contract.U256(params.VotingPeriod)}, nil
		case "proposalThreshold":
			return []any{params.ProposalThreshold}, nil
		case "quorumNumerator":
			return []any{contract.U256(params.QuorumNumerator)}, nil
		default:
			return []any{contract.U256(params.GracePeriod)}, nil
		}
	case "timelock":
		return []any{e.Timelock()}, nil
	case "quorumDenominator":
		return []any{big.NewInt(QuorumDenominator)}, nil
	case "proposalCount":
		n, err := e.Registry.Count(s)
		return []any{contract.U256(n)}, err
	case "quorum":
		t, err := contract.Uint64Arg(args, 0)
		if err != nil {
			return nil, err
		}
		q, err := e.Quorum(s, ctx.Block.Height, t)
		return []any{q}, err
	case "getVotes":
		account, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		t, err := contract.Uint64Arg(args, 1)
		if err != nil {
			return nil, err
		}
		v, err := e.oracle.GetPastVotes(s, ctx.Block.Height, account, t)
		return []any{v}, err
	case "hashProposal":
		a, descriptionHash, err := unpackActions(args)
		if err != nil {
			return nil, err
		}
		return []any{[32]byte(HashProposal(a.Targets, a.Values, a.Calldatas, descriptionHash))}, nil
	case "state", "proposalVotes", "proposalSnapshot", "proposalDeadline", "proposalProposer", "proposalEta":
		id, err := proposalIdArg(args)
		if err != nil {
			return nil, err
		}
		return e.runProposalView(ctx, method.Name, id)
	case "hasVoted":
		id, err := proposalIdArg(args)
		if err != nil {
			return nil, err
		}
		account, err := contract.Arg[common.Address](args, 1)
		if err != nil {
			return nil, err
		}
		rc, err := e.Registry.Receipt(s, id, account)
		if err != nil {
			return nil, err
		}
		return []any{rc.HasVoted}, nil
	case "propose":
		a, _, err := unpackActions(args)
		if err != nil {
			return nil, err
		}
		description, err := contract.Arg[string](args, 3)
		if err != nil {
			return nil, err
		}
		id, err := e.Propose(ctx, a, description)
		return []any{[32]byte(id)}, err
	case "castVote", "castVoteWithReason":
		id, err := proposalIdArg(args)
		if err != nil {
			return nil, err
		}
		support, err := contract.Arg[uint8](args, 1)
		if err != nil {
			return nil, err
		}
		var reason string
		if method.Name == "castVoteWithReason" {
			if reason, err = contract.Arg[string](args, 2); err != nil {
				return nil, err
			}
		}
		weight, err := e.CastVote(ctx, id, types.VoteType(support), reason)
		return []any{weight}, err
	case "queue", "execute", "cancel":
		a, descriptionHash, err := unpackActions(args)
		if err != nil {
			return nil, err
		}
		var id common.Hash
		switch method.Name {
		case "queue":
			id, err = e.Queue(ctx, a, descriptionHash)
		case "execute":
			id, err = e.Execute(ctx, a, descriptionHash)
		default:
			id, err = e.Cancel(ctx, a, descriptionHash)
		}
		return []any{[32]byte(id)}, err
	}
	return nil, types.Wrapf(types.ErrUnknownMethod, "%s", method.Name)
}

func (e *Engine) runProposalView(ctx *contract.Context, name string, id common.Hash) ([]any, error) {
	s := ctx.Store()
	p, err := e.Registry.Get(s, id)
	if err != nil {
		return nil, err
	}
	switch name {
	case "state":
		st, err := e.state(s, ctx.Block, p)
		return []any{uint8(st)}, err
	case "proposalVotes":
		return []any{p.AgainstVotes, p.ForVotes, p.AbstainVotes}, nil
	case "proposalSnapshot":
		return []any{contract.U256(p.Snapshot)}, nil
	case "proposalDeadline":
		return []any{contract.U256(p.VoteEnd)}, nil
	case "proposalProposer":
		return []any{p.Proposer}, nil
	default:
		return []any{contract.U256(p.Eta)}, nil
	}
}
