package token

import (
	"math/big"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var VotesTokenABI = contract.NewABI(append([]contract.MethodSpec{
	contract.Fn("delegates", contract.View, contract.Args("address account"), "address"),
	contract.Fn("getVotes", contract.View, contract.Args("address account"), "uint256"),
	contract.Fn("getPastVotes", contract.View, contract.Args("address account", "uint256 timepoint"), "uint256"),
	contract.Fn("getPastTotalSupply", contract.View, contract.Args("uint256 timepoint"), "uint256"),
	contract.Fn("numCheckpoints", contract.View, contract.Args("address account"), "uint256"),
	contract.Fn("clock", contract.View, nil, "uint256"),
	contract.Fn("distributed", contract.View, nil, "bool"),
	contract.Fn("delegate", contract.NonPayable, contract.Args("address delegatee")),
	contract.Fn("tokenDistribution", contract.NonPayable, contract.Args("address[] recipients", "uint256[] amounts")),
}, erc20Methods...)...)

// VotesToken is the governance token. Voting power follows delegation and is
// checkpointed per block height, so past reads never change.
type VotesToken struct {
	ledger
}

func NewVotesToken(addr common.Address) *VotesToken {
	t := &VotesToken{ledger: ledger{Ownable: contract.Ownable{Self: addr}}}
	t.after = t.moveVotingPower
	return t
}

// Init sets metadata, the owner allowed to mint, and the one-shot distributor.
func (t *VotesToken) Init(ctx *contract.Context, name, symbol string, owner, distributor common.Address) error {
	if err := t.initMeta(ctx, name, symbol, owner); err != nil {
		return err
	}
	return ctx.Store().Set(t.key("distributor"), distributor.Bytes())
}

func (t *VotesToken) Address() common.Address {
	return t.Self
}

func (t *VotesToken) ABI() *abi.ABI {
	return VotesTokenABI
}

func (t *VotesToken) votes(account common.Address) trace {
	return trace{
		countKey: t.key("vn%x", account.Bytes()),
		entryKey: func(i uint64) []byte { return t.key("vc%x/%016x", account.Bytes(), i) },
	}
}

func (t *VotesToken) supply() trace {
	return trace{
		countKey: t.key("sn"),
		entryKey: func(i uint64) []byte { return t.key("sc/%016x", i) },
	}
}

func (t *VotesToken) Delegates(s state.KVStore, account common.Address) (common.Address, error) {
	val, err := s.Get(t.key("d%x", account.Bytes()))
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(val), nil
}

// GetVotes is the account's current voting power.
func (t *VotesToken) GetVotes(s state.KVStore, account common.Address) (*big.Int, error) {
	return t.votes(account).latest(s)
}

func (t *VotesToken) NumCheckpoints(s state.KVStore, account common.Address) (uint64, error) {
	return t.votes(account).length(s)
}

// GetPastVotes returns the voting power in force at the start of block
// height. Heights above current fail with ErrFutureLookup.
func (t *VotesToken) GetPastVotes(s state.KVStore, current uint64, account common.Address, height uint64) (*big.Int, error) {
	if err := pastLookup(height, current); err != nil {
		return nil, err
	}
	return t.votes(account).before(s, height)
}

func (t *VotesToken) GetPastTotalSupply(s state.KVStore, current uint64, height uint64) (*big.Int, error) {
	if err := pastLookup(height, current); err != nil {
		return nil, err
	}
	return t.supply().before(s, height)
}

func (t *VotesToken) Distributed(s state.KVStore) (bool, error) {
	return s.Has(t.key("distributed"))
}

func (t *VotesToken) Delegate(ctx *contract.Context, delegatee common.Address) error {
	s := ctx.Store()
	delegator := ctx.Caller
	prev, err := t.Delegates(s, delegator)
	if err != nil {
		return err
	}
	if err = s.Set(t.key("d%x", delegator.Bytes()), delegatee.Bytes()); err != nil {
		return err
	}
	ctx.EmitFrom(t.Self, types.EncodeEventDelegateChanged(delegator, prev, delegatee))
	bal, err := t.BalanceOf(s, delegator)
	if err != nil {
		return err
	}
	return t.moveDelegateVotes(ctx, prev, delegatee, bal)
}

// TokenDistribution mints the initial supply. Only the distributor may call
// it and only once.
func (t *VotesToken) TokenDistribution(ctx *contract.Context, recipients []common.Address, amounts []*big.Int) error {
	s := ctx.Store()
	val, err := s.Get(t.key("distributor"))
	if err != nil {
		return err
	}
	if ctx.Caller != common.BytesToAddress(val) {
		return types.Wrapf(types.ErrUnauthorized, "%s is not the distributor", ctx.Caller.Hex())
	}
	done, err := t.Distributed(s)
	if err != nil {
		return err
	}
	if done {
		return types.ErrAlreadyDistributed
	}
	if len(recipients) == 0 || len(recipients) != len(amounts) {
		return types.Wrapf(types.ErrLengthMismatch, "%d recipients, %d amounts", len(recipients), len(amounts))
	}
	if err = s.Set(t.key("distributed"), []byte{1}); err != nil {
		return err
	}
	for i, to := range recipients {
		if to == (common.Address{}) {
			return types.Wrapf(types.ErrInvalidReceiver, "recipient %d", i)
		}
		if err = t.update(ctx, common.Address{}, to, amounts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (t *VotesToken) moveVotingPower(ctx *contract.Context, from, to common.Address, amount *big.Int) error {
	s := ctx.Store()
	height := ctx.Block.Height
	zero := common.Address{}
	if from == zero || to == zero {
		supply, err := t.TotalSupply(s)
		if err != nil {
			return err
		}
		if _, err = t.supply().push(s, height, supply); err != nil {
			return err
		}
	}
	var src, dst common.Address
	var err error
	if from != zero {
		if src, err = t.Delegates(s, from); err != nil {
			return err
		}
	}
	if to != zero {
		if dst, err = t.Delegates(s, to); err != nil {
			return err
		}
	}
	return t.moveDelegateVotes(ctx, src, dst, amount)
}

func (t *VotesToken) moveDelegateVotes(ctx *contract.Context, from, to common.Address, amount *big.Int) error {
	if from == to || amount.Sign() == 0 {
		return nil
	}
	s := ctx.Store()
	height := ctx.Block.Height
	if from != (common.Address{}) {
		cur, err := t.votes(from).latest(s)
		if err != nil {
			return err
		}
		next := new(big.Int).Sub(cur, amount)
		if _, err = t.votes(from).push(s, height, next); err != nil {
			return err
		}
		ctx.EmitFrom(t.Self, types.EncodeEventDelegateVotes(from, cur, next))
	}
	if to != (common.Address{}) {
		cur, err := t.votes(to).latest(s)
		if err != nil {
			return err
		}
		next := new(big.Int).Add(cur, amount)
		if _, err = t.votes(to).push(s, height, next); err != nil {
			return err
		}
		ctx.EmitFrom(t.Self, types.EncodeEventDelegateVotes(to, cur, next))
	}
	return nil
}

func (t *VotesToken) Run(ctx *contract.Context, method *abi.Method, args []any, value *big.Int) ([]any, error) {
	out, handled, err := t.runERC20(ctx, method.Name, args)
	if handled {
		return out, err
	}
	s := ctx.Store()
	switch method.Name {
	case "delegates":
		account, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		d, err := t.Delegates(s, account)
		return []any{d}, err
	case "getVotes":
		account, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		v, err := t.GetVotes(s, account)
		return []any{v}, err
	case "getPastVotes":
		account, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		height, err := contract.Uint64Arg(args, 1)
		if err != nil {
			return nil, err
		}
		v, err := t.GetPastVotes(s, ctx.Block.Height, account, height)
		return []any{v}, err
	case "getPastTotalSupply":
		height, err := contract.Uint64Arg(args, 0)
		if err != nil {
			return nil, err
		}
		v, err := t.GetPastTotalSupply(s, ctx.Block.Height, height)
		return []any{v}, err
	case "numCheckpoints":
		account, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		n, err := t.NumCheckpoints(s, account)
		return []any{contract.U256(n)}, err
	case "clock":
		return []any{contract.U256(ctx.Block.Height)}, nil
	case "distributed":
		done, err := t.Distributed(s)
		return []any{done}, err
	case "delegate":
		delegatee, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, t.Delegate(ctx, delegatee)
	case "tokenDistribution":
		recipients, err := contract.Arg[[]common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		amounts, err := contract.Arg[[]*big.Int](args, 1)
		if err != nil {
			return nil, err
		}
		return nil, t.TokenDistribution(ctx, recipients, amounts)
	}
	return nil, types.Wrapf(types.ErrUnknownMethod, "%s", method.Name)
}
