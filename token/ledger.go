package token

import (
	"math/big"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

// ledger is the fungible balance book shared by VotesToken and ERC20.
type ledger struct {
	contract.Ownable

	// after runs once balances have moved; the votes token hooks it to move
	// delegated power.
	after func(ctx *contract.Context, from, to common.Address, amount *big.Int) error
}

func (l *ledger) key(format string, args ...any) []byte {
	return contract.StorageKey(l.Self, format, args...)
}

func (l *ledger) initMeta(ctx *contract.Context, name, symbol string, owner common.Address) error {
	s := ctx.Store()
	if err := s.Set(l.key("name"), []byte(name)); err != nil {
		return err
	}
	if err := s.Set(l.key("symbol"), []byte(symbol)); err != nil {
		return err
	}
	return l.InitOwner(ctx, owner)
}

func (l *ledger) Name(s state.KVStore) (string, error) {
	v, err := s.Get(l.key("name"))
	return string(v), err
}

func (l *ledger) Symbol(s state.KVStore) (string, error) {
	v, err := s.Get(l.key("symbol"))
	return string(v), err
}

func (l *ledger) Decimals() uint8 {
	return 18
}

func (l *ledger) TotalSupply(s state.KVStore) (*big.Int, error) {
	return state.GetBig(s, l.key("supply"))
}

func (l *ledger) BalanceOf(s state.KVStore, account common.Address) (*big.Int, error) {
	return state.GetBig(s, l.key("b%x", account.Bytes()))
}

func (l *ledger) Allowance(s state.KVStore, owner, spender common.Address) (*big.Int, error) {
	return state.GetBig(s, l.key("a%x%x", owner.Bytes(), spender.Bytes()))
}

// update moves amount from -> to. A zero from mints, a zero to burns.
func (l *ledger) update(ctx *contract.Context, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return types.Wrapf(types.ErrInvalidParam, "negative amount")
	}
	s := ctx.Store()
	zero := common.Address{}
	if from == zero {
		supply, err := l.TotalSupply(s)
		if err != nil {
			return err
		}
		if err = state.SetBig(s, l.key("supply"), supply.Add(supply, amount)); err != nil {
			return err
		}
	} else {
		bal, err := l.BalanceOf(s, from)
		if err != nil {
			return err
		}
		if bal.Cmp(amount) < 0 {
			return types.Wrapf(types.ErrInsufficientBalance, "%s has %s, needs %s", from.Hex(), bal, amount)
		}
		if err = state.SetBig(s, l.key("b%x", from.Bytes()), bal.Sub(bal, amount)); err != nil {
			return err
		}
	}
	if to == zero {
		supply, err := l.TotalSupply(s)
		if err != nil {
			return err
		}
		if err = state.SetBig(s, l.key("supply"), supply.Sub(supply, amount)); err != nil {
			return err
		}
	} else {
		bal, err := l.BalanceOf(s, to)
		if err != nil {
			return err
		}
		if err = state.SetBig(s, l.key("b%x", to.Bytes()), bal.Add(bal, amount)); err != nil {
			return err
		}
	}
	ctx.EmitFrom(l.Self, types.EncodeEventTransfer(&types.EventTransfer{From: from, To: to, Value: amount}))
	if l.after != nil {
		return l.after(ctx, from, to, amount)
	}
	return nil
}

func (l *ledger) Transfer(ctx *contract.Context, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return types.Wrapf(types.ErrInvalidReceiver, "zero address")
	}
	return l.update(ctx, ctx.Caller, to, amount)
}

func (l *ledger) Approve(ctx *contract.Context, spender common.Address, amount *big.Int) error {
	if err := state.SetBig(ctx.Store(), l.key("a%x%x", ctx.Caller.Bytes(), spender.Bytes()), amount); err != nil {
		return err
	}
	ctx.EmitFrom(l.Self, types.EncodeEventApproval(ctx.Caller, spender, amount))
	return nil
}

func (l *ledger) TransferFrom(ctx *contract.Context, from, to common.Address, amount *big.Int) error {
	s := ctx.Store()
	allowance, err := l.Allowance(s, from, ctx.Caller)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return types.Wrapf(types.ErrInsufficientAllowance, "%s may spend %s of %s", ctx.Caller.Hex(), allowance, from.Hex())
	}
	if to == (common.Address{}) {
		return types.Wrapf(types.ErrInvalidReceiver, "zero address")
	}
	if err = state.SetBig(s, l.key("a%x%x", from.Bytes(), ctx.Caller.Bytes()), allowance.Sub(allowance, amount)); err != nil {
		return err
	}
	return l.update(ctx, from, to, amount)
}

// Mint is owner only.
func (l *ledger) Mint(ctx *contract.Context, to common.Address, amount *big.Int) error {
	if err := l.OnlyOwner(ctx); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return types.Wrapf(types.ErrInvalidReceiver, "zero address")
	}
	return l.update(ctx, common.Address{}, to, amount)
}

// runERC20 serves the methods both fungible tokens share. handled is false
// for anything else.
func (l *ledger) runERC20(ctx *contract.Context, name string, args []any) (out []any, handled bool, err error) {
	s := ctx.Store()
	handled = true
	switch name {
	case "name":
		var v string
		v, err = l.Name(s)
		out = []any{v}
	case "symbol":
		var v string
		v, err = l.Symbol(s)
		out = []any{v}
	case "decimals":
		out = []any{l.Decimals()}
	case "totalSupply":
		var v *big.Int
		v, err = l.TotalSupply(s)
		out = []any{v}
	case "balanceOf":
		var account common.Address
		if account, err = contract.Arg[common.Address](args, 0); err != nil {
			return
		}
		var v *big.Int
		v, err = l.BalanceOf(s, account)
		out = []any{v}
	case "allowance":
		var owner, spender common.Address
		if owner, err = contract.Arg[common.Address](args, 0); err != nil {
			return
		}
		if spender, err = contract.Arg[common.Address](args, 1); err != nil {
			return
		}
		var v *big.Int
		v, err = l.Allowance(s, owner, spender)
		out = []any{v}
	case "owner":
		var v common.Address
		v, err = l.Owner(s)
		out = []any{v}
	case "transfer":
		var to common.Address
		var amount *big.Int
		if to, err = contract.Arg[common.Address](args, 0); err != nil {
			return
		}
		if amount, err = contract.Arg[*big.Int](args, 1); err != nil {
			return
		}
		err = l.Transfer(ctx, to, amount)
		out = []any{err == nil}
	case "approve":
		var spender common.Address
		var amount *big.Int
		if spender, err = contract.Arg[common.Address](args, 0); err != nil {
			return
		}
		if amount, err = contract.Arg[*big.Int](args, 1); err != nil {
			return
		}
		err = l.Approve(ctx, spender, amount)
		out = []any{err == nil}
	case "transferFrom":
		var from, to common.Address
		var amount *big.Int
		if from, err = contract.Arg[common.Address](args, 0); err != nil {
			return
		}
		if to, err = contract.Arg[common.Address](args, 1); err != nil {
			return
		}
		if amount, err = contract.Arg[*big.Int](args, 2); err != nil {
			return
		}
		err = l.TransferFrom(ctx, from, to, amount)
		out = []any{err == nil}
	case "mint":
		var to common.Address
		var amount *big.Int
		if to, err = contract.Arg[common.Address](args, 0); err != nil {
			return
		}
		if amount, err = contract.Arg[*big.Int](args, 1); err != nil {
			return
		}
		err = l.Mint(ctx, to, amount)
	case "transferOwnership":
		var owner common.Address
		if owner, err = contract.Arg[common.Address](args, 0); err != nil {
			return
		}
		err = l.TransferOwnership(ctx, owner)
	default:
		handled = false
	}
	return
}

var erc20Methods = []contract.MethodSpec{
	contract.Fn("name", contract.View, nil, "string"),
	contract.Fn("symbol", contract.View, nil, "string"),
	contract.Fn("decimals", contract.View, nil, "uint8"),
	contract.Fn("totalSupply", contract.View, nil, "uint256"),
	contract.Fn("balanceOf", contract.View, contract.Args("address account"), "uint256"),
	contract.Fn("allowance", contract.View, contract.Args("address owner", "address spender"), "uint256"),
	contract.Fn("owner", contract.View, nil, "address"),
	contract.Fn("transfer", contract.NonPayable, contract.Args("address to", "uint256 value"), "bool"),
	contract.Fn("approve", contract.NonPayable, contract.Args("address spender", "uint256 value"), "bool"),
	contract.Fn("transferFrom", contract.NonPayable, contract.Args("address from", "address to", "uint256 value"), "bool"),
	contract.Fn("mint", contract.NonPayable, contract.Args("address to", "uint256 amount")),
	contract.Fn("transferOwnership", contract.NonPayable, contract.Args("address newOwner")),
}
