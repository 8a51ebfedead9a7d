package token

import (
	"math/big"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ERC721ABI = contract.NewABI(
	contract.Fn("name", contract.View, nil, "string"),
	contract.Fn("symbol", contract.View, nil, "string"),
	contract.Fn("owner", contract.View, nil, "address"),
	contract.Fn("balanceOf", contract.View, contract.Args("address owner"), "uint256"),
	contract.Fn("ownerOf", contract.View, contract.Args("uint256 tokenId"), "address"),
	contract.Fn("getApproved", contract.View, contract.Args("uint256 tokenId"), "address"),
	contract.Fn("isApprovedForAll", contract.View, contract.Args("address owner", "address operator"), "bool"),
	contract.Fn("approve", contract.NonPayable, contract.Args("address to", "uint256 tokenId")),
	contract.Fn("setApprovalForAll", contract.NonPayable, contract.Args("address operator", "bool approved")),
	contract.Fn("transferFrom", contract.NonPayable, contract.Args("address from", "address to", "uint256 tokenId")),
	contract.Fn("mint", contract.NonPayable, contract.Args("address to", "uint256 tokenId")),
	contract.Fn("transferOwnership", contract.NonPayable, contract.Args("address newOwner")),
)

// ERC721 is a non-fungible asset ledger.
type ERC721 struct {
	contract.Ownable
}

func NewERC721(addr common.Address) *ERC721 {
	return &ERC721{Ownable: contract.Ownable{Self: addr}}
}

func (t *ERC721) key(format string, args ...any) []byte {
	return contract.StorageKey(t.Self, format, args...)
}

func (t *ERC721) Init(ctx *contract.Context, name, symbol string, owner common.Address) error {
	s := ctx.Store()
	if err := s.Set(t.key("name"), []byte(name)); err != nil {
		return err
	}
	if err := s.Set(t.key("symbol"), []byte(symbol)); err != nil {
		return err
	}
	return t.InitOwner(ctx, owner)
}

func (t *ERC721) Address() common.Address {
	return t.Self
}

func (t *ERC721) ABI() *abi.ABI {
	return ERC721ABI
}

func (t *ERC721) BalanceOf(s state.KVStore, owner common.Address) (*big.Int, error) {
	return state.GetBig(s, t.key("b%x", owner.Bytes()))
}

func (t *ERC721) ownerOf(s state.KVStore, id *big.Int) (common.Address, bool, error) {
	val, err := s.Get(t.key("o%x", id.Bytes()))
	if err != nil || val == nil {
		return common.Address{}, false, err
	}
	return common.BytesToAddress(val), true, nil
}

func (t *ERC721) OwnerOf(s state.KVStore, id *big.Int) (common.Address, error) {
	owner, ok, err := t.ownerOf(s, id)
	if err != nil {
		return owner, err
	}
	if !ok {
		return owner, types.Wrapf(types.ErrNonexistentToken, "token %s", id)
	}
	return owner, nil
}

func (t *ERC721) GetApproved(s state.KVStore, id *big.Int) (common.Address, error) {
	if _, err := t.OwnerOf(s, id); err != nil {
		return common.Address{}, err
	}
	val, err := s.Get(t.key("p%x", id.Bytes()))
	return common.BytesToAddress(val), err
}

func (t *ERC721) IsApprovedForAll(s state.KVStore, owner, operator common.Address) (bool, error) {
	return s.Has(t.key("f%x%x", owner.Bytes(), operator.Bytes()))
}

func (t *ERC721) Approve(ctx *contract.Context, to common.Address, id *big.Int) error {
	s := ctx.Store()
	owner, err := t.OwnerOf(s, id)
	if err != nil {
		return err
	}
	if ctx.Caller != owner {
		all, err := t.IsApprovedForAll(s, owner, ctx.Caller)
		if err != nil {
			return err
		}
		if !all {
			return types.Wrapf(types.ErrNotOwnerOrApproved, "approve token %s", id)
		}
	}
	if err = s.Set(t.key("p%x", id.Bytes()), to.Bytes()); err != nil {
		return err
	}
	ctx.EmitFrom(t.Self, types.EncodeEventApproval(owner, to, id))
	return nil
}

func (t *ERC721) SetApprovalForAll(ctx *contract.Context, operator common.Address, approved bool) error {
	if operator == ctx.Caller {
		return types.Wrapf(types.ErrInvalidParam, "approve to caller")
	}
	key := t.key("f%x%x", ctx.Caller.Bytes(), operator.Bytes())
	if approved {
		return ctx.Store().Set(key, []byte{1})
	}
	return ctx.Store().Delete(key)
}

func (t *ERC721) TransferFrom(ctx *contract.Context, from, to common.Address, id *big.Int) error {
	s := ctx.Store()
	owner, err := t.OwnerOf(s, id)
	if err != nil {
		return err
	}
	if owner != from {
		return types.Wrapf(types.ErrNotOwnerOrApproved, "token %s is not owned by %s", id, from.Hex())
	}
	if to == (common.Address{}) {
		return types.Wrapf(types.ErrInvalidReceiver, "zero address")
	}
	if ctx.Caller != owner {
		approved, err := t.GetApproved(s, id)
		if err != nil {
			return err
		}
		all, err := t.IsApprovedForAll(s, owner, ctx.Caller)
		if err != nil {
			return err
		}
		if approved != ctx.Caller && !all {
			return types.Wrapf(types.ErrNotOwnerOrApproved, "%s on token %s", ctx.Caller.Hex(), id)
		}
	}
	if err = s.Delete(t.key("p%x", id.Bytes())); err != nil {
		return err
	}
	return t.move(ctx, from, to, id)
}

// Mint is owner only.
func (t *ERC721) Mint(ctx *contract.Context, to common.Address, id *big.Int) error {
	if err := t.OnlyOwner(ctx); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return types.Wrapf(types.ErrInvalidReceiver, "zero address")
	}
	_, exists, err := t.ownerOf(ctx.Store(), id)
	if err != nil {
		return err
	}
	if exists {
		return types.Wrapf(types.ErrTokenAlreadyMinted, "token %s", id)
	}
	return t.move(ctx, common.Address{}, to, id)
}

func (t *ERC721) move(ctx *contract.Context, from, to common.Address, id *big.Int) error {
	s := ctx.Store()
	one := big.NewInt(1)
	if from != (common.Address{}) {
		bal, err := t.BalanceOf(s, from)
		if err != nil {
			return err
		}
		if err = state.SetBig(s, t.key("b%x", from.Bytes()), bal.Sub(bal, one)); err != nil {
			return err
		}
	}
	bal, err := t.BalanceOf(s, to)
	if err != nil {
		return err
	}
	if err = state.SetBig(s, t.key("b%x", to.Bytes()), bal.Add(bal, one)); err != nil {
		return err
	}
	if err = s.Set(t.key("o%x", id.Bytes()), to.Bytes()); err != nil {
		return err
	}
	ctx.EmitFrom(t.Self, types.EncodeEventTransfer(&types.EventTransfer{From: from, To: to, TokenId: id}))
	return nil
}

func (t *ERC721) Run(ctx *contract.Context, method *abi.Method, args []any, value *big.Int) ([]any, error) {
	s := ctx.Store()
	switch method.Name {
	case "name":
		v, err := s.Get(t.key("name"))
		return []any{string(v)}, err
	case "symbol":
		v, err := s.Get(t.key("symbol"))
		return []any{string(v)}, err
	case "owner":
		v, err := t.Owner(s)
		return []any{v}, err
	case "balanceOf":
		owner, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		v, err := t.BalanceOf(s, owner)
		return []any{v}, err
	case "ownerOf":
		id, err := contract.Arg[*big.Int](args, 0)
		if err != nil {
			return nil, err
		}
		v, err := t.OwnerOf(s, id)
		return []any{v}, err
	case "getApproved":
		id, err := contract.Arg[*big.Int](args, 0)
		if err != nil {
			return nil, err
		}
		v, err := t.GetApproved(s, id)
		return []any{v}, err
	case "isApprovedForAll":
		owner, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		operator, err := contract.Arg[common.Address](args, 1)
		if err != nil {
			return nil, err
		}
		v, err := t.IsApprovedForAll(s, owner, operator)
		return []any{v}, err
	case "approve":
		to, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		id, err := contract.Arg[*big.Int](args, 1)
		if err != nil {
			return nil, err
		}
		return nil, t.Approve(ctx, to, id)
	case "setApprovalForAll":
		operator, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		approved, err := contract.Arg[bool](args, 1)
		if err != nil {
			return nil, err
		}
		return nil, t.SetApprovalForAll(ctx, operator, approved)
	case "transferFrom":
		from, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		to, err := contract.Arg[common.Address](args, 1)
		if err != nil {
			return nil, err
		}
		id, err := contract.Arg[*big.Int](args, 2)
		if err != nil {
			return nil, err
		}
		return nil, t.TransferFrom(ctx, from, to, id)
	case "mint":
		to, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		id, err := contract.Arg[*big.Int](args, 1)
		if err != nil {
			return nil, err
		}
		return nil, t.Mint(ctx, to, id)
	case "transferOwnership":
		owner, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, t.TransferOwnership(ctx, owner)
	}
	return nil, types.Wrapf(types.ErrUnknownMethod, "%s", method.Name)
}
