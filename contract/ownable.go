package contract

import (
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

// StorageKey namespaces a state key under a contract address.
func StorageKey(addr common.Address, format string, args ...any) []byte {
	key := append([]byte{'c'}, addr.Bytes()...)
	return append(key, state.Key(format, args...)...)
}

// Ownable is the single-owner access gate shared by the token, the asset
// ledgers and the treasury.
type Ownable struct {
	Self common.Address
}

func (o Ownable) Owner(s state.KVStore) (common.Address, error) {
	val, err := s.Get(StorageKey(o.Self, "owner"))
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(val), nil
}

func (o Ownable) InitOwner(ctx *Context, owner common.Address) error {
	if err := ctx.Store().Set(StorageKey(o.Self, "owner"), owner.Bytes()); err != nil {
		return err
	}
	ctx.EmitFrom(o.Self, types.EncodeEventOwnership(common.Address{}, owner))
	return nil
}

// OnlyOwner fails with ErrUnauthorized unless the frame's caller is the owner.
func (o Ownable) OnlyOwner(ctx *Context) error {
	owner, err := o.Owner(ctx.Store())
	if err != nil {
		return err
	}
	if ctx.Caller != owner {
		return types.Wrapf(types.ErrUnauthorized, "%s is not the owner of %s", ctx.Caller.Hex(), o.Self.Hex())
	}
	return nil
}

func (o Ownable) TransferOwnership(ctx *Context, newOwner common.Address) error {
	if err := o.OnlyOwner(ctx); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return types.Wrapf(types.ErrInvalidParam, "zero owner")
	}
	if err := ctx.Store().Set(StorageKey(o.Self, "owner"), newOwner.Bytes()); err != nil {
		return err
	}
	ctx.EmitFrom(o.Self, types.EncodeEventOwnership(ctx.Caller, newOwner))
	return nil
}
