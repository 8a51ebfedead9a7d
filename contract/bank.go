package contract

import (
	"math/big"

	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

var (
	KeyBalance = "b%x"
)

func Balance(s state.KVStore, addr common.Address) (*big.Int, error) {
	return state.GetBig(s, state.Key(KeyBalance, addr.Bytes()))
}

// Transfer moves native currency and emits a native_transfer event.
func Transfer(ctx *Context, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return types.Wrapf(types.ErrInvalidParam, "negative amount")
	}
	if amount.Sign() == 0 {
		return nil
	}
	s := ctx.Store()
	fb, err := Balance(s, from)
	if err != nil {
		return err
	}
	if fb.Cmp(amount) < 0 {
		return types.Wrapf(types.ErrInsufficientBalance, "%s has %s, needs %s", from.Hex(), fb, amount)
	}
	if from == to {
		return nil
	}
	tb, err := Balance(s, to)
	if err != nil {
		return err
	}
	if err = state.SetBig(s, state.Key(KeyBalance, from.Bytes()), fb.Sub(fb, amount)); err != nil {
		return err
	}
	if err = state.SetBig(s, state.Key(KeyBalance, to.Bytes()), tb.Add(tb, amount)); err != nil {
		return err
	}
	ctx.Emit(types.EncodeEventNativeTransfer(from, to, amount))
	return nil
}

// Mint credits native currency out of thin air; only genesis uses it.
func Mint(s state.KVStore, to common.Address, amount *big.Int) error {
	b, err := Balance(s, to)
	if err != nil {
		return err
	}
	return state.SetBig(s, state.Key(KeyBalance, to.Bytes()), b.Add(b, amount))
}
