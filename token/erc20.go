package token

import (
	"math/big"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ERC20ABI = contract.NewABI(erc20Methods...)

// ERC20 is a plain fungible asset the treasury can custody.
type ERC20 struct {
	ledger
}

func NewERC20(addr common.Address) *ERC20 {
	return &ERC20{ledger: ledger{Ownable: contract.Ownable{Self: addr}}}
}

func (t *ERC20) Init(ctx *contract.Context, name, symbol string, owner common.Address) error {
	return t.initMeta(ctx, name, symbol, owner)
}

func (t *ERC20) Address() common.Address {
	return t.Self
}

func (t *ERC20) ABI() *abi.ABI {
	return ERC20ABI
}

func (t *ERC20) Run(ctx *contract.Context, method *abi.Method, args []any, value *big.Int) ([]any, error) {
	out, handled, err := t.runERC20(ctx, method.Name, args)
	if !handled {
		return nil, types.Wrapf(types.ErrUnknownMethod, "%s", method.Name)
	}
	return out, err
}
