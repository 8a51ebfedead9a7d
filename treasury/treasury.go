package treasury

import (
	"math/big"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/token"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ABI = contract.NewABI(
	contract.Fn("owner", contract.View, nil, "address"),
	contract.Fn("balance", contract.View, nil, "uint256"),
	contract.Fn("releaseNativeToken", contract.NonPayable, contract.Args("address to", "uint256 amount")),
	contract.Fn("releaseERC20Token", contract.NonPayable, contract.Args("address to", "uint256 amount", "address token")),
	contract.Fn("releaseERC721Token", contract.NonPayable, contract.Args("address to", "uint256 tokenId", "address token")),
	contract.Fn("transferOwnership", contract.NonPayable, contract.Args("address newOwner")),
)

// Treasury holds the organization's funds. Deposits are open; every release
// is owner only, and the owner is the timelock.
type Treasury struct {
	contract.Ownable
}

func New(addr common.Address) *Treasury {
	return &Treasury{Ownable: contract.Ownable{Self: addr}}
}

func (t *Treasury) Init(ctx *contract.Context, owner common.Address) error {
	return t.InitOwner(ctx, owner)
}

func (t *Treasury) Address() common.Address {
	return t.Self
}

func (t *Treasury) ABI() *abi.ABI {
	return ABI
}

func (t *Treasury) Balance(s state.KVStore) (*big.Int, error) {
	return contract.Balance(s, t.Self)
}

// Receive is the deposit hook; the router has already moved the value.
func (t *Treasury) Receive(ctx *contract.Context, value *big.Int) error {
	ctx.EmitFrom(t.Self, types.EncodeEventReceived(ctx.Caller, value))
	return nil
}

func (t *Treasury) ReleaseNativeToken(ctx *contract.Context, to common.Address, amount *big.Int) error {
	if err := t.OnlyOwner(ctx); err != nil {
		return err
	}
	if _, err := ctx.Router().Call(ctx, t.Self, to, amount, nil); err != nil {
		return err
	}
	ctx.EmitFrom(t.Self, types.EncodeEventReleased(&types.EventReleased{Kind: types.ReleaseNative, To: to, Amount: amount}))
	return nil
}

func (t *Treasury) ReleaseERC20Token(ctx *contract.Context, to common.Address, amount *big.Int, asset common.Address) error {
	if err := t.OnlyOwner(ctx); err != nil {
		return err
	}
	data, err := contract.Pack(token.ERC20ABI, "transfer", to, amount)
	if err != nil {
		return err
	}
	if err = t.callAsset(ctx, asset, data); err != nil {
		return err
	}
	ctx.EmitFrom(t.Self, types.EncodeEventReleased(&types.EventReleased{Kind: types.ReleaseERC20, To: to, Amount: amount, Token: asset}))
	return nil
}

func (t *Treasury) ReleaseERC721Token(ctx *contract.Context, to common.Address, id *big.Int, asset common.Address) error {
	if err := t.OnlyOwner(ctx); err != nil {
		return err
	}
	data, err := contract.Pack(token.ERC721ABI, "transferFrom", t.Self, to, id)
	if err != nil {
		return err
	}
	if err = t.callAsset(ctx, asset, data); err != nil {
		return err
	}
	ctx.EmitFrom(t.Self, types.EncodeEventReleased(&types.EventReleased{Kind: types.ReleaseERC721, To: to, Amount: id, Token: asset}))
	return nil
}

// callAsset runs a transfer on the asset's own ledger. A target without code
// cannot hold custody, so it fails like a rejected transfer.
func (t *Treasury) callAsset(ctx *contract.Context, asset common.Address, data []byte) error {
	if !ctx.Router().IsContract(asset) {
		return types.Wrapf(types.ErrAssetTransferFailed, "%s is not a contract", asset.Hex())
	}
	if _, err := ctx.Router().Call(ctx, t.Self, asset, nil, data); err != nil {
		return types.Wrapf(types.ErrAssetTransferFailed, "%s: %v", asset.Hex(), err)
	}
	return nil
}

func (t *Treasury) Run(ctx *contract.Context, method *abi.Method, args []any, value *big.Int) ([]any, error) {
	switch method.Name {
	case "owner":
		owner, err := t.Owner(ctx.Store())
		return []any{owner}, err
	case "balance":
		bal, err := t.Balance(ctx.Store())
		return []any{bal}, err
	case "transferOwnership":
		owner, err := contract.Arg[common.Address](args, 0)
		if err != nil {
			return nil, err
		}
		return nil, t.TransferOwnership(ctx, owner)
	}
	to, err := contract.Arg[common.Address](args, 0)
	if err != nil {
		return nil, err
	}
	amount, err := contract.Arg[*big.Int](args, 1)
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "releaseNativeToken":
		return nil, t.ReleaseNativeToken(ctx, to, amount)
	case "releaseERC20Token", "releaseERC721Token":
		asset, err := contract.Arg[common.Address](args, 2)
		if err != nil {
			return nil, err
		}
		if method.Name == "releaseERC20Token" {
			return nil, t.ReleaseERC20Token(ctx, to, amount, asset)
		}
		return nil, t.ReleaseERC721Token(ctx, to, amount, asset)
	}
	return nil, types.Wrapf(types.ErrUnknownMethod, "%s", method.Name)
}
