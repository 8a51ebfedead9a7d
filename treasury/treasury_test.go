package treasury

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/token"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	treasuryAddr = common.HexToAddress("0x0000000000000000000000000000000000000c01")
	erc20Addr    = common.HexToAddress("0x0000000000000000000000000000000000000c02")
	erc721Addr   = common.HexToAddress("0x0000000000000000000000000000000000000c03")
	owner        = common.HexToAddress("0x0000000000000000000000000000000000000d01")
	stranger     = common.HexToAddress("0x0000000000000000000000000000000000000d02")
	recipient    = common.HexToAddress("0x0000000000000000000000000000000000000d03")
)

func setup(t *testing.T) (*contract.Context, *Treasury, *token.ERC20, *token.ERC721) {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	router := contract.NewRouter()
	ctx := contract.NewContext(context.Background(), db.NewState(), contract.Block{ChainId: "test", Height: 1, Time: 1000}, router, cmtlog.NewNopLogger())
	tr := New(treasuryAddr)
	ft := token.NewERC20(erc20Addr)
	nft := token.NewERC721(erc721Addr)
	for _, c := range []contract.Contract{tr, ft, nft} {
		require.NoError(t, router.Register(c))
	}
	require.NoError(t, tr.Init(ctx, owner))
	require.NoError(t, ft.Init(ctx, "Stable", "USD", owner))
	require.NoError(t, nft.Init(ctx, "Deed", "DEED", owner))

	require.NoError(t, contract.Mint(ctx.Store(), stranger, big.NewInt(1000)))
	require.NoError(t, ft.Mint(ctx.WithCaller(owner), treasuryAddr, big.NewInt(50)))
	require.NoError(t, nft.Mint(ctx.WithCaller(owner), treasuryAddr, big.NewInt(1)))
	return ctx, tr, ft, nft
}

func TestDepositIsOpen(t *testing.T) {
	ctx, tr, _, _ := setup(t)
	_, err := ctx.Router().Call(ctx, stranger, treasuryAddr, big.NewInt(300), nil)
	require.NoError(t, err)
	bal, err := tr.Balance(ctx.Store())
	require.NoError(t, err)
	assert.Equal(t, int64(300), bal.Int64())

	var received bool
	for _, ev := range ctx.Events() {
		if ev.Type == types.EventReceivedType {
			received = true
		}
	}
	assert.True(t, received)
}

func TestReleaseNative(t *testing.T) {
	ctx, tr, _, _ := setup(t)
	_, err := ctx.Router().Call(ctx, stranger, treasuryAddr, big.NewInt(300), nil)
	require.NoError(t, err)

	err = tr.ReleaseNativeToken(ctx.WithCaller(stranger), recipient, big.NewInt(10))
	assert.True(t, errors.Is(err, types.ErrUnauthorized))

	err = tr.ReleaseNativeToken(ctx.WithCaller(owner), recipient, big.NewInt(301))
	assert.True(t, errors.Is(err, types.ErrInsufficientBalance))

	require.NoError(t, tr.ReleaseNativeToken(ctx.WithCaller(owner), recipient, big.NewInt(100)))
	bal, err := tr.Balance(ctx.Store())
	require.NoError(t, err)
	assert.Equal(t, int64(200), bal.Int64())
	got, err := contract.Balance(ctx.Store(), recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Int64())
}

func TestReleaseNativeToSelf(t *testing.T) {
	ctx, tr, _, _ := setup(t)
	_, err := ctx.Router().Call(ctx, stranger, treasuryAddr, big.NewInt(300), nil)
	require.NoError(t, err)

	err = tr.ReleaseNativeToken(ctx.WithCaller(owner), treasuryAddr, big.NewInt(301))
	assert.True(t, errors.Is(err, types.ErrInsufficientBalance))

	require.NoError(t, tr.ReleaseNativeToken(ctx.WithCaller(owner), treasuryAddr, big.NewInt(300)))
	bal, err := tr.Balance(ctx.Store())
	require.NoError(t, err)
	assert.Equal(t, int64(300), bal.Int64())
}

func TestReleaseAssets(t *testing.T) {
	ctx, tr, ft, nft := setup(t)
	s := ctx.Store()

	err := tr.ReleaseERC20Token(ctx.WithCaller(stranger), recipient, big.NewInt(10), erc20Addr)
	assert.True(t, errors.Is(err, types.ErrUnauthorized))

	err = tr.ReleaseERC20Token(ctx.WithCaller(owner), recipient, big.NewInt(51), erc20Addr)
	assert.True(t, errors.Is(err, types.ErrAssetTransferFailed))

	err = tr.ReleaseERC20Token(ctx.WithCaller(owner), recipient, big.NewInt(1), recipient)
	assert.True(t, errors.Is(err, types.ErrAssetTransferFailed))

	require.NoError(t, tr.ReleaseERC20Token(ctx.WithCaller(owner), recipient, big.NewInt(20), erc20Addr))
	bal, err := ft.BalanceOf(s, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(20), bal.Int64())

	err = tr.ReleaseERC721Token(ctx.WithCaller(owner), recipient, big.NewInt(2), erc721Addr)
	assert.True(t, errors.Is(err, types.ErrAssetTransferFailed))

	require.NoError(t, tr.ReleaseERC721Token(ctx.WithCaller(owner), recipient, big.NewInt(1), erc721Addr))
	holder, err := nft.OwnerOf(s, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, recipient, holder)
}

func TestOwnershipGate(t *testing.T) {
	ctx, tr, _, _ := setup(t)
	err := tr.TransferOwnership(ctx.WithCaller(stranger), stranger)
	assert.True(t, errors.Is(err, types.ErrUnauthorized))

	input, err := contract.Pack(ABI, "releaseNativeToken", recipient, big.NewInt(1))
	require.NoError(t, err)
	_, err = ctx.Router().Call(ctx, stranger, treasuryAddr, nil, input)
	assert.True(t, errors.Is(err, types.ErrUnauthorized))
}
