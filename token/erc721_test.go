package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestERC721Transfer(t *testing.T) {
	ctx := newTestContext(t)
	nft := NewERC721(common.HexToAddress("0x00000000000000000000000000000000000000cc"))
	require.NoError(t, nft.Init(ctx, "Deed", "DEED", ownerAddr))
	s := ctx.Store()
	a, b, c := testHolders[0], testHolders[1], testHolders[2]
	id := big.NewInt(7)

	err := nft.Mint(ctx.WithCaller(a), a, id)
	assert.True(t, errors.Is(err, types.ErrUnauthorized))
	require.NoError(t, nft.Mint(ctx.WithCaller(ownerAddr), a, id))
	err = nft.Mint(ctx.WithCaller(ownerAddr), b, id)
	assert.True(t, errors.Is(err, types.ErrTokenAlreadyMinted))

	_, err = nft.OwnerOf(s, big.NewInt(8))
	assert.True(t, errors.Is(err, types.ErrNonexistentToken))

	err = nft.TransferFrom(ctx.WithCaller(b), a, b, id)
	assert.True(t, errors.Is(err, types.ErrNotOwnerOrApproved))

	require.NoError(t, nft.Approve(ctx.WithCaller(a), b, id))
	require.NoError(t, nft.TransferFrom(ctx.WithCaller(b), a, c, id))
	owner, err := nft.OwnerOf(s, id)
	require.NoError(t, err)
	assert.Equal(t, c, owner)

	approved, err := nft.GetApproved(s, id)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, approved, "approval is cleared on transfer")

	balA, err := nft.BalanceOf(s, a)
	require.NoError(t, err)
	balC, err := nft.BalanceOf(s, c)
	require.NoError(t, err)
	assert.Zero(t, balA.Sign())
	assert.Equal(t, int64(1), balC.Int64())
}

func TestERC20Allowance(t *testing.T) {
	ctx := newTestContext(t)
	tok := NewERC20(common.HexToAddress("0x00000000000000000000000000000000000000dd"))
	require.NoError(t, tok.Init(ctx, "Stable", "USD", ownerAddr))
	a, b := testHolders[0], testHolders[1]
	require.NoError(t, tok.Mint(ctx.WithCaller(ownerAddr), a, big.NewInt(100)))

	err := tok.TransferFrom(ctx.WithCaller(b), a, b, big.NewInt(10))
	assert.True(t, errors.Is(err, types.ErrInsufficientAllowance))

	require.NoError(t, tok.Approve(ctx.WithCaller(a), b, big.NewInt(10)))
	require.NoError(t, tok.TransferFrom(ctx.WithCaller(b), a, b, big.NewInt(10)))

	err = tok.Transfer(ctx.WithCaller(b), a, big.NewInt(11))
	assert.True(t, errors.Is(err, types.ErrInsufficientBalance))
}
