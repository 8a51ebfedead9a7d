package token

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var (
	tokenAddr   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	ownerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	deployer    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	testHolders = []common.Address{
		common.HexToAddress("0x0000000000000000000000000000000000000011"),
		common.HexToAddress("0x0000000000000000000000000000000000000012"),
		common.HexToAddress("0x0000000000000000000000000000000000000013"),
	}
)

func newTestContext(t testing.TB) *contract.Context {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	return contract.NewContext(context.Background(), db.NewState(), contract.Block{ChainId: "test", Height: 1, Time: 1000}, contract.NewRouter(), cmtlog.NewNopLogger())
}

func newTestToken(t testing.TB, ctx *contract.Context) *VotesToken {
	tok := NewVotesToken(tokenAddr)
	require.NoError(t, tok.Init(ctx.WithCaller(deployer), "Token", "TKN", ownerAddr, deployer))
	return tok
}

func TestTraceBefore(t *testing.T) {
	ctx := newTestContext(t)
	s := ctx.Store()
	tr := trace{
		countKey: []byte("tn"),
		entryKey: func(i uint64) []byte { return state.Key("tc%d", i) },
	}
	_, err := tr.push(s, 2, big.NewInt(10))
	require.NoError(t, err)
	_, err = tr.push(s, 5, big.NewInt(20))
	require.NoError(t, err)
	prev, err := tr.push(s, 5, big.NewInt(25))
	require.NoError(t, err)
	assert.Equal(t, int64(20), prev.Int64())
	n, err := tr.length(s)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	cases := map[uint64]int64{0: 0, 1: 0, 2: 0, 3: 10, 5: 10, 6: 25, 100: 25}
	for h, want := range cases {
		v, err := tr.before(s, h)
		require.NoError(t, err)
		assert.Equal(t, want, v.Int64(), "height %d", h)
	}
}

func TestDistributionOnce(t *testing.T) {
	ctx := newTestContext(t)
	tok := newTestToken(t, ctx)

	err := tok.TokenDistribution(ctx.WithCaller(testHolders[0]), []common.Address{testHolders[0]}, []*big.Int{big.NewInt(1)})
	assert.True(t, errors.Is(err, types.ErrUnauthorized))

	err = tok.TokenDistribution(ctx.WithCaller(deployer), []common.Address{testHolders[0]}, nil)
	assert.True(t, errors.Is(err, types.ErrLengthMismatch))

	require.NoError(t, tok.TokenDistribution(ctx.WithCaller(deployer), []common.Address{deployer}, []*big.Int{big.NewInt(6000)}))
	err = tok.TokenDistribution(ctx.WithCaller(deployer), []common.Address{deployer}, []*big.Int{big.NewInt(6000)})
	assert.True(t, errors.Is(err, types.ErrAlreadyDistributed))

	supply, err := tok.TotalSupply(ctx.Store())
	require.NoError(t, err)
	assert.Equal(t, int64(6000), supply.Int64())
}

func TestMintOwnerOnly(t *testing.T) {
	ctx := newTestContext(t)
	tok := newTestToken(t, ctx)

	err := tok.Mint(ctx.WithCaller(deployer), testHolders[0], big.NewInt(5))
	assert.True(t, errors.Is(err, types.ErrUnauthorized))
	assert.Equal(t, "UNAUTHORIZED", types.ErrUnauthorized.Error())

	require.NoError(t, tok.Mint(ctx.WithCaller(ownerAddr), testHolders[0], big.NewInt(5)))
	bal, err := tok.BalanceOf(ctx.Store(), testHolders[0])
	require.NoError(t, err)
	assert.Equal(t, int64(5), bal.Int64())
}

func TestVotingPowerFollowsDelegation(t *testing.T) {
	ctx := newTestContext(t)
	tok := newTestToken(t, ctx)
	s := ctx.Store()
	a, b := testHolders[0], testHolders[1]

	require.NoError(t, tok.TokenDistribution(ctx.WithCaller(deployer), []common.Address{a, b}, []*big.Int{big.NewInt(100), big.NewInt(50)}))
	votes, err := tok.GetVotes(s, a)
	require.NoError(t, err)
	assert.Zero(t, votes.Sign(), "undelegated balance carries no votes")

	require.NoError(t, tok.Delegate(ctx.WithCaller(a), a))
	require.NoError(t, tok.Delegate(ctx.WithCaller(b), a))
	votes, err = tok.GetVotes(s, a)
	require.NoError(t, err)
	assert.Equal(t, int64(150), votes.Int64())

	ctx.Block.Height = 2
	require.NoError(t, tok.Transfer(ctx.WithCaller(a), testHolders[2], big.NewInt(30)))
	votes, err = tok.GetVotes(s, a)
	require.NoError(t, err)
	assert.Equal(t, int64(120), votes.Int64())

	past, err := tok.GetPastVotes(s, 2, a, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(150), past.Int64())

	_, err = tok.GetPastVotes(s, 2, a, 3)
	assert.True(t, errors.Is(err, types.ErrFutureLookup))

	total, err := tok.GetPastTotalSupply(s, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(150), total.Int64())
}

// Past voting power never changes once its block has started, whatever
// transfers and delegations follow.
func TestPastVotesImmutable(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := newTestContext(t)
		tok := newTestToken(t, ctx)
		s := ctx.Store()
		amounts := make([]*big.Int, len(testHolders))
		for i := range amounts {
			amounts[i] = big.NewInt(rapid.Int64Range(0, 1000).Draw(rt, "amount"))
		}
		require.NoError(rt, tok.TokenDistribution(ctx.WithCaller(deployer), testHolders, amounts))

		// seen[h][i] is holder i's power at the start of block h.
		seen := make(map[uint64][]*big.Int)
		snapshot := func(h uint64) {
			row := make([]*big.Int, len(testHolders))
			for i, acc := range testHolders {
				v, err := tok.GetVotes(s, acc)
				require.NoError(rt, err)
				row[i] = v
			}
			seen[h] = row
		}

		height := uint64(1)
		blocks := rapid.IntRange(1, 8).Draw(rt, "blocks")
		for blk := 0; blk < blocks; blk++ {
			height++
			ctx.Block.Height = height
			snapshot(height)
			ops := rapid.IntRange(0, 4).Draw(rt, "ops")
			for op := 0; op < ops; op++ {
				from := testHolders[rapid.IntRange(0, len(testHolders)-1).Draw(rt, "from")]
				to := testHolders[rapid.IntRange(0, len(testHolders)-1).Draw(rt, "to")]
				if rapid.Bool().Draw(rt, "delegate") {
					require.NoError(rt, tok.Delegate(ctx.WithCaller(from), to))
					continue
				}
				bal, err := tok.BalanceOf(s, from)
				require.NoError(rt, err)
				if bal.Sign() == 0 {
					continue
				}
				amt := big.NewInt(rapid.Int64Range(1, bal.Int64()).Draw(rt, "value"))
				require.NoError(rt, tok.Transfer(ctx.WithCaller(from), to, amt))
			}
		}

		for h, row := range seen {
			for i, acc := range testHolders {
				past, err := tok.GetPastVotes(s, height, acc, h)
				require.NoError(rt, err)
				if past.Cmp(row[i]) != 0 {
					rt.Fatalf("holder %d at height %d: got %s, want %s", i, h, past, row[i])
				}
			}
		}
	})
}
