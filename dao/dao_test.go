package dao

import (
	"context"
	"math/big"
	"testing"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/timelock"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	members  = []common.Address{
		common.HexToAddress("0x00000000000000000000000000000000000000d1"),
		common.HexToAddress("0x00000000000000000000000000000000000000d2"),
		common.HexToAddress("0x00000000000000000000000000000000000000d3"),
	}
)

func hexOrDec(v int64) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(big.NewInt(v))
}

func testAppState() *types.AppState {
	gs := types.DefaultAppState(deployer)
	gs.Balances = []types.GenesisBalance{{Address: deployer, Amount: hexOrDec(20000)}}
	for _, m := range members {
		gs.Distribution = append(gs.Distribution, types.GenesisBalance{Address: m, Amount: hexOrDec(1000)})
	}
	gs.Deposit = hexOrDec(10000)
	gs.Assets = []types.GenesisAsset{
		{Kind: AssetERC20, Name: "Stable", Symbol: "STB", Holders: []types.GenesisBalance{{Address: members[0], Amount: hexOrDec(500)}}},
		{Kind: AssetERC721, Name: "Deed", Symbol: "DEED", Holders: []types.GenesisBalance{{Address: members[1], Amount: hexOrDec(7)}}},
	}
	return gs
}

func newGenesisContext(t *testing.T) (*contract.Context, *state.StateDB) {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	ctx := contract.NewContext(context.Background(), db.NewState(), contract.Block{ChainId: "test", Height: 0, Time: 1000}, contract.NewRouter(), cmtlog.NewNopLogger())
	return ctx, db
}

func TestDeployAddresses(t *testing.T) {
	ctx, _ := newGenesisContext(t)
	d, err := InitGenesis(ctx, testAppState())
	require.NoError(t, err)

	assert.Equal(t, crypto.CreateAddress(deployer, 0), d.Timelock)
	assert.Equal(t, crypto.CreateAddress(deployer, 1), d.Token)
	assert.Equal(t, crypto.CreateAddress(deployer, 2), d.Governor)
	assert.Equal(t, crypto.CreateAddress(deployer, 3), d.Treasury)
	require.Len(t, d.Assets, 2)
	assert.Equal(t, crypto.CreateAddress(deployer, 4), d.Assets[0].Address)

	r := ctx.Router()
	for _, addr := range []common.Address{d.Timelock, d.Token, d.Governor, d.Treasury, d.Assets[0].Address, d.Assets[1].Address} {
		assert.True(t, r.IsContract(addr), addr.Hex())
	}
}

func TestGenesisEffects(t *testing.T) {
	ctx, _ := newGenesisContext(t)
	d, err := InitGenesis(ctx, testAppState())
	require.NoError(t, err)
	s := ctx.Store()

	bal, err := d.TreasuryContract().Balance(s)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), bal.Int64())
	left, err := contract.Balance(s, deployer)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), left.Int64())

	for _, m := range members {
		v, err := d.TokenContract().GetVotes(s, m)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), v.Int64())
	}
	distributed, err := d.TokenContract().Distributed(s)
	require.NoError(t, err)
	assert.True(t, distributed)

	stable := d.ERC20(d.Assets[0].Address)
	require.NotNil(t, stable)
	sb, err := stable.BalanceOf(s, members[0])
	require.NoError(t, err)
	assert.Equal(t, int64(500), sb.Int64())
	deed := d.ERC721(d.Assets[1].Address)
	require.NotNil(t, deed)
	owner, err := deed.OwnerOf(s, big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, members[1], owner)

	params, err := d.GovernorContract().Params(s)
	require.NoError(t, err)
	assert.Equal(t, "miniDAO", params.Name)
	assert.Equal(t, uint64(4), params.QuorumNumerator)
}

func TestBootstrapAdminHandOff(t *testing.T) {
	ctx, _ := newGenesisContext(t)
	d, err := InitGenesis(ctx, testAppState())
	require.NoError(t, err)
	s := ctx.Store()

	violations, err := VerifyOwnership(s, d)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, deployer, violations[0].Account)

	require.NoError(t, d.TimelockContract().RenounceRole(ctx.WithCaller(deployer), timelock.DefaultAdminRole, deployer))
	violations, err = VerifyOwnership(s, d)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestNoBootstrapAdmin(t *testing.T) {
	ctx, _ := newGenesisContext(t)
	gs := testAppState()
	gs.Params.BootstrapAdmin = false
	d, err := InitGenesis(ctx, gs)
	require.NoError(t, err)
	violations, err := VerifyOwnership(ctx.Store(), d)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestAttach(t *testing.T) {
	ctx, _ := newGenesisContext(t)
	d, err := InitGenesis(ctx, testAppState())
	require.NoError(t, err)

	r := contract.NewRouter()
	again, err := Attach(ctx.Store(), r)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, d.Deployment, again.Deployment)
	assert.True(t, r.IsContract(again.Assets[1].Address))

	empty, _ := newGenesisContext(t)
	none, err := Attach(empty.Store(), contract.NewRouter())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestExplicitExecutors(t *testing.T) {
	ctx, _ := newGenesisContext(t)
	gs := testAppState()
	gs.Params.Executors = []common.Address{members[2]}
	d, err := InitGenesis(ctx, gs)
	require.NoError(t, err)
	s := ctx.Store()
	tl := d.TimelockContract()

	open, err := tl.HasRole(s, timelock.ExecutorRole, timelock.Anyone)
	require.NoError(t, err)
	assert.False(t, open)
	for _, a := range []common.Address{d.Governor, members[2]} {
		ok, err := tl.HasRole(s, timelock.ExecutorRole, a)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
