package timelock

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
	timelockAddr = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	assetAddr    = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	admin        = common.HexToAddress("0x0000000000000000000000000000000000000b01")
	proposer     = common.HexToAddress("0x0000000000000000000000000000000000000b02")
	stranger     = common.HexToAddress("0x0000000000000000000000000000000000000b03")
	receiver     = common.HexToAddress("0x0000000000000000000000000000000000000b04")
)

const minDelay = 60

type testEnv struct {
	ctx   *contract.Context
	tl    *Timelock
	asset *token.ERC20
}

func newTestEnv(t *testing.T, executors ...common.Address) *testEnv {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	router := contract.NewRouter()
	ctx := contract.NewContext(context.Background(), db.NewState(), contract.Block{ChainId: "test", Height: 1, Time: 1000}, router, cmtlog.NewNopLogger())

	tl := New(timelockAddr)
	asset := token.NewERC20(assetAddr)
	require.NoError(t, router.Register(tl))
	require.NoError(t, router.Register(asset))
	if len(executors) == 0 {
		executors = []common.Address{Anyone}
	}
	require.NoError(t, tl.Init(ctx.WithCaller(admin), minDelay, []common.Address{proposer}, executors, admin))
	require.NoError(t, asset.Init(ctx.WithCaller(admin), "Asset", "AST", timelockAddr))
	return &testEnv{ctx: ctx, tl: tl, asset: asset}
}

func (e *testEnv) mintCall(t *testing.T, to common.Address, amount int64) []byte {
	data, err := contract.Pack(token.ERC20ABI, "mint", to, big.NewInt(amount))
	require.NoError(t, err)
	return data
}

func (e *testEnv) balance(t *testing.T, account common.Address) int64 {
	bal, err := e.asset.BalanceOf(e.ctx.Store(), account)
	require.NoError(t, err)
	return bal.Int64()
}

func TestScheduleDelay(t *testing.T) {
	env := newTestEnv(t)
	targets := []common.Address{assetAddr}
	values := []*big.Int{big.NewInt(0)}
	payloads := [][]byte{env.mintCall(t, receiver, 10)}
	salt := common.HexToHash("0x01")

	_, err := env.tl.ScheduleBatch(env.ctx.WithCaller(stranger), targets, values, payloads, common.Hash{}, salt, 2000)
	assert.True(t, errors.Is(err, types.ErrUnauthorized))

	_, err = env.tl.ScheduleBatch(env.ctx.WithCaller(proposer), targets, values, payloads, common.Hash{}, salt, 1000+minDelay-1)
	assert.True(t, errors.Is(err, types.ErrDelayNotMet))

	id, err := env.tl.ScheduleBatch(env.ctx.WithCaller(proposer), targets, values, payloads, common.Hash{}, salt, 1000+minDelay)
	require.NoError(t, err)
	assert.Equal(t, HashOperationBatch(targets, values, payloads, common.Hash{}, salt), id)

	_, err = env.tl.ScheduleBatch(env.ctx.WithCaller(proposer), targets, values, payloads, common.Hash{}, salt, 1000+minDelay)
	assert.True(t, errors.Is(err, types.ErrOperationScheduled))

	_, err = env.tl.ExecuteBatch(env.ctx.WithCaller(stranger), targets, values, payloads, common.Hash{}, salt)
	assert.True(t, errors.Is(err, types.ErrDelayNotElapsed))

	env.ctx.Block.Time = 1000 + minDelay
	ready, err := env.tl.IsOperationReady(env.ctx.Store(), env.ctx.Block.Time, id)
	require.NoError(t, err)
	assert.True(t, ready)

	_, err = env.tl.ExecuteBatch(env.ctx.WithCaller(stranger), targets, values, payloads, common.Hash{}, salt)
	require.NoError(t, err)
	assert.Equal(t, int64(10), env.balance(t, receiver))

	_, err = env.tl.ExecuteBatch(env.ctx.WithCaller(stranger), targets, values, payloads, common.Hash{}, salt)
	assert.True(t, errors.Is(err, types.ErrOperationExecuted))
	assert.Equal(t, int64(10), env.balance(t, receiver))

	ts, err := env.tl.GetTimestamp(env.ctx.Store(), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ts)
}

func TestScheduleValueRange(t *testing.T) {
	env := newTestEnv(t)
	targets := []common.Address{assetAddr}
	payloads := [][]byte{env.mintCall(t, receiver, 10)}
	p := env.ctx.WithCaller(proposer)

	huge := []*big.Int{new(big.Int).Lsh(big.NewInt(1), 256)}
	_, err := env.tl.ScheduleBatch(p, targets, huge, payloads, common.Hash{}, common.Hash{}, 1000+minDelay)
	assert.True(t, errors.Is(err, types.ErrInvalidParam))

	_, err = env.tl.ScheduleBatch(p, targets, []*big.Int{big.NewInt(-1)}, payloads, common.Hash{}, common.Hash{}, 1000+minDelay)
	assert.True(t, errors.Is(err, types.ErrInvalidParam))

	// the wrapped value would hash like a zero value batch
	wrapped := HashOperationBatch(targets, []*big.Int{big.NewInt(0)}, payloads, common.Hash{}, common.Hash{})
	scheduled, err := env.tl.IsOperation(env.ctx.Store(), wrapped)
	require.NoError(t, err)
	assert.False(t, scheduled)

	ceiling := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	_, err = env.tl.ScheduleBatch(p, targets, []*big.Int{ceiling}, payloads, common.Hash{}, common.Hash{}, 1000+minDelay)
	require.NoError(t, err)
}

func TestExecuteUnknown(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.tl.ExecuteBatch(env.ctx.WithCaller(stranger), []common.Address{receiver}, []*big.Int{big.NewInt(0)}, [][]byte{nil}, common.Hash{}, common.Hash{})
	assert.True(t, errors.Is(err, types.ErrUnknownOperation))
}

func TestPredecessor(t *testing.T) {
	env := newTestEnv(t)
	p := env.ctx.WithCaller(proposer)
	targets := []common.Address{assetAddr}
	values := []*big.Int{big.NewInt(0)}
	first := [][]byte{env.mintCall(t, receiver, 1)}
	second := [][]byte{env.mintCall(t, receiver, 2)}

	firstId, err := env.tl.ScheduleBatch(p, targets, values, first, common.Hash{}, common.Hash{}, 1100)
	require.NoError(t, err)
	_, err = env.tl.ScheduleBatch(p, targets, values, second, firstId, common.Hash{}, 1100)
	require.NoError(t, err)

	env.ctx.Block.Time = 1100
	p = env.ctx.WithCaller(proposer)
	_, err = env.tl.ExecuteBatch(p, targets, values, second, firstId, common.Hash{})
	assert.True(t, errors.Is(err, types.ErrPredecessorNotExecuted))

	_, err = env.tl.ExecuteBatch(p, targets, values, first, common.Hash{}, common.Hash{})
	require.NoError(t, err)
	_, err = env.tl.ExecuteBatch(p, targets, values, second, firstId, common.Hash{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), env.balance(t, receiver))
}

func TestBatchRollback(t *testing.T) {
	env := newTestEnv(t)
	p := env.ctx.WithCaller(proposer)
	targets := []common.Address{assetAddr, assetAddr}
	values := []*big.Int{big.NewInt(0), big.NewInt(0)}
	payloads := [][]byte{env.mintCall(t, receiver, 5), env.mintCall(t, common.Address{}, 5)}

	id, err := env.tl.ScheduleBatch(p, targets, values, payloads, common.Hash{}, common.Hash{}, 1100)
	require.NoError(t, err)
	env.ctx.Block.Time = 1200

	_, err = env.tl.ExecuteBatch(env.ctx.WithCaller(proposer), targets, values, payloads, common.Hash{}, common.Hash{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrActionReverted))
	assert.True(t, errors.Is(err, types.ErrInvalidReceiver))
	var reverted *types.ActionRevertedError
	require.True(t, errors.As(err, &reverted))
	assert.Equal(t, 1, reverted.Index)

	assert.Zero(t, env.balance(t, receiver), "first call must not survive")
	pending, err := env.tl.IsOperationPending(env.ctx.Store(), id)
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestRestrictedExecutor(t *testing.T) {
	env := newTestEnv(t, proposer)
	targets := []common.Address{receiver}
	values := []*big.Int{big.NewInt(0)}
	payloads := [][]byte{nil}
	_, err := env.tl.ScheduleBatch(env.ctx.WithCaller(proposer), targets, values, payloads, common.Hash{}, common.Hash{}, 1100)
	require.NoError(t, err)
	env.ctx.Block.Time = 1100

	_, err = env.tl.ExecuteBatch(env.ctx.WithCaller(stranger), targets, values, payloads, common.Hash{}, common.Hash{})
	assert.True(t, errors.Is(err, types.ErrUnauthorized))
	_, err = env.tl.ExecuteBatch(env.ctx.WithCaller(proposer), targets, values, payloads, common.Hash{}, common.Hash{})
	require.NoError(t, err)
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t)
	targets := []common.Address{receiver}
	values := []*big.Int{big.NewInt(0)}
	payloads := [][]byte{nil}
	id, err := env.tl.ScheduleBatch(env.ctx.WithCaller(proposer), targets, values, payloads, common.Hash{}, common.Hash{}, 1100)
	require.NoError(t, err)

	err = env.tl.Cancel(env.ctx.WithCaller(stranger), id)
	assert.True(t, errors.Is(err, types.ErrUnauthorized))
	require.NoError(t, env.tl.Cancel(env.ctx.WithCaller(proposer), id))
	err = env.tl.Cancel(env.ctx.WithCaller(proposer), id)
	assert.True(t, errors.Is(err, types.ErrOperationNotPending))

	env.ctx.Block.Time = 1100
	_, err = env.tl.ExecuteBatch(env.ctx.WithCaller(proposer), targets, values, payloads, common.Hash{}, common.Hash{})
	assert.True(t, errors.Is(err, types.ErrUnknownOperation))
}

func TestUpdateDelaySelfOnly(t *testing.T) {
	env := newTestEnv(t)
	err := env.tl.UpdateDelay(env.ctx.WithCaller(admin), 1)
	assert.True(t, errors.Is(err, types.ErrUnauthorized))

	data, err := contract.Pack(ABI, "updateDelay", big.NewInt(120))
	require.NoError(t, err)
	targets := []common.Address{timelockAddr}
	values := []*big.Int{big.NewInt(0)}
	_, err = env.tl.ScheduleBatch(env.ctx.WithCaller(proposer), targets, values, [][]byte{data}, common.Hash{}, common.Hash{}, 1100)
	require.NoError(t, err)
	env.ctx.Block.Time = 1100
	_, err = env.tl.ExecuteBatch(env.ctx.WithCaller(stranger), targets, values, [][]byte{data}, common.Hash{}, common.Hash{})
	require.NoError(t, err)

	delay, err := env.tl.GetMinDelay(env.ctx.Store())
	require.NoError(t, err)
	assert.Equal(t, uint64(120), delay)
}

func TestBootstrapHandOff(t *testing.T) {
	env := newTestEnv(t)
	s := env.ctx.Store()
	admins, err := env.tl.AdminMembers(s)
	require.NoError(t, err)
	assert.ElementsMatch(t, []common.Address{timelockAddr, admin}, admins)

	// the bootstrap admin can still act alone
	require.NoError(t, env.tl.GrantRole(env.ctx.WithCaller(admin), ProposerRole, stranger))
	require.NoError(t, env.tl.RevokeRole(env.ctx.WithCaller(admin), ProposerRole, stranger))

	// phase two: a governed revoke removes it
	data, err := contract.Pack(ABI, "revokeRole", [32]byte(DefaultAdminRole), admin)
	require.NoError(t, err)
	targets := []common.Address{timelockAddr}
	values := []*big.Int{big.NewInt(0)}
	_, err = env.tl.ScheduleBatch(env.ctx.WithCaller(proposer), targets, values, [][]byte{data}, common.Hash{}, common.Hash{}, 1100)
	require.NoError(t, err)
	env.ctx.Block.Time = 1100
	_, err = env.tl.ExecuteBatch(env.ctx.WithCaller(stranger), targets, values, [][]byte{data}, common.Hash{}, common.Hash{})
	require.NoError(t, err)

	admins, err = env.tl.AdminMembers(s)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{timelockAddr}, admins)
	err = env.tl.GrantRole(env.ctx.WithCaller(admin), ProposerRole, stranger)
	assert.True(t, errors.Is(err, types.ErrUnauthorized))
}

func TestRenounceConfirmation(t *testing.T) {
	env := newTestEnv(t)
	err := env.tl.RenounceRole(env.ctx.WithCaller(stranger), DefaultAdminRole, admin)
	assert.True(t, errors.Is(err, types.ErrUnauthorized))
	require.NoError(t, env.tl.RenounceRole(env.ctx.WithCaller(admin), DefaultAdminRole, admin))
	ok, err := env.tl.HasRole(env.ctx.Store(), DefaultAdminRole, admin)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunThroughRouter(t *testing.T) {
	env := newTestEnv(t)
	input, err := contract.Pack(ABI, "getMinDelay")
	require.NoError(t, err)
	ret, err := env.ctx.Router().StaticCall(env.ctx, timelockAddr, input)
	require.NoError(t, err)
	out, err := ABI.Unpack("getMinDelay", ret)
	require.NoError(t, err)
	assert.Equal(t, int64(minDelay), out[0].(*big.Int).Int64())

	input, err = contract.Pack(ABI, "hasRole", [32]byte(ProposerRole), proposer)
	require.NoError(t, err)
	ret, err = env.ctx.Router().StaticCall(env.ctx, timelockAddr, input)
	require.NoError(t, err)
	out, err = ABI.Unpack("hasRole", ret)
	require.NoError(t, err)
	assert.Equal(t, true, out[0])
}
