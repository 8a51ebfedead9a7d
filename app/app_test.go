package app

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/calehh/hac-dao/config"
	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/dao"
	"github.com/calehh/hac-dao/governance"
	"github.com/calehh/hac-dao/metrics"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/token"
	"github.com/calehh/hac-dao/treasury"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainId = "dao-test"

var (
	genesisTime = time.Unix(1_700_000_000, 0)
	deployer    = common.HexToAddress("0x00000000000000000000000000000000000000d0")
)

type testChain struct {
	t      *testing.T
	app    *DAOApp
	db     *state.StateDB
	height int64
	keys   []*ecdsa.PrivateKey
	nonces map[common.Address]uint64
}

func hexOrDec(v int64) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(big.NewInt(v))
}

// newTestChain starts a chain with three members holding 1000 self-delegated
// votes each and a treasury funded with 10000.
func newTestChain(t *testing.T) *testChain {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	c := &testChain{t: t, db: db, nonces: make(map[common.Address]uint64)}

	gs := types.DefaultAppState(deployer)
	gs.Params.VotingDelay = 1
	gs.Params.VotingPeriod = 5
	gs.Params.TimelockMinDelay = 10
	gs.Balances = []types.GenesisBalance{{Address: deployer, Amount: hexOrDec(20000)}}
	gs.Deposit = hexOrDec(10000)
	for i := 0; i < 3; i++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		c.keys = append(c.keys, key)
		gs.Distribution = append(gs.Distribution, types.GenesisBalance{Address: addr(key), Amount: hexOrDec(1000)})
	}
	dat, err := gs.Marshal()
	require.NoError(t, err)

	cfg := config.DefaultAppConfig(t.TempDir())
	c.app, err = NewDAOAppWithDB(cfg, db, cmtlog.NewNopLogger(), metrics.Nop())
	require.NoError(t, err)
	_, err = c.app.InitChain(context.Background(), &abcitypes.RequestInitChain{
		ChainId:       testChainId,
		Time:          genesisTime,
		InitialHeight: 1,
		AppStateBytes: dat,
	})
	require.NoError(t, err)
	require.NotNil(t, c.app.DAO())
	return c
}

func addr(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

func (c *testChain) sign(key *ecdsa.PrivateKey, tp tx.DAOTxType, body any) []byte {
	sender := addr(key)
	btx, err := tx.NewSigned(testChainId, key, c.nonces[sender], tp, body)
	require.NoError(c.t, err)
	c.nonces[sender]++
	dat, err := tx.MarshalDAOTx(btx)
	require.NoError(c.t, err)
	return dat
}

func blockTime(height int64) time.Time {
	return genesisTime.Add(time.Duration(height) * 5 * time.Second)
}

func (c *testChain) finalize(txs ...[]byte) []*abcitypes.ExecTxResult {
	c.height++
	res, err := c.app.FinalizeBlock(context.Background(), &abcitypes.RequestFinalizeBlock{
		Height: c.height,
		Time:   blockTime(c.height),
		Txs:    txs,
	})
	require.NoError(c.t, err)
	_, err = c.app.Commit(context.Background(), &abcitypes.RequestCommit{})
	require.NoError(c.t, err)
	require.Len(c.t, res.TxResults, len(txs))
	return res.TxResults
}

func (c *testChain) advanceTo(height int64) {
	for c.height < height {
		c.finalize()
	}
}

func (c *testChain) query(path string, data []byte, v any) *abcitypes.ResponseQuery {
	res, err := c.app.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(c.t, err)
	if v != nil {
		require.Equal(c.t, abcitypes.CodeTypeOK, res.Code, res.Log)
		require.NoError(c.t, json.Unmarshal(res.Value, v))
	}
	return res
}

func requireOK(t *testing.T, res *abcitypes.ExecTxResult) {
	t.Helper()
	require.Equal(t, abcitypes.CodeTypeOK, res.Code, res.Log)
}

func hasEvent(res *abcitypes.ExecTxResult, tp string) bool {
	for _, ev := range res.Events {
		if ev.Type == tp {
			return true
		}
	}
	return false
}

type releaseProposal struct {
	actions *tx.ProposalActionTx
	propose *tx.ProposeTx
	id      common.Hash
}

func newReleaseProposal(t *testing.T, d *dao.DAO, to common.Address, amount int64) *releaseProposal {
	data, err := contract.Pack(treasury.ABI, "releaseNativeToken", to, big.NewInt(amount))
	require.NoError(t, err)
	desc := "release to " + to.Hex()
	targets := []common.Address{d.Treasury}
	values := []*big.Int{new(big.Int)}
	calldatas := []hexutil.Bytes{data}
	descHash := governance.HashDescription(desc)
	return &releaseProposal{
		propose: &tx.ProposeTx{Targets: targets, Values: values, Calldatas: calldatas, Description: desc},
		actions: &tx.ProposalActionTx{Targets: targets, Values: values, Calldatas: calldatas, DescriptionHash: descHash},
		id:      governance.HashProposal(targets, values, tx.RawBytesList(calldatas), descHash),
	}
}

func TestTreasuryReleaseLifecycle(t *testing.T) {
	c := newTestChain(t)
	d := c.app.DAO()
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	p := newReleaseProposal(t, d, recipient, 500)

	res := c.finalize(c.sign(c.keys[0], tx.DAOTxTypePropose, p.propose))
	requireOK(t, res[0])
	assert.True(t, hasEvent(res[0], types.EventProposalCreatedType))

	var view types.ProposalView
	c.query("/proposal", p.id.Bytes(), &view)
	assert.Equal(t, "Pending", view.State)
	assert.EqualValues(t, 2, view.VoteStart)
	assert.EqualValues(t, 7, view.VoteEnd)

	res = c.finalize(
		c.sign(c.keys[0], tx.DAOTxTypeCastVote, &tx.CastVoteTx{ProposalId: p.id, Support: uint8(types.VoteFor)}),
		c.sign(c.keys[1], tx.DAOTxTypeCastVote, &tx.CastVoteTx{ProposalId: p.id, Support: uint8(types.VoteFor), Reason: "ok"}),
		c.sign(c.keys[2], tx.DAOTxTypeCastVote, &tx.CastVoteTx{ProposalId: p.id, Support: uint8(types.VoteAgainst)}),
	)
	for _, r := range res {
		requireOK(t, r)
		assert.True(t, hasEvent(r, types.EventVoteCastType))
	}

	var receipt types.ReceiptView
	c.query("/receipt/", append(p.id.Bytes(), addr(c.keys[1]).Bytes()...), &receipt)
	assert.True(t, receipt.HasVoted)
	assert.Equal(t, types.VoteFor, receipt.Support)
	assert.EqualValues(t, 1000, receipt.Weight.Int64())

	c.advanceTo(6)
	res = c.finalize(c.sign(c.keys[0], tx.DAOTxTypeQueue, p.actions))
	requireOK(t, res[0])
	assert.True(t, hasEvent(res[0], types.EventProposalQueuedType))
	assert.True(t, hasEvent(res[0], types.EventCallScheduledType))

	c.query("/proposal/", p.id.Bytes(), &view)
	assert.Equal(t, "Queued", view.State)
	assert.EqualValues(t, 2000, view.ForVotes.Int64())
	assert.EqualValues(t, 1000, view.AgainstVotes.Int64())

	// eta is ten seconds past block 7
	res = c.finalize(c.sign(c.keys[1], tx.DAOTxTypeExecute, p.actions))
	assert.Equal(t, types.ErrDelayNotElapsed.Code(), res[0].Code, res[0].Log)

	var before, after, acct state.Account
	c.query("/accounts/", d.Treasury.Bytes(), &before)
	assert.EqualValues(t, 10000, before.Balance.Int64())

	c.advanceTo(9)
	res = c.finalize(c.sign(c.keys[1], tx.DAOTxTypeExecute, p.actions))
	requireOK(t, res[0])
	assert.True(t, hasEvent(res[0], types.EventProposalExecutedType))
	assert.True(t, hasEvent(res[0], types.EventReleasedType))

	c.query("/proposal/", p.id.Bytes(), &view)
	assert.Equal(t, "Executed", view.State)

	c.query("/accounts/", d.Treasury.Bytes(), &after)
	assert.EqualValues(t, before.Balance.Int64()-500, after.Balance.Int64())
	c.query("/accounts/", recipient.Bytes(), &acct)
	assert.EqualValues(t, 500, acct.Balance.Int64())

	var all []types.ProposalView
	c.query("/proposal/", nil, &all)
	require.Len(t, all, 1)
	assert.Equal(t, p.id, all[0].Id)
}

func TestFailedTxConsumesNonce(t *testing.T) {
	c := newTestChain(t)
	p := newReleaseProposal(t, c.app.DAO(), common.HexToAddress("0xaa"), 1)

	// voting before the proposal exists fails but the nonce moves
	res := c.finalize(c.sign(c.keys[0], tx.DAOTxTypeCastVote, &tx.CastVoteTx{ProposalId: p.id, Support: uint8(types.VoteFor)}))
	assert.Equal(t, types.ErrUnknownProposal.Code(), res[0].Code)
	assert.Equal(t, types.Codespace, res[0].Codespace)
	assert.Empty(t, res[0].Events)

	var acct state.Account
	c.query("/accounts/", addr(c.keys[0]).Bytes(), &acct)
	assert.EqualValues(t, 1, acct.Nonce)

	// replaying nonce 0 is rejected
	sender := addr(c.keys[0])
	c.nonces[sender] = 0
	res = c.finalize(c.sign(c.keys[0], tx.DAOTxTypePropose, p.propose))
	assert.Equal(t, types.ErrInvalidNonce.Code(), res[0].Code)

	res = c.finalize(c.sign(c.keys[0], tx.DAOTxTypePropose, p.propose))
	requireOK(t, res[0])
	c.query("/accounts/", sender.Bytes(), &acct)
	assert.EqualValues(t, 2, acct.Nonce)

	res = c.finalize([]byte("garbage"))
	assert.Equal(t, types.ErrInvalidTx.Code(), res[0].Code)
}

func TestCheckTx(t *testing.T) {
	c := newTestChain(t)
	p := newReleaseProposal(t, c.app.DAO(), common.HexToAddress("0xaa"), 1)
	check := func(dat []byte) *abcitypes.ResponseCheckTx {
		res, err := c.app.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: dat})
		require.NoError(t, err)
		return res
	}

	assert.Equal(t, types.ErrInvalidTx.Code(), check([]byte("{")).Code)

	res := check(c.sign(c.keys[0], tx.DAOTxTypePropose, p.propose))
	assert.Equal(t, abcitypes.CodeTypeOK, res.Code, res.Log)

	// a future nonce is admitted without a dry run
	res = check(c.sign(c.keys[0], tx.DAOTxTypeCastVote, &tx.CastVoteTx{ProposalId: p.id, Support: 1}))
	assert.Equal(t, abcitypes.CodeTypeOK, res.Code, res.Log)

	// the dry run catches a failing body at the current nonce
	empty := *p.propose
	empty.Description = ""
	c.nonces[addr(c.keys[1])] = 0
	res = check(c.sign(c.keys[1], tx.DAOTxTypePropose, &empty))
	assert.Equal(t, types.ErrEmptyDescription.Code(), res.Code)

	// and nothing it did is visible afterwards
	var all []types.ProposalView
	c.query("/proposal/", nil, &all)
	assert.Empty(t, all)

	btx, err := tx.NewSigned("other-chain", c.keys[2], 0, tx.DAOTxTypeDelegate, &tx.DelegateTx{Delegatee: addr(c.keys[2])})
	require.NoError(t, err)
	dat, err := tx.MarshalDAOTx(btx)
	require.NoError(t, err)
	assert.Equal(t, types.ErrInvalidSignature.Code(), check(dat).Code)
}

func TestProposalHandling(t *testing.T) {
	c := newTestChain(t)
	c.app.cfg.MaxTxsPerBlock = 2
	good := c.sign(c.keys[0], tx.DAOTxTypeDelegate, &tx.DelegateTx{Delegatee: addr(c.keys[1])})

	btx, err := tx.NewSigned(testChainId, c.keys[1], 0, tx.DAOTxTypeDelegate, &tx.DelegateTx{})
	require.NoError(t, err)
	btx.Sender = addr(c.keys[2])
	forged, err := tx.MarshalDAOTx(btx)
	require.NoError(t, err)

	prep, err := c.app.PrepareProposal(context.Background(), &abcitypes.RequestPrepareProposal{
		Txs: [][]byte{[]byte("garbage"), forged, good, good, good},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{good, good}, prep.Txs)

	proc, err := c.app.ProcessProposal(context.Background(), &abcitypes.RequestProcessProposal{Txs: prep.Txs})
	require.NoError(t, err)
	assert.Equal(t, abcitypes.ResponseProcessProposal_ACCEPT, proc.Status)

	proc, err = c.app.ProcessProposal(context.Background(), &abcitypes.RequestProcessProposal{Txs: [][]byte{good, []byte("garbage")}})
	require.NoError(t, err)
	assert.Equal(t, abcitypes.ResponseProcessProposal_REJECT, proc.Status)
}

func TestDelegateMovesVotes(t *testing.T) {
	c := newTestChain(t)
	res := c.finalize(c.sign(c.keys[0], tx.DAOTxTypeDelegate, &tx.DelegateTx{Delegatee: addr(c.keys[1])}))
	requireOK(t, res[0])
	c.finalize()

	var votes VotesView
	c.query("/votes/", addr(c.keys[1]).Bytes(), &votes)
	assert.EqualValues(t, 2000, votes.Votes.Int64())
	assert.EqualValues(t, 3000, votes.Supply.Int64())

	// genesis power is still readable at height 1
	past := append(addr(c.keys[1]).Bytes(), 0, 0, 0, 0, 0, 0, 0, 1)
	c.query("/votes/", past, &votes)
	assert.EqualValues(t, 1000, votes.Votes.Int64())

	var holder HolderView
	c.query("/balance/", addr(c.keys[0]).Bytes(), &holder)
	assert.EqualValues(t, 1000, holder.Balance.Int64())
	assert.EqualValues(t, 0, holder.Votes.Int64())
	require.NotNil(t, holder.Delegate)
	assert.Equal(t, addr(c.keys[1]), *holder.Delegate)
}

func TestQueries(t *testing.T) {
	c := newTestChain(t)
	d := c.app.DAO()
	c.finalize()

	res := c.query("/nothing/", nil, nil)
	assert.Equal(t, CodeNotFound, res.Code)

	res = c.query("/proposal/", common.Hash{1}.Bytes(), nil)
	assert.Equal(t, types.ErrUnknownProposal.Code(), res.Code)

	var params ParamsView
	c.query("/params/", nil, &params)
	assert.EqualValues(t, 5, params.VotingPeriod)
	assert.EqualValues(t, 10, params.MinDelay)
	assert.Equal(t, "miniDAO", params.Name)

	var dep DeploymentView
	c.query("/deployment/", nil, &dep)
	assert.Equal(t, d.Deployment.Governor, dep.Governor)
	assert.Equal(t, d.Deployment.Treasury, dep.Treasury)
	assert.ElementsMatch(t, []common.Address{d.Timelock, deployer}, dep.Admins)

	input, err := contract.Pack(token.VotesTokenABI, "totalSupply")
	require.NoError(t, err)
	res = c.query("/call/", append(d.Token.Bytes(), input...), nil)
	require.Equal(t, abcitypes.CodeTypeOK, res.Code, res.Log)
	out, err := token.VotesTokenABI.Unpack("totalSupply", res.Value)
	require.NoError(t, err)
	assert.EqualValues(t, 3000, out[0].(*big.Int).Int64())

	// state changing methods are refused
	input, err = contract.Pack(token.VotesTokenABI, "delegate", deployer)
	require.NoError(t, err)
	res = c.query("/call/", append(d.Token.Bytes(), input...), nil)
	assert.Equal(t, types.ErrUnknownMethod.Code(), res.Code)

	var holder HolderView
	c.query("/balance/", append(d.Treasury.Bytes(), d.Token.Bytes()...), &holder)
	assert.EqualValues(t, 0, holder.Balance.Int64())
	c.query("/accounts/", d.Treasury.Bytes(), new(state.Account))
}

func TestRestartReattaches(t *testing.T) {
	c := newTestChain(t)
	c.finalize(c.sign(c.keys[0], tx.DAOTxTypeDelegate, &tx.DelegateTx{Delegatee: addr(c.keys[0])}))
	c.finalize()

	info, err := c.app.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.LastBlockHeight)

	again, err := NewDAOAppWithDB(c.app.cfg, c.db, cmtlog.NewNopLogger(), metrics.Nop())
	require.NoError(t, err)
	require.NotNil(t, again.DAO())
	assert.Equal(t, c.app.DAO().Deployment, again.DAO().Deployment)

	info2, err := again.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)
	assert.Equal(t, info.LastBlockAppHash, info2.LastBlockAppHash)
}
