package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/calehh/hac-dao/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	blocks map[int64][]*abci.ExecTxResult
	latest int64
}

func (f *fakeChain) Status(ctx context.Context) (*coretypes.ResultStatus, error) {
	return &coretypes.ResultStatus{SyncInfo: coretypes.SyncInfo{LatestBlockHeight: f.latest}}, nil
}

func (f *fakeChain) BlockResults(ctx context.Context, height *int64) (*coretypes.ResultBlockResults, error) {
	return &coretypes.ResultBlockResults{Height: *height, TxsResults: f.blocks[*height]}, nil
}

func (f *fakeChain) add(height int64, res ...*abci.ExecTxResult) {
	f.blocks[height] = append(f.blocks[height], res...)
	if height > f.latest {
		f.latest = height
	}
}

func ok(events ...abci.Event) *abci.ExecTxResult {
	return &abci.ExecTxResult{Code: abci.CodeTypeOK, Events: events}
}

var (
	proposer   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	voter      = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	treasury   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	proposalId = common.HexToHash("0x01")
)

func created(id common.Hash) abci.Event {
	return types.EncodeEventProposalCreated(&types.EventProposalCreated{
		ProposalId:  id,
		Proposer:    proposer,
		Targets:     []common.Address{treasury, treasury},
		Values:      []*big.Int{big.NewInt(0), big.NewInt(5)},
		Calldatas:   [][]byte{{0xde, 0xad}, {}},
		VoteStart:   3,
		VoteEnd:     13,
		Description: "fund the thing",
	})
}

func voted(who common.Address, support types.VoteType, weight int64) abci.Event {
	return types.EncodeEventVoteCast(&types.EventVoteCast{
		Voter:      who,
		ProposalId: proposalId,
		Support:    support,
		Weight:     big.NewInt(weight),
	})
}

func newTestIndexer(t *testing.T) (*ChainIndexer, *fakeChain) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "indexer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	chain := &fakeChain{blocks: make(map[int64][]*abci.ExecTxResult)}
	c, err := NewChainIndexer(cmtlog.NewNopLogger(), db, "", chain)
	require.NoError(t, err)
	return c, chain
}

func TestSyncFollowsLifecycle(t *testing.T) {
	c, chain := newTestIndexer(t)
	ctx := context.Background()

	chain.add(1, ok(created(proposalId)))
	chain.add(3, ok(voted(proposer, types.VoteFor, 700)), ok(voted(voter, types.VoteAgainst, 300)))
	// a failed tx never made it into state
	chain.add(3, &abci.ExecTxResult{Code: 5, Events: []abci.Event{voted(voter, types.VoteFor, 1)}})
	require.NoError(t, c.Sync(ctx))
	assert.EqualValues(t, 4, c.Height)

	p, err := c.getProposalById(proposalId.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Pending", p.Status)
	assert.Equal(t, proposer.Hex(), p.ProposerAddress)
	assert.EqualValues(t, 13, p.VoteEnd)

	actions, err := c.getProposalActions(proposalId.Hex())
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "0xdead", actions[0].Calldata)
	assert.Equal(t, "5", actions[1].Value)

	chain.add(14, ok(types.EncodeEventProposalTransition(&types.EventProposalTransition{
		Type: types.EventProposalQueuedType, ProposalId: proposalId, Eta: 99,
	})))
	chain.add(20, ok(types.EncodeEventProposalTransition(&types.EventProposalTransition{
		Type: types.EventProposalExecutedType, ProposalId: proposalId,
	})))
	require.NoError(t, c.Sync(ctx))
	p, err = c.getProposalById(proposalId.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Executed", p.Status)
	assert.EqualValues(t, 99, p.Eta)
	assert.EqualValues(t, 20, p.UpdateHeight)

	votes, total, err := c.getVotes(proposalId.Hex(), "", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	tally := VotesToTally(votes)
	assert.Equal(t, "700", tally.ForVotes)
	assert.Equal(t, "300", tally.AgainstVotes)
	assert.Equal(t, "0", tally.AbstainVotes)
}

func TestResumeFromStoredHeight(t *testing.T) {
	c, chain := newTestIndexer(t)
	chain.add(2, ok(created(proposalId)))
	require.NoError(t, c.Sync(context.Background()))

	again, err := NewChainIndexer(cmtlog.NewNopLogger(), c.db, "", chain)
	require.NoError(t, err)
	assert.EqualValues(t, 3, again.Height)
	// replaying would hit the unique proposal id
	require.NoError(t, again.Sync(context.Background()))
}

func TestBlockIsAtomic(t *testing.T) {
	c, chain := newTestIndexer(t)
	chain.add(1, ok(created(proposalId)))
	require.NoError(t, c.Sync(context.Background()))

	// the same id again fails the block and leaves the height alone
	chain.add(2, ok(voted(voter, types.VoteFor, 1)), ok(created(proposalId)))
	require.Error(t, c.Sync(context.Background()))
	assert.EqualValues(t, 2, c.Height)
	_, total, err := c.getVotes(proposalId.Hex(), "", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	dat, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(dat))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, chain := newTestIndexer(t)
	chain.add(1, ok(created(proposalId)), ok(created(common.HexToHash("0x02"))))
	chain.add(3, ok(voted(voter, types.VoteFor, 40)), ok(voted(proposer, types.VoteAbstain, 2)))
	require.NoError(t, c.Sync(context.Background()))
	h := NewService("", c).Handler()

	w := post(t, h, "/getProposal", GetProposalReq{ProposalId: proposalId.Hex()})
	require.Equal(t, http.StatusOK, w.Code)
	var one GetProposalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.Equal(t, "fund the thing", one.Proposal.Description)
	assert.Len(t, one.Actions, 2)
	assert.Len(t, one.Votes, 2)
	assert.Equal(t, "40", one.Tally.ForVotes)
	assert.Equal(t, "2", one.Tally.AbstainVotes)
	assert.Equal(t, 2, one.Tally.Voters)

	w = post(t, h, "/getProposal", GetProposalReq{ProposalId: common.HexToHash("0x03").Hex()})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = post(t, h, "/getProposal", GetProposalReq{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var res GetProposalsResponse
	w = post(t, h, "/getProposals", GetProposalsReq{PageSize: 1})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.EqualValues(t, 2, res.Total)
	require.Len(t, res.Proposals, 1)
	assert.Equal(t, common.HexToHash("0x02").Hex(), res.Proposals[0].Proposal.ProposalId)

	w = post(t, h, "/getProposals", GetProposalsReq{Status: "pending", ProposerAddress: proposer.Hex()})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.EqualValues(t, 2, res.Total)

	w = post(t, h, "/getProposals", GetProposalsReq{Status: "Executed"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Proposals)

	w = post(t, h, "/getProposals", GetProposalsReq{Status: "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(t, h, "/getVotes", GetVotesReq{VoterAddress: voter.Hex()})
	require.Equal(t, http.StatusOK, w.Code)
	var votes GetVotesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &votes))
	require.Len(t, votes.Votes, 1)
	assert.Equal(t, "40", votes.Votes[0].Weight)

	w = post(t, h, "/getVotes", GetVotesReq{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"height":3}`, rec.Body.String())
}
