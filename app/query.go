package app

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/dao"
	"github.com/calehh/hac-dao/governance"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	CodeNotFound uint32 = 404
)

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

type QuerierFunc func(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error)

func (f QuerierFunc) Query(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	return f(ctx, req)
}

func (app *DAOApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = CodeNotFound
		return
	}
	res, err = q.Query(ctx, req)
	if err != nil {
		res = &abcitypes.ResponseQuery{}
		res.Codespace, res.Code, res.Log = types.ABCIInfo(err)
		err = nil
	}
	return
}

// view is the committed state every query reads.
type view struct {
	store state.KVStore
	blk   contract.Block
	dao   *dao.DAO
}

func (app *DAOApp) committed() (*view, error) {
	ro, header, err := app.db.ReadOnly()
	if err != nil {
		return nil, err
	}
	d := app.dao
	if d == nil {
		return nil, types.Wrapf(types.ErrInvalidTx, "no deployment")
	}
	return &view{
		store: ro,
		blk:   contract.Block{ChainId: header.ChainId, Height: header.Height, Time: header.Time},
		dao:   d,
	}, nil
}

func (v *view) respond(value any) (*abcitypes.ResponseQuery, error) {
	dat, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return &abcitypes.ResponseQuery{Value: dat, Height: int64(v.blk.Height)}, nil
}

func address(dat []byte) (common.Address, error) {
	if len(dat) < common.AddressLength {
		return common.Address{}, types.Wrapf(types.ErrInvalidPayload, "want %d address bytes, got %d", common.AddressLength, len(dat))
	}
	return common.BytesToAddress(dat[:common.AddressLength]), nil
}

func hash(dat []byte) (common.Hash, error) {
	if len(dat) < common.HashLength {
		return common.Hash{}, types.Wrapf(types.ErrInvalidPayload, "want %d hash bytes, got %d", common.HashLength, len(dat))
	}
	return common.BytesToHash(dat[:common.HashLength]), nil
}

func (app *DAOApp) queryAccount(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	v, err := app.committed()
	if err != nil {
		return nil, err
	}
	addr, err := address(req.Data)
	if err != nil {
		return nil, err
	}
	a := &state.Account{Address: addr}
	if a.Nonce, err = state.GetNonce(v.store, addr); err != nil {
		return nil, err
	}
	if a.Balance, err = contract.Balance(v.store, addr); err != nil {
		return nil, err
	}
	return v.respond(a)
}

// HolderView is what /balance/ reports for an account. Without an asset it
// covers the native coin and the governance token; with one, that asset only.
type HolderView struct {
	Holder   common.Address  `json:"holder" yaml:"holder"`
	Asset    *common.Address `json:"asset,omitempty" yaml:"asset,omitempty"`
	Native   *big.Int        `json:"native,omitempty" yaml:"native,omitempty"`
	Balance  *big.Int        `json:"balance" yaml:"balance"`
	Votes    *big.Int        `json:"votes,omitempty" yaml:"votes,omitempty"`
	Delegate *common.Address `json:"delegate,omitempty" yaml:"delegate,omitempty"`
}

func (app *DAOApp) queryBalance(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	v, err := app.committed()
	if err != nil {
		return nil, err
	}
	holder, err := address(req.Data)
	if err != nil {
		return nil, err
	}
	hv := &HolderView{Holder: holder}
	if len(req.Data) >= 2*common.AddressLength {
		asset, _ := address(req.Data[common.AddressLength:])
		hv.Asset = &asset
		if t := v.dao.ERC20(asset); t != nil {
			hv.Balance, err = t.BalanceOf(v.store, holder)
		} else if t := v.dao.ERC721(asset); t != nil {
			hv.Balance, err = t.BalanceOf(v.store, holder)
		} else if asset == v.dao.Token {
			hv.Balance, err = v.dao.TokenContract().BalanceOf(v.store, holder)
		} else {
			err = types.Wrapf(types.ErrUnknownMethod, "no asset at %s", asset.Hex())
		}
		if err != nil {
			return nil, err
		}
		return v.respond(hv)
	}
	tok := v.dao.TokenContract()
	if hv.Native, err = contract.Balance(v.store, holder); err != nil {
		return nil, err
	}
	if hv.Balance, err = tok.BalanceOf(v.store, holder); err != nil {
		return nil, err
	}
	if hv.Votes, err = tok.GetVotes(v.store, holder); err != nil {
		return nil, err
	}
	delegate, err := tok.Delegates(v.store, holder)
	if err != nil {
		return nil, err
	}
	if delegate != (common.Address{}) {
		hv.Delegate = &delegate
	}
	return v.respond(hv)
}

// queryProposal answers one proposal by id, or every proposal in creation
// order when no id is given.
func (app *DAOApp) queryProposal(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	v, err := app.committed()
	if err != nil {
		return nil, err
	}
	gov := v.dao.GovernorContract()
	if len(req.Data) > 0 {
		id, err := hash(req.Data)
		if err != nil {
			return nil, err
		}
		pv, err := gov.View(v.store, v.blk, id)
		if err != nil {
			return nil, err
		}
		return v.respond(pv)
	}
	n, err := gov.Registry.Count(v.store)
	if err != nil {
		return nil, err
	}
	views := make([]*types.ProposalView, 0, n)
	for i := uint64(0); i < n; i++ {
		id, err := gov.Registry.IdAt(v.store, i)
		if err != nil {
			return nil, err
		}
		pv, err := gov.View(v.store, v.blk, id)
		if err != nil {
			return nil, err
		}
		views = append(views, pv)
	}
	return v.respond(views)
}

func (app *DAOApp) queryReceipt(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	v, err := app.committed()
	if err != nil {
		return nil, err
	}
	id, err := hash(req.Data)
	if err != nil {
		return nil, err
	}
	voter, err := address(req.Data[common.HashLength:])
	if err != nil {
		return nil, err
	}
	gov := v.dao.GovernorContract()
	if _, err = gov.Registry.Get(v.store, id); err != nil {
		return nil, err
	}
	rc, err := gov.Registry.Receipt(v.store, id, voter)
	if err != nil {
		return nil, err
	}
	return v.respond(&types.ReceiptView{HasVoted: rc.HasVoted, Support: types.VoteType(rc.Support), Weight: rc.Weight})
}

// VotesView is the voting power of an account, current or at a past height.
type VotesView struct {
	Account common.Address `json:"account" yaml:"account"`
	Height  uint64         `json:"height" yaml:"height"`
	Votes   *big.Int       `json:"votes" yaml:"votes"`
	Supply  *big.Int       `json:"supply" yaml:"supply"`
}

// queryVotes takes an address optionally followed by a big-endian height.
func (app *DAOApp) queryVotes(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	v, err := app.committed()
	if err != nil {
		return nil, err
	}
	account, err := address(req.Data)
	if err != nil {
		return nil, err
	}
	tok := v.dao.TokenContract()
	vv := &VotesView{Account: account, Height: v.blk.Height}
	if rest := req.Data[common.AddressLength:]; len(rest) == 8 {
		vv.Height = binary.BigEndian.Uint64(rest)
		if vv.Votes, err = tok.GetPastVotes(v.store, v.blk.Height, account, vv.Height); err != nil {
			return nil, err
		}
		if vv.Supply, err = tok.GetPastTotalSupply(v.store, v.blk.Height, vv.Height); err != nil {
			return nil, err
		}
		return v.respond(vv)
	}
	if vv.Votes, err = tok.GetVotes(v.store, account); err != nil {
		return nil, err
	}
	if vv.Supply, err = tok.TotalSupply(v.store); err != nil {
		return nil, err
	}
	return v.respond(vv)
}

type OperationView struct {
	Id        common.Hash `json:"id" yaml:"id"`
	Timestamp uint64      `json:"timestamp" yaml:"timestamp"`
	Pending   bool        `json:"pending" yaml:"pending"`
	Ready     bool        `json:"ready" yaml:"ready"`
	Done      bool        `json:"done" yaml:"done"`
}

func (app *DAOApp) queryOperation(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	v, err := app.committed()
	if err != nil {
		return nil, err
	}
	id, err := hash(req.Data)
	if err != nil {
		return nil, err
	}
	tl := v.dao.TimelockContract()
	ov := &OperationView{Id: id}
	if ov.Timestamp, err = tl.GetTimestamp(v.store, id); err != nil {
		return nil, err
	}
	if ov.Pending, err = tl.IsOperationPending(v.store, id); err != nil {
		return nil, err
	}
	if ov.Ready, err = tl.IsOperationReady(v.store, v.blk.Time, id); err != nil {
		return nil, err
	}
	if ov.Done, err = tl.IsOperationDone(v.store, id); err != nil {
		return nil, err
	}
	return v.respond(ov)
}

type ParamsView struct {
	*governance.Params `yaml:",inline"`
	MinDelay           uint64 `json:"minDelay" yaml:"minDelay"`
}

func (app *DAOApp) queryParams(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	v, err := app.committed()
	if err != nil {
		return nil, err
	}
	p, err := v.dao.GovernorContract().Params(v.store)
	if err != nil {
		return nil, err
	}
	pv := &ParamsView{Params: p}
	if pv.MinDelay, err = v.dao.TimelockContract().GetMinDelay(v.store); err != nil {
		return nil, err
	}
	return v.respond(pv)
}

// DeploymentView adds the accounts still holding the timelock admin role.
type DeploymentView struct {
	dao.Deployment `yaml:",inline"`
	Admins         []common.Address `json:"admins" yaml:"admins"`
}

func (app *DAOApp) queryDeployment(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	v, err := app.committed()
	if err != nil {
		return nil, err
	}
	dv := &DeploymentView{Deployment: v.dao.Deployment}
	if dv.Admins, err = v.dao.TimelockContract().AdminMembers(v.store); err != nil {
		return nil, err
	}
	return v.respond(dv)
}

// queryCall runs a view method: data is the contract address followed by
// ABI input. The value is the raw ABI output.
func (app *DAOApp) queryCall(ctx context.Context, req *abcitypes.RequestQuery) (*abcitypes.ResponseQuery, error) {
	v, err := app.committed()
	if err != nil {
		return nil, err
	}
	to, err := address(req.Data)
	if err != nil {
		return nil, err
	}
	cctx := app.blockContext(ctx, v.store, v.blk)
	out, err := app.router.StaticCall(cctx, to, req.Data[common.AddressLength:])
	if err != nil {
		return nil, err
	}
	return &abcitypes.ResponseQuery{Value: out, Height: int64(v.blk.Height)}, nil
}
