package app

import (
	"context"
	"fmt"

	"github.com/calehh/hac-dao/config"
	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/dao"
	"github.com/calehh/hac-dao/metrics"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/tx/handler"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
)

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
}

var _ abcitypes.Application = &DAOApp{}

type DAOApp struct {
	cfg     *config.AppConfig
	logger  cmtlog.Logger
	metrics *metrics.Metrics

	db       *state.StateDB
	lastBlk  finalizeBlock
	txHdlrs  map[tx.DAOTxType]handler.TxHandler
	queriers map[string]Querier

	router *contract.Router
	dao    *dao.DAO

	st *state.State
}

func NewDAOApp(cfg *config.AppConfig, logger cmtlog.Logger, m *metrics.Metrics) (app *DAOApp, err error) {
	db, err := state.NewStateDB(cfg.DataDir(), logger)
	if err != nil {
		return nil, err
	}
	return NewDAOAppWithDB(cfg, db, logger, m)
}

// NewDAOAppWithDB builds the app over an opened db and reattaches the
// deployment it holds, if any.
func NewDAOAppWithDB(cfg *config.AppConfig, db *state.StateDB, logger cmtlog.Logger, m *metrics.Metrics) (app *DAOApp, err error) {
	logger = logger.With("module", "app")
	app = &DAOApp{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		db:       db,
		queriers: make(map[string]Querier),
		router:   contract.NewRouter(),
	}
	app.dao, err = dao.Attach(db.State(), app.router)
	if err != nil {
		return nil, fmt.Errorf("attach deployment: %w", err)
	}
	if app.dao != nil {
		logger.Info("deployment attached", "governor", app.dao.Governor.Hex(), "height", db.Header().Height)
	}
	app.txHdlrs = handler.Handlers(logger, app)
	app.registerQuerier()
	return
}

func (app *DAOApp) DAO() *dao.DAO {
	return app.dao
}

func (app *DAOApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
	}
}

func (app *DAOApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("DAO app stopped")
}

func (app *DAOApp) registerQuerier() {
	app.queriers["/accounts/"] = QuerierFunc(app.queryAccount)
	app.queriers["/balance/"] = QuerierFunc(app.queryBalance)
	app.queriers["/proposal/"] = QuerierFunc(app.queryProposal)
	app.queriers["/receipt/"] = QuerierFunc(app.queryReceipt)
	app.queriers["/votes/"] = QuerierFunc(app.queryVotes)
	app.queriers["/operation/"] = QuerierFunc(app.queryOperation)
	app.queriers["/params/"] = QuerierFunc(app.queryParams)
	app.queriers["/deployment/"] = QuerierFunc(app.queryDeployment)
	app.queriers["/call/"] = QuerierFunc(app.queryCall)
}

func (app *DAOApp) blockContext(ctx context.Context, s state.KVStore, blk contract.Block) *contract.Context {
	return contract.NewContext(ctx, s, blk, app.router, app.logger)
}

// InitChain deploys the organization from app_state. Genesis writes land at
// height InitialHeight-1 so the first block already sees genesis voting power.
func (app *DAOApp) InitChain(ctx context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	height := chain.InitialHeight - 1
	if height < 0 {
		height = 0
	}
	st.SetBlock(height, chain.Time)
	if len(chain.AppStateBytes) > 0 {
		gs, err := types.UnmarshalAppState(chain.AppStateBytes)
		if err != nil {
			app.logger.Error("InitChain parse app_state fail", "err", err)
			return nil, err
		}
		blk := contract.Block{ChainId: chain.ChainId, Height: st.Height(), Time: st.Time()}
		d, err := dao.InitGenesis(app.blockContext(ctx, st, blk), gs)
		if err != nil {
			app.logger.Error("InitChain deploy fail", "err", err)
			return nil, err
		}
		app.dao = d
	}
	var h common.Hash
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *DAOApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *DAOApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *DAOApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *DAOApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{}, nil
}

func (app *DAOApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *DAOApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *DAOApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{}, nil
}
