package app

import (
	"context"
	"errors"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/tx/handler"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrNoBlockState = errors.New("commit without finalized block")
)

func (app *DAOApp) getState() (st *state.State) {
	st = app.db.NewState()
	app.st = st
	return
}

func (app *DAOApp) handler(btx *tx.DAOTx) (handler.TxHandler, error) {
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		return nil, types.Wrapf(types.ErrUnsupportedTxType, "%d", btx.Type)
	}
	return h, nil
}

func (app *DAOApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: abcitypes.CodeTypeOK}
	fail := func(err error) (*abcitypes.ResponseCheckTx, error) {
		res.Codespace, res.Code, res.Log = types.ABCIInfo(err)
		return res, nil
	}
	btx, err := tx.UnmarshalDAOTx(check.Tx)
	if err != nil {
		app.logger.Debug("parse tx fail", "err", err)
		return fail(types.Wrapf(types.ErrInvalidTx, "%v", err))
	}
	h, err := app.handler(btx)
	if err != nil {
		return fail(err)
	}
	ro, header, err := app.db.ReadOnly()
	if err != nil {
		app.logger.Error("read committed state fail", "err", err)
		return fail(err)
	}
	if err = state.VerifyTx(ro, header.ChainId, btx, true); err != nil {
		return fail(err)
	}
	if !app.cfg.CheckTxDryRun {
		return
	}
	// a tx behind a nonce gap depends on txs not yet in a block
	nonce, err := state.GetNonce(ro, btx.Sender)
	if err != nil || nonce != btx.Nonce {
		return
	}
	blk := contract.Block{ChainId: header.ChainId, Height: header.Height + 1, Time: header.Time}
	cctx := app.blockContext(ctx, state.NewCacheStore(ro), blk).WithCaller(btx.Sender)
	return h.Check(cctx, btx)
}

// PrepareProposal keeps the txs that decode and carry a valid signature, in
// mempool order, up to the block cap. Nonce and execution are left to
// FinalizeBlock, where failures still land in the block.
func (app *DAOApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	chainId := app.db.Header().ChainId
	txs := make([][]byte, 0, len(proposal.Txs))
	for _, stx := range proposal.Txs {
		if len(txs) >= app.cfg.MaxTxsPerBlock {
			break
		}
		btx, err := tx.UnmarshalDAOTx(stx)
		if err != nil {
			app.logger.Info("drop undecodable tx", "err", err)
			continue
		}
		if _, ok := app.txHdlrs[btx.Type]; !ok {
			continue
		}
		if signer, err := btx.Recover(chainId); err != nil || signer != btx.Sender {
			app.logger.Info("drop unauthenticated tx", "sender", btx.Sender.Hex())
			continue
		}
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

func (app *DAOApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	for _, stx := range proposal.Txs {
		btx, err := tx.UnmarshalDAOTx(stx)
		if err != nil {
			app.logger.Error("proposal carries undecodable tx", "height", proposal.Height, "err", err)
			return res, nil
		}
		if _, ok := app.txHdlrs[btx.Type]; !ok {
			app.logger.Error("proposal carries unsupported tx", "height", proposal.Height, "type", btx.Type)
			return res, nil
		}
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

// deliver runs one tx of a block. The nonce is consumed on the block state
// whatever the outcome; the body runs in a branch committed only on success.
func (app *DAOApp) deliver(root *contract.Context, st *state.State, stx []byte) *abcitypes.ExecTxResult {
	res := &abcitypes.ExecTxResult{}
	fail := func(err error) *abcitypes.ExecTxResult {
		res.Codespace, res.Code, res.Log = types.ABCIInfo(err)
		return res
	}
	btx, err := tx.UnmarshalDAOTx(stx)
	if err != nil {
		return fail(types.Wrapf(types.ErrInvalidTx, "%v", err))
	}
	if err = st.Verify(btx, false); err != nil {
		return fail(err)
	}
	if _, err = state.IncNonce(st, btx.Sender); err != nil {
		return fail(err)
	}
	h, err := app.handler(btx)
	if err != nil {
		return fail(err)
	}
	frame := root.Branch().WithCaller(btx.Sender)
	result, err := h.Process(frame, btx)
	if err != nil {
		app.logger.Info("tx failed", "type", btx.Type, "sender", btx.Sender.Hex(), "nonce", btx.Nonce, "err", err)
		return fail(err)
	}
	if err = frame.Commit(); err != nil {
		return fail(err)
	}
	return result
}

func (app *DAOApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Debug("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st := app.getState()
	st.SetBlock(req.Height, req.Time)
	blk := contract.Block{ChainId: st.Header().ChainId, Height: st.Height(), Time: st.Time()}
	root := app.blockContext(ctx, st, blk)

	res := make([]*abcitypes.ExecTxResult, len(req.Txs))
	for i, stx := range req.Txs {
		res[i] = app.deliver(root, st, stx)
		app.metrics.ObserveTx(res[i])
	}
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.metrics.Height.Set(float64(req.Height))
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *DAOApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil {
		return nil, ErrNoBlockState
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	return &abcitypes.ResponseCommit{}, nil
}
