package handler

import (
	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/dao"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// TxHandler runs one tx type. ctx is the tx's own branch with the sender as
// caller; the app commits it only when Process returns no error.
type TxHandler interface {
	Check(ctx *contract.Context, btx *tx.DAOTx) (res *abcitypes.ResponseCheckTx, err error)
	Process(ctx *contract.Context, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error)
}

// Backend exposes the deployed organization, nil before genesis.
type Backend interface {
	DAO() *dao.DAO
}

type processFunc func(ctx *contract.Context, d *dao.DAO, btx *tx.DAOTx) error

type baseHandler struct {
	logger  cmtlog.Logger
	backend Backend
	run     processFunc
}

func newBaseHandler(logger cmtlog.Logger, backend Backend, module string, run processFunc) *baseHandler {
	return &baseHandler{
		logger:  logger.With("module", module),
		backend: backend,
		run:     run,
	}
}

func (h *baseHandler) handle(ctx *contract.Context, btx *tx.DAOTx) error {
	d := h.backend.DAO()
	if d == nil {
		return types.Wrapf(types.ErrInvalidTx, "no deployment")
	}
	return h.run(ctx, d, btx)
}

// Check dry-runs the tx on a branch that is always dropped.
func (h *baseHandler) Check(ctx *contract.Context, btx *tx.DAOTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: abcitypes.CodeTypeOK}
	if err1 := h.handle(ctx.Branch(), btx); err1 != nil {
		h.logger.Info("CheckTx fail", "type", btx.Type, "sender", btx.Sender.Hex(), "err", err1)
		res.Codespace, res.Code, res.Log = types.ABCIInfo(err1)
	}
	return
}

func (h *baseHandler) Process(ctx *contract.Context, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error) {
	if err = h.handle(ctx, btx); err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{Code: abcitypes.CodeTypeOK, Events: ctx.Events()}
	return
}

// Handlers builds the handler table of every supported tx type.
func Handlers(logger cmtlog.Logger, backend Backend) map[tx.DAOTxType]TxHandler {
	return map[tx.DAOTxType]TxHandler{
		tx.DAOTxTypePropose:  NewProposeTxHandler(logger, backend),
		tx.DAOTxTypeCastVote: NewCastVoteTxHandler(logger, backend),
		tx.DAOTxTypeQueue:    NewProposalActionTxHandler(logger, backend, tx.DAOTxTypeQueue),
		tx.DAOTxTypeExecute:  NewProposalActionTxHandler(logger, backend, tx.DAOTxTypeExecute),
		tx.DAOTxTypeCancel:   NewProposalActionTxHandler(logger, backend, tx.DAOTxTypeCancel),
		tx.DAOTxTypeCall:     NewCallTxHandler(logger, backend),
		tx.DAOTxTypeTransfer: NewTransferTxHandler(logger, backend),
		tx.DAOTxTypeDelegate: NewDelegateTxHandler(logger, backend),
	}
}
