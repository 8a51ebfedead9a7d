package handler

import (
	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/dao"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// CallTxHandler sends an arbitrary ABI call, with optional value, to any
// registered contract or account.
type CallTxHandler struct {
	*baseHandler
}

func NewCallTxHandler(logger cmtlog.Logger, backend Backend) *CallTxHandler {
	h := &CallTxHandler{}
	h.baseHandler = newBaseHandler(logger, backend, "callTx", h.call)
	return h
}

func (h *CallTxHandler) call(ctx *contract.Context, _ *dao.DAO, btx *tx.DAOTx) error {
	body, ok := btx.Tx.(*tx.CallTx)
	if !ok {
		return types.Wrapf(types.ErrInvalidTx, "body %T", btx.Tx)
	}
	_, err := ctx.Router().Call(ctx, btx.Sender, body.To, body.Value, body.Data)
	return err
}

type TransferTxHandler struct {
	*baseHandler
}

func NewTransferTxHandler(logger cmtlog.Logger, backend Backend) *TransferTxHandler {
	h := &TransferTxHandler{}
	h.baseHandler = newBaseHandler(logger, backend, "transferTx", h.transfer)
	return h
}

// transfer goes through the router so a deposit into the treasury fires its
// receive hook.
func (h *TransferTxHandler) transfer(ctx *contract.Context, _ *dao.DAO, btx *tx.DAOTx) error {
	ttx, ok := btx.Tx.(*tx.TransferTx)
	if !ok {
		return types.Wrapf(types.ErrInvalidTx, "body %T", btx.Tx)
	}
	if ttx.Amount == nil || ttx.Amount.Sign() <= 0 {
		return types.Wrapf(types.ErrInvalidParam, "amount must be positive")
	}
	_, err := ctx.Router().Call(ctx, btx.Sender, ttx.To, ttx.Amount, nil)
	return err
}

type DelegateTxHandler struct {
	*baseHandler
}

func NewDelegateTxHandler(logger cmtlog.Logger, backend Backend) *DelegateTxHandler {
	h := &DelegateTxHandler{}
	h.baseHandler = newBaseHandler(logger, backend, "delegateTx", h.delegate)
	return h
}

func (h *DelegateTxHandler) delegate(ctx *contract.Context, d *dao.DAO, btx *tx.DAOTx) error {
	dtx, ok := btx.Tx.(*tx.DelegateTx)
	if !ok {
		return types.Wrapf(types.ErrInvalidTx, "body %T", btx.Tx)
	}
	return d.TokenContract().Delegate(ctx, dtx.Delegatee)
}
