package handler

import (
	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/dao"
	"github.com/calehh/hac-dao/governance"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type ProposeTxHandler struct {
	*baseHandler
}

func NewProposeTxHandler(logger cmtlog.Logger, backend Backend) *ProposeTxHandler {
	h := &ProposeTxHandler{}
	h.baseHandler = newBaseHandler(logger, backend, "proposeTx", h.propose)
	return h
}

func (h *ProposeTxHandler) propose(ctx *contract.Context, d *dao.DAO, btx *tx.DAOTx) error {
	ptx, ok := btx.Tx.(*tx.ProposeTx)
	if !ok {
		return types.Wrapf(types.ErrInvalidTx, "body %T", btx.Tx)
	}
	id, err := d.GovernorContract().Propose(ctx, governance.Actions{
		Targets:   ptx.Targets,
		Values:    ptx.Values,
		Calldatas: tx.RawBytesList(ptx.Calldatas),
	}, ptx.Description)
	if err != nil {
		return err
	}
	h.logger.Info("proposal created", "id", id.Hex(), "proposer", btx.Sender.Hex())
	return nil
}

type CastVoteTxHandler struct {
	*baseHandler
}

func NewCastVoteTxHandler(logger cmtlog.Logger, backend Backend) *CastVoteTxHandler {
	h := &CastVoteTxHandler{}
	h.baseHandler = newBaseHandler(logger, backend, "castVoteTx", h.castVote)
	return h
}

func (h *CastVoteTxHandler) castVote(ctx *contract.Context, d *dao.DAO, btx *tx.DAOTx) error {
	vtx, ok := btx.Tx.(*tx.CastVoteTx)
	if !ok {
		return types.Wrapf(types.ErrInvalidTx, "body %T", btx.Tx)
	}
	weight, err := d.GovernorContract().CastVote(ctx, vtx.ProposalId, types.VoteType(vtx.Support), vtx.Reason)
	if err != nil {
		return err
	}
	h.logger.Debug("vote cast", "id", vtx.ProposalId.Hex(), "voter", btx.Sender.Hex(), "weight", weight)
	return nil
}

// ProposalActionTxHandler serves queue, execute and cancel; they share a body.
type ProposalActionTxHandler struct {
	*baseHandler
	tp tx.DAOTxType
}

func NewProposalActionTxHandler(logger cmtlog.Logger, backend Backend, tp tx.DAOTxType) *ProposalActionTxHandler {
	h := &ProposalActionTxHandler{tp: tp}
	h.baseHandler = newBaseHandler(logger, backend, tp.String()+"Tx", h.act)
	return h
}

func (h *ProposalActionTxHandler) act(ctx *contract.Context, d *dao.DAO, btx *tx.DAOTx) (err error) {
	atx, ok := btx.Tx.(*tx.ProposalActionTx)
	if !ok {
		return types.Wrapf(types.ErrInvalidTx, "body %T", btx.Tx)
	}
	actions := governance.Actions{
		Targets:   atx.Targets,
		Values:    atx.Values,
		Calldatas: tx.RawBytesList(atx.Calldatas),
	}
	gov := d.GovernorContract()
	switch h.tp {
	case tx.DAOTxTypeQueue:
		_, err = gov.Queue(ctx, actions, atx.DescriptionHash)
	case tx.DAOTxTypeExecute:
		_, err = gov.Execute(ctx, actions, atx.DescriptionHash)
	case tx.DAOTxTypeCancel:
		_, err = gov.Cancel(ctx, actions, atx.DescriptionHash)
	default:
		err = types.Wrapf(types.ErrUnsupportedTxType, "%s", h.tp)
	}
	return
}
