package tx

import (
	"errors"
)

type DAOTxType uint8

const (
	DAOTxTypeUnknown  DAOTxType = 0
	DAOTxTypePropose  DAOTxType = 1
	DAOTxTypeCastVote DAOTxType = 2
	DAOTxTypeQueue    DAOTxType = 3
	DAOTxTypeExecute  DAOTxType = 4
	DAOTxTypeCancel   DAOTxType = 5
	DAOTxTypeCall     DAOTxType = 6
	DAOTxTypeTransfer DAOTxType = 7
	DAOTxTypeDelegate DAOTxType = 8
)

func (t DAOTxType) String() string {
	switch t {
	case DAOTxTypePropose:
		return "propose"
	case DAOTxTypeCastVote:
		return "castVote"
	case DAOTxTypeQueue:
		return "queue"
	case DAOTxTypeExecute:
		return "execute"
	case DAOTxTypeCancel:
		return "cancel"
	case DAOTxTypeCall:
		return "call"
	case DAOTxTypeTransfer:
		return "transfer"
	case DAOTxTypeDelegate:
		return "delegate"
	default:
		return "unknown"
	}
}

const (
	DAOTxVersion0 uint8 = 0
	DAOTxVersion1 uint8 = 1
)

var (
	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrMissingSignature     = errors.New("missing signature")
)
