package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Codespace tags every non-zero ABCI result code produced by the application.
const Codespace = "dao"

// Kind groups failures by the invariant class they violate.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindPrecondition
	KindAuthorization
	KindDownstream
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindAuthorization:
		return "authorization"
	case KindDownstream:
		return "downstream"
	case KindEncoding:
		return "encoding"
	default:
		return "unknown"
	}
}

// Error is a registered sentinel with a stable result code.
type Error struct {
	code uint32
	kind Kind
	desc string
}

func (e *Error) Error() string { return e.desc }
func (e *Error) Code() uint32  { return e.code }
func (e *Error) Kind() Kind    { return e.kind }

var registry = map[uint32]*Error{}

func register(code uint32, kind Kind, desc string) *Error {
	if _, ok := registry[code]; ok {
		panic(fmt.Sprintf("error code %d registered twice", code))
	}
	e := &Error{code: code, kind: kind, desc: desc}
	registry[code] = e
	return e
}

// ErrorByCode returns the sentinel registered for code, if any.
func ErrorByCode(code uint32) *Error {
	return registry[code]
}

var (
	ErrDuplicateProposal      = register(2, KindPrecondition, "duplicate proposal")
	ErrUnknownProposal        = register(3, KindPrecondition, "unknown proposal")
	ErrVotingClosed           = register(4, KindPrecondition, "voting closed")
	ErrAlreadyVoted           = register(5, KindPrecondition, "already voted")
	ErrInvalidSupport         = register(6, KindPrecondition, "invalid support value")
	ErrEmptyProposal          = register(7, KindPrecondition, "empty proposal")
	ErrProposalNotSucceeded   = register(8, KindPrecondition, "proposal not succeeded")
	ErrAlreadyQueued          = register(9, KindPrecondition, "proposal already queued")
	ErrProposalNotQueued      = register(10, KindPrecondition, "proposal not queued")
	ErrProposalExpired        = register(11, KindPrecondition, "proposal expired")
	ErrProposalNotCancelable  = register(12, KindPrecondition, "proposal not cancelable")
	ErrBelowThreshold         = register(13, KindPrecondition, "proposer votes below proposal threshold")
	ErrVoterHasNoWeight       = register(14, KindPrecondition, "voter has no weight")
	ErrDelayNotMet            = register(15, KindPrecondition, "eta below minimum delay")
	ErrOperationScheduled     = register(16, KindPrecondition, "operation already scheduled")
	ErrDelayNotElapsed        = register(17, KindPrecondition, "operation delay not elapsed")
	ErrOperationExecuted      = register(18, KindPrecondition, "operation already executed")
	ErrUnknownOperation       = register(19, KindPrecondition, "unknown operation")
	ErrOperationNotPending    = register(20, KindPrecondition, "operation not pending")
	ErrFutureLookup           = register(21, KindPrecondition, "future lookup")
	ErrAlreadyDistributed     = register(22, KindPrecondition, "a function can be called only once")
	ErrLengthMismatch         = register(23, KindPrecondition, "array length mismatch")
	ErrEmptyDescription       = register(24, KindPrecondition, "empty description")
	ErrInvalidParam           = register(25, KindPrecondition, "invalid parameter")
	ErrNonexistentToken       = register(26, KindPrecondition, "nonexistent token")
	ErrInvalidReceiver        = register(27, KindPrecondition, "invalid receiver")
	ErrTokenAlreadyMinted     = register(28, KindPrecondition, "token already minted")
	ErrUnauthorized           = register(40, KindAuthorization, "UNAUTHORIZED")
	ErrOnlyProposerCanCancel  = register(41, KindAuthorization, "only proposer can cancel")
	ErrPredecessorNotExecuted = register(42, KindAuthorization, "predecessor not executed")
	ErrNotOwnerOrApproved     = register(43, KindAuthorization, "caller is not token owner or approved")
	ErrInvalidSignature       = register(44, KindAuthorization, "signature invalid")
	ErrInvalidNonce           = register(45, KindAuthorization, "nonce invalid")
	ErrActionReverted         = register(60, KindDownstream, "action reverted")
	ErrAssetTransferFailed    = register(61, KindDownstream, "asset transfer failed")
	ErrInsufficientBalance    = register(62, KindDownstream, "insufficient balance")
	ErrInsufficientAllowance  = register(63, KindDownstream, "insufficient allowance")
	ErrNonPayable             = register(64, KindDownstream, "non-payable target")
	ErrUnknownMethod          = register(65, KindDownstream, "unknown method")
	ErrInvalidTx              = register(80, KindEncoding, "invalid tx")
	ErrUnsupportedTxType      = register(81, KindEncoding, "unsupported tx type")
	ErrInvalidPayload         = register(82, KindEncoding, "invalid payload")
)

// ActionRevertedError reports the failing call of an atomic batch.
type ActionRevertedError struct {
	Index  int
	Target common.Address
	Err    error
}

func (e *ActionRevertedError) Error() string {
	return fmt.Sprintf("%s: call %d to %s: %v", ErrActionReverted, e.Index, e.Target.Hex(), e.Err)
}

func (e *ActionRevertedError) Unwrap() []error {
	return []error{ErrActionReverted, e.Err}
}

// Wrapf annotates a sentinel with call-site detail while keeping errors.Is intact.
func Wrapf(sentinel *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// KindOf returns the class of the first registered error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// ABCIInfo maps an error chain to the fields of an ABCI result.
func ABCIInfo(err error) (codespace string, code uint32, log string) {
	if err == nil {
		return "", 0, ""
	}
	var e *Error
	if errors.As(err, &e) {
		return Codespace, e.code, err.Error()
	}
	return Codespace, 1, err.Error()
}
