package timelock

import (
	"math/big"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	bytes32Ty, _   = abi.NewType("bytes32", "", nil)
	addressTy, _   = abi.NewType("address", "", nil)
	uint256Ty, _   = abi.NewType("uint256", "", nil)
	bytesTy, _     = abi.NewType("bytes", "", nil)
	addressesTy, _ = abi.NewType("address[]", "", nil)
	uint256sTy, _  = abi.NewType("uint256[]", "", nil)
	bytesListTy, _ = abi.NewType("bytes[]", "", nil)

	operationArgs = abi.Arguments{{Type: addressTy}, {Type: uint256Ty}, {Type: bytesTy}, {Type: bytes32Ty}, {Type: bytes32Ty}}
	batchArgs     = abi.Arguments{{Type: addressesTy}, {Type: uint256sTy}, {Type: bytesListTy}, {Type: bytes32Ty}, {Type: bytes32Ty}}
)

// Operation is the stored record of a scheduled call batch.
type Operation struct {
	Eta      uint64 `json:"eta"`
	Executed bool   `json:"executed"`
}

// HashOperation is the id of a single-call operation.
func HashOperation(target common.Address, value *big.Int, data []byte, predecessor, salt common.Hash) common.Hash {
	enc, err := operationArgs.Pack(target, value, data, [32]byte(predecessor), [32]byte(salt))
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

// HashOperationBatch is the id of a call batch.
func HashOperationBatch(targets []common.Address, values []*big.Int, payloads [][]byte, predecessor, salt common.Hash) common.Hash {
	enc, err := batchArgs.Pack(targets, values, payloads, [32]byte(predecessor), [32]byte(salt))
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

// Timelock delays every call batch by at least the minimum delay and is the
// caller of record for all privileged actions.
type Timelock struct {
	Self common.Address
}

func New(addr common.Address) *Timelock {
	return &Timelock{Self: addr}
}

func (tl *Timelock) key(format string, args ...any) []byte {
	return contract.StorageKey(tl.Self, format, args...)
}

// Init is the constructor. The timelock administers itself; admin, when set,
// is the bootstrap admin that must later be revoked or renounce.
func (tl *Timelock) Init(ctx *contract.Context, minDelay uint64, proposers, executors []common.Address, admin common.Address) error {
	if err := state.SetUint64(ctx.Store(), tl.key("delay"), minDelay); err != nil {
		return err
	}
	if err := tl.grant(ctx, DefaultAdminRole, tl.Self); err != nil {
		return err
	}
	if admin != (common.Address{}) {
		if err := tl.grant(ctx, DefaultAdminRole, admin); err != nil {
			return err
		}
	}
	for _, p := range proposers {
		if err := tl.grant(ctx, ProposerRole, p); err != nil {
			return err
		}
		if err := tl.grant(ctx, CancellerRole, p); err != nil {
			return err
		}
	}
	for _, e := range executors {
		if err := tl.grant(ctx, ExecutorRole, e); err != nil {
			return err
		}
	}
	ctx.EmitFrom(tl.Self, types.EncodeEventMinDelayChange(0, minDelay))
	return nil
}

func (tl *Timelock) GetMinDelay(s state.KVStore) (uint64, error) {
	return state.GetUint64(s, tl.key("delay"))
}

func (tl *Timelock) GetOperation(s state.KVStore, id common.Hash) (op Operation, found bool, err error) {
	found, err = state.GetRLP(s, tl.key("op%x", id.Bytes()), &op)
	return
}

// GetTimestamp returns the eta of a pending operation, 1 once it ran and 0
// when it is unknown.
func (tl *Timelock) GetTimestamp(s state.KVStore, id common.Hash) (uint64, error) {
	op, found, err := tl.GetOperation(s, id)
	if err != nil || !found {
		return 0, err
	}
	if op.Executed {
		return 1, nil
	}
	return op.Eta, nil
}

func (tl *Timelock) IsOperation(s state.KVStore, id common.Hash) (bool, error) {
	_, found, err := tl.GetOperation(s, id)
	return found, err
}

func (tl *Timelock) IsOperationPending(s state.KVStore, id common.Hash) (bool, error) {
	op, found, err := tl.GetOperation(s, id)
	return found && !op.Executed, err
}

func (tl *Timelock) IsOperationReady(s state.KVStore, now uint64, id common.Hash) (bool, error) {
	op, found, err := tl.GetOperation(s, id)
	return found && !op.Executed && op.Eta <= now, err
}

func (tl *Timelock) IsOperationDone(s state.KVStore, id common.Hash) (bool, error) {
	op, found, err := tl.GetOperation(s, id)
	return found && op.Executed, err
}

func checkBatch(targets []common.Address, values []*big.Int, payloads [][]byte) error {
	if len(targets) != len(values) || len(targets) != len(payloads) {
		return types.Wrapf(types.ErrLengthMismatch, "targets %d, values %d, payloads %d", len(targets), len(values), len(payloads))
	}
	for i, v := range values {
		if v != nil && (v.Sign() < 0 || v.BitLen() > 256) {
			return types.Wrapf(types.ErrInvalidParam, "value at %d out of uint256 range", i)
		}
	}
	return nil
}

// ScheduleBatch registers a batch to become executable at eta. Proposer only.
func (tl *Timelock) ScheduleBatch(ctx *contract.Context, targets []common.Address, values []*big.Int, payloads [][]byte, predecessor, salt common.Hash, eta uint64) (id common.Hash, err error) {
	if err = tl.checkRole(ctx, ProposerRole); err != nil {
		return
	}
	if err = checkBatch(targets, values, payloads); err != nil {
		return
	}
	id = HashOperationBatch(targets, values, payloads, predecessor, salt)
	s := ctx.Store()
	delay, err := tl.GetMinDelay(s)
	if err != nil {
		return
	}
	if eta < ctx.Block.Time+delay {
		err = types.Wrapf(types.ErrDelayNotMet, "eta %d, earliest %d", eta, ctx.Block.Time+delay)
		return
	}
	exists, err := tl.IsOperation(s, id)
	if err != nil {
		return
	}
	if exists {
		err = types.Wrapf(types.ErrOperationScheduled, "%s", id.Hex())
		return
	}
	if err = state.SetRLP(s, tl.key("op%x", id.Bytes()), &Operation{Eta: eta}); err != nil {
		return
	}
	for i, target := range targets {
		ctx.EmitFrom(tl.Self, types.EncodeEventCall(&types.EventCall{
			Type:        types.EventCallScheduledType,
			Id:          id,
			Index:       i,
			Target:      target,
			Value:       values[i],
			Data:        payloads[i],
			Predecessor: predecessor,
			Eta:         eta,
		}))
	}
	return
}

// ExecuteBatch runs every call of a ready batch from the timelock. Either all
// calls land or none do.
func (tl *Timelock) ExecuteBatch(ctx *contract.Context, targets []common.Address, values []*big.Int, payloads [][]byte, predecessor, salt common.Hash) (id common.Hash, err error) {
	if err = tl.checkOpenRole(ctx, ExecutorRole); err != nil {
		return
	}
	if err = checkBatch(targets, values, payloads); err != nil {
		return
	}
	id = HashOperationBatch(targets, values, payloads, predecessor, salt)
	if err = tl.beforeCall(ctx, id, predecessor); err != nil {
		return
	}
	batch := ctx.Branch()
	for i, target := range targets {
		if _, err = ctx.Router().Call(batch, tl.Self, target, values[i], payloads[i]); err != nil {
			err = &types.ActionRevertedError{Index: i, Target: target, Err: err}
			return
		}
		batch.EmitFrom(tl.Self, types.EncodeEventCall(&types.EventCall{
			Type:   types.EventCallExecutedType,
			Id:     id,
			Index:  i,
			Target: target,
			Value:  values[i],
			Data:   payloads[i],
		}))
	}
	if err = tl.afterCall(batch, id); err != nil {
		return
	}
	err = batch.Commit()
	return
}

func (tl *Timelock) beforeCall(ctx *contract.Context, id, predecessor common.Hash) error {
	s := ctx.Store()
	op, found, err := tl.GetOperation(s, id)
	if err != nil {
		return err
	}
	if !found {
		return types.Wrapf(types.ErrUnknownOperation, "%s", id.Hex())
	}
	if op.Executed {
		return types.Wrapf(types.ErrOperationExecuted, "%s", id.Hex())
	}
	if ctx.Block.Time < op.Eta {
		return types.Wrapf(types.ErrDelayNotElapsed, "eta %d, now %d", op.Eta, ctx.Block.Time)
	}
	if predecessor != (common.Hash{}) {
		done, err := tl.IsOperationDone(s, predecessor)
		if err != nil {
			return err
		}
		if !done {
			return types.Wrapf(types.ErrPredecessorNotExecuted, "%s", predecessor.Hex())
		}
	}
	return nil
}

// afterCall marks the operation done, failing if a call inside the batch
// already ran or canceled it.
func (tl *Timelock) afterCall(ctx *contract.Context, id common.Hash) error {
	s := ctx.Store()
	op, found, err := tl.GetOperation(s, id)
	if err != nil {
		return err
	}
	if !found {
		return types.Wrapf(types.ErrUnknownOperation, "%s canceled during execution", id.Hex())
	}
	if op.Executed {
		return types.Wrapf(types.ErrOperationExecuted, "%s", id.Hex())
	}
	op.Executed = true
	return state.SetRLP(s, tl.key("op%x", id.Bytes()), &op)
}

// Cancel drops a pending operation. Canceller only.
func (tl *Timelock) Cancel(ctx *contract.Context, id common.Hash) error {
	if err := tl.checkRole(ctx, CancellerRole); err != nil {
		return err
	}
	s := ctx.Store()
	pending, err := tl.IsOperationPending(s, id)
	if err != nil {
		return err
	}
	if !pending {
		return types.Wrapf(types.ErrOperationNotPending, "%s", id.Hex())
	}
	if err = s.Delete(tl.key("op%x", id.Bytes())); err != nil {
		return err
	}
	ctx.EmitFrom(tl.Self, types.EncodeEventOperationCanceled(id))
	return nil
}

// UpdateDelay can only be reached through an executed operation.
func (tl *Timelock) UpdateDelay(ctx *contract.Context, delay uint64) error {
	if ctx.Caller != tl.Self {
		return types.Wrapf(types.ErrUnauthorized, "%s is not the timelock", ctx.Caller.Hex())
	}
	s := ctx.Store()
	old, err := tl.GetMinDelay(s)
	if err != nil {
		return err
	}
	if err = state.SetUint64(s, tl.key("delay"), delay); err != nil {
		return err
	}
	ctx.EmitFrom(tl.Self, types.EncodeEventMinDelayChange(old, delay))
	return nil
}
