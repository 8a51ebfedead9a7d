package timelock

import (
	"math/big"

	"github.com/calehh/hac-dao/contract"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ABI = contract.NewABI(
	contract.Fn("DEFAULT_ADMIN_ROLE", contract.View, nil, "bytes32"),
	contract.Fn("PROPOSER_ROLE", contract.View, nil, "bytes32"),
	contract.Fn("EXECUTOR_ROLE", contract.View, nil, "bytes32"),
	contract.Fn("CANCELLER_ROLE", contract.View, nil, "bytes32"),
	contract.Fn("getMinDelay", contract.View, nil, "uint256"),
	contract.Fn("getTimestamp", contract.View, contract.Args("bytes32 id"), "uint256"),
	contract.Fn("isOperation", contract.View, contract.Args("bytes32 id"), "bool"),
	contract.Fn("isOperationPending", contract.View, contract.Args("bytes32 id"), "bool"),
	contract.Fn("isOperationReady", contract.View, contract.Args("bytes32 id"), "bool"),
	contract.Fn("isOperationDone", contract.View, contract.Args("bytes32 id"), "bool"),
	contract.Fn("hasRole", contract.View, contract.Args("bytes32 role", "address account"), "bool"),
	contract.Fn("getRoleAdmin", contract.View, contract.Args("bytes32 role"), "bytes32"),
	contract.Fn("hashOperation", contract.View,
		contract.Args("address target", "uint256 value", "bytes data", "bytes32 predecessor", "bytes32 salt"), "bytes32"),
	contract.Fn("hashOperationBatch", contract.View,
		contract.Args("address[] targets", "uint256[] values", "bytes[] payloads", "bytes32 predecessor", "bytes32 salt"), "bytes32"),
	contract.Fn("schedule", contract.NonPayable,
		contract.Args("address target", "uint256 value", "bytes data", "bytes32 predecessor", "bytes32 salt", "uint256 eta")),
	contract.Fn("scheduleBatch", contract.NonPayable,
		contract.Args("address[] targets", "uint256[] values", "bytes[] payloads", "bytes32 predecessor", "bytes32 salt", "uint256 eta")),
	contract.Fn("execute", contract.Payable,
		contract.Args("address target", "uint256 value", "bytes payload", "bytes32 predecessor", "bytes32 salt")),
	contract.Fn("executeBatch", contract.Payable,
		contract.Args("address[] targets", "uint256[] values", "bytes[] payloads", "bytes32 predecessor", "bytes32 salt")),
	contract.Fn("cancel", contract.NonPayable, contract.Args("bytes32 id")),
	contract.Fn("updateDelay", contract.NonPayable, contract.Args("uint256 newDelay")),
	contract.Fn("grantRole", contract.NonPayable, contract.Args("bytes32 role", "address account")),
	contract.Fn("revokeRole", contract.NonPayable, contract.Args("bytes32 role", "address account")),
	contract.Fn("renounceRole", contract.NonPayable, contract.Args("bytes32 role", "address callerConfirmation")),
)

func (tl *Timelock) Address() common.Address {
	return tl.Self
}

func (tl *Timelock) ABI() *abi.ABI {
	return ABI
}

// Receive accepts plain value so proposals can fund calls.
func (tl *Timelock) Receive(ctx *contract.Context, value *big.Int) error {
	return nil
}

type batchArgsIn struct {
	targets     []common.Address
	values      []*big.Int
	payloads    [][]byte
	predecessor common.Hash
	salt        common.Hash
}

func unpackBatch(args []any, batch bool) (in batchArgsIn, err error) {
	if batch {
		if in.targets, err = contract.Arg[[]common.Address](args, 0); err != nil {
			return
		}
		if in.values, err = contract.Arg[[]*big.Int](args, 1); err != nil {
			return
		}
		if in.payloads, err = contract.Arg[[][]byte](args, 2); err != nil {
			return
		}
	} else {
		var target common.Address
		var value *big.Int
		var payload []byte
		if target, err = contract.Arg[common.Address](args, 0); err != nil {
			return
		}
		if value, err = contract.Arg[*big.Int](args, 1); err != nil {
			return
		}
		if payload, err = contract.Arg[[]byte](args, 2); err != nil {
			return
		}
		in.targets, in.values, in.payloads = []common.Address{target}, []*big.Int{value}, [][]byte{payload}
	}
	predecessor, err := contract.Arg[[32]byte](args, 3)
	if err != nil {
		return
	}
	salt, err := contract.Arg[[32]byte](args, 4)
	if err != nil {
		return
	}
	in.predecessor, in.salt = predecessor, salt
	return
}

func hashArg(args []any, i int) (common.Hash, error) {
	v, err := contract.Arg[[32]byte](args, i)
	return v, err
}

func (tl *Timelock) Run(ctx *contract.Context, method *abi.Method, args []any, value *big.Int) ([]any, error) {
	s := ctx.Store()
	switch method.Name {
	case "DEFAULT_ADMIN_ROLE":
		return []any{[32]byte(DefaultAdminRole)}, nil
	case "PROPOSER_ROLE":
		return []any{[32]byte(ProposerRole)}, nil
	case "EXECUTOR_ROLE":
		return []any{[32]byte(ExecutorRole)}, nil
	case "CANCELLER_ROLE":
		return []any{[32]byte(CancellerRole)}, nil
	case "getMinDelay":
		d, err := tl.GetMinDelay(s)
		return []any{contract.U256(d)}, err
	case "getTimestamp", "isOperation", "isOperationPending", "isOperationReady", "isOperationDone":
		id, err := hashArg(args, 0)
		if err != nil {
			return nil, err
		}
		return tl.runOperationView(ctx, method.Name, id)
	case "hasRole":
		role, err := hashArg(args, 0)
		if err != nil {
			return nil, err
		}
		account, err := contract.Arg[common.Address](args, 1)
		if err != nil {
			return nil, err
		}
		ok, err := tl.HasRole(s, role, account)
		return []any{ok}, err
	case "getRoleAdmin":
		role, err := hashArg(args, 0)
		if err != nil {
			return nil, err
		}
		admin, err := tl.GetRoleAdmin(s, role)
		return []any{[32]byte(admin)}, err
	case "hashOperation", "hashOperationBatch":
		in, err := unpackBatch(args, method.Name == "hashOperationBatch")
		if err != nil {
			return nil, err
		}
		if method.Name == "hashOperation" {
			return []any{[32]byte(HashOperation(in.targets[0], in.values[0], in.payloads[0], in.predecessor, in.salt))}, nil
		}
		return []any{[32]byte(HashOperationBatch(in.targets, in.values, in.payloads, in.predecessor, in.salt))}, nil
	case "schedule", "scheduleBatch":
		in, err := unpackBatch(args, method.Name == "scheduleBatch")
		if err != nil {
			return nil, err
		}
		eta, err := contract.Uint64Arg(args, 5)
		if err != nil {
			return nil, err
		}
		_, err = tl.ScheduleBatch(ctx, in.targets, in.values, in.payloads, in.predecessor, in.salt, eta)
		return nil, err
	case "execute", "executeBatch":
		in, err := unpackBatch(args, method.Name == "executeBatch")
		if err != nil {
			return nil, err
		}
		_, err = tl.ExecuteBatch(ctx, in.targets, in.values, in.payloads, in.predecessor, in.salt)
		return nil, err
	case "cancel":
		id, err := hashArg(args, 0)
		if err != nil {
			return nil, err
		}
		return nil, tl.Cancel(ctx, id)
	case "updateDelay":
		delay, err := contract.Uint64Arg(args, 0)
		if err != nil {
			return nil, err
		}
		return nil, tl.UpdateDelay(ctx, delay)
	case "grantRole", "revokeRole", "renounceRole":
		role, err := hashArg(args, 0)
		if err != nil {
			return nil, err
		}
		account, err := contract.Arg[common.Address](args, 1)
		if err != nil {
			return nil, err
		}
		switch method.Name {
		case "grantRole":
			return nil, tl.GrantRole(ctx, role, account)
		case "revokeRole":
			return nil, tl.RevokeRole(ctx, role, account)
		default:
			return nil, tl.RenounceRole(ctx, role, account)
		}
	}
	return nil, types.Wrapf(types.ErrUnknownMethod, "%s", method.Name)
}

func (tl *Timelock) runOperationView(ctx *contract.Context, name string, id common.Hash) ([]any, error) {
	s := ctx.Store()
	switch name {
	case "getTimestamp":
		ts, err := tl.GetTimestamp(s, id)
		return []any{contract.U256(ts)}, err
	case "isOperation":
		ok, err := tl.IsOperation(s, id)
		return []any{ok}, err
	case "isOperationPending":
		ok, err := tl.IsOperationPending(s, id)
		return []any{ok}, err
	case "isOperationReady":
		ok, err := tl.IsOperationReady(s, ctx.Block.Time, id)
		return []any{ok}, err
	default:
		ok, err := tl.IsOperationDone(s, id)
		return []any{ok}, err
	}
}
