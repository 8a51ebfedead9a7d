package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	View       = "view"
	NonPayable = "nonpayable"
	Payable    = "payable"
)

// MethodSpec declares one ABI function. Arguments are written "type name",
// e.g. "address to".
type MethodSpec struct {
	Name       string
	Mutability string
	Inputs     []string
	Outputs    []string
}

func Fn(name, mutability string, inputs []string, outputs ...string) MethodSpec {
	return MethodSpec{Name: name, Mutability: mutability, Inputs: inputs, Outputs: outputs}
}

func Args(args ...string) []string {
	return args
}

func parseArgs(specs []string) (abi.Arguments, error) {
	res := make(abi.Arguments, 0, len(specs))
	for i, spec := range specs {
		fields := strings.Fields(spec)
		if len(fields) == 0 || len(fields) > 2 {
			return nil, fmt.Errorf("bad argument %q", spec)
		}
		typ, err := abi.NewType(fields[0], "", nil)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("arg%d", i)
		if len(fields) == 2 {
			name = fields[1]
		}
		res = append(res, abi.Argument{Name: name, Type: typ})
	}
	return res, nil
}

// NewABI builds an abi.ABI from method specs. It panics on a malformed spec
// since every ABI is declared at package init.
func NewABI(specs ...MethodSpec) *abi.ABI {
	methods := make(map[string]abi.Method, len(specs))
	for _, spec := range specs {
		inputs, err := parseArgs(spec.Inputs)
		if err != nil {
			panic(fmt.Sprintf("method %s: %v", spec.Name, err))
		}
		outputs, err := parseArgs(spec.Outputs)
		if err != nil {
			panic(fmt.Sprintf("method %s: %v", spec.Name, err))
		}
		isConst := spec.Mutability == View
		isPayable := spec.Mutability == Payable
		methods[spec.Name] = abi.NewMethod(spec.Name, spec.Name, abi.Function, spec.Mutability, isConst, isPayable, inputs, outputs)
	}
	return &abi.ABI{Methods: methods}
}

// Pack encodes a call to method of a.
func Pack(a *abi.ABI, method string, args ...any) ([]byte, error) {
	return a.Pack(method, args...)
}

// Arg extracts the i-th unpacked argument with the expected Go type.
func Arg[T any](args []any, i int) (v T, err error) {
	if i >= len(args) {
		err = types.Wrapf(types.ErrInvalidPayload, "missing argument %d", i)
		return
	}
	v, ok := args[i].(T)
	if !ok {
		err = types.Wrapf(types.ErrInvalidPayload, "argument %d has type %T", i, args[i])
	}
	return
}

// Uint64Arg reads a uint256 argument that must fit a uint64.
func Uint64Arg(args []any, i int) (uint64, error) {
	v, err := Arg[*big.Int](args, i)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, types.Wrapf(types.ErrInvalidParam, "argument %d out of range", i)
	}
	return v.Uint64(), nil
}

func U256(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}
