package contract

import (
	"fmt"
	"math/big"

	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Contract is a native contract reachable through ABI-encoded calls.
type Contract interface {
	Address() common.Address
	ABI() *abi.ABI
	Run(ctx *Context, method *abi.Method, args []any, value *big.Int) ([]any, error)
}

// Receiver is implemented by contracts that accept plain value transfers.
type Receiver interface {
	Receive(ctx *Context, value *big.Int) error
}

// Router resolves call targets. Addresses without a registered contract act
// as externally owned accounts.
type Router struct {
	contracts map[common.Address]Contract
}

func NewRouter() *Router {
	return &Router{
		contracts: make(map[common.Address]Contract),
	}
}

func (r *Router) Register(c Contract) error {
	if _, ok := r.contracts[c.Address()]; ok {
		return fmt.Errorf("contract %s already registered", c.Address().Hex())
	}
	r.contracts[c.Address()] = c
	return nil
}

func (r *Router) Get(addr common.Address) (Contract, bool) {
	c, ok := r.contracts[addr]
	return c, ok
}

func (r *Router) IsContract(addr common.Address) bool {
	_, ok := r.contracts[addr]
	return ok
}

// Call moves value from -> to and, when to is a contract, runs input against it
// with from as the caller. The call runs in its own branch and leaves no trace
// when it fails.
func (r *Router) Call(ctx *Context, from, to common.Address, value *big.Int, input []byte) (ret []byte, err error) {
	if value == nil {
		value = new(big.Int)
	}
	frame := ctx.Branch()
	frame.Caller = from
	ret, err = r.call(frame, from, to, value, input)
	if err != nil {
		return nil, err
	}
	err = frame.Commit()
	return
}

func (r *Router) call(frame *Context, from, to common.Address, value *big.Int, input []byte) ([]byte, error) {
	if value.Sign() > 0 {
		if err := Transfer(frame, from, to, value); err != nil {
			return nil, err
		}
	}
	c, ok := r.contracts[to]
	if !ok {
		return nil, nil
	}
	if len(input) == 0 {
		rc, ok := c.(Receiver)
		if !ok {
			if value.Sign() > 0 {
				return nil, types.Wrapf(types.ErrNonPayable, "%s has no receive", to.Hex())
			}
			return nil, nil
		}
		return nil, rc.Receive(frame, value)
	}
	if len(input) < 4 {
		return nil, types.Wrapf(types.ErrUnknownMethod, "short input %x", input)
	}
	method, err := c.ABI().MethodById(input[:4])
	if err != nil {
		return nil, types.Wrapf(types.ErrUnknownMethod, "selector %x on %s", input[:4], to.Hex())
	}
	if value.Sign() > 0 && !method.IsPayable() {
		return nil, types.Wrapf(types.ErrNonPayable, "%s.%s", to.Hex(), method.Name)
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, types.Wrapf(types.ErrInvalidPayload, "%s: %v", method.Name, err)
	}
	out, err := c.Run(frame, method, args, value)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

// StaticCall runs a view method and discards any writes.
func (r *Router) StaticCall(ctx *Context, to common.Address, input []byte) ([]byte, error) {
	c, ok := r.contracts[to]
	if !ok {
		return nil, types.Wrapf(types.ErrUnknownMethod, "no contract at %s", to.Hex())
	}
	if len(input) < 4 {
		return nil, types.Wrapf(types.ErrUnknownMethod, "short input %x", input)
	}
	method, err := c.ABI().MethodById(input[:4])
	if err != nil {
		return nil, types.Wrapf(types.ErrUnknownMethod, "selector %x on %s", input[:4], to.Hex())
	}
	if !method.IsConstant() {
		return nil, types.Wrapf(types.ErrUnknownMethod, "%s is not a view", method.Name)
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, types.Wrapf(types.ErrInvalidPayload, "%s: %v", method.Name, err)
	}
	out, err := c.Run(ctx.Branch(), method, args, new(big.Int))
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}
