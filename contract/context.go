package contract

import (
	"context"

	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

// Block is the clock every operation is evaluated against. Height drives
// voting windows, Time drives the timelock.
type Block struct {
	ChainId string
	Height  uint64
	Time    uint64
}

type eventBuffer struct {
	events []abcitypes.Event
}

// Context is one call frame. Frames created by Branch own a write overlay and
// an event buffer; nothing they do is visible to the parent until Commit.
type Context struct {
	context.Context

	Block  Block
	Caller common.Address

	store  state.KVStore
	cache  *state.CacheStore
	buf    *eventBuffer
	parent *eventBuffer
	router *Router
	logger cmtlog.Logger
}

func NewContext(ctx context.Context, store state.KVStore, block Block, router *Router, logger cmtlog.Logger) *Context {
	return &Context{
		Context: ctx,
		Block:   block,
		store:   store,
		buf:     &eventBuffer{},
		router:  router,
		logger:  logger,
	}
}

func (c *Context) Store() state.KVStore {
	return c.store
}

func (c *Context) Router() *Router {
	return c.router
}

func (c *Context) Logger() cmtlog.Logger {
	return c.logger
}

// WithCaller returns a frame sharing store and events but with another msg.sender.
func (c *Context) WithCaller(caller common.Address) *Context {
	n := *c
	n.Caller = caller
	return &n
}

func (c *Context) Branch() *Context {
	n := *c
	n.cache = state.NewCacheStore(c.store)
	n.store = n.cache
	n.parent = c.buf
	n.buf = &eventBuffer{}
	return &n
}

// Commit publishes a branch's writes and events to its parent.
func (c *Context) Commit() error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.Write(); err != nil {
		return err
	}
	c.parent.events = append(c.parent.events, c.buf.events...)
	c.buf.events = nil
	return nil
}

func (c *Context) Emit(ev abcitypes.Event) {
	c.buf.events = append(c.buf.events, ev)
}

// EmitFrom tags ev with the emitting contract.
func (c *Context) EmitFrom(addr common.Address, ev abcitypes.Event) {
	ev.Attributes = append(ev.Attributes, abcitypes.EventAttribute{Key: types.AttrContract, Value: addr.Hex(), Index: true})
	c.Emit(ev)
}

func (c *Context) Events() []abcitypes.Event {
	return c.buf.events
}
