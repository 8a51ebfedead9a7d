package token

import (
	"math/big"

	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
)

// Checkpoint is the value a trace holds from Height on.
type Checkpoint struct {
	Height uint64
	Value  *big.Int
}

// trace is an append-only history of checkpoints ordered by height. At most
// one checkpoint exists per height; later writes in the same block replace it.
type trace struct {
	countKey []byte
	entryKey func(i uint64) []byte
}

func (t trace) length(s state.KVStore) (uint64, error) {
	return state.GetUint64(s, t.countKey)
}

func (t trace) at(s state.KVStore, i uint64) (cp Checkpoint, err error) {
	found, err := state.GetRLP(s, t.entryKey(i), &cp)
	if err != nil {
		return
	}
	if !found {
		cp.Value = new(big.Int)
	}
	return
}

func (t trace) latest(s state.KVStore) (*big.Int, error) {
	n, err := t.length(s)
	if err != nil || n == 0 {
		return new(big.Int), err
	}
	cp, err := t.at(s, n-1)
	return cp.Value, err
}

// push records value at height and returns the value it replaces.
func (t trace) push(s state.KVStore, height uint64, value *big.Int) (prev *big.Int, err error) {
	n, err := t.length(s)
	if err != nil {
		return
	}
	prev = new(big.Int)
	if n > 0 {
		var last Checkpoint
		last, err = t.at(s, n-1)
		if err != nil {
			return
		}
		prev = last.Value
		if last.Height == height {
			err = state.SetRLP(s, t.entryKey(n-1), &Checkpoint{Height: height, Value: value})
			return
		}
	}
	if err = state.SetRLP(s, t.entryKey(n), &Checkpoint{Height: height, Value: value}); err != nil {
		return
	}
	err = state.SetUint64(s, t.countKey, n+1)
	return
}

// before returns the value in force at the start of block height: the latest
// checkpoint strictly below it.
func (t trace) before(s state.KVStore, height uint64) (*big.Int, error) {
	n, err := t.length(s)
	if err != nil {
		return nil, err
	}
	lo, hi := uint64(0), n
	for lo < hi {
		mid := lo + (hi-lo)/2
		cp, err := t.at(s, mid)
		if err != nil {
			return nil, err
		}
		if cp.Height < height {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return new(big.Int), nil
	}
	cp, err := t.at(s, lo-1)
	return cp.Value, err
}

// pastLookup guards historical reads against the current block.
func pastLookup(height, current uint64) error {
	if height > current {
		return types.Wrapf(types.ErrFutureLookup, "height %d, current %d", height, current)
	}
	return nil
}
