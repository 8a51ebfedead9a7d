package state

import (
	"errors"
	"sort"

	"github.com/cosmos/iavl"
)

var ErrReadOnly = errors.New("store is read only")

// KVStore is the view every component receives of the application state.
type KVStore interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
}

// CacheStore buffers writes over a parent store. Nothing reaches the parent
// until Write is called; dropping the CacheStore discards every write.
type CacheStore struct {
	parent KVStore
	// nil value marks a deletion
	writes map[string][]byte
}

func NewCacheStore(parent KVStore) *CacheStore {
	return &CacheStore{
		parent: parent,
		writes: make(map[string][]byte),
	}
}

func (c *CacheStore) Get(key []byte) ([]byte, error) {
	if v, ok := c.writes[string(key)]; ok {
		if v == nil {
			return nil, nil
		}
		return v, nil
	}
	return c.parent.Get(key)
}

func (c *CacheStore) Has(key []byte) (bool, error) {
	v, err := c.Get(key)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

func (c *CacheStore) Set(key, value []byte) error {
	if len(key) == 0 {
		return errors.New("empty key")
	}
	v := make([]byte, len(value))
	copy(v, value)
	c.writes[string(key)] = v
	return nil
}

func (c *CacheStore) Delete(key []byte) error {
	c.writes[string(key)] = nil
	return nil
}

// Branch returns a child overlay on top of c.
func (c *CacheStore) Branch() *CacheStore {
	return NewCacheStore(c)
}

// Write flushes buffered writes to the parent in key order and resets the overlay.
func (c *CacheStore) Write() (err error) {
	keys := make([]string, 0, len(c.writes))
	for k := range c.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := c.writes[k]
		if v == nil {
			err = c.parent.Delete([]byte(k))
		} else {
			err = c.parent.Set([]byte(k), v)
		}
		if err != nil {
			return
		}
	}
	c.writes = make(map[string][]byte)
	return
}

func (c *CacheStore) Dirty() int {
	return len(c.writes)
}

type treeStore struct {
	tree *iavl.MutableTree
}

func (t treeStore) Get(key []byte) ([]byte, error) {
	return t.tree.Get(key)
}

func (t treeStore) Has(key []byte) (bool, error) {
	return t.tree.Has(key)
}

func (t treeStore) Set(key, value []byte) error {
	_, err := t.tree.Set(key, value)
	return err
}

func (t treeStore) Delete(key []byte) error {
	_, _, err := t.tree.Remove(key)
	return err
}

type immutableStore struct {
	tree *iavl.ImmutableTree
}

func (t immutableStore) Get(key []byte) ([]byte, error) {
	if t.tree == nil {
		return nil, nil
	}
	return t.tree.Get(key)
}

func (t immutableStore) Has(key []byte) (bool, error) {
	if t.tree == nil {
		return false, nil
	}
	return t.tree.Has(key)
}

func (t immutableStore) Set(key, value []byte) error { return ErrReadOnly }

func (t immutableStore) Delete(key []byte) error { return ErrReadOnly }
