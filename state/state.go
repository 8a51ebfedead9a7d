package state

import (
	"errors"
	"time"

	"github.com/calehh/hac-dao/tx"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	ErrNotFound = errors.New("not found")
)

var (
	KeyState = "s"
)

// State is the working set of one block. Writes land in the embedded overlay
// and reach the tree only in Update.
type State struct {
	*CacheStore

	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header *StateHeader
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	return &State{
		CacheStore: NewCacheStore(treeStore{tree: db}),
		logger:     logger,
		db:         db,
		dbVer:      0,
		header:     new(StateHeader),
	}
}

func (s *State) nextState() *State {
	n := &State{
		CacheStore: NewCacheStore(treeStore{tree: s.db}),
		logger:     s.logger,
		db:         s.db,
		dbVer:      s.dbVer,
		header:     s.header.Clone(),
	}
	if s.header.GetHash() != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyState))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil
		}
		return err
	}
	if val != nil {
		err = s.header.Unmarshal(val)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = append(s.header.RootHash[:0], rootHash...)
		s.header.Hash = append(s.header.Hash[:0], h[:]...)
	}
	return
}

// Update flushes the block's writes into the tree and returns the working app hash.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	err = s.CacheStore.Set([]byte(KeyState), s.header.Marshal())
	if err != nil {
		return
	}
	n := s.Dirty()
	err = s.Write()
	if err != nil {
		return
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.logger.Debug("state updated", "height", s.header.Height, "writes", n)
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}
	s.dbVer = ver
	h = s.calcHash(hash, true)
	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

func (s *State) SetBlock(height int64, t time.Time) {
	s.header.Height = uint64(height)
	s.header.Time = uint64(t.Unix())
}

func (s *State) Height() uint64 {
	return s.header.Height
}

func (s *State) Time() uint64 {
	return s.header.Time
}

func (s *State) Verify(btx *tx.DAOTx, allowNonceGap bool) error {
	return VerifyTx(s, s.header.ChainId, btx, allowNonceGap)
}
