package state

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// Key builds a store key from a format string, the same way the state keys are declared.
func Key(format string, args ...any) []byte {
	return []byte(fmt.Sprintf(format, args...))
}

func GetJSON(s KVStore, key []byte, v any) (found bool, err error) {
	val, err := s.Get(key)
	if err != nil || val == nil {
		return false, err
	}
	err = json.Unmarshal(val, v)
	return err == nil, err
}

func SetJSON(s KVStore, key []byte, v any) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(key, val)
}

func GetRLP(s KVStore, key []byte, v any) (found bool, err error) {
	val, err := s.Get(key)
	if err != nil || val == nil {
		return false, err
	}
	err = rlp.DecodeBytes(val, v)
	return err == nil, err
}

func SetRLP(s KVStore, key []byte, v any) error {
	val, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	return s.Set(key, val)
}

// GetBig returns zero for a missing key.
func GetBig(s KVStore, key []byte) (*big.Int, error) {
	val, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(val), nil
}

// SetBig removes the key when v is zero.
func SetBig(s KVStore, key []byte, v *big.Int) error {
	if v == nil || v.Sign() == 0 {
		return s.Delete(key)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("negative value for key %s", key)
	}
	return s.Set(key, v.Bytes())
}

func GetUint64(s KVStore, key []byte) (uint64, error) {
	val, err := s.Get(key)
	if err != nil || len(val) == 0 {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("malformed uint64 at key %s", key)
	}
	return binary.BigEndian.Uint64(val), nil
}

func SetUint64(s KVStore, key []byte, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return s.Set(key, buf[:])
}
