package state

import (
	"math/big"

	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

var (
	KeyAccountNonce = "n%x"
)

// Account is the query view of an externally owned account.
type Account struct {
	Address common.Address `json:"address" yaml:"address"`
	Nonce   uint64         `json:"nonce" yaml:"nonce"`
	Balance *big.Int       `json:"balance" yaml:"balance"`
}

func GetNonce(s KVStore, addr common.Address) (uint64, error) {
	return GetUint64(s, Key(KeyAccountNonce, addr.Bytes()))
}

func SetNonce(s KVStore, addr common.Address, nonce uint64) error {
	return SetUint64(s, Key(KeyAccountNonce, addr.Bytes()), nonce)
}

// IncNonce advances the sender nonce. It runs outside the tx branch so a failed
// tx still consumes its nonce.
func IncNonce(s KVStore, addr common.Address) (uint64, error) {
	n, err := GetNonce(s, addr)
	if err != nil {
		return 0, err
	}
	n++
	return n, SetNonce(s, addr, n)
}

// VerifyTx checks the signature against the declared sender and the nonce
// against the stored one. allowNonceGap admits future nonces for the mempool.
func VerifyTx(s KVStore, chainId string, btx *tx.DAOTx, allowNonceGap bool) error {
	signer, err := btx.Recover(chainId)
	if err != nil {
		return types.Wrapf(types.ErrInvalidSignature, "%v", err)
	}
	if signer != btx.Sender {
		return types.Wrapf(types.ErrInvalidSignature, "signer %s sender %s", signer.Hex(), btx.Sender.Hex())
	}
	nonce, err := GetNonce(s, btx.Sender)
	if err != nil {
		return err
	}
	if !(nonce == btx.Nonce || (allowNonceGap && nonce < btx.Nonce)) {
		return types.Wrapf(types.ErrInvalidNonce, "expected %d got %d", nonce, btx.Nonce)
	}
	return nil
}
