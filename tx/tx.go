package tx

import (
	"crypto/ecdsa"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/calehh/hac-dao/types"
)

// DAOTx is the signed envelope carried in every block.
type DAOTx struct {
	Version uint8          `json:"version"`
	Type    DAOTxType      `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Sender  common.Address `json:"sender"`
	Tx      any            `json:"tx"`
	Sig     hexutil.Bytes  `json:"sig"`
}

type ProposeTx struct {
	Targets     []common.Address `json:"targets"`
	Values      []*big.Int       `json:"values"`
	Calldatas   []hexutil.Bytes  `json:"calldatas"`
	Description string           `json:"description"`
}

type CastVoteTx struct {
	ProposalId common.Hash `json:"proposalId"`
	Support    uint8       `json:"support"`
	Reason     string      `json:"reason"`
}

// ProposalActionTx names a proposal by its full action set; it is the body of
// queue, execute and cancel txs.
type ProposalActionTx struct {
	Targets         []common.Address `json:"targets"`
	Values          []*big.Int       `json:"values"`
	Calldatas       []hexutil.Bytes  `json:"calldatas"`
	DescriptionHash common.Hash      `json:"descriptionHash"`
}

type CallTx struct {
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
	Data  hexutil.Bytes  `json:"data"`
}

type TransferTx struct {
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
}

type DelegateTx struct {
	Delegatee common.Address `json:"delegatee"`
}

type daoTxTmpl[Tx any] struct {
	Version uint8          `json:"version"`
	Type    DAOTxType      `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Sender  common.Address `json:"sender"`
	Tx      Tx             `json:"tx"`
	Sig     hexutil.Bytes  `json:"sig"`
}

// SigData is the tx encoded with the signature slot replaced by ext.
func (tx *DAOTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = ext
	dat, err = json.Marshal(ntx)
	return
}

func (tx *DAOTx) SigHash(chainId string) (h common.Hash, err error) {
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return
	}
	h = crypto.Keccak256Hash(dat)
	return
}

func (tx *DAOTx) Sign(chainId string, key *ecdsa.PrivateKey) error {
	h, err := tx.SigHash(chainId)
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(h[:], key)
	if err != nil {
		return err
	}
	tx.Sig = sig
	return nil
}

// Recover returns the address that produced Sig.
func (tx *DAOTx) Recover(chainId string) (addr common.Address, err error) {
	if len(tx.Sig) != crypto.SignatureLength {
		err = ErrMissingSignature
		return
	}
	h, err := tx.SigHash(chainId)
	if err != nil {
		return
	}
	pub, err := crypto.SigToPub(h[:], tx.Sig)
	if err != nil {
		return
	}
	addr = crypto.PubkeyToAddress(*pub)
	return
}

func (tx *DAOTx) Hash() common.Hash {
	dat, _ := json.Marshal(tx)
	return crypto.Keccak256Hash(dat)
}

func parseDAOTxType(dat []byte) DAOTxType {
	var tx struct {
		Type DAOTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return DAOTxTypeUnknown
	}
	return tx.Type
}

func unmarshalDAOTx[Tx any](dat []byte) (btx *DAOTx, err error) {
	var txt daoTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version > DAOTxVersion1 {
		err = ErrUnsupportedTxVersion
		return
	}
	btx = new(DAOTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Sender = txt.Sender
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalDAOTx(dat []byte) (btx *DAOTx, err error) {
	tp := parseDAOTxType(dat)
	switch tp {
	case DAOTxTypePropose:
		return unmarshalDAOTx[ProposeTx](dat)
	case DAOTxTypeCastVote:
		return unmarshalDAOTx[CastVoteTx](dat)
	case DAOTxTypeQueue, DAOTxTypeExecute, DAOTxTypeCancel:
		return unmarshalDAOTx[ProposalActionTx](dat)
	case DAOTxTypeCall:
		return unmarshalDAOTx[CallTx](dat)
	case DAOTxTypeTransfer:
		return unmarshalDAOTx[TransferTx](dat)
	case DAOTxTypeDelegate:
		return unmarshalDAOTx[DelegateTx](dat)
	default:
		err = types.Wrapf(types.ErrUnsupportedTxType, "%d", tp)
	}
	return
}

func MarshalDAOTx(btx *DAOTx) (dat []byte, err error) {
	return json.Marshal(btx)
}

// NewSigned builds and signs a tx in one step.
func NewSigned(chainId string, key *ecdsa.PrivateKey, nonce uint64, tp DAOTxType, body any) (btx *DAOTx, err error) {
	btx = &DAOTx{
		Version: DAOTxVersion1,
		Type:    tp,
		Nonce:   nonce,
		Sender:  crypto.PubkeyToAddress(key.PublicKey),
		Tx:      body,
	}
	err = btx.Sign(chainId, key)
	return
}

func BytesList(dat [][]byte) []hexutil.Bytes {
	res := make([]hexutil.Bytes, len(dat))
	for i, d := range dat {
		res[i] = d
	}
	return res
}

func RawBytesList(dat []hexutil.Bytes) [][]byte {
	res := make([][]byte, len(dat))
	for i, d := range dat {
		res[i] = d
	}
	return res
}
