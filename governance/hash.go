package governance

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var proposalArgs abi.Arguments

func init() {
	for _, t := range []string{"address[]", "uint256[]", "bytes[]", "bytes32"} {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		proposalArgs = append(proposalArgs, abi.Argument{Type: typ})
	}
}

// HashProposal derives the proposal id from its actions and description hash.
// Equal inputs collide, so a resubmission needs a new description.
func HashProposal(targets []common.Address, values []*big.Int, calldatas [][]byte, descriptionHash common.Hash) common.Hash {
	enc, err := proposalArgs.Pack(targets, Values(values), calldatas, [32]byte(descriptionHash))
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

// Values replaces nil entries with zero.
func Values(values []*big.Int) []*big.Int {
	res := make([]*big.Int, len(values))
	for i, v := range values {
		if v == nil {
			v = new(big.Int)
		}
		res[i] = v
	}
	return res
}

func HashDescription(description string) common.Hash {
	return crypto.Keccak256Hash([]byte(description))
}

// TimelockSalt binds a proposal's timelock operation to this governor.
func TimelockSalt(governor common.Address, descriptionHash common.Hash) (salt common.Hash) {
	copy(salt[:], governor.Bytes())
	for i := range salt {
		salt[i] ^= descriptionHash[i]
	}
	return
}
