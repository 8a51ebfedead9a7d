package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for a CometBFT blockchain, in particular its validator set.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

const DAOModuleName = "dao"
const DefaultPower = 1000

const (
	FlagOverwrite = "overwrite"
	FlagChainID   = "chain-id"
	FlagHome      = "home"
)

// AppState is the app_state section of the genesis document. It drives the
// deployment factory in InitChain.
type AppState struct {
	Deployer     common.Address        `json:"deployer"`
	Params       GenesisParams         `json:"params"`
	Balances     []GenesisBalance      `json:"balances"`
	Distribution []GenesisBalance      `json:"distribution"`
	SelfDelegate bool                  `json:"self_delegate"`
	Deposit      *math.HexOrDecimal256 `json:"treasury_initial_deposit,omitempty"`
	Assets       []GenesisAsset        `json:"assets"`
}

type GenesisParams struct {
	TimelockMinDelay      uint64                `json:"timelock_min_delay"`
	TokenName             string                `json:"token_name"`
	TokenSymbol           string                `json:"token_symbol"`
	GovernorName          string                `json:"governor_name"`
	VotingDelay           uint64                `json:"voting_delay"`
	VotingPeriod          uint64                `json:"voting_period"`
	QuorumNumerator       uint64                `json:"quorum_numerator"`
	ProposalThreshold     *math.HexOrDecimal256 `json:"proposal_threshold,omitempty"`
	GracePeriod           uint64                `json:"grace_period"`
	RejectZeroWeightVotes bool                  `json:"reject_zero_weight_votes"`
	BootstrapAdmin        bool                  `json:"bootstrap_admin"`
	Executors             []common.Address      `json:"executors,omitempty"`
}

type GenesisBalance struct {
	Address common.Address        `json:"address"`
	Amount  *math.HexOrDecimal256 `json:"amount"`
}

// GenesisAsset deploys an extra fungible ("erc20") or non-fungible ("erc721")
// ledger owned by the deployer.
type GenesisAsset struct {
	Kind    string           `json:"kind"`
	Name    string           `json:"name"`
	Symbol  string           `json:"symbol"`
	Holders []GenesisBalance `json:"holders"`
}

// DefaultAppState mirrors the reference deployment: one second timelock delay,
// five block voting delay, one hundred block voting period and a four percent quorum.
func DefaultAppState(deployer common.Address) *AppState {
	return &AppState{
		Deployer: deployer,
		Params: GenesisParams{
			TimelockMinDelay: 1,
			TokenName:        "Token",
			TokenSymbol:      "TKN",
			GovernorName:     "miniDAO",
			VotingDelay:      5,
			VotingPeriod:     100,
			QuorumNumerator:  4,
			GracePeriod:      14 * 24 * 3600,
			BootstrapAdmin:   true,
		},
		Balances:     []GenesisBalance{},
		Distribution: []GenesisBalance{},
		SelfDelegate: true,
		Assets:       []GenesisAsset{},
	}
}

func (s *AppState) Validate() error {
	if s.Params.VotingPeriod == 0 {
		return errors.New("voting_period must be positive")
	}
	if s.Params.QuorumNumerator > 100 {
		return fmt.Errorf("quorum_numerator %d above 100", s.Params.QuorumNumerator)
	}
	for _, a := range s.Assets {
		if a.Kind != "erc20" && a.Kind != "erc721" {
			return fmt.Errorf("unknown asset kind %q", a.Kind)
		}
	}
	return nil
}

func (s *AppState) Marshal() (json.RawMessage, error) {
	return json.MarshalIndent(s, "", "  ")
}

func UnmarshalAppState(dat []byte) (*AppState, error) {
	s := &AppState{}
	if len(dat) == 0 {
		return nil, errors.New("empty app_state")
	}
	if err := json.Unmarshal(dat, s); err != nil {
		return nil, err
	}
	return s, s.Validate()
}
