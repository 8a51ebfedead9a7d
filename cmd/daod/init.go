package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/hac-dao/config"
	"github.com/calehh/hac-dao/crypto"
	"github.com/calehh/hac-dao/types"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/spf13/cobra"
)

type printInfo struct {
	ChainID    string          `json:"chain_id" yaml:"chain_id"`
	NodeID     string          `json:"node_id" yaml:"node_id"`
	Deployer   string          `json:"deployer" yaml:"deployer"`
	AppMessage json.RawMessage `json:"app_message" yaml:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)
	return err
}

type initArguments struct {
	Deployer     string
	Members      []string
	MemberAmount string
	Deposit      string
	VotingDelay  uint64
	VotingPeriod uint64
	MinDelay     uint64
	Quorum       uint64
}

var initArgs initArguments

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize private validator, p2p, genesis, and application configuration files",
	Long: `Initialize the validator and node configuration files and a genesis whose
app_state deploys the governance token, timelock, governor and treasury.`,
	Args: cobra.ExactArgs(0),
	RunE: initRun,
}

func init() {
	initCmd.Flags().BoolP(types.FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(types.FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().String(types.FlagHome, "", "node home directory")
	initCmd.Flags().StringVar(&initArgs.Deployer, "deployer", "", "deployer address, a key is generated under config/ when empty")
	initCmd.Flags().StringSliceVar(&initArgs.Members, "member", nil, "token holder address, repeatable")
	initCmd.Flags().StringVar(&initArgs.MemberAmount, "member-amount", "1000", "tokens distributed to each member")
	initCmd.Flags().StringVar(&initArgs.Deposit, "deposit", "0", "native deposit of the deployer into the treasury")
	initCmd.Flags().Uint64Var(&initArgs.VotingDelay, "voting-delay", 0, "blocks before voting opens, genesis default when 0")
	initCmd.Flags().Uint64Var(&initArgs.VotingPeriod, "voting-period", 0, "blocks voting stays open, genesis default when 0")
	initCmd.Flags().Uint64Var(&initArgs.MinDelay, "min-delay", 0, "timelock delay in seconds, genesis default when 0")
	initCmd.Flags().Uint64Var(&initArgs.Quorum, "quorum", 0, "quorum percent of the supply, genesis default when 0")
}

func deployerAddress(cfg *config.Config, addr string) (common.Address, error) {
	if addr != "" {
		return parseAddress(addr)
	}
	path := filepath.Join(cfg.RootDir, "config", "deployer.key")
	key, err := crypto.NewKeyFile(path)
	if errors.Is(err, crypto.ErrKeyExists) {
		key, err = crypto.LoadKeyFile(path)
	}
	if err != nil {
		return common.Address{}, err
	}
	return crypto.Address(key), nil
}

func (a *initArguments) appState(deployer common.Address) (*types.AppState, error) {
	gs := types.DefaultAppState(deployer)
	if a.VotingDelay > 0 {
		gs.Params.VotingDelay = a.VotingDelay
	}
	if a.VotingPeriod > 0 {
		gs.Params.VotingPeriod = a.VotingPeriod
	}
	if a.MinDelay > 0 {
		gs.Params.TimelockMinDelay = a.MinDelay
	}
	if a.Quorum > 0 {
		gs.Params.QuorumNumerator = a.Quorum
	}
	each, err := parseAmount(a.MemberAmount)
	if err != nil {
		return nil, err
	}
	for _, m := range a.Members {
		addr, err := parseAddress(m)
		if err != nil {
			return nil, err
		}
		gs.Distribution = append(gs.Distribution, types.GenesisBalance{
			Address: addr,
			Amount:  (*math.HexOrDecimal256)(new(big.Int).Set(each)),
		})
	}
	deposit, err := parseAmount(a.Deposit)
	if err != nil {
		return nil, err
	}
	if deposit.Sign() > 0 {
		gs.Balances = append(gs.Balances, types.GenesisBalance{Address: deployer, Amount: (*math.HexOrDecimal256)(deposit)})
		gs.Deposit = (*math.HexOrDecimal256)(new(big.Int).Set(deposit))
	}
	return gs, gs.Validate()
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(types.FlagHome)
	chainID, _ := cmd.Flags().GetString(types.FlagChainID)
	overwrite, _ := cmd.Flags().GetBool(types.FlagOverwrite)
	if chainID == "" {
		chainID = fmt.Sprintf("dao-chain-%v", rand.Uint64())
	}

	cfg := config.DefaultConfig(home)
	genFile := cfg.GenesisFile()
	if _, err := os.Stat(genFile); err == nil && !overwrite {
		return fmt.Errorf("genesis file %s already exists, use --%s", genFile, types.FlagOverwrite)
	}

	nodeID, pk, err := config.InitializeNodeValidatorFiles(cfg, nil)
	if err != nil {
		return err
	}
	vals := []types.GenesisValidator{{Address: pk.Address(), PubKey: pk, Power: types.DefaultPower}}

	deployer, err := deployerAddress(cfg, initArgs.Deployer)
	if err != nil {
		return fmt.Errorf("deployer: %w", err)
	}
	gs, err := initArgs.appState(deployer)
	if err != nil {
		return fmt.Errorf("app state: %w", err)
	}
	appState, err := gs.Marshal()
	if err != nil {
		return err
	}

	appGenesis := &types.GenesisDoc{
		GenesisTime:     time.Now(),
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators:      vals,
		AppState:        appState,
	}
	if err = types.ExportGenesisFile(appGenesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %w", err)
	}
	if err = config.WriteConfigFile(filepath.Join(cfg.RootDir, "config", "config.toml"), cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return displayInfo(printInfo{
		ChainID:    chainID,
		NodeID:     nodeID,
		Deployer:   deployer.Hex(),
		AppMessage: appGenesis.AppState,
	})
}
