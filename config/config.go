package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/spf13/viper"
)

const DefaultHomeDir = ".dao"

// AppConfig is the [app] section of config.toml. Governance parameters are
// not here; they live in genesis so every node agrees on them.
type AppConfig struct {
	Home             string `mapstructure:"-"`
	IndexerEnabled   bool   `mapstructure:"indexer_enabled"`
	IndexerDB        string `mapstructure:"indexer_db"`
	APIListen        string `mapstructure:"api_listen"`
	MetricsNamespace string `mapstructure:"metrics_namespace"`
	MaxTxsPerBlock   int    `mapstructure:"max_txs_per_block"`
	CheckTxDryRun    bool   `mapstructure:"check_tx_dry_run"`
}

func DefaultAppConfig(home string) *AppConfig {
	return &AppConfig{
		Home:             home,
		IndexerEnabled:   false,
		IndexerDB:        "indexer.db",
		APIListen:        "127.0.0.1:8080",
		MetricsNamespace: "dao",
		MaxTxsPerBlock:   500,
		CheckTxDryRun:    true,
	}
}

func (c *AppConfig) DataDir() string {
	return filepath.Join(c.Home, "data")
}

// IndexerPath resolves a relative indexer db against the data dir.
func (c *AppConfig) IndexerPath() string {
	if filepath.IsAbs(c.IndexerDB) {
		return c.IndexerDB
	}
	return filepath.Join(c.DataDir(), c.IndexerDB)
}

func (c *AppConfig) ValidateBasic() error {
	if c.MaxTxsPerBlock <= 0 {
		return fmt.Errorf("max_txs_per_block must be positive, got %d", c.MaxTxsPerBlock)
	}
	if c.MetricsNamespace == "" {
		return fmt.Errorf("metrics_namespace is empty")
	}
	return nil
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *AppConfig `mapstructure:"app"`
}

func DefaultHome(home string) string {
	if len(home) == 0 {
		home = filepath.Join(os.ExpandEnv("$HOME"), DefaultHomeDir)
	}
	return home
}

func DefaultConfig(home string) *Config {
	home = DefaultHome(home)
	_ = os.MkdirAll(filepath.Join(home, "config"), 0o755)
	c := &Config{
		Config: DefaultCometConfig(),
		App:    DefaultAppConfig(home),
	}
	c.SetRoot(home)
	return c
}

// Load reads home/config/config.toml over the defaults.
func Load(home string) (*Config, error) {
	c := DefaultConfig(home)
	v := viper.New()
	v.SetConfigFile(filepath.Join(c.RootDir, "config", "config.toml"))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	c.SetRoot(c.RootDir)
	c.App.Home = c.RootDir
	if err := c.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.App.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid app configuration: %w", err)
	}
	return c, nil
}

func InitializeNodeValidatorFiles(c *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(c.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := c.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := c.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	cometConfig.Instrumentation.Prometheus = true
	return cometConfig
}
