package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calehh/hac-dao/app"
	"github.com/calehh/hac-dao/config"
	"github.com/calehh/hac-dao/indexer"
	"github.com/calehh/hac-dao/metrics"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var homeDir string

var rootCmd = &cobra.Command{
	Use:   "daod",
	Short: "daod runs a governed treasury chain",
	Long: `A token-governed DAO on CometBFT: proposals, votes, a timelock
and a treasury, executed as one replicated state machine.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func run(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(homeDir)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pv := privval.LoadFilePV(
		cfg.PrivValidatorKeyFile(),
		cfg.PrivValidatorStateFile(),
	)

	nodeKey, err := p2p.LoadNodeKey(cfg.NodeKeyFile())
	if err != nil {
		log.Fatalf("failed to load node's key: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(cfg.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	// cometbft's instrumentation server exposes the default registry
	m := metrics.New(prometheus.DefaultRegisterer, cfg.App.MetricsNamespace)
	daoApp, err := app.NewDAOApp(cfg.App, logger, m)
	if err != nil {
		log.Fatalf("new app err: %v", err)
	}

	node, err := nm.NewNode(
		cfg.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(daoApp),
		nm.DefaultGenesisDocProviderFunc(cfg.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(cfg.Instrumentation),
		logger,
	)
	if err != nil {
		log.Fatalf("creating node: %v", err)
	}

	daoApp.Start(node.BlockStore())
	if err = node.Start(); err != nil {
		log.Fatalf("start comet node err %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	if cfg.App.IndexerEnabled {
		if err := startIndexer(ctx, cfg, logger); err != nil {
			log.Fatalf("start indexer err %s", err.Error())
		}
	}

	defer func() {
		log.Println("shut down...")
		cancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := node.Stop(); err != nil {
				log.Printf("stop comet node err %s", err.Error())
			}
			node.Wait()
			daoApp.Stop()
		}()
		timer := time.NewTimer(time.Second * 10)
		select {
		case <-timer.C:
			os.Exit(1)
		case <-done:
			return
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// startIndexer follows the local node over rpc and serves the read api.
func startIndexer(ctx context.Context, cfg *config.Config, logger cmtlog.Logger) error {
	rpcUrl, err := url.Parse(cfg.RPC.ListenAddress)
	if err != nil {
		return fmt.Errorf("parse rpc address: %w", err)
	}
	rpcUrl.Scheme = "http"
	cli, err := indexer.Dial(rpcUrl.String())
	if err != nil {
		return err
	}
	db, err := indexer.OpenDB(cfg.App.IndexerPath())
	if err != nil {
		return fmt.Errorf("open indexer db: %w", err)
	}
	idx, err := indexer.NewChainIndexer(logger, db, rpcUrl.String(), cli)
	if err != nil {
		db.Close()
		return err
	}
	go func() {
		idx.Start(ctx)
		db.Close()
	}()
	srv := indexer.NewService(cfg.App.APIListen, idx)
	go func() {
		if err := srv.Start(ctx); err != nil {
			logger.Error("indexer api stopped", "err", err)
		}
	}()
	return nil
}
