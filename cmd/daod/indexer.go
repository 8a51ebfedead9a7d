package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/calehh/hac-dao/indexer"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"
)

type indexerArguments struct {
	Url      string
	DB       string
	Listen   string
	LogLevel string
}

var indexerArgs indexerArguments

var indexerCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Index governance events of a remote node and serve the query api",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return indexerArgs.run()
	},
}

func (a *indexerArguments) run() error {
	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err := cmtflags.ParseLogLevel(a.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	cli, err := indexer.Dial(a.Url)
	if err != nil {
		return err
	}
	db, err := indexer.OpenDB(a.DB)
	if err != nil {
		return fmt.Errorf("open indexer db: %w", err)
	}
	defer db.Close()
	idx, err := indexer.NewChainIndexer(logger, db, a.Url, cli)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go idx.Start(ctx)
	logger.Info("indexer api", "listen", a.Listen, "from", idx.Height)
	return indexer.NewService(a.Listen, idx).Start(ctx)
}

// fetchProposal reads the indexed actions and description of a proposal.
func fetchProposal(ctx context.Context, api, id string) (*indexer.GetProposalResponse, error) {
	body, err := json.Marshal(indexer.GetProposalReq{ProposalId: id})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(api, "/")+"/getProposal", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer: proposal %s: %s", id, resp.Status)
	}
	var res indexer.GetProposalResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

func init() {
	indexerCmd.Flags().StringVarP(&indexerArgs.Url, "url", "u", "http://127.0.0.1:26657", "daod rpc url")
	indexerCmd.Flags().StringVar(&indexerArgs.DB, "db", "./indexer.db", "sqlite database path")
	indexerCmd.Flags().StringVar(&indexerArgs.Listen, "listen", "127.0.0.1:8080", "api listen address")
	indexerCmd.Flags().StringVar(&indexerArgs.LogLevel, "log-level", cmtconfig.DefaultLogLevel, "log level")
}
