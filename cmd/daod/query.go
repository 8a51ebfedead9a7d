package main

import (
	"context"
	"encoding/binary"

	"github.com/calehh/hac-dao/app"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var queryArgs struct {
	Url    string
	Output string
	Height uint64
	Asset  string
}

var queryCmd = &cobra.Command{
	Use:     "query",
	Short:   "Read committed governance state",
	Aliases: []string{"q"},
}

// queryRun fetches path with data from the node and prints the decoded v.
func queryRun(ctx context.Context, path string, data []byte, v any) error {
	cli, err := newClient(ctx, queryArgs.Url)
	if err != nil {
		return err
	}
	if err := cli.query(ctx, path, data, v); err != nil {
		return err
	}
	return printOut(queryArgs.Output, v)
}

var queryProposalCmd = &cobra.Command{
	Use:   "proposal [id]",
	Short: "Show one proposal, or all of them without an id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			var all []*types.ProposalView
			return queryRun(cmd.Context(), "/proposal/", nil, &all)
		}
		id, err := parseHash(args[0])
		if err != nil {
			return err
		}
		return queryRun(cmd.Context(), "/proposal/", id.Bytes(), &types.ProposalView{})
	},
}

// stateCmd is the short form of query proposal for one id.
var stateCmd = &cobra.Command{
	Use:   "state <id>",
	Short: "Show the lifecycle state and tally of a proposal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseHash(args[0])
		if err != nil {
			return err
		}
		return queryRun(cmd.Context(), "/proposal/", id.Bytes(), &types.ProposalView{})
	},
}

var queryReceiptCmd = &cobra.Command{
	Use:   "receipt <id> <voter>",
	Short: "Show the ballot of a voter on a proposal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseHash(args[0])
		if err != nil {
			return err
		}
		voter, err := parseAddress(args[1])
		if err != nil {
			return err
		}
		return queryRun(cmd.Context(), "/receipt/", append(id.Bytes(), voter.Bytes()...), &types.ReceiptView{})
	},
}

var queryVotesCmd = &cobra.Command{
	Use:   "votes <address>",
	Short: "Show the voting power of an account, now or at --height",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		data := addr.Bytes()
		if queryArgs.Height > 0 {
			data = binary.BigEndian.AppendUint64(data, queryArgs.Height)
		}
		return queryRun(cmd.Context(), "/votes/", data, &app.VotesView{})
	},
}

var queryBalanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Show the native and governance token holdings of an account, or one --asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		data := addr.Bytes()
		if queryArgs.Asset != "" {
			asset, err := parseAddress(queryArgs.Asset)
			if err != nil {
				return err
			}
			data = append(data, asset.Bytes()...)
		}
		return queryRun(cmd.Context(), "/balance/", data, &app.HolderView{})
	},
}

var queryOperationCmd = &cobra.Command{
	Use:   "operation <id>",
	Short: "Show a timelock operation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseHash(args[0])
		if err != nil {
			return err
		}
		return queryRun(cmd.Context(), "/operation/", id.Bytes(), &app.OperationView{})
	},
}

var queryParamsCmd = &cobra.Command{
	Use:   "params",
	Short: "Show governor and timelock parameters",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return queryRun(cmd.Context(), "/params/", nil, &app.ParamsView{})
	},
}

var queryDeploymentCmd = &cobra.Command{
	Use:   "deployment",
	Short: "Show the contract addresses of the organization",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return queryRun(cmd.Context(), "/deployment/", nil, &app.DeploymentView{})
	},
}

var queryCallCmd = &cobra.Command{
	Use:   "call <to> <calldata>",
	Short: "Run a constant contract method and print the abi encoded result",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		input, err := hexutil.Decode(args[1])
		if err != nil {
			return err
		}
		cli, err := newClient(cmd.Context(), queryArgs.Url)
		if err != nil {
			return err
		}
		var out []byte
		if err := cli.query(cmd.Context(), "/call/", append(to.Bytes(), input...), &out); err != nil {
			return err
		}
		return printOut(queryArgs.Output, map[string]string{"result": hexutil.Encode(out)})
	},
}

func init() {
	urlFlag(stateCmd, &queryArgs.Url)
	outputFlag(stateCmd, &queryArgs.Output)
	queryCmd.PersistentFlags().StringVarP(&queryArgs.Url, "url", "u", "http://127.0.0.1:26657", "daod rpc url")
	queryCmd.PersistentFlags().StringVarP(&queryArgs.Output, "output", "o", outputJSON, "output format, json or yaml")
	queryVotesCmd.Flags().Uint64Var(&queryArgs.Height, "height", 0, "past block height")
	queryBalanceCmd.Flags().StringVar(&queryArgs.Asset, "asset", "", "erc20 or erc721 contract")
	queryCmd.AddCommand(
		queryProposalCmd,
		queryReceiptCmd,
		queryVotesCmd,
		queryBalanceCmd,
		queryOperationCmd,
		queryParamsCmd,
		queryDeploymentCmd,
		queryCallCmd,
	)
}
