package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/calehh/hac-dao/crypto"
	"github.com/calehh/hac-dao/governance"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	"github.com/spf13/cobra"
)

type proposeArguments struct {
	Url    string
	Key    string
	Output string
	actionArguments
}

var proposeArgs proposeArguments

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Submit a proposal",
	Long: `Submit a proposal made of one or more actions. Each action is a
--target with an optional --value and --calldata at the same position.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return proposeArgs.run(cmd.Context())
	},
}

func (a *proposeArguments) run(ctx context.Context) error {
	targets, values, calldatas, err := a.actions()
	if err != nil {
		return err
	}
	key, err := crypto.LoadKeyFile(a.Key)
	if err != nil {
		return err
	}
	cli, err := newClient(ctx, a.Url)
	if err != nil {
		return err
	}
	res, err := cli.broadcast(ctx, key, tx.DAOTxTypePropose, &tx.ProposeTx{
		Targets:     targets,
		Values:      values,
		Calldatas:   calldatas,
		Description: a.Description,
	})
	if err != nil {
		return err
	}
	res["proposalId"] = governance.HashProposal(targets, values, tx.RawBytesList(calldatas), governance.HashDescription(a.Description)).Hex()
	return printOut(a.Output, res)
}

type voteArguments struct {
	Url     string
	Key     string
	Output  string
	Id      string
	Support string
	Reason  string
}

var voteArgs voteArguments

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Cast a vote on an active proposal",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return voteArgs.run(cmd.Context())
	},
}

func parseSupport(s string) (types.VoteType, error) {
	for _, v := range []types.VoteType{types.VoteAgainst, types.VoteFor, types.VoteAbstain} {
		if strings.EqualFold(v.String(), s) {
			return v, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || !types.VoteType(n).Valid() {
		return 0, fmt.Errorf("invalid support %q, want for, against or abstain", s)
	}
	return types.VoteType(n), nil
}

func (a *voteArguments) run(ctx context.Context) error {
	id, err := parseHash(a.Id)
	if err != nil {
		return err
	}
	support, err := parseSupport(a.Support)
	if err != nil {
		return err
	}
	key, err := crypto.LoadKeyFile(a.Key)
	if err != nil {
		return err
	}
	cli, err := newClient(ctx, a.Url)
	if err != nil {
		return err
	}
	res, err := cli.broadcast(ctx, key, tx.DAOTxTypeCastVote, &tx.CastVoteTx{
		ProposalId: id,
		Support:    uint8(support),
		Reason:     a.Reason,
	})
	if err != nil {
		return err
	}
	return printOut(a.Output, res)
}

// lifecycleArguments drive queue, execute and cancel, which all name the
// proposal by its actions and description hash.
type lifecycleArguments struct {
	Url             string
	Key             string
	Output          string
	DescriptionHash string
	Indexer         string
	Id              string
	actionArguments
}

// fromIndexer fills the actions and description of --id from the indexer api.
func (a *lifecycleArguments) fromIndexer(ctx context.Context) error {
	if len(a.Targets) > 0 || a.DescriptionHash != "" {
		return fmt.Errorf("--id replaces --target and --description-hash")
	}
	id, err := parseHash(a.Id)
	if err != nil {
		return err
	}
	p, err := fetchProposal(ctx, a.Indexer, id.Hex())
	if err != nil {
		return err
	}
	for _, act := range p.Actions {
		a.Targets = append(a.Targets, act.Target)
		a.Values = append(a.Values, act.Value)
		a.Calldatas = append(a.Calldatas, act.Calldata)
	}
	a.Description = p.Proposal.Description
	return nil
}

func (a *lifecycleArguments) body() (*tx.ProposalActionTx, error) {
	targets, values, calldatas, err := a.actions()
	if err != nil {
		return nil, err
	}
	descHash := governance.HashDescription(a.Description)
	if a.DescriptionHash != "" {
		if a.Description != "" {
			return nil, fmt.Errorf("--description and --description-hash are exclusive")
		}
		if descHash, err = parseHash(a.DescriptionHash); err != nil {
			return nil, err
		}
	}
	return &tx.ProposalActionTx{
		Targets:         targets,
		Values:          values,
		Calldatas:       calldatas,
		DescriptionHash: descHash,
	}, nil
}

func (a *lifecycleArguments) run(ctx context.Context, tp tx.DAOTxType) error {
	if a.Id != "" {
		if err := a.fromIndexer(ctx); err != nil {
			return err
		}
	}
	body, err := a.body()
	if err != nil {
		return err
	}
	id := governance.HashProposal(body.Targets, body.Values, tx.RawBytesList(body.Calldatas), body.DescriptionHash)
	if a.Id != "" && !strings.EqualFold(id.Hex(), a.Id) {
		return fmt.Errorf("indexed actions hash to %s, not %s", id.Hex(), a.Id)
	}
	key, err := crypto.LoadKeyFile(a.Key)
	if err != nil {
		return err
	}
	cli, err := newClient(ctx, a.Url)
	if err != nil {
		return err
	}
	res, err := cli.broadcast(ctx, key, tp, body)
	if err != nil {
		return err
	}
	res["proposalId"] = id.Hex()
	return printOut(a.Output, res)
}

func lifecycleCmd(use, short string, tp tx.DAOTxType) *cobra.Command {
	a := &lifecycleArguments{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), tp)
		},
	}
	urlFlag(cmd, &a.Url)
	keyFlag(cmd, &a.Key)
	outputFlag(cmd, &a.Output)
	actionFlags(cmd, &a.actionArguments)
	cmd.Flags().StringVar(&a.DescriptionHash, "description-hash", "", "keccak256 of the description, instead of --description")
	cmd.Flags().StringVar(&a.Id, "id", "", "proposal id, actions are read from the indexer")
	cmd.Flags().StringVar(&a.Indexer, "indexer", "http://127.0.0.1:8080", "indexer api url used with --id")
	return cmd
}

var (
	queueCmd   = lifecycleCmd("queue", "Queue a succeeded proposal in the timelock", tx.DAOTxTypeQueue)
	executeCmd = lifecycleCmd("execute", "Execute a queued proposal once its delay elapsed", tx.DAOTxTypeExecute)
	cancelCmd  = lifecycleCmd("cancel", "Cancel a proposal", tx.DAOTxTypeCancel)
)

func init() {
	urlFlag(proposeCmd, &proposeArgs.Url)
	keyFlag(proposeCmd, &proposeArgs.Key)
	outputFlag(proposeCmd, &proposeArgs.Output)
	actionFlags(proposeCmd, &proposeArgs.actionArguments)

	urlFlag(voteCmd, &voteArgs.Url)
	keyFlag(voteCmd, &voteArgs.Key)
	outputFlag(voteCmd, &voteArgs.Output)
	voteCmd.Flags().StringVar(&voteArgs.Id, "id", "", "proposal id")
	voteCmd.Flags().StringVarP(&voteArgs.Support, "support", "s", "for", "for, against or abstain")
	voteCmd.Flags().StringVar(&voteArgs.Reason, "reason", "", "optional reason")
	voteCmd.MarkFlagRequired("id") //nolint:errcheck
}
