package main

import (
	"context"

	"github.com/calehh/hac-dao/app"
	"github.com/calehh/hac-dao/crypto"
	"github.com/calehh/hac-dao/tx"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

type accountArguments struct {
	Url     string
	Address string
	Asset   string
	Output  string
}

var accountArgs accountArguments

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show nonce, native balance and voting power of an account",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return accountArgs.run(cmd.Context())
	},
}

func (a *accountArguments) run(ctx context.Context) error {
	addr, err := parseAddress(a.Address)
	if err != nil {
		return err
	}
	cli, err := newClient(ctx, a.Url)
	if err != nil {
		return err
	}
	act, err := cli.account(ctx, addr)
	if err != nil {
		return err
	}
	data := addr.Bytes()
	if a.Asset != "" {
		asset, err := parseAddress(a.Asset)
		if err != nil {
			return err
		}
		data = append(data, asset.Bytes()...)
	}
	var holder app.HolderView
	if err := cli.query(ctx, "/balance/", data, &holder); err != nil {
		return err
	}
	return printOut(a.Output, map[string]any{
		"account":  act,
		"holdings": holder,
	})
}

type transferArguments struct {
	Url    string
	Key    string
	Output string
	To     string
	Amount string
}

var transferArgs transferArguments

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Send native coin to an account or contract",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := &transferArgs
		to, err := parseAddress(a.To)
		if err != nil {
			return err
		}
		amount, err := parseAmount(a.Amount)
		if err != nil {
			return err
		}
		return sendTx(cmd.Context(), a.Url, a.Key, a.Output, tx.DAOTxTypeTransfer, &tx.TransferTx{To: to, Amount: amount})
	},
}

type delegateArguments struct {
	Url       string
	Key       string
	Output    string
	Delegatee string
}

var delegateArgs delegateArguments

var delegateCmd = &cobra.Command{
	Use:   "delegate",
	Short: "Delegate the voting power of the key's governance tokens",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := &delegateArgs
		delegatee, err := parseAddress(a.Delegatee)
		if err != nil {
			return err
		}
		return sendTx(cmd.Context(), a.Url, a.Key, a.Output, tx.DAOTxTypeDelegate, &tx.DelegateTx{Delegatee: delegatee})
	},
}

type callArguments struct {
	Url    string
	Key    string
	Output string
	To     string
	Value  string
	Data   string
}

var callArgs callArguments

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Call a contract method from the key's account",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := &callArgs
		to, err := parseAddress(a.To)
		if err != nil {
			return err
		}
		value, err := parseAmount(a.Value)
		if err != nil {
			return err
		}
		data, err := hexutil.Decode(a.Data)
		if err != nil {
			return err
		}
		return sendTx(cmd.Context(), a.Url, a.Key, a.Output, tx.DAOTxTypeCall, &tx.CallTx{To: to, Value: value, Data: data})
	},
}

func sendTx(ctx context.Context, url, keyFile, output string, tp tx.DAOTxType, body any) error {
	key, err := crypto.LoadKeyFile(keyFile)
	if err != nil {
		return err
	}
	cli, err := newClient(ctx, url)
	if err != nil {
		return err
	}
	res, err := cli.broadcast(ctx, key, tp, body)
	if err != nil {
		return err
	}
	return printOut(output, res)
}

func init() {
	urlFlag(accountCmd, &accountArgs.Url)
	outputFlag(accountCmd, &accountArgs.Output)
	accountCmd.Flags().StringVarP(&accountArgs.Address, "address", "a", "", "account address")
	accountCmd.Flags().StringVar(&accountArgs.Asset, "asset", "", "token or nft contract, the governance token when empty")
	accountCmd.MarkFlagRequired("address") //nolint:errcheck

	urlFlag(transferCmd, &transferArgs.Url)
	keyFlag(transferCmd, &transferArgs.Key)
	outputFlag(transferCmd, &transferArgs.Output)
	transferCmd.Flags().StringVar(&transferArgs.To, "to", "", "recipient address")
	transferCmd.Flags().StringVar(&transferArgs.Amount, "amount", "0", "native amount")
	transferCmd.MarkFlagRequired("to") //nolint:errcheck

	urlFlag(delegateCmd, &delegateArgs.Url)
	keyFlag(delegateCmd, &delegateArgs.Key)
	outputFlag(delegateCmd, &delegateArgs.Output)
	delegateCmd.Flags().StringVar(&delegateArgs.Delegatee, "to", "", "delegatee address, the key itself to self-delegate")
	delegateCmd.MarkFlagRequired("to") //nolint:errcheck

	urlFlag(callCmd, &callArgs.Url)
	keyFlag(callCmd, &callArgs.Key)
	outputFlag(callCmd, &callArgs.Output)
	callCmd.Flags().StringVar(&callArgs.To, "to", "", "contract address")
	callCmd.Flags().StringVar(&callArgs.Value, "value", "0", "native value sent with the call")
	callCmd.Flags().StringVar(&callArgs.Data, "data", "0x", "hex calldata")
	callCmd.MarkFlagRequired("to") //nolint:errcheck
}
