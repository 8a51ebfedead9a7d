package main

import (
	"github.com/calehh/hac-dao/crypto"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

type keyInfo struct {
	Address string `json:"address" yaml:"address"`
	File    string `json:"file" yaml:"file"`
}

type keysArguments struct {
	Key    string
	Output string
}

var keysArgs keysArguments

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage account keys",
}

var keysNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate an account key file",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.NewKeyFile(keysArgs.Key)
		if err != nil {
			return err
		}
		return printOut(keysArgs.Output, keyInfo{Address: crypto.Address(key).Hex(), File: keysArgs.Key})
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the address of an account key file",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.LoadKeyFile(keysArgs.Key)
		if err != nil {
			return err
		}
		return printOut(keysArgs.Output, keyInfo{Address: crypto.Address(key).Hex(), File: keysArgs.Key})
	},
}

type validatorInfo struct {
	Address string `json:"address" yaml:"address"`
	PubKey  string `json:"pub_key" yaml:"pub_key"`
}

var validatorArgs struct {
	File   string
	Output string
}

var showValidatorCmd = &cobra.Command{
	Use:   "show-validator",
	Short: "Print the consensus key of this node",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		pv, err := crypto.LoadFilePV(validatorArgs.File)
		if err != nil {
			return err
		}
		return printOut(validatorArgs.Output, validatorInfo{
			Address: pv.Address(),
			PubKey:  hexutil.Encode(pv.PublicKey()),
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{keysNewCmd, keysShowCmd} {
		keyFlag(c, &keysArgs.Key)
		outputFlag(c, &keysArgs.Output)
	}
	keysCmd.AddCommand(keysNewCmd, keysShowCmd)

	showValidatorCmd.Flags().StringVarP(&validatorArgs.File, "file", "f", "./config/priv_validator_key.json", "priv_validator_key.json path")
	outputFlag(showValidatorCmd, &validatorArgs.Output)
}
