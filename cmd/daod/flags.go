package main

import (
	"github.com/spf13/cobra"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, "url", "u", "http://127.0.0.1:26657", "daod rpc url")
}

func keyFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "key", "k", "./member.key", "account key file")
}

func outputFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "output", "o", outputJSON, "output format, json or yaml")
}

// actionArguments names a proposal by its action set.
type actionArguments struct {
	Targets     []string
	Values      []string
	Calldatas   []string
	Description string
}

func actionFlags(cmd *cobra.Command, a *actionArguments) {
	cmd.Flags().StringSliceVarP(&a.Targets, "target", "t", nil, "target address, repeat per action")
	cmd.Flags().StringSliceVarP(&a.Values, "value", "v", nil, "native value per action, defaults to 0")
	cmd.Flags().StringSliceVarP(&a.Calldatas, "calldata", "c", nil, "hex calldata per action")
	cmd.Flags().StringVar(&a.Description, "description", "", "proposal description")
}
