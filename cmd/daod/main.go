package main

import (
	"fmt"
	"os"
)

func main() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(showValidatorCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(delegateCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(proposeCmd)
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(executeCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(indexerCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
