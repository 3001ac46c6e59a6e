package main

import (
	"fmt"
	"os"

	cmd "github.com/mosaicnetworks/ledgersim/src/cmd/ledgersim/command"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.NewRunCmd(),
		cmd.NewKeygenCmd(),
		cmd.NewClientCmd(),
		cmd.VersionCmd,
	)

	// Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
