package main

import (
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the persistent geocode cache",
}

func init() {
	rootCmd.AddCommand(cacheCmd)
}
