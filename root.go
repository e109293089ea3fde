package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "HTTP gateway for the separator's OPC UA speed controls",
	Long: `gateway exposes the belt, drum and feeder speeds of the separator's PLC
over HTTP, keeps one OPC UA session alive and can watch the belt speed for
changes.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
}
