package main

import (
	"context"
	"os"

	"github.com/neekaru/opcua-gateway/internal/config"
	"github.com/neekaru/opcua-gateway/internal/opcua"
	"github.com/spf13/cobra"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "List the children of the server's Objects folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if endpoint, _ := cmd.Flags().GetString("endpoint"); endpoint != "" {
			cfg.OPCUA.Endpoint = endpoint
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.OPCUA.DialTimeout+cfg.OPCUA.RequestTimeout)
		defer cancel()
		return opcua.Browse(ctx, cfg.OPCUA.Endpoint, opcuaOptions(cfg), os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().String("endpoint", "", "OPC UA endpoint, overrides the configured one")
}
