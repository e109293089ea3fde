package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neekaru/opcua-gateway/internal/app"
	"github.com/neekaru/opcua-gateway/internal/config"
	"github.com/neekaru/opcua-gateway/internal/opcua"
	"github.com/neekaru/opcua-gateway/internal/remote"
	"github.com/neekaru/opcua-gateway/internal/server"
	"github.com/neekaru/opcua-gateway/pkg/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.ServerPort, _ = cmd.Flags().GetString("port")
		}
		if cmd.Flags().Changed("simulate") {
			cfg.Simulate, _ = cmd.Flags().GetBool("simulate")
		}
		return serve(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8000", "Port to listen on")
	serveCmd.Flags().Bool("simulate", false, "Use an in-memory controller instead of OPC UA")
}

func serve(cfg *config.Config) error {
	log, err := logger.SetupLogging(cfg.LogDir)
	if err != nil {
		log = logger.SetupFallbackLogger()
	}
	defer logger.CloseLogger()

	table, err := cfg.Table()
	if err != nil {
		return err
	}

	var service remote.Service
	if cfg.Simulate {
		log.Printf("Simulating the controller in memory")
		service = app.NewSimulator(table)
	} else {
		service = opcua.NewClient(cfg.OPCUA.Endpoint, opcuaOptions(cfg), log)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.NewApp(ctx, cfg, log, service)
	if err != nil {
		return err
	}
	log.Printf("Starting gateway for %s", cfg.OPCUA.Endpoint)
	a.Connect(ctx)

	srv := server.NewServer(a, cfg)
	srv.SetupRoutes()
	serverErrors := srv.Start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case err, ok := <-serverErrors:
		if ok {
			runErr = fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Printf("Start shutdown... Signal: %v", sig)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
	a.Close(shutdownCtx)
	log.Println("Gateway stopped")
	return runErr
}

func opcuaOptions(cfg *config.Config) opcua.Options {
	opts := opcua.DefaultOptions()
	if cfg.OPCUA.RequestTimeout > 0 {
		opts.RequestTimeout = cfg.OPCUA.RequestTimeout
	}
	if cfg.OPCUA.DialTimeout > 0 {
		opts.DialTimeout = cfg.OPCUA.DialTimeout
	}
	if cfg.OPCUA.FloatEncoding != "" {
		opts.Encoding = opcua.FloatEncoding(cfg.OPCUA.FloatEncoding)
	}
	return opts
}
