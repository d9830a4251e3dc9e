// Package commands provides the CLI commands for lazyrpc.
package commands

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	lazyrpc "github.com/telnet2/go-lazyrpc"
	"github.com/telnet2/go-lazyrpc/internal/config"
	"github.com/telnet2/go-lazyrpc/internal/logging"
	"github.com/telnet2/go-lazyrpc/pkg/wsrpc"
)

// Version information set at build time
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	endpoint   string
	logLevel   string
	prettyLogs bool
)

// cfg is resolved once in the persistent pre-run.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "lazyrpc",
	Short: "lazyrpc - lazy JSON-RPC provider proxy over WebSocket",
	Long: `lazyrpc talks to a JSON-RPC WebSocket endpoint through a
deferred-initialization proxy: the connection is dialed on first use,
and event listeners registered beforehand survive onto it.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err = config.Load(wd)
		if err != nil {
			return err
		}

		// Flags beat file and environment.
		if endpoint != "" {
			cfg.Endpoint = endpoint
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("pretty-logs") {
			cfg.PrettyLogs = prettyLogs
		}

		logging.Init(logging.Config{
			Level:  logging.ParseLevel(cfg.LogLevel),
			Pretty: cfg.PrettyLogs,
		})
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "WebSocket JSON-RPC endpoint URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty-logs", false, "Human-readable log output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("lazyrpc %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(listenCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newProxy builds a lazy proxy over the configured endpoint. Nothing is
// dialed until the first call or Warm.
func newProxy() (*lazyrpc.LazyProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("no endpoint configured (use --endpoint, lazyrpc.jsonc, or LAZYRPC_ENDPOINT)")
	}

	opts := []wsrpc.Option{wsrpc.WithLogger(logging.Component("wsrpc"))}
	if cfg.DialTimeoutMS > 0 {
		opts = append(opts, wsrpc.WithDialer(&websocket.Dialer{HandshakeTimeout: cfg.DialTimeout()}))
	}
	if len(cfg.Headers) > 0 {
		header := make(http.Header, len(cfg.Headers))
		for k, v := range cfg.Headers {
			header.Set(k, v)
		}
		opts = append(opts, wsrpc.WithHeader(header))
	}

	factory := wsrpc.Factory(cfg.Endpoint, opts...)
	return lazyrpc.New(factory, lazyrpc.WithLogger(logging.Component("proxy"))), nil
}
