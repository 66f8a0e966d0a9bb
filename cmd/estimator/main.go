package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/internal/config"
	"github.com/standardbeagle/estimator/internal/logging"
)

var (
	// Version is set at build time
	Version = "dev"

	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "estimator",
	Short: "Build flooring and fit-out estimates from the terminal",
	Long: `Estimator keeps customer estimates made of rooms and the products placed in them.

Basic Usage:
  estimator                     # Browse the catalog and add products to estimates
  estimator --list              # Open straight onto the estimates list
  estimator serve               # Serve the estimates over HTTP
  estimator estimates           # Print every estimate as a table
  estimator config init         # Write the default config to ~/.estimator/config.toml

Backends:
  [backend] driver = "local"    # Estimates stored by this process ([storage] section)
  [backend] driver = "remote"   # Estimates owned by an 'estimator serve' instance

MCP:
  estimator --mcp               # Let MCP clients drive the modal (see [mcp] addr)`,
	Args:          cobra.NoArgs,
	RunE:          runTUI,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.estimator/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level")

	rootCmd.Flags().BoolVar(&openList, "list", false, "Open the estimates list on start")
	rootCmd.Flags().StringVar(&openProduct, "product", "", "Start adding this product on start")
	rootCmd.Flags().StringVar(&postcode, "postcode", "", "Customer postcode for new estimates")
	rootCmd.Flags().BoolVar(&withMCP, "mcp", false, "Serve MCP tools that drive the modal (overrides mcp.enabled)")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(serveCmd, estimatesCmd, configCmd, versionCmd)
	rootCmd.Version = Version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config and builds the logger. toFile keeps log output
// off the terminal while the UI owns it.
func setup(toFile bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger, err := logging.New(cfg.Logging, toFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "estimator version %s\n", Version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}
