package main

import (
	"fmt"
	"os"

	"github.com/rostra-network/rostra/internal/config"
	"github.com/rostra-network/rostra/internal/rlog"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rostra",
	Short: "Rostra - peer-to-peer social event graph node",
	Long: `Rostra stores and propagates a signed, content-addressed event
graph: posts, follows, unfollows, and profile updates, replicated
peer-to-peer between nodes that follow each other.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("rostra version %s\ncommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("data-dir", "./data", "Data directory")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().Bool("dev", false, "Shorten intervals for local iteration")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(idCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(unfollowCmd)
	rootCmd.AddCommand(postCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	rlog.Init(rlog.Config{
		Level:      rlog.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// loadConfig builds a Config from --config (if given) and the persistent
// --data-dir/--dev flags, the flags taking precedence over file values.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	var cfg config.Config
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return config.Config{}, err
		}
	} else {
		cfg = config.Defaults()
	}

	if cmd.Flags().Changed("data-dir") || cfgPath == "" {
		if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
			cfg.DataDir = dataDir
		}
	}
	if dev, _ := cmd.Flags().GetBool("dev"); dev {
		cfg.DevMode = true
	}
	return cfg, nil
}
