// Package main is the entrydex CLI: the REST server plus export and import
// tools sharing one configuration file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entrydex/internal/config"
	logpkg "github.com/kailas-cloud/entrydex/internal/logger"
)

// rootCmd is the base command for the entrydex CLI.
var rootCmd = &cobra.Command{
	Use:   "entrydex",
	Short: "Search and render form entries through configured views",
	Long: `entrydex serves form entries through views: configured field lists with a
search bar, rendered as HTML, JSON, CSV or TSV.

serve starts the REST server, export streams a view to stdout, import loads
entries into the Redis store and builds the search index.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "environment name, selects config/<env>.yaml (default: $ENV or local)")
	rootCmd.PersistentFlags().String("config", "", "explicit config file path (overrides --env)")
}

// loadConfig resolves the config file from --config, then --env, then $ENV.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	env, _ := cmd.Flags().GetString("env")
	if env == "" {
		env = config.GetEnv()
	}
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, env, fmt.Errorf("load config: %w", err)
	}
	return cfg, env, nil
}

// newLogger builds the process logger. CLI tools log to stderr so stdout
// stays free for exported data.
func newLogger(env string, cfg config.Config) (*zap.Logger, error) {
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
