package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"
	"github.com/xhad/copilot/pkg/config"
	"github.com/xhad/copilot/pkg/logging"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "copilot",
	Short: "Customer support copilot",
	Long: `Classifies support tickets and answers customer questions from the
product documentation, routing everything it should not answer to a human team.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	// a missing .env is fine
	_ = godotenv.Load()

	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}

	if errs := loaded.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s", e.Error())
		}
		return goerr.New("invalid configuration", goerr.V("errors", len(errs)))
	}

	logging.SetDefault(logging.New(os.Stderr, loaded.Log.Level, loaded.Log.Format))
	cfg = loaded
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
