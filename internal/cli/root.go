package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syntor/forge/internal/cli/tui"
	"github.com/syntor/forge/pkg/config"
)

var (
	// Version information (set by build)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// Global flags
	cfgFile string
	verbose bool

	// Global config
	forgeConfig *config.ForgeConfig
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "FORGE - Multi-Agent Content Generator",
	Long: `FORGE runs a fixed team of AI personas over one idea and turns the
result into a static website, a Telegram bot or a refined prompt.

Start the interactive workspace:
  forge

Run the pipeline headless:
  forge run --mode website --idea "a landing page for a bakery"
  forge run --mode chatbot --lang python --idea-file idea.txt --out ./bot

Inspect the team and the providers:
  forge profiles --mode chatbot
  forge models list
  forge models status`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		forgeConfig = cfg
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runInteractive()
		}
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.forge/config.yaml and ./.forge/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(eventsCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("FORGE %s\n", Version)
		fmt.Printf("Build: %s\n", BuildTime)
		fmt.Printf("Commit: %s\n", GitCommit)
	},
}

// runInteractive starts the full-screen workspace
func runInteractive() error {
	return tui.Run(forgeConfig, cfgFile, Version)
}
