package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/syntor/forge/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage FORGE configuration",
	Long: `View and edit FORGE configuration.

Commands:
  show    - Display the effective configuration
  init    - Write a default configuration file
  edit    - Open the global configuration in an editor
  reset   - Reset the global configuration to defaults
  path    - Show configuration file paths
  set     - Set a single value in the global configuration`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration (credentials masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(cmd.OutOrStdout(), forgeConfig)
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration in your editor",
	Long: `Open the global configuration file in your default editor.

Set your editor with the EDITOR environment variable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return editConfig()
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset configuration to defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return resetConfig(cmd.OutOrStdout(), config.GlobalConfigPath())
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the default configuration to the global config file.

An existing file is kept unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.OutOrStdout(), config.GlobalConfigPath(), configInitForce)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfigPaths(cmd.OutOrStdout())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a value in the global configuration file.

Keys:
  provider           - Inference provider (gemini, anthropic, deepseek, ollama)
  model              - Model override for the provider
  gemini_api_key     - Gemini API key
  anthropic_api_key  - Anthropic API key
  deepseek_api_key   - DeepSeek API key
  ollama_host        - Ollama API endpoint
  max_attempts       - Gateway attempts per call (1 disables retry)
  mode               - Default mode (website, chatbot, prompt-refiner)
  bot_language       - Default bot language (javascript, python)
  step_delay         - Pause between agents (e.g. 600ms)
  clarify            - Ask clarifying questions for websites (true/false)
  export_dir         - Default export directory
  log_level          - Log level (debug, info, warn, error)

Examples:
  forge config set provider anthropic
  forge config set step_delay 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setConfigValue(cmd.OutOrStdout(), config.GlobalConfigPath(), args[0], args[1])
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configResetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
}

func showConfig(out io.Writer, cfg *config.ForgeConfig) error {
	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(out, "# FORGE Configuration")
	fmt.Fprintln(out, "# Location:", config.GlobalConfigPath())
	fmt.Fprintln(out)
	fmt.Fprint(out, string(data))
	return nil
}

func editConfig() error {
	configPath := config.GlobalConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaults := config.DefaultForgeConfig()
		if err := defaults.Save(configPath); err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vim"
	}

	cmd := exec.Command(editor, configPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func initConfig(out io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	return resetConfig(out, path)
}

func resetConfig(out io.Writer, path string) error {
	defaults := config.DefaultForgeConfig()
	if err := defaults.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintln(out, "Configuration reset to defaults")
	fmt.Fprintln(out, "Saved to:", path)
	return nil
}

func showConfigPaths(out io.Writer) error {
	globalDir, projectDir := config.ConfigPaths()

	fmt.Fprintln(out, "Configuration Paths:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Global config directory:", globalDir)
	fmt.Fprintln(out, "Global config file:     ", config.GlobalConfigPath())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Project config directory:", projectDir)
	fmt.Fprintln(out, "Project config file:     ", config.ProjectConfigPath())
	fmt.Fprintln(out)
	fmt.Fprintln(out, "The project config (if present) overrides global settings;")
	fmt.Fprintln(out, "environment variables override both.")

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Status:")
	for _, p := range []struct{ name, path string }{
		{"Global config", config.GlobalConfigPath()},
		{"Project config", config.ProjectConfigPath()},
	} {
		status := "not found"
		if _, err := os.Stat(p.path); err == nil {
			status = "exists"
		}
		fmt.Fprintf(out, "  %s: %s\n", p.name, status)
	}
	return nil
}

// setConfigValue edits the file at path only, so values coming from the
// environment or the project file are never written back
func setConfigValue(out io.Writer, path, key, value string) error {
	cfg, err := loadFileOnly(path)
	if err != nil {
		return err
	}

	switch key {
	case "provider":
		cfg.Inference.Provider = value
	case "model":
		cfg.Inference.Model = value
	case "gemini_api_key":
		cfg.Inference.GeminiAPIKey = value
	case "anthropic_api_key":
		cfg.Inference.AnthropicAPIKey = value
	case "deepseek_api_key":
		cfg.Inference.DeepSeekAPIKey = value
	case "ollama_host":
		cfg.Inference.OllamaHost = value
	case "max_attempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_attempts: %w", err)
		}
		cfg.Inference.MaxAttempts = n
	case "mode":
		cfg.Pipeline.Mode = value
	case "bot_language":
		cfg.Pipeline.BotLanguage = value
	case "step_delay":
		d, err := parseDuration(value)
		if err != nil {
			return fmt.Errorf("step_delay: %w", err)
		}
		cfg.Pipeline.StepDelay = d
	case "clarify":
		cfg.Pipeline.Clarify = value == "true" || value == "1" || value == "yes"
	case "export_dir":
		cfg.Pipeline.ExportDir = value
	case "log_level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(out, "Set %s\n", key)
	fmt.Fprintln(out, "Configuration saved to:", path)
	return nil
}

func loadFileOnly(path string) (*config.ForgeConfig, error) {
	cfg := config.DefaultForgeConfig()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return &cfg, nil
}

func parseDuration(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}
