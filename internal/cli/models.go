package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/syntor/forge/pkg/inference"
	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/setup"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect inference providers and models",
	Long: `Inspect the models FORGE knows about and the providers behind them.

Commands:
  list    - List known models
  status  - Check which providers are reachable`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list [provider]",
	Short: "List known models",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := ""
		if len(args) == 1 {
			provider = args[0]
		}
		return listModels(cmd.OutOrStdout(), provider)
	},
}

var modelsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show provider availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showModelStatus(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsStatusCmd)
}

func listModels(out io.Writer, provider string) error {
	all := inference.AvailableModels
	if provider != "" {
		all = inference.GetModelsByProvider(provider)
		if len(all) == 0 {
			return fmt.Errorf("no models known for provider %q", provider)
		}
	}

	selected := forgeConfig.Inference.ModelID()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPROVIDER\tCONTEXT\tSELECTED\tDESCRIPTION")
	fmt.Fprintln(w, "-----\t--------\t-------\t--------\t-----------")

	for _, m := range all {
		ctxSize := "-"
		if m.Context > 0 {
			ctxSize = fmt.Sprintf("%dk", m.Context/1000)
		}
		mark := ""
		if m.ID == selected && m.Provider == forgeConfig.Inference.Provider {
			mark = "*"
		}
		desc := m.Description
		if len(desc) > 40 {
			desc = desc[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Provider, ctxSize, mark, desc)
	}
	return w.Flush()
}

func showModelStatus(parent context.Context, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	registry, err := setup.InitializeInference(&forgeConfig.Inference, logging.NewNop())
	if err != nil {
		return fmt.Errorf("failed to initialize inference: %w", err)
	}

	health := registry.CheckProviderHealth(ctx)
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "=== Providers ===")
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tDEFAULT MODEL\tSTATUS")
	fmt.Fprintln(w, "--------\t-------------\t------")
	for _, name := range names {
		status := "ready"
		if !health[name] {
			status = "unavailable"
			if p, ok := registry.GetProvider(name); ok && p.RequiresCredential() {
				status = "no credential"
			}
		}
		label := name
		if name == forgeConfig.Inference.Provider {
			label += " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", label, inference.DefaultModels[name], status)
	}
	w.Flush()

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Selected provider:", forgeConfig.Inference.Provider)
	fmt.Fprintln(out, "Selected model:   ", registry.GetDefaultModel())

	if err := setup.QuickCheck(ctx, registry); err != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Warning:", err)
	}
	return nil
}
