package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/syntor/forge/pkg/events"
	"github.com/syntor/forge/pkg/logging"
)

var (
	eventsFromStart  bool
	eventsJSON       bool
	eventsRunID      string
	eventsPartitions int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow pipeline events on Kafka",
	Long: `Work with the pipeline event stream.

Sessions publish to events.topic when events.enabled is set or
FORGE_KAFKA_BROKERS is exported.

Commands:
  tail    - Print events as they arrive
  init    - Create the events topic`,
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print pipeline events as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return tailEvents(ctx, cmd.OutOrStdout())
	},
}

var eventsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the events topic if it is missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := events.EnsureTopic(cmd.Context(), eventsKafkaConfig(), eventsPartitions); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Topic %s is ready\n", forgeConfig.Events.Topic)
		return nil
	},
}

func init() {
	eventsTailCmd.Flags().BoolVar(&eventsFromStart, "from-start", false, "read the topic from the oldest event")
	eventsTailCmd.Flags().BoolVar(&eventsJSON, "json", false, "print raw JSON events")
	eventsTailCmd.Flags().StringVar(&eventsRunID, "run", "", "only show events of this run")
	eventsInitCmd.Flags().IntVar(&eventsPartitions, "partitions", 3, "number of partitions")

	eventsCmd.AddCommand(eventsTailCmd)
	eventsCmd.AddCommand(eventsInitCmd)
}

func eventsKafkaConfig() events.KafkaConfig {
	return events.KafkaConfig{
		Brokers:  forgeConfig.Events.Brokers,
		Topic:    forgeConfig.Events.Topic,
		ClientID: forgeConfig.Events.ClientID,
	}
}

func tailEvents(ctx context.Context, out io.Writer) error {
	var logger logging.Logger = logging.NewNop()
	if verbose {
		zl, err := logging.NewZapLogger(forgeConfig.LoggerConfig())
		if err == nil {
			logger = zl
		}
	}

	return events.Tail(ctx, eventsKafkaConfig(), eventsFromStart, func(e events.Event) error {
		if eventsRunID != "" && e.RunID != eventsRunID {
			return nil
		}
		if eventsJSON {
			data, err := e.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		fmt.Fprintln(out, formatEvent(e))
		return nil
	}, logger)
}

// formatEvent renders one event as a single human-readable line
func formatEvent(e events.Event) string {
	run := e.RunID
	if len(run) > 8 {
		run = run[:8]
	}
	prefix := fmt.Sprintf("%s %-8s %-17s", e.Timestamp.Local().Format("15:04:05"), run, e.Type)

	switch e.Type {
	case events.TypeStateChanged:
		line := fmt.Sprintf("%s phase=%s", prefix, e.Phase)
		if e.Role != "" {
			line += " role=" + string(e.Role)
		}
		if e.Text != "" {
			line += " error=" + e.Text
		}
		return line
	case events.TypeEntryAppended, events.TypeEntryUpdated:
		return fmt.Sprintf("%s %s (%d chars)", prefix, e.Role, len(e.Text))
	case events.TypeWorkspaceChanged:
		return fmt.Sprintf("%s active=%s files=%s", prefix, e.Text, strings.Join(e.Files, ","))
	case events.TypeConsoleLine:
		return fmt.Sprintf("%s [%s] %s", prefix, e.Kind, e.Text)
	}
	return prefix
}
