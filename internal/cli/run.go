package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/syntor/forge/pkg/config"
	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/pipeline"
	"github.com/syntor/forge/pkg/profile"
	"github.com/syntor/forge/pkg/setup"
)

var (
	runMode        string
	runLang        string
	runIdea        string
	runIdeaFile    string
	runAttach      []string
	runAnswers     []string
	runNoClarify   bool
	runOut         string
	runConsole     bool
	runStepDelay   time.Duration
	runMetricsAddr string
)

// runCmd drives one pipeline run without the TUI
var runCmd = &cobra.Command{
	Use:   "run [idea]",
	Short: "Run the agent pipeline once and export the workspace",
	Long: `Run every agent over one idea, print progress, and write the
generated files to a directory.

Website runs ask a few clarifying questions first. Answer them with
repeated --answer flags, interactively on a terminal, or skip them with
--no-clarify.

Examples:
  forge run "a portfolio for a ceramic artist"
  forge run --mode chatbot --lang python --idea-file idea.md --out ./bot
  forge run --mode prompt-refiner --idea "write me a poem" --console
  forge run --attach sketch.png --answer "dark" --answer "three pages"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		idea := runIdea
		if len(args) > 0 {
			idea = strings.Join(args, " ")
		}
		return runPipeline(cmd, idea)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "", "output mode: website, chatbot, prompt-refiner")
	runCmd.Flags().StringVarP(&runLang, "lang", "l", "", "bot language: javascript, python")
	runCmd.Flags().StringVar(&runIdea, "idea", "", "the idea to build")
	runCmd.Flags().StringVar(&runIdeaFile, "idea-file", "", "read the idea from a file (- for stdin)")
	runCmd.Flags().StringSliceVarP(&runAttach, "attach", "a", nil, "attach a file to every generation call (repeatable)")
	runCmd.Flags().StringArrayVar(&runAnswers, "answer", nil, "answer to a clarifying question, in order (repeatable)")
	runCmd.Flags().BoolVar(&runNoClarify, "no-clarify", false, "skip the clarifying questions")
	runCmd.Flags().StringVarP(&runOut, "out", "o", "", "export directory (default: pipeline.export_dir)")
	runCmd.Flags().BoolVar(&runConsole, "console", false, "play the simulated run console after the pipeline finishes")
	runCmd.Flags().DurationVar(&runStepDelay, "step-delay", 0, "pause between agents (default: pipeline.step_delay)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
}

// applyRunFlags copies the base config and applies the command line on top
func applyRunFlags(base *config.ForgeConfig, cmd *cobra.Command) (*config.ForgeConfig, error) {
	cfg := *base
	if runMode != "" {
		mode, err := models.ParseMode(runMode)
		if err != nil {
			return nil, err
		}
		cfg.Pipeline.Mode = string(mode)
	}
	if runLang != "" {
		lang, err := models.ParseBotLanguage(runLang)
		if err != nil {
			return nil, err
		}
		cfg.Pipeline.BotLanguage = string(lang)
	}
	if runNoClarify {
		cfg.Pipeline.Clarify = false
	}
	if cmd.Flags().Changed("step-delay") {
		cfg.Pipeline.StepDelay = runStepDelay
	}
	return &cfg, nil
}

func readIdea(idea, file string, stdin io.Reader) (string, error) {
	if file == "" {
		return strings.TrimSpace(idea), nil
	}
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read idea: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func attachFiles(session *pipeline.Session, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read attachment: %w", err)
		}
		session.AddAttachment(filepath.Base(path), data, http.DetectContentType(data))
	}
	return nil
}

func runPipeline(cmd *cobra.Command, rawIdea string) error {
	cfg, err := applyRunFlags(forgeConfig, cmd)
	if err != nil {
		return err
	}
	idea, err := readIdea(rawIdea, runIdeaFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	lang, _ := models.ParseBotLanguage(cfg.Pipeline.BotLanguage)
	progress := newProgressPrinter(out, lang)

	rt, err := setup.NewRuntime(cfg, setup.Options{
		MetricsAddr: runMetricsAddr,
		Observers:   []pipeline.Observer{progress},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer rt.Close()

	session := rt.Session
	session.SetIdea(idea)
	if err := attachFiles(session, runAttach); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := session.Mode()
	fmt.Fprintf(out, "Mode: %s  Provider: %s  Model: %s\n\n",
		mode.Info().Label, cfg.Inference.Provider, rt.Registry.GetDefaultModel())

	clarification, err := session.Start(ctx)
	switch {
	case errors.Is(err, pipeline.ErrMissingCredential):
		return fmt.Errorf("%w: set %s or run 'forge config set'", err, credentialEnv(cfg.Inference.Provider))
	case errors.Is(err, pipeline.ErrEmptyIdea):
		return fmt.Errorf("nothing to build: pass an idea, --idea-file or --attach")
	case err != nil:
		return err
	}

	if clarification != nil {
		answers, interactive, err := collectAnswers(cmd, clarification.Questions)
		if err != nil {
			return err
		}
		if len(answers) == 0 && !interactive {
			fmt.Fprintln(out, "Skipping clarification.")
			err = session.SkipClarification(ctx)
		} else {
			err = session.SubmitAnswers(ctx, answers)
		}
		if err != nil {
			return err
		}
		if effective := session.EffectiveIdea(); effective != "" && verbose {
			fmt.Fprintf(out, "\nRefined idea:\n%s\n\n", effective)
		}
	}

	if state := session.State(); state.Err != "" {
		return fmt.Errorf("pipeline failed: %s", state.Err)
	}

	if runConsole {
		fmt.Fprintln(out)
		if err := session.RunConsole(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	dir := runOut
	if dir == "" {
		dir = cfg.Pipeline.ExportDir
	}
	paths, err := session.Export(dir)
	if err != nil {
		return fmt.Errorf("failed to export workspace: %w", err)
	}
	fmt.Fprintln(out)
	for _, p := range paths {
		fmt.Fprintf(out, "Wrote %s\n", p)
	}
	return nil
}

// collectAnswers takes answers from --answer flags, or asks on a terminal.
// interactive is false when nobody could be asked.
func collectAnswers(cmd *cobra.Command, questions []string) (answers []string, interactive bool, err error) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nA few questions first:")
	for i, q := range questions {
		fmt.Fprintf(out, "  %d. %s\n", i+1, q)
	}
	fmt.Fprintln(out)

	if len(runAnswers) > 0 {
		return runAnswers, true, nil
	}
	if runIdeaFile == "-" || !isatty.IsTerminal(os.Stdin.Fd()) {
		return nil, false, nil
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	answers = make([]string, len(questions))
	for i, q := range questions {
		fmt.Fprintf(out, "%s\n> ", q)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, true, err
		}
		answers[i] = strings.TrimSpace(line)
		if errors.Is(err, io.EOF) {
			break
		}
	}
	fmt.Fprintln(out)
	return answers, true, nil
}

func credentialEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "deepseek":
		return "DEEPSEEK_API_KEY"
	}
	return "GEMINI_API_KEY"
}

// progressPrinter reports pipeline progress as plain lines
type progressPrinter struct {
	pipeline.NopObserver

	mu      sync.Mutex
	out     io.Writer
	lang    models.BotLanguage
	current models.Role
	step    int
	started time.Time
}

func newProgressPrinter(out io.Writer, lang models.BotLanguage) *progressPrinter {
	return &progressPrinter{out: out, lang: lang}
}

func (p *progressPrinter) StateChanged(state models.PipelineState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch state.Phase {
	case models.PhaseClarifying:
		if p.step == 0 {
			fmt.Fprintln(p.out, "Preparing clarifying questions...")
		}
	case models.PhaseRunning:
		role := state.CurrentRoleName()
		if role == p.current {
			return
		}
		p.current = role
		p.step++
		p.started = time.Now()
		prof := profile.Lookup(role, state.Mode, p.lang)
		fmt.Fprintf(p.out, "[%d/%d] %s is working...\n", p.step, len(profile.Sequence()), prof.Label())
	case models.PhaseFinished:
		if state.Err != "" {
			fmt.Fprintf(p.out, "Pipeline stopped: %s\n", state.Err)
		} else {
			fmt.Fprintln(p.out, "Pipeline complete.")
		}
		p.current, p.step = "", 0
	}
}

func (p *progressPrinter) EntryAppended(entry models.TranscriptEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "      done in %s (%d chars)\n",
		time.Since(p.started).Round(100*time.Millisecond), len(entry.Content))
}

func (p *progressPrinter) ConsoleLine(line models.ConsoleLine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prefix := "  "
	switch line.Kind {
	case models.LineCommand:
		prefix = "$ "
	case models.LineError:
		prefix = "! "
	case models.LineSuccess:
		prefix = "+ "
	}
	fmt.Fprintf(p.out, "%s%s\n", prefix, line.Text)
}
