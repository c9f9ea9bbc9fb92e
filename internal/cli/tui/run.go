package tui

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/syntor/forge/pkg/config"
	"github.com/syntor/forge/pkg/console"
	"github.com/syntor/forge/pkg/gateway"
	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/pipeline"
	"github.com/syntor/forge/pkg/setup"
)

// Run starts the interactive TUI and blocks until the user quits
func Run(cfg *config.ForgeConfig, cfgFile, version string) error {
	logger, err := newFileLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	bridge := NewBridge()
	rt, err := setup.NewRuntime(cfg, setup.Options{
		Logger:    logger,
		Observers: []pipeline.Observer{bridge},
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	registry := rt.Registry
	model := New(rt.Session, Options{
		Config:  cfg,
		Logger:  rt.Logger,
		ModelID: cfg.Inference.ModelID(),
		Version: version,
		Check: func(ctx context.Context) error {
			return setup.QuickCheck(ctx, registry)
		},
		Rebuild: func(next *config.ForgeConfig) (gateway.Gateway, string, error) {
			reg, err := setup.InitializeInference(&next.Inference, rt.Logger)
			if err != nil {
				return nil, "", err
			}
			gw, err := setup.NewGateway(&next.Inference, reg, rt.Logger, rt.Metrics)
			if err != nil {
				return nil, "", err
			}
			return gw, next.Inference.ModelID(), nil
		},
		Clipboard: console.SystemClipboard{},
		Commands:  NewCommandRegistry(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	bridge.Attach(p)
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := config.NewWatcher(config.SearchPaths(cfgFile),
		func() (*config.ForgeConfig, error) { return config.Load(cfgFile) },
		func(next *config.ForgeConfig) { p.Send(ConfigReloadedMsg{Config: next}) },
		rt.Logger)
	if err != nil {
		rt.Logger.Warn("config hot reload disabled", logging.Err(err))
	} else {
		watcher.Start(ctx)
		defer watcher.Close()
	}

	_, err = p.Run()
	// stop any in-flight run before the deferred closes tear down its observers
	rt.Session.Reset()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// newFileLogger keeps log output off the terminal bubbletea draws on
func newFileLogger(cfg *config.ForgeConfig) (*logging.ZapLogger, error) {
	lc := cfg.LoggerConfig()
	switch lc.OutputPath {
	case "", "stdout", "stderr":
		globalDir, _ := config.ConfigPaths()
		lc.OutputPath = filepath.Join(globalDir, "forge.log")
	}
	logger, err := logging.NewZapLogger(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
