package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"cardchat/internal/app"
	"cardchat/internal/config"
	"cardchat/internal/gateway"
	"cardchat/internal/logger"
)

var (
	configPath string
	backendURL string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cardchat",
	Short: "Chat with an agent backend; some replies float as cards",
	Long: `cardchat opens a full-screen chat window. Agent replies that the backend
marks as cards appear as floating panels you can drag, raise, edit and close.

Drag a panel by its title bar, resize the chat from its bottom-right corner.`,
	Example: `  # Start the TUI against the default backend (http://localhost:8000)
  $ cardchat

  # Use a different backend
  $ cardchat --backend http://10.0.0.5:8000

  # Run the local stub backend in another terminal
  $ cardchat stub`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runTUI,
}

// Execute runs the root command
func Execute() error {
	defer logger.Close()
	return rootCmd.Execute()
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.cardchat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "backend base URL (overrides config)")
}

// loadConfig loads configuration and starts file logging
func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if backendURL != "" {
		c.Backend.BaseURL = backendURL
	}
	cfg = c
	initLogger(false)
	return nil
}

// initLogger (re)initializes logging; stdout is only safe outside the TUI
func initLogger(stdout bool) {
	logCfg := cfg.BuildLoggerConfig()
	logCfg.Stdout = stdout
	dir, err := config.Dir()
	if err != nil {
		dir = "."
	}
	if err := logger.Init(logCfg, dir); err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
	}
}

func newGateway() (*gateway.Client, error) {
	gw, err := gateway.NewClient(cfg.Backend.BaseURL, gateway.Options{
		DialTimeout:    cfg.Backend.DialTimeout,
		RequestTimeout: cfg.Backend.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway client: %w", err)
	}
	return gw, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	gw, err := newGateway()
	if err != nil {
		return err
	}

	// Create application
	tuiApp, err := app.NewApplication(ctx, gw, app.OptionsFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer tuiApp.Shutdown()

	// Create bubbletea program
	program := tea.NewProgram(
		tuiApp,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	// Forward gateway events to the program
	tuiApp.SetProgram(program)

	logger.Info("tui started", "backend", gw.BaseURL())
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run program: %w", err)
	}
	logger.Info("tui stopped")
	return nil
}
