package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cardchat/internal/logger"
	"cardchat/internal/stub"
)

const stubShutdownTimeout = 5 * time.Second

var (
	stubAddr   string
	stubScript string
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a local stand-in for the agent backend",
	Long: `Serve POST /process_input with canned replies so the TUI can be tried
without a real agent. Without --script the stub triages the message and answers
with one card per consulted specialist. A script file maps substrings of the
input to fixed replies.`,
	Example: `  $ cardchat stub --addr 127.0.0.1:8000
  $ cardchat stub --script replies.yaml`,
	RunE: runStub,
}

func init() {
	stubCmd.Flags().StringVar(&stubAddr, "addr", "", "listen address (default from config, 127.0.0.1:8000)")
	stubCmd.Flags().StringVar(&stubScript, "script", "", "YAML reply script")
	rootCmd.AddCommand(stubCmd)
}

func runStub(cmd *cobra.Command, _ []string) error {
	// no TUI here, so logs can go to the terminal too
	initLogger(true)

	addr := cfg.Stub.Addr
	if stubAddr != "" {
		addr = stubAddr
	}
	path := cfg.Stub.Script
	if stubScript != "" {
		path = stubScript
	}

	var script *stub.Script
	if path != "" {
		s, err := stub.LoadScript(path)
		if err != nil {
			return fmt.Errorf("failed to load script: %w", err)
		}
		script = s
	}

	srv := stub.NewServer(addr, script)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("stub server stopped: %w", err)
		}
		return nil
	case <-quit:
	}

	logger.Info("shutting down stub backend")
	ctx, cancel := context.WithTimeout(context.Background(), stubShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("stub shutdown: %w", err)
	}
	return nil
}
