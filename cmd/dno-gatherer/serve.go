package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator and wait for jobs",
	Long: "serve starts the Orchestrator's worker pool and sweep scheduler and\n" +
		"blocks until interrupted. It accepts no jobs from other processes;\n" +
		"'dno-gatherer crawl' runs its own in-process orchestrator.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.orch.Start(); err != nil {
		return err
	}

	a.logger.Info().Msg("orchestrator started, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	a.logger.Info().Msg("shutdown signal received")
	return nil
}
