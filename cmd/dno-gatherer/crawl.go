package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/dno-gatherer/internal/model"
)

var (
	crawlOperator string
	crawlYear     int
	crawlKind     string
	crawlPriority string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Submit one acquisition job and wait for it to finish",
	Long: "crawl submits a (operator, year, kind) job to a fresh in-process\n" +
		"Orchestrator, streams its session log to stdout, and exits once the\n" +
		"job reaches a terminal state.",
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringVar(&crawlOperator, "operator", "", "operator key, e.g. netze-bw (required)")
	crawlCmd.Flags().IntVar(&crawlYear, "year", time.Now().Year(), "tariff year to acquire")
	crawlCmd.Flags().StringVar(&crawlKind, "kind", string(model.DataKindBoth), "grid_charges, load_window, or both")
	crawlCmd.Flags().StringVar(&crawlPriority, "priority", "medium", "low, medium, high, or critical")
	crawlCmd.MarkFlagRequired("operator")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.orch.Start(); err != nil {
		return err
	}

	priority, ok := model.ParsePriority(crawlPriority)
	if !ok {
		return fmt.Errorf("invalid priority: %s", crawlPriority)
	}
	job := model.NewJob(crawlOperator, crawlYear, model.DataKind(crawlKind), priority)

	ctx := context.Background()
	sessionID, err := a.orch.Submit(ctx, job)
	if err != nil {
		return fmt.Errorf("submit job: %w", err)
	}

	logs, err := a.orch.SubscribeLogs(sessionID)
	if err != nil {
		return err
	}
	go func() {
		for entry := range logs {
			fmt.Printf("[%s] %s\n", entry.Ts.Format("15:04:05"), entry.Message)
		}
	}()

	for {
		session, err := a.orch.QuerySession(sessionID)
		if err != nil {
			return err
		}
		if session.Status.IsTerminal() {
			fmt.Printf("\njob %s finished: %s\n", sessionID, session.Status)
			if session.Status != model.SessionCompleted {
				return fmt.Errorf("job did not complete: %s (%s)", session.Status, session.Phase)
			}
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
}
