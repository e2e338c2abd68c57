package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/dno-gatherer/internal/model"
)

var patternsOperator string

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and administer the learned-pattern store",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an operator's patterns ranked by confidence",
	RunE:  runPatternsList,
}

var patternsReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List every pattern awaiting admin verification",
	RunE:  runPatternsReview,
}

var patternsVerifyCmd = &cobra.Command{
	Use:   "verify <pattern-id> <verified|rejected>",
	Short: "Record an admin verification decision",
	Args:  cobra.ExactArgs(2),
	RunE:  runPatternsVerify,
}

var patternsFlagReason string
var patternsFlagSeverity string
var patternsFlagCmd = &cobra.Command{
	Use:   "flag <pattern-id>",
	Short: "Flag a pattern as problematic",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatternsFlag,
}

var patternsEffectivenessCmd = &cobra.Command{
	Use:   "effectiveness <pattern-id>",
	Short: "Report cross-operator effectiveness of a pattern's template shape",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatternsEffectiveness,
}

func init() {
	patternsListCmd.Flags().StringVar(&patternsOperator, "operator", "", "operator key (required)")
	patternsListCmd.MarkFlagRequired("operator")

	patternsFlagCmd.Flags().StringVar(&patternsFlagReason, "reason", "", "why the pattern is being flagged (required)")
	patternsFlagCmd.Flags().StringVar(&patternsFlagSeverity, "severity", string(model.FlagSeverityMedium), "low, medium, high, or critical")
	patternsFlagCmd.MarkFlagRequired("reason")

	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsReviewCmd)
	patternsCmd.AddCommand(patternsVerifyCmd)
	patternsCmd.AddCommand(patternsFlagCmd)
	patternsCmd.AddCommand(patternsEffectivenessCmd)
}

func runPatternsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	patterns, err := a.patterns.PatternsFor(patternsOperator)
	if err != nil {
		return err
	}
	for _, p := range patterns {
		fmt.Printf("%s  %-24s  confidence=%.2f  successes=%d  failures=%d  verification=%s\n",
			p.ID, p.Template, p.Confidence(), p.SuccessCount, p.FailureCount, p.Verification)
	}
	return nil
}

func runPatternsReview(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	pending, err := a.patterns.PatternsAwaitingReview()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("no patterns awaiting review")
		return nil
	}
	for _, p := range pending {
		fmt.Printf("%s  operator=%s  %-24s  successes=%d  failures=%d\n",
			p.ID, p.OperatorKey, p.Template, p.SuccessCount, p.FailureCount)
	}
	return nil
}

func runPatternsVerify(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var status model.Verification
	switch args[1] {
	case "verified":
		status = model.VerificationVerified
	case "rejected":
		status = model.VerificationRejected
	default:
		return fmt.Errorf("status must be 'verified' or 'rejected', got %q", args[1])
	}

	if err := a.patterns.VerifyPattern(args[0], status); err != nil {
		return err
	}
	fmt.Printf("pattern %s marked %s\n", args[0], status)
	return nil
}

func runPatternsFlag(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	severity := model.FlagSeverity(patternsFlagSeverity)
	if !severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", patternsFlagSeverity)
	}

	if err := a.patterns.FlagPattern(args[0], patternsFlagReason, severity); err != nil {
		return err
	}
	fmt.Printf("pattern %s flagged %s: %s\n", args[0], severity, patternsFlagReason)
	return nil
}

func runPatternsEffectiveness(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.patterns.CrossOperatorEffectiveness(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("pattern %s: %d operator(s), %d success(es), %d failure(s), success rate %.2f\n",
		stats.PatternID, stats.OperatorCount, stats.TotalSuccesses, stats.TotalFailures, stats.SuccessRate)
	return nil
}
