package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ternarybob/dno-gatherer/internal/common"
)

// configPaths is a custom flag type that allows multiple --config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

func (c *configPaths) Type() string {
	return "stringArray"
}

var configFiles configPaths

var rootCmd = &cobra.Command{
	Use:   "dno-gatherer",
	Short: "DNO tariff data acquisition pipeline",
	Long: "dno-gatherer runs the acquisition pipeline that turns (operator, year, kind)\n" +
		"requests into persisted grid-charge and load-window records, via a\n" +
		"multi-tier cache, a learned-pattern store, a reverse-crawler and a\n" +
		"priority-queued worker pool.",
}

func init() {
	rootCmd.PersistentFlags().VarP(&configFiles, "config", "c", "configuration file path (repeatable, later files override earlier ones)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	common.InstallCrashHandler("./logs")
	defer common.RecoverWithCrashFile()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
