package main

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"

	"github.com/ternarybob/dno-gatherer/internal/common"
	"github.com/ternarybob/dno-gatherer/internal/config"
)

// printBanner prints the startup banner and logs the resolved
// configuration, mirroring the teacher's startup presentation.
func printBanner(cfg *config.Config, logger arbor.ILogger) {
	version := common.GetVersion()
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(72)

	fmt.Println()
	b.PrintTopLine()
	b.PrintCenteredText("DNO GATHERER")
	b.PrintCenteredText("DNO Tariff Data Acquisition Pipeline")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 15)
	b.PrintKeyValue("Environment", cfg.Environment, 15)
	b.PrintKeyValue("Storage", cfg.Storage.Badger.Path, 15)
	b.PrintKeyValue("Max workers", fmt.Sprintf("%d", cfg.Orchestrator.MaxWorkers), 15)
	redisState := "disabled"
	if cfg.Cache.Redis.Enabled {
		redisState = cfg.Cache.Redis.Addr
	}
	b.PrintKeyValue("Redis L2 cache", redisState, 15)
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().
		Str("version", common.GetFullVersion()).
		Str("environment", cfg.Environment).
		Str("badger_path", cfg.Storage.Badger.Path).
		Int("max_workers", cfg.Orchestrator.MaxWorkers).
		Bool("redis_enabled", cfg.Cache.Redis.Enabled).
		Msg("dno-gatherer starting")
}
