package main

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dno-gatherer/internal/cache"
	"github.com/ternarybob/dno-gatherer/internal/config"
	"github.com/ternarybob/dno-gatherer/internal/extractor"
	"github.com/ternarybob/dno-gatherer/internal/fetcher"
	"github.com/ternarybob/dno-gatherer/internal/logging"
	"github.com/ternarybob/dno-gatherer/internal/orchestrator"
	"github.com/ternarybob/dno-gatherer/internal/pattern"
	"github.com/ternarybob/dno-gatherer/internal/repository"
	"github.com/ternarybob/dno-gatherer/internal/resourcemonitor"
	"github.com/ternarybob/dno-gatherer/internal/reversecrawler"
	"github.com/ternarybob/dno-gatherer/internal/storage/badger"
	"github.com/ternarybob/dno-gatherer/internal/strategy"

	redis "github.com/redis/go-redis/v9"
)

// app holds every collaborator wired at startup. Subcommands that only
// need a subset (e.g. patterns) still build the whole graph: the pattern
// store and repository are cheap to construct relative to the Badger
// open they share.
type app struct {
	cfg      *config.Config
	logger   arbor.ILogger
	manager  *badger.Manager
	patterns *pattern.Store
	repo     *repository.Repository
	orch     *orchestrator.Orchestrator
}

// newApp loads configuration, wires every collaborator named in the
// component table, and returns the assembled app. Startup order mirrors
// the teacher's: config -> logger -> storage -> domain collaborators ->
// orchestrator.
func newApp() (*app, error) {
	paths := []string(configFiles)
	if len(paths) == 0 {
		if _, err := os.Stat("dno-gatherer.toml"); err == nil {
			paths = append(paths, "dno-gatherer.toml")
		}
	}

	cfg, err := config.LoadFromFiles(paths...)
	if err != nil {
		return nil, err
	}

	logger := logging.Setup(cfg)
	printBanner(cfg, logger)

	if cfg.Storage.Badger.ResetOnStartup {
		os.RemoveAll(cfg.Storage.Badger.Path)
	}
	manager, err := badger.NewManager(logger, cfg.Storage.Badger)
	if err != nil {
		return nil, err
	}

	patternStore := pattern.New(manager.Patterns(), logger)

	l1 := cache.NewMemory()
	repoCache := buildCache(cfg, l1, logger)

	repo := repository.New(repoCache, manager.Repository(), cfg.Cache.TTL, logger)

	ruleStore, err := extractor.LoadRuleStore(cfg.Extractor.RulesDir)
	if err != nil {
		return nil, err
	}
	pdf := extractor.NewPDFCPUExtractor(os.TempDir())
	extr := extractor.NewWithMaxHeadings(ruleStore, pdf, logger, cfg.Extractor.MaxHeadings)

	fetch := fetcher.New(cfg.Fetcher, logger)
	crawler := reversecrawler.New(fetch, extr, cfg.ReverseCrawler, logger)
	engine := strategy.New(cfg.Strategy)
	monitor := resourcemonitor.New(cfg.ResourceMonitor)

	orch := orchestrator.New(cfg.Orchestrator, logger, patternStore, repo, engine, monitor, crawler, fetch, extr, prometheus.DefaultRegisterer)

	return &app{
		cfg:      cfg,
		logger:   logger,
		manager:  manager,
		patterns: patternStore,
		repo:     repo,
		orch:     orch,
	}, nil
}

// buildCache assembles the two-tier cache from cfg: an in-process L1
// always present, an optional Redis L2 fronting it when enabled.
func buildCache(cfg *config.Config, l1 *cache.Memory, logger arbor.ILogger) *cache.Tiered {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewTiered(l1, nil, logger, cfg.Cache.TTL.Default)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	return cache.NewTiered(l1, cache.NewRedis(client), logger, cfg.Cache.TTL.Default)
}

// Close releases the app's resources in reverse wiring order.
func (a *app) Close() {
	a.orch.Stop()
	a.manager.Close()
	logging.Stop()
}
