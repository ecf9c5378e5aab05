package commands

import (
	"time"

	"aod-backend/lib/configutil"
	"aod-backend/lib/serviceutil"
	"aod-backend/lib/sqliteutil"
	"aod-backend/services/catalog"
	"aod-backend/services/ingest"
	"aod-backend/services/rankings"
	"aod-backend/services/rules"
	"aod-backend/services/sources"
)

// Config mirrors the server's config.json5 so both binaries run off the
// same file.
type Config struct {
	RulesDir string            `json:"rules_dir"`
	Catalog  sqliteutil.Config `json:"catalog"`
	Rankings sqliteutil.Config `json:"rankings"`

	FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`

	RankingCron string `json:"ranking_cron"`
	ContentCron string `json:"content_cron"`

	StatusPort int `json:"status_port"`

	Sources sources.Config `json:"sources"`
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

type services struct {
	rules    *rules.Loader
	catalog  catalog.Service
	rankings *rankings.Service
	ingest   *ingest.Service
}

func openServices(cfg Config) services {
	loader := rules.NewLoader(cfg.RulesDir)
	err := loader.Reload()
	if err != nil {
		serviceutil.Fatal("failed to load mapping rules", err)
	}

	catalogDb, err := sqliteutil.OpenDB(catalog.Schema, cfg.Catalog)
	if err != nil {
		serviceutil.Fatal("failed to open catalog db", err)
	}
	rankingDb, err := sqliteutil.OpenDB(rankings.Schema, cfg.Rankings)
	if err != nil {
		serviceutil.Fatal("failed to open rankings db", err)
	}

	catalogService := catalog.NewService(catalogDb)
	rankingService := rankings.NewService(rankingDb)
	ingestService := ingest.NewService(
		loader,
		catalogService,
		rankingService,
		time.Duration(cfg.FetchTimeoutSeconds)*time.Second,
	)
	err = sources.Register(ingestService, cfg.Sources)
	if err != nil {
		serviceutil.Fatal("failed to register sources", err)
	}

	return services{
		rules:    loader,
		catalog:  catalogService,
		rankings: rankingService,
		ingest:   ingestService,
	}
}
