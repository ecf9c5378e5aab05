package main

import (
	"flag"
	"net/http"
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

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	refreshNow := flag.Bool("refresh", false, "Trigger a full refresh immediately on run.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	loader := rules.NewLoader(cfg.RulesDir)
	// fail fast on malformed rule files instead of at 3am during a cycle
	err = loader.Reload()
	if err != nil {
		serviceutil.Fatal("load mapping rules", err)
	}

	catalogDb, err := sqliteutil.OpenDB(catalog.Schema, cfg.Catalog)
	if err != nil {
		serviceutil.Fatal("open catalog db", err)
	}
	rankingDb, err := sqliteutil.OpenDB(rankings.Schema, cfg.Rankings)
	if err != nil {
		serviceutil.Fatal("open rankings db", err)
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
		serviceutil.Fatal("register sources", err)
	}

	scheduler := ingest.NewScheduler(ingestService)
	err = scheduler.ScheduleRankingRefresh(cfg.RankingCron)
	if err != nil {
		serviceutil.Fatal("schedule ranking refresh", err)
	}
	err = scheduler.ScheduleContentIngest(cfg.ContentCron)
	if err != nil {
		serviceutil.Fatal("schedule content ingest", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if *refreshNow {
		go func() {
			ingestService.IngestAllContent(ctx)
			ingestService.RefreshAllRankings(ctx)
		}()
	}

	mux := http.NewServeMux()
	RegisterStatusRoutes(mux, rankingService, catalogService)
	go serviceutil.StartHttpServer(cfg.StatusPort, mux)

	<-ctx.Done()
}
