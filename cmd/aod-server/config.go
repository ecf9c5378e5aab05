package main

import (
	"aod-backend/lib/sqliteutil"
	"aod-backend/services/sources"
)

type Config struct {
	// directory of <domain>.<platform>.json5 mapping rule files
	RulesDir string            `json:"rules_dir"`
	Catalog  sqliteutil.Config `json:"catalog"`
	Rankings sqliteutil.Config `json:"rankings"`

	FetchTimeoutSeconds int `json:"fetch_timeout_seconds"`

	RankingCron string `json:"ranking_cron"`
	ContentCron string `json:"content_cron"`

	StatusPort int `json:"status_port"`

	Sources sources.Config `json:"sources"`
}
