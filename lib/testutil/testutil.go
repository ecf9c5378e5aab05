package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	"aod-backend/lib/sqliteutil"
	"aod-backend/lib/telemetry"
)

type ServiceParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
}

type ServiceResult struct {
	DB *sql.DB
}

func SetupService(t testing.TB, params ServiceParams) (ServiceResult, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	db, err := sqliteutil.OpenDB(params.DbSchema, sqliteutil.Config{File: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}

	return ServiceResult{DB: db}, cleanup
}
