// Package sqliteutil opens the persisted stores. Local files (and
// ":memory:" for tests) go through modernc.org/sqlite, remote databases
// through the libsql driver.
package sqliteutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Config struct {
	// local database file, or ":memory:"
	File string `json:"file"`
	// remote libsql url, takes precedence over File when set
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

func OpenDB(schema string, config Config) (*sql.DB, error) {
	if config.Url != "" {
		return openLibsql(schema, config)
	}

	path := config.File
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		os.MkdirAll(filepath.Dir(path), 0777)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// sqlite only supports one writer at a time, see
	// https://stackoverflow.com/questions/35804884
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	return db, bootstrap(db, schema)
}

func openLibsql(schema string, config Config) (*sql.DB, error) {
	link, err := url.Parse(config.Url)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	if config.AuthToken != "" {
		query := link.Query()
		query.Set("authToken", config.AuthToken)
		link.RawQuery = query.Encode()
	}

	db, err := sql.Open("libsql", link.String())
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	return db, bootstrap(db, schema)
}

func bootstrap(db *sql.DB, schema string) error {
	if schema == "" {
		return nil
	}
	_, err := db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	return nil
}
