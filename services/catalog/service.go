// Package catalog owns canonical content identity. A content item is
// soft-keyed by (domain, normalized title) and hard-keyed by its durable
// numeric id once created; platform facets hang off it, at most one
// active per platform name.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"aod-backend/lib/rawvalue"
	"aod-backend/lib/textutil"
	"aod-backend/services/transform"

	"dario.cat/mergo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "embed"
)

var tracer = otel.Tracer("services/catalog")

//go:embed db/schema.sql
var Schema string

// MasterTitleField is the master-facet field identity resolution keys on.
const MasterTitleField = "title"

type Service struct {
	db *sql.DB
}

func NewService(database *sql.DB) Service {
	return Service{db: database}
}

// Resolve looks up an existing content id by exact
// (domain, normalized title) match. No fuzzy matching happens here;
// near-duplicate titles deliberately stay unmerged (see SuggestMerges).
func (s Service) Resolve(ctx context.Context, domain, title string) (int64, bool, error) {
	normalized := textutil.NormalizeTitle(title)
	if normalized == "" {
		return 0, false, nil
	}

	var id int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id FROM content WHERE domain = ? AND normalized_title = ?`,
		domain, normalized,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

type IngestStats struct {
	Created int
	Merged  int
	Skipped int
}

// Ingest reconciles a batch of normalized triples against the catalog.
// Matching contents absorb the incoming domain and platform facets, new
// titles become new contents. One transaction per batch; a bad record is
// skipped, it never aborts the rest.
func (s Service) Ingest(ctx context.Context, domain string, triples []transform.Triple) (IngestStats, error) {
	ctx, span := tracer.Start(ctx, "Ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("domain", domain),
		attribute.Int("records", len(triples)),
	)

	var stats IngestStats

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, triple := range triples {
		title, ok := triple.Master[MasterTitleField].Text()
		if !ok || textutil.NormalizeTitle(title) == "" {
			slog.WarnContext(
				ctx, "skipping record without a usable title",
				"domain", domain,
				"platform", platformTag(triple),
			)
			stats.Skipped++
			continue
		}

		merged, err := s.upsertContent(ctx, tx, domain, title, triple, now)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return stats, err
		}
		if merged {
			stats.Merged++
		} else {
			stats.Created++
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}
	return stats, nil
}

func platformTag(triple transform.Triple) string {
	tag, _ := triple.Platform[transform.PlatformTagField].Text()
	return tag
}

// upsertContent merges one triple into the catalog. Reports whether an
// existing content absorbed it (true) or a new one was created (false).
func (s Service) upsertContent(ctx context.Context, tx *sql.Tx, domain, title string, triple transform.Triple, now int64) (bool, error) {
	normalized := textutil.NormalizeTitle(title)

	var id int64
	var masterJson, attrsJson string
	err := tx.QueryRowContext(
		ctx,
		`SELECT id, master, attrs FROM content WHERE domain = ? AND normalized_title = ?`,
		domain, normalized,
	).Scan(&id, &masterJson, &attrsJson)

	switch {
	case err == sql.ErrNoRows:
		master, err := json.Marshal(rawvalue.MapInterface(triple.Master))
		if err != nil {
			return false, err
		}
		attrs, err := json.Marshal(rawvalue.MapInterface(triple.Domain))
		if err != nil {
			return false, err
		}

		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO content (domain, title, normalized_title, master, attrs, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			domain, title, normalized, string(master), string(attrs), now, now,
		)
		if err != nil {
			return false, err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return false, err
		}
		return false, s.upsertFacet(ctx, tx, id, triple, now)

	case err != nil:
		return false, err
	}

	master, attrs, err := mergeAttrs(masterJson, attrsJson, triple)
	if err != nil {
		return false, err
	}
	_, err = tx.ExecContext(
		ctx,
		`UPDATE content SET master = ?, attrs = ?, updated_at = ? WHERE id = ?`,
		master, attrs, now, id,
	)
	if err != nil {
		return false, err
	}
	return true, s.upsertFacet(ctx, tx, id, triple, now)
}

// mergeAttrs folds the incoming facets onto the stored ones. Domain
// attributes take the incoming value on conflict; master attributes keep
// the stored value and only fill gaps, the first platform to name a
// content wins its identity fields.
func mergeAttrs(masterJson, attrsJson string, triple transform.Triple) (string, string, error) {
	var master map[string]any
	err := json.Unmarshal([]byte(masterJson), &master)
	if err != nil {
		return "", "", err
	}
	var attrs map[string]any
	err = json.Unmarshal([]byte(attrsJson), &attrs)
	if err != nil {
		return "", "", err
	}
	if master == nil {
		master = map[string]any{}
	}
	if attrs == nil {
		attrs = map[string]any{}
	}

	err = mergo.Merge(&master, rawvalue.MapInterface(triple.Master))
	if err != nil {
		return "", "", err
	}
	err = mergo.Merge(&attrs, rawvalue.MapInterface(triple.Domain), mergo.WithOverride)
	if err != nil {
		return "", "", err
	}

	mergedMaster, err := json.Marshal(master)
	if err != nil {
		return "", "", err
	}
	mergedAttrs, err := json.Marshal(attrs)
	if err != nil {
		return "", "", err
	}
	return string(mergedMaster), string(mergedAttrs), nil
}

func (s Service) upsertFacet(ctx context.Context, tx *sql.Tx, contentId int64, triple transform.Triple, now int64) error {
	attrs, err := json.Marshal(rawvalue.MapInterface(triple.Platform))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO platform_facet (content_id, platform, attrs, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (content_id, platform)
		 DO UPDATE SET attrs = excluded.attrs, updated_at = excluded.updated_at`,
		contentId, platformTag(triple), string(attrs), now,
	)
	return err
}

type Content struct {
	Id              int64
	Domain          string
	Title           string
	NormalizedTitle string
	Master          map[string]any
	Attrs           map[string]any
	Platforms       []string
}

// List returns the contents of a domain with the platforms that carry
// them, for CLI inspection.
func (s Service) List(ctx context.Context, domain string) ([]Content, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT c.id, c.domain, c.title, c.normalized_title, c.master, c.attrs,
		        COALESCE(group_concat(f.platform), '')
		 FROM content c
		 LEFT JOIN platform_facet f ON f.content_id = c.id
		 WHERE c.domain = ?
		 GROUP BY c.id
		 ORDER BY c.id`,
		domain,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Content
	for rows.Next() {
		var c Content
		var masterJson, attrsJson, platforms string
		err := rows.Scan(&c.Id, &c.Domain, &c.Title, &c.NormalizedTitle, &masterJson, &attrsJson, &platforms)
		if err != nil {
			return nil, err
		}
		err = json.Unmarshal([]byte(masterJson), &c.Master)
		if err != nil {
			return nil, err
		}
		err = json.Unmarshal([]byte(attrsJson), &c.Attrs)
		if err != nil {
			return nil, err
		}
		if platforms != "" {
			c.Platforms = splitPlatforms(platforms)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
