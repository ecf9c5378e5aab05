// Package rankings reconciles freshly fetched ranking snapshots against
// the persisted rows of a platform, preserving durable row identifiers
// across refresh cycles and computing rank movement.
package rankings

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"aod-backend/lib/textutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "embed"
)

var tracer = otel.Tracer("services/rankings")

//go:embed db/schema.sql
var Schema string

// ErrReconcileConflict means another reconciliation for the same
// platform is in flight. The caller must abandon the cycle, never wait.
var ErrReconcileConflict = errors.New("another reconciliation is running for this platform")

// Change describes movement relative to the prior cycle.
type Change string

const (
	ChangeNew  Change = "new"
	ChangeUp   Change = "up"
	ChangeDown Change = "down"
	ChangeSame Change = "same"
)

// Snapshot is one freshly fetched entry, ordered by position.
type Snapshot struct {
	PlatformSpecificId string
	Title              string
	Ranking            int
	ThumbnailUrl       string
	// 0 when identity resolution found no canonical content
	ContentId int64
}

// Entry is a persisted ranking row.
type Entry struct {
	Id                 int64
	Platform           string
	PlatformSpecificId string
	Title              string
	Ranking            int
	ThumbnailUrl       string
	ContentId          int64
	RankChange         Change
}

type Service struct {
	db *sql.DB
	// per-platform single-writer discipline; platforms never block
	// each other
	locks sync.Map
}

func NewService(database *sql.DB) *Service {
	return &Service{db: database}
}

func (s *Service) platformLock(platform string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(platform, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// identityKey matches persisted rows to incoming entries: the source's
// own id when present, the normalized title otherwise.
func identityKey(platformSpecificId, title string) string {
	if platformSpecificId != "" {
		return "id:" + platformSpecificId
	}
	return "title:" + textutil.NormalizeTitle(title)
}

// Reconcile applies one snapshot to the persisted rows of a platform.
//
// The snapshot is authoritative for membership: matched rows are updated
// in place (durable id preserved, rank movement computed), unmatched
// incoming entries are inserted as "new", and persisted rows absent from
// the snapshot are retired. The whole cycle is one transaction; an empty
// snapshot is a no-op rather than a mass retire, so a failed fetch
// leaves yesterday's ranking readable.
func (s *Service) Reconcile(ctx context.Context, platform string, incoming []Snapshot) error {
	ctx, span := tracer.Start(ctx, "Reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.String("platform", platform),
		attribute.Int("incoming", len(incoming)),
	)

	lock := s.platformLock(platform)
	if !lock.TryLock() {
		span.SetStatus(codes.Error, ErrReconcileConflict.Error())
		return ErrReconcileConflict
	}
	defer lock.Unlock()

	if len(incoming) == 0 {
		slog.InfoContext(ctx, "empty ranking snapshot, skipping cycle", "platform", platform)
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer tx.Rollback()

	err = s.reconcileTx(ctx, tx, platform, incoming)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

type persistedRow struct {
	id        int64
	ranking   int
	contentId int64
}

func (s *Service) reconcileTx(ctx context.Context, tx *sql.Tx, platform string, incoming []Snapshot) error {
	existing, err := loadRows(ctx, tx, platform)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	seen := map[int64]bool{}
	usedKeys := map[string]bool{}

	for _, snap := range incoming {
		key := identityKey(snap.PlatformSpecificId, snap.Title)
		if key == "title:" {
			slog.WarnContext(
				ctx, "ranking entry without identity, skipping",
				"platform", platform,
				"ranking", snap.Ranking,
			)
			continue
		}
		if usedKeys[key] {
			slog.WarnContext(
				ctx, "duplicate identity key within snapshot, keeping first",
				"platform", platform,
				"key", key,
			)
			continue
		}
		usedKeys[key] = true

		row, ok := existing[key]
		if !ok {
			err := insertRow(ctx, tx, platform, snap, now)
			if err != nil {
				return err
			}
			continue
		}

		change := ChangeSame
		// numerically lower is closer to #1
		if snap.Ranking < row.ranking {
			change = ChangeUp
		} else if snap.Ranking > row.ranking {
			change = ChangeDown
		}

		err := updateRow(ctx, tx, row, snap, change, now)
		if err != nil {
			return err
		}
		seen[row.id] = true
	}

	// the snapshot is authoritative: rows it no longer contains are
	// retired
	for _, row := range existing {
		if seen[row.id] {
			continue
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM ranking WHERE id = ?`, row.id)
		if err != nil {
			return err
		}
	}
	return nil
}

func loadRows(ctx context.Context, tx *sql.Tx, platform string) (map[string]persistedRow, error) {
	rows, err := tx.QueryContext(
		ctx,
		`SELECT id, COALESCE(platform_specific_id, ''), title, ranking, COALESCE(content_id, 0)
		 FROM ranking WHERE platform = ?`,
		platform,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := map[string]persistedRow{}
	for rows.Next() {
		var row persistedRow
		var psid, title string
		err := rows.Scan(&row.id, &psid, &title, &row.ranking, &row.contentId)
		if err != nil {
			return nil, err
		}
		existing[identityKey(psid, title)] = row
	}
	return existing, rows.Err()
}

func insertRow(ctx context.Context, tx *sql.Tx, platform string, snap Snapshot, now int64) error {
	var psid any
	if snap.PlatformSpecificId != "" {
		psid = snap.PlatformSpecificId
	}
	var contentId any
	if snap.ContentId != 0 {
		contentId = snap.ContentId
	}

	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO ranking
		 (platform, platform_specific_id, title, normalized_title, ranking, thumbnail_url, content_id, rank_change, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		platform, psid, snap.Title, textutil.NormalizeTitle(snap.Title),
		snap.Ranking, snap.ThumbnailUrl, contentId, string(ChangeNew), now,
	)
	return err
}

func updateRow(ctx context.Context, tx *sql.Tx, row persistedRow, snap Snapshot, change Change, now int64) error {
	contentId := row.contentId
	if snap.ContentId != 0 {
		contentId = snap.ContentId
	}
	var contentIdArg any
	if contentId != 0 {
		contentIdArg = contentId
	}

	_, err := tx.ExecContext(
		ctx,
		`UPDATE ranking
		 SET title = ?, normalized_title = ?, ranking = ?, thumbnail_url = ?,
		     content_id = ?, rank_change = ?, updated_at = ?
		 WHERE id = ?`,
		snap.Title, textutil.NormalizeTitle(snap.Title), snap.Ranking,
		snap.ThumbnailUrl, contentIdArg, string(change), now, row.id,
	)
	return err
}

// List returns a platform's persisted ranking in rank order.
func (s *Service) List(ctx context.Context, platform string) ([]Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, platform, COALESCE(platform_specific_id, ''), title, ranking,
		        thumbnail_url, COALESCE(content_id, 0), rank_change
		 FROM ranking WHERE platform = ? ORDER BY ranking`,
		platform,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var change string
		err := rows.Scan(
			&e.Id, &e.Platform, &e.PlatformSpecificId, &e.Title,
			&e.Ranking, &e.ThumbnailUrl, &e.ContentId, &change,
		)
		if err != nil {
			return nil, err
		}
		e.RankChange = Change(change)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Platforms lists the platform names that currently have persisted rows.
func (s *Service) Platforms(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT DISTINCT platform FROM ranking ORDER BY platform`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var platform string
		err := rows.Scan(&platform)
		if err != nil {
			return nil, err
		}
		out = append(out, platform)
	}
	return out, rows.Err()
}
