// Package ingest wires the pipeline together: platform sources feed raw
// records through the rule-driven transform into the catalog, and
// ranking snapshots into the reconciler. These are the only two entry
// points; scheduling and network IO live behind the interfaces below.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aod-backend/lib/rawvalue"
	"aod-backend/services/catalog"
	"aod-backend/services/rankings"
	"aod-backend/services/rules"
	"aod-backend/services/transform"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/ingest")

// ContentSource fetches and parses one platform's content listing into
// raw records. Implementations own retries and must release whatever
// resources they hold (connections, browser sessions) on every exit
// path, including timeouts.
type ContentSource interface {
	FetchContent(ctx context.Context) ([]rawvalue.Value, error)
}

// RankingSource fetches one platform's current ranking, ordered by
// position.
type RankingSource interface {
	FetchRanking(ctx context.Context) ([]rankings.Snapshot, error)
}

type ContentSourceFunc func(ctx context.Context) ([]rawvalue.Value, error)

func (f ContentSourceFunc) FetchContent(ctx context.Context) ([]rawvalue.Value, error) {
	return f(ctx)
}

type RankingSourceFunc func(ctx context.Context) ([]rankings.Snapshot, error)

func (f RankingSourceFunc) FetchRanking(ctx context.Context) ([]rankings.Snapshot, error) {
	return f(ctx)
}

type contentKey struct {
	domain   string
	platform string
}

type rankingRegistration struct {
	domain string
	source RankingSource
}

type Service struct {
	rules    *rules.Loader
	catalog  catalog.Service
	rankings *rankings.Service
	// upper bound on one platform's fetch; a cycle that exceeds it is
	// abandoned without touching persisted state
	fetchTimeout time.Duration

	mu             sync.Mutex
	contentSources map[contentKey]ContentSource
	rankingSources map[string]rankingRegistration
}

func NewService(loader *rules.Loader, cat catalog.Service, rank *rankings.Service, fetchTimeout time.Duration) *Service {
	if fetchTimeout == 0 {
		fetchTimeout = time.Minute * 2
	}
	return &Service{
		rules:          loader,
		catalog:        cat,
		rankings:       rank,
		fetchTimeout:   fetchTimeout,
		contentSources: map[contentKey]ContentSource{},
		rankingSources: map[string]rankingRegistration{},
	}
}

func (s *Service) RegisterContentSource(domain, platform string, src ContentSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentSources[contentKey{domain, platform}] = src
}

// RegisterRankingSource registers the ranking feed of a platform; the
// domain is used to link ranking rows to resolved catalog contents.
func (s *Service) RegisterRankingSource(platform, domain string, src RankingSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankingSources[platform] = rankingRegistration{domain: domain, source: src}
}

// IngestContent runs one content cycle for (domain, platform): load the
// mapping rule, fetch raw records, transform each one and reconcile the
// batch into the catalog. Record-level failures are skipped and logged;
// rule and fetch failures abort the cycle (persisted state untouched).
func (s *Service) IngestContent(ctx context.Context, domain, platform string) error {
	ctx, span := tracer.Start(ctx, "IngestContent")
	defer span.End()
	span.SetAttributes(
		attribute.String("domain", domain),
		attribute.String("platform", platform),
	)

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	rule, err := s.rules.Load(domain, platform)
	if err != nil {
		return fail(err)
	}

	s.mu.Lock()
	src, ok := s.contentSources[contentKey{domain, platform}]
	s.mu.Unlock()
	if !ok {
		return fail(fmt.Errorf("no content source registered for %s/%s", domain, platform))
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	records, err := src.FetchContent(fetchCtx)
	if err != nil {
		return fail(fmt.Errorf("fetch %s/%s: %w", domain, platform, err))
	}
	if len(records) == 0 {
		// zero records is a skipped cycle, not an error
		slog.InfoContext(ctx, "no records fetched, skipping cycle",
			"domain", domain, "platform", platform)
		return nil
	}

	var triples []transform.Triple
	for _, record := range records {
		triple, err := transform.Transform(ctx, record, rule)
		if err != nil {
			// one bad record never aborts the batch
			var missing *transform.RequiredFieldError
			if errors.As(err, &missing) {
				slog.WarnContext(
					ctx, "skipping record missing required field",
					"platform", platform,
					"field", missing.Field,
					"record", recordExcerpt(record),
				)
				continue
			}
			return fail(err)
		}
		triples = append(triples, triple)
	}

	stats, err := s.catalog.Ingest(ctx, domain, triples)
	if err != nil {
		return fail(err)
	}

	slog.InfoContext(ctx, "content cycle complete",
		"domain", domain,
		"platform", platform,
		"created", stats.Created,
		"merged", stats.Merged,
		"skipped", stats.Skipped,
	)
	return nil
}

// RefreshRanking runs one ranking cycle for a platform: fetch the
// snapshot, resolve entries against the catalog, reconcile. A fetch
// failure abandons the cycle and leaves the previous ranking readable.
func (s *Service) RefreshRanking(ctx context.Context, platform string) error {
	ctx, span := tracer.Start(ctx, "RefreshRanking")
	defer span.End()
	span.SetAttributes(attribute.String("platform", platform))

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.mu.Lock()
	reg, ok := s.rankingSources[platform]
	s.mu.Unlock()
	if !ok {
		return fail(fmt.Errorf("no ranking source registered for %s", platform))
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	snapshot, err := reg.source.FetchRanking(fetchCtx)
	if err != nil {
		return fail(fmt.Errorf("fetch ranking %s: %w", platform, err))
	}

	for i, entry := range snapshot {
		id, found, err := s.catalog.Resolve(ctx, reg.domain, entry.Title)
		if err != nil {
			return fail(err)
		}
		if found {
			snapshot[i].ContentId = id
		}
	}

	err = s.rankings.Reconcile(ctx, platform, snapshot)
	if err != nil {
		return fail(err)
	}

	slog.InfoContext(ctx, "ranking cycle complete",
		"platform", platform,
		"entries", len(snapshot),
	)
	return nil
}

// RefreshAllRankings runs every registered platform concurrently. One
// platform's failure never affects another's cycle.
func (s *Service) RefreshAllRankings(ctx context.Context) {
	s.mu.Lock()
	platforms := make([]string, 0, len(s.rankingSources))
	for platform := range s.rankingSources {
		platforms = append(platforms, platform)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, platform := range platforms {
		wg.Add(1)
		go func(platform string) {
			defer wg.Done()
			err := s.RefreshRanking(ctx, platform)
			if err != nil {
				slog.ErrorContext(ctx, "ranking cycle failed",
					"platform", platform, "err", err)
			}
		}(platform)
	}
	wg.Wait()
}

// IngestAllContent runs every registered (domain, platform) pair
// concurrently.
func (s *Service) IngestAllContent(ctx context.Context) {
	s.mu.Lock()
	keys := make([]contentKey, 0, len(s.contentSources))
	for key := range s.contentSources {
		keys = append(keys, key)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key contentKey) {
			defer wg.Done()
			err := s.IngestContent(ctx, key.domain, key.platform)
			if err != nil {
				slog.ErrorContext(ctx, "content cycle failed",
					"domain", key.domain,
					"platform", key.platform,
					"err", err)
			}
		}(key)
	}
	wg.Wait()
}

// recordExcerpt keeps failure logs diagnosable without dumping whole
// records.
func recordExcerpt(record rawvalue.Value) string {
	s := record.String()
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}
