package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers refresh cycles on cron schedules. It is the only
// caller of the service's *All entry points in the daemon.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	// generous upper bound on a whole refresh round across platforms
	roundTimeout time.Duration
}

func NewScheduler(service *Service) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithLogger(cronLogger{})),
		service:      service,
		roundTimeout: time.Minute * 15,
	}
}

func (s *Scheduler) ScheduleRankingRefresh(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.roundTimeout)
		defer cancel()
		s.service.RefreshAllRankings(ctx)
	})
	return err
}

func (s *Scheduler) ScheduleContentIngest(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.roundTimeout)
		defer cancel()
		s.service.IngestAllContent(ctx)
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

type cronLogger struct{}

func (cronLogger) formatParams(keysAndValues []any) []any {
	params := []any{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v: %v", keysAndValues[i], keysAndValues[i+1]))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(fmt.Sprintf("cron: %s", msg), "params", l.formatParams(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error(fmt.Sprintf("cron: %s", msg), "err", err, "params", l.formatParams(keysAndValues))
}
