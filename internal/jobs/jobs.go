// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TokenPruner deletes refresh tokens that can no longer be used.
type TokenPruner interface {
	DeleteStaleRefreshTokens(ctx context.Context, before time.Time) (int64, error)
}

type Scheduler struct {
	cron   *cron.Cron
	tokens TokenPruner
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewScheduler(tokens TokenPruner, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{log}))),
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

// Register adds the jobs. schedule is a standard cron expression or a
// descriptor such as "@hourly".
func (s *Scheduler) Register(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.PruneRefreshTokens(ctx); err != nil {
			s.log.WithError(err).Error("cron job: prune refresh tokens failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// PruneRefreshTokens removes tokens that expired before now. Revoked tokens
// are kept until then so that replaying one still revokes the family.
func (s *Scheduler) PruneRefreshTokens(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteStaleRefreshTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("cron job: delete stale refresh tokens: %w", err)
	}
	if n > 0 {
		s.log.WithField("deleted", n).Info("cron job: pruned refresh tokens")
	}
	return n, nil
}

// cronLogger routes cron's own messages to logrus.
type cronLogger struct {
	log logrus.FieldLogger
}

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.WithFields(fields(kv)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.WithError(err).WithFields(fields(kv)).Error(msg)
}

func fields(kv []any) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
