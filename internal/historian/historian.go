// Package historian drains finished-match records from the result queue and
// persists them to PostgreSQL in batches.
package historian

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jason-s-yu/versus/internal/game"
	"github.com/sirupsen/logrus"
)

// Source yields queued results; Pop returns (nil, nil) when nothing arrived
// within timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*game.MatchResult, error)
}

// Sink persists a batch atomically.
type Sink interface {
	InsertMatchResults(ctx context.Context, results []game.MatchResult) error
}

type Options struct {
	BatchSize  int           // default 20
	FlushDelay time.Duration // default 500ms
	PopTimeout time.Duration // default 1s
	Clock      clock.Clock
	Logger     *logrus.Logger
}

// Service batches results from source into sink. A batch is flushed when it
// reaches BatchSize, when FlushDelay has passed since the last flush, and on
// shutdown. A failed flush keeps the batch for the next attempt.
type Service struct {
	source Source
	sink   Sink
	opts   Options
	log    *logrus.Entry

	batch     []game.MatchResult
	lastFlush time.Time
}

func New(source Source, sink Sink, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Service{
		source:    source,
		sink:      sink,
		opts:      opts,
		log:       opts.Logger.WithField("component", "historian"),
		batch:     make([]game.MatchResult, 0, opts.BatchSize),
		lastFlush: opts.Clock.Now(),
	}
}

// Run consumes until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("Historian started")
	for ctx.Err() == nil {
		s.step(ctx)
	}

	// ctx is done; give the final flush its own deadline.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(flushCtx)
	s.log.Info("Historian stopped")
}

// step pops at most one result and flushes when due.
func (s *Service) step(ctx context.Context) {
	r, err := s.source.Pop(ctx, s.opts.PopTimeout)
	switch {
	case err != nil && ctx.Err() == nil:
		s.log.Errorf("Pop: %v", err)
	case r != nil:
		s.batch = append(s.batch, *r)
	}

	if len(s.batch) >= s.opts.BatchSize || s.opts.Clock.Since(s.lastFlush) >= s.opts.FlushDelay {
		s.flush(ctx)
	}
}

// flush writes the pending batch in one transaction.
func (s *Service) flush(ctx context.Context) {
	s.lastFlush = s.opts.Clock.Now()
	if len(s.batch) == 0 {
		return
	}
	if err := s.sink.InsertMatchResults(ctx, s.batch); err != nil {
		s.log.Errorf("Flush of %d results failed, will retry: %v", len(s.batch), err)
		return
	}
	s.log.Debugf("Flushed %d results to DB", len(s.batch))
	s.batch = make([]game.MatchResult, 0, s.opts.BatchSize)
}
