// Package scheduler deploys bulk processing rules on cron schedules and
// runs them against all entities.
package scheduler

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"idmcore/internal/bulk/metrics"
	"idmcore/internal/bulk/models"
	id "idmcore/pkg/domain"
	dErrors "idmcore/pkg/domain-errors"
	"idmcore/pkg/requestcontext"
)

// ImmediateKeyPrefix prefixes the keys of run-once jobs.
const ImmediateKeyPrefix = "immediate-"

type job struct {
	entryID     cron.EntryID
	rule        models.Rule
	scheduledAt time.Time
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.location = loc
	}
}

// Scheduler owns the deployed rules. Jobs fire once per tick with no retry;
// a tick that finds the previous run still going is skipped.
type Scheduler struct {
	runner    *Runner
	cron      *cron.Cron
	mu        sync.Mutex
	jobs      map[id.RuleID]job
	immediate sync.WaitGroup
	baseCtx   context.Context
	location  *time.Location
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func New(runner *Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		jobs:     make(map[id.RuleID]job),
		baseCtx:  context.Background(),
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	cronLog := cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithParser(models.CronParser),
		cron.WithLocation(s.location),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	return s
}

// Start begins firing cron jobs. Jobs run with a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
}

// Stop halts the cron runner and waits for running jobs, immediate ones
// included, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.immediate.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every immediate job started so far has finished.
func (s *Scheduler) Wait() {
	s.immediate.Wait()
}

// ScheduleImmediateJob runs rule once in the background and returns the
// unique key it runs under.
func (s *Scheduler) ScheduleImmediateJob(ctx context.Context, rule models.Rule) (string, error) {
	if err := s.runner.CheckCondition(rule.Condition); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "invalid rule condition")
	}
	key := ImmediateKeyPrefix + uuid.NewString()
	snapshot := rule.Snapshot()
	if snapshot.ID == "" {
		snapshot.ID = id.RuleID(key)
	}
	runCtx := context.WithoutCancel(ctx)

	s.immediate.Add(1)
	go func() {
		defer s.immediate.Done()
		if _, err := s.runner.Run(runCtx, snapshot); err != nil {
			s.logger.ErrorContext(runCtx, "immediate bulk job failed", "key", key, "error", err)
		}
	}()
	s.logger.InfoContext(ctx, "immediate bulk job started", "key", key, "rule_id", snapshot.ID.String())
	return key, nil
}

// ScheduleJob deploys rule under its id.
func (s *Scheduler) ScheduleJob(ctx context.Context, rule models.Rule) error {
	if rule.ID == "" {
		return dErrors.New(dErrors.CodeValidation, "rule id is required")
	}
	if strings.HasPrefix(string(rule.ID), ImmediateKeyPrefix) {
		return dErrors.New(dErrors.CodeValidation, "rule id uses a reserved prefix")
	}
	schedule, err := models.CronParser.Parse(rule.CronExpression)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid cron expression")
	}
	if err := s.runner.CheckCondition(rule.Condition); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid rule condition")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[rule.ID]; exists {
		return dErrors.Newf(dErrors.CodeConflict, "rule %s is already scheduled", rule.ID)
	}
	snapshot := rule.Snapshot()
	baseCtx := s.baseCtx
	entryID := s.cron.Schedule(schedule, cron.FuncJob(func() {
		if _, err := s.runner.Run(baseCtx, snapshot); err != nil {
			s.logger.ErrorContext(baseCtx, "scheduled bulk job failed", "rule_id", snapshot.ID.String(), "error", err)
		}
	}))
	s.jobs[rule.ID] = job{entryID: entryID, rule: snapshot, scheduledAt: requestcontext.Now(ctx)}
	s.metrics.SetScheduled(len(s.jobs))
	s.logger.InfoContext(ctx, "bulk rule scheduled", "rule_id", rule.ID.String(), "cron", rule.CronExpression)
	return nil
}

// UndeployJob removes a scheduled rule. A run already in progress finishes.
func (s *Scheduler) UndeployJob(ctx context.Context, ruleID id.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[ruleID]
	if !ok {
		return dErrors.Newf(dErrors.CodeInternal, "there is no scheduled rule %s", ruleID)
	}
	s.cron.Remove(j.entryID)
	delete(s.jobs, ruleID)
	s.metrics.SetScheduled(len(s.jobs))
	s.logger.InfoContext(ctx, "bulk rule undeployed", "rule_id", ruleID.String())
	return nil
}

// UpdateJob replaces a scheduled rule. The old rule stays deployed if the
// new one is invalid.
func (s *Scheduler) UpdateJob(ctx context.Context, rule models.Rule) error {
	if _, err := models.CronParser.Parse(rule.CronExpression); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid cron expression")
	}
	if err := s.runner.CheckCondition(rule.Condition); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid rule condition")
	}
	if err := s.UndeployJob(ctx, rule.ID); err != nil {
		return err
	}
	return s.ScheduleJob(ctx, rule)
}

// ScheduledRules lists deployed rules ordered by id.
func (s *Scheduler) ScheduledRules() []models.Rule {
	withTS := s.ScheduledRulesWithTS()
	out := make([]models.Rule, len(withTS))
	for i, r := range withTS {
		out[i] = r.Rule
	}
	return out
}

// ScheduledRulesWithTS lists deployed rules with their scheduling time.
func (s *Scheduler) ScheduledRulesWithTS() []models.ScheduledRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ScheduledRule, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, models.ScheduledRule{Rule: j.rule.Snapshot(), ScheduledAt: j.scheduledAt})
	}
	slices.SortFunc(out, func(a, b models.ScheduledRule) int {
		return strings.Compare(string(a.Rule.ID), string(b.Rule.ID))
	})
	return out
}

// NextRun returns when a scheduled rule fires next.
func (s *Scheduler) NextRun(ruleID id.RuleID) (time.Time, bool) {
	s.mu.Lock()
	j, ok := s.jobs[ruleID]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(j.entryID).Next, true
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
