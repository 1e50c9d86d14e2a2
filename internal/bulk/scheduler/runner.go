package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"idmcore/internal/bulk/actions"
	"idmcore/internal/bulk/metrics"
	"idmcore/internal/bulk/models"
	idmodels "idmcore/internal/identity/models"
	"idmcore/internal/platform/tracer"
	"idmcore/internal/translation"
	"idmcore/pkg/platform/audit"
)

// EntityLister enumerates every entity a rule visits.
type EntityLister interface {
	List(ctx context.Context) ([]*idmodels.Entity, error)
}

type RunnerOption func(*Runner)

func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithRunnerMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithRunnerAuditor(a *audit.Logger) RunnerOption {
	return func(r *Runner) {
		r.auditor = a
	}
}

func WithRunnerTracer(t tracer.Tracer) RunnerOption {
	return func(r *Runner) {
		r.tracer = t
	}
}

// WithParallelism bounds how many entities are processed at once.
func WithParallelism(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// Runner executes one rule against all entities.
type Runner struct {
	entities    EntityLister
	registry    *actions.Registry
	conditions  *translation.Conditions
	parallelism int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	auditor     *audit.Logger
	tracer      tracer.Tracer
}

func NewRunner(entities EntityLister, registry *actions.Registry, conditions *translation.Conditions, opts ...RunnerOption) *Runner {
	r := &Runner{
		entities:    entities,
		registry:    registry,
		conditions:  conditions,
		parallelism: 4,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = tracer.NewNoop()
	}
	return r
}

// CheckCondition reports whether condition compiles against the entity view.
func (r *Runner) CheckCondition(condition string) error {
	_, err := r.conditions.Compile(conditionText(condition))
	return err
}

// Run visits every entity once. Per-entity failures are logged and counted;
// only a failure to list entities fails the run.
func (r *Runner) Run(ctx context.Context, rule models.Rule) (result models.RunResult, err error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "bulk.run",
		tracer.String("rule_id", rule.ID.String()),
		tracer.String("action", rule.Action.Name),
	)
	defer func() { span.End(err) }()

	result.RuleID = rule.ID
	defer func() {
		r.metrics.ObserveRun(time.Since(start).Seconds())
		r.record(ctx, rule, result, err)
	}()

	entities, err := r.entities.List(ctx)
	if err != nil {
		return result, fmt.Errorf("list entities: %w", err)
	}
	condition := conditionText(rule.Condition)
	if _, err = r.conditions.Compile(condition); err != nil {
		return result, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	action := r.registry.Resolve(rule.Action, r.logger)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, entity := range entities {
		g.Go(func() error {
			matched, failed := r.visit(gctx, rule, condition, action, entity)
			mu.Lock()
			result.Evaluated++
			if matched {
				result.Matched++
			}
			if failed {
				result.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // visits never return errors
	span.SetAttributes(
		tracer.Int64("entities", int64(result.Evaluated)),
		tracer.Int64("matched", int64(result.Matched)),
	)
	return result, nil
}

func (r *Runner) visit(ctx context.Context, rule models.Rule, condition string, action actions.EntityAction, entity *idmodels.Entity) (matched, failed bool) {
	ok, err := r.conditions.Eval(condition, EntityView(entity))
	if err != nil {
		r.logger.WarnContext(ctx, "bulk condition failed",
			"rule_id", rule.ID.String(),
			"entity_id", entity.ID.String(),
			"error", err,
		)
		return false, true
	}
	if !ok {
		return false, false
	}
	if err := action.Invoke(ctx, entity); err != nil {
		r.logger.ErrorContext(ctx, "bulk action failed",
			"rule_id", rule.ID.String(),
			"entity_id", entity.ID.String(),
			"action", action.Name(),
			"error", err,
		)
		return true, true
	}
	return true, false
}

func (r *Runner) record(ctx context.Context, rule models.Rule, result models.RunResult, err error) {
	outcome := "completed"
	if err != nil {
		outcome = "failed"
		r.logger.ErrorContext(ctx, "bulk rule run failed", "rule_id", rule.ID.String(), "error", err)
	} else {
		r.logger.InfoContext(ctx, "bulk rule run finished",
			"rule_id", rule.ID.String(),
			"evaluated", result.Evaluated,
			"matched", result.Matched,
			"failed", result.Failed,
		)
	}
	r.metrics.IncRun(outcome)
	r.metrics.AddEntities("matched", result.Matched)
	r.metrics.AddEntities("skipped", result.Evaluated-result.Matched)
	r.metrics.AddEntities("failed", result.Failed)
	r.auditor.Log(ctx, audit.EventBulkRun,
		"subject", rule.ID.String(),
		"decision", outcome,
		"reason", fmt.Sprintf("%s matched %d of %d", rule.Action.Name, result.Matched, result.Evaluated),
	)
}

func conditionText(condition string) string {
	if condition == "" {
		return "true"
	}
	return condition
}
