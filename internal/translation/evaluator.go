package translation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/cel-go/cel"
)

// Evaluator compiles profiles against an action registry and a condition language.
type Evaluator struct {
	registry   *Registry
	conditions *Conditions
	logger     *slog.Logger
	metrics    *Metrics
}

type Option func(*Evaluator)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

// NewEvaluator panics on nil collaborators; they are wiring mistakes.
func NewEvaluator(registry *Registry, conditions *Conditions, opts ...Option) *Evaluator {
	if registry == nil {
		panic("translation: registry is required")
	}
	if conditions == nil {
		panic("translation: conditions are required")
	}
	e := &Evaluator{registry: registry, conditions: conditions}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

type compiledRule struct {
	index   int
	rule    Rule
	program cel.Program
	action  Action
}

// CompiledProfile is a profile whose conditions and actions are resolved.
// It is safe for concurrent use.
type CompiledProfile struct {
	profile Profile
	rules   []compiledRule
	eval    *Evaluator
}

// Compile resolves every rule of p. A rule with an unusable condition or
// action is replaced by an always-firing blind stopper, so one bad rule
// never disables the rest of the profile.
func (e *Evaluator) Compile(ctx context.Context, p Profile) *CompiledProfile {
	cp := &CompiledProfile{profile: p, eval: e, rules: make([]compiledRule, 0, len(p.Rules))}
	for i, rule := range p.Rules {
		action, actionErr := e.registry.Resolve(rule.Action, e.logger)
		program, condErr := e.conditions.Compile(rule.Condition)
		if condErr != nil {
			action = NewBlindStopper(rule.Action, condErr, e.logger)
			program = nil
		}
		if err := errors.Join(actionErr, condErr); err != nil {
			e.configError(ctx, p, i, err)
		}
		cp.rules = append(cp.rules, compiledRule{index: i, rule: rule, program: program, action: action})
	}
	return cp
}

func (e *Evaluator) configError(ctx context.Context, p Profile, index int, err error) {
	e.metrics.incConfigError()
	e.logger.WarnContext(ctx, "translation rule misconfigured",
		"profile", p.Name,
		"rule", index,
		"error", err,
	)
}

// Profile returns the source definition.
func (c *CompiledProfile) Profile() Profile {
	return c.profile
}

// Translate runs every rule over req as a submitted request.
func (c *CompiledProfile) Translate(ctx context.Context, req Request) (*TranslatedRequest, error) {
	return c.run(ctx, req, StatusSubmitted)
}

// AutoProcessAction runs the profile and returns only its decision.
func (c *CompiledProfile) AutoProcessAction(ctx context.Context, req Request, status SubmitStatus) (AutomaticAction, error) {
	tr, err := c.run(ctx, req, status)
	if err != nil {
		return AutoNone, err
	}
	return tr.AutoAction(), nil
}

func (c *CompiledProfile) run(ctx context.Context, req Request, status SubmitStatus) (*TranslatedRequest, error) {
	logger := c.eval.logger
	vars := RequestView(req, status)
	b := newBuilder(req)

	for _, r := range c.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.program != nil {
			matched, err := evalProgram(r.program, vars)
			if err != nil {
				c.eval.metrics.incConditionError()
				logger.WarnContext(ctx, "translation rule condition failed, skipping rule",
					"profile", c.profile.Name,
					"rule", r.index,
					"error", err,
				)
				continue
			}
			if !matched {
				continue
			}
		}

		previous := b.tr.autoAction
		decided := b.decisions
		if err := r.action.Invoke(ctx, b); err != nil {
			logger.WarnContext(ctx, "translation action failed, skipping rule",
				"profile", c.profile.Name,
				"rule", r.index,
				"action", r.rule.Action.String(),
				"error", err,
			)
			continue
		}
		c.eval.metrics.incRuleFired(r.action.Name())
		if decided > 0 && b.decisions > decided {
			logger.WarnContext(ctx, "multiple automatic decisions in profile, last one wins",
				"profile", c.profile.Name,
				"rule", r.index,
				"previous", previous,
				"current", b.tr.autoAction,
			)
		}
	}

	tr := b.build()
	c.eval.metrics.incDecision(tr.autoAction)
	return tr, nil
}
