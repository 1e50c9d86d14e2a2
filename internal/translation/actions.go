package translation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"idmcore/internal/identity/models"
)

// Action applies one rule effect to the translation under construction.
type Action interface {
	Name() string
	Invoke(ctx context.Context, b *Builder) error
}

// Factory builds an action from its positional parameters. It returns an
// error when the parameters are unusable.
type Factory func(params []string) (Action, error)

// Registry maps action names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// Built-in action names.
const (
	ActionAutoProcess       = "autoProcess"
	ActionAddAttribute      = "addAttribute"
	ActionAddToGroup        = "addToGroup"
	ActionAddIdentity       = "addIdentity"
	ActionSetAttributeClass = "setAttributeClass"
	ActionAddCredential     = "addCredential"
	ActionFilterAttribute   = "filterAttribute"
	ActionFilterGroup       = "filterGroup"
)

// NewRegistry returns a registry preloaded with the built-in actions.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(ActionAutoProcess, newAutoProcessAction)
	r.Register(ActionAddAttribute, newAddAttributeAction)
	r.Register(ActionAddToGroup, newAddToGroupAction)
	r.Register(ActionAddIdentity, newAddIdentityAction)
	r.Register(ActionSetAttributeClass, newSetAttributeClassAction)
	r.Register(ActionAddCredential, newAddCredentialAction)
	r.Register(ActionFilterAttribute, newFilterAttributeAction)
	r.Register(ActionFilterGroup, newFilterGroupAction)
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Resolve builds the action for inv. The returned action is never nil: an
// unknown name or bad parameters yield a blind stopper, which logs on every
// invocation, together with the configuration error.
func (r *Registry) Resolve(inv ActionInvocation, logger *slog.Logger) (Action, error) {
	r.mu.RLock()
	factory, ok := r.factories[inv.Name]
	r.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("unknown action %q", inv.Name)
		return NewBlindStopper(inv, err, logger), err
	}
	action, err := factory(inv.Parameters)
	if err != nil {
		err = fmt.Errorf("action %s: %w", inv, err)
		return NewBlindStopper(inv, err, logger), err
	}
	return action, nil
}

// BlindStopper stands in for an action that could not be loaded.
type BlindStopper struct {
	invocation ActionInvocation
	cause      error
	logger     *slog.Logger
}

func NewBlindStopper(inv ActionInvocation, cause error, logger *slog.Logger) *BlindStopper {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlindStopper{invocation: inv, cause: cause, logger: logger}
}

func (a *BlindStopper) Name() string { return a.invocation.Name }

func (a *BlindStopper) Invoke(ctx context.Context, _ *Builder) error {
	a.logger.WarnContext(ctx, "skipping invocation of an invalid action",
		"action", a.invocation.String(),
		"cause", a.cause,
	)
	return nil
}

type autoProcessAction struct {
	decision AutomaticAction
}

func newAutoProcessAction(params []string) (Action, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("expects exactly one parameter")
	}
	decision, err := ParseAutomaticAction(params[0])
	if err != nil {
		return nil, err
	}
	return &autoProcessAction{decision: decision}, nil
}

func (a *autoProcessAction) Name() string { return ActionAutoProcess }

func (a *autoProcessAction) Invoke(_ context.Context, b *Builder) error {
	b.SetAutoAction(a.decision)
	return nil
}

type addAttributeAction struct {
	attr models.Attribute
}

func newAddAttributeAction(params []string) (Action, error) {
	if len(params) < 3 {
		return nil, fmt.Errorf("expects name, group and at least one value")
	}
	if params[0] == "" {
		return nil, fmt.Errorf("attribute name is empty")
	}
	if !strings.HasPrefix(params[1], "/") {
		return nil, fmt.Errorf("group %q is not an absolute path", params[1])
	}
	return &addAttributeAction{attr: models.Attribute{
		Name:      params[0],
		GroupPath: params[1],
		Values:    append([]string(nil), params[2:]...),
	}}, nil
}

func (a *addAttributeAction) Name() string { return ActionAddAttribute }

func (a *addAttributeAction) Invoke(_ context.Context, b *Builder) error {
	b.AddAttribute(a.attr)
	return nil
}

type addToGroupAction struct {
	path string
}

func newAddToGroupAction(params []string) (Action, error) {
	if len(params) != 1 || !strings.HasPrefix(params[0], "/") {
		return nil, fmt.Errorf("expects one absolute group path")
	}
	return &addToGroupAction{path: params[0]}, nil
}

func (a *addToGroupAction) Name() string { return ActionAddToGroup }

func (a *addToGroupAction) Invoke(_ context.Context, b *Builder) error {
	for _, g := range models.GroupChain(a.path) {
		b.AddGroup(g)
	}
	return nil
}

type addIdentityAction struct {
	ident models.IdentityParam
}

func newAddIdentityAction(params []string) (Action, error) {
	if len(params) != 2 || params[0] == "" || params[1] == "" {
		return nil, fmt.Errorf("expects identity type and value")
	}
	return &addIdentityAction{ident: models.IdentityParam{TypeID: params[0], Value: params[1]}}, nil
}

func (a *addIdentityAction) Name() string { return ActionAddIdentity }

func (a *addIdentityAction) Invoke(_ context.Context, b *Builder) error {
	b.AddIdentity(a.ident)
	return nil
}

type setAttributeClassAction struct {
	group   string
	classes []string
}

func newSetAttributeClassAction(params []string) (Action, error) {
	if len(params) < 2 || !strings.HasPrefix(params[0], "/") {
		return nil, fmt.Errorf("expects group path and at least one class")
	}
	return &setAttributeClassAction{group: params[0], classes: append([]string(nil), params[1:]...)}, nil
}

func (a *setAttributeClassAction) Name() string { return ActionSetAttributeClass }

func (a *setAttributeClassAction) Invoke(_ context.Context, b *Builder) error {
	b.SetAttributeClasses(a.group, a.classes)
	return nil
}

type addCredentialAction struct {
	cred CredentialParam
}

func newAddCredentialAction(params []string) (Action, error) {
	if len(params) != 2 || params[0] == "" || params[1] == "" {
		return nil, fmt.Errorf("expects credential id and secret")
	}
	return &addCredentialAction{cred: CredentialParam{CredentialID: params[0], Secrets: params[1]}}, nil
}

func (a *addCredentialAction) Name() string { return ActionAddCredential }

func (a *addCredentialAction) Invoke(_ context.Context, b *Builder) error {
	b.AddCredential(a.cred)
	return nil
}

type filterAttributeAction struct {
	pattern *regexp.Regexp
}

func newFilterAttributeAction(params []string) (Action, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("expects one attribute name pattern")
	}
	re, err := regexp.Compile(params[0])
	if err != nil {
		return nil, err
	}
	return &filterAttributeAction{pattern: re}, nil
}

func (a *filterAttributeAction) Name() string { return ActionFilterAttribute }

func (a *filterAttributeAction) Invoke(_ context.Context, b *Builder) error {
	b.RemoveAttributes(func(attr models.Attribute) bool {
		return a.pattern.MatchString(attr.Name)
	})
	return nil
}

type filterGroupAction struct {
	pattern *regexp.Regexp
}

func newFilterGroupAction(params []string) (Action, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("expects one group path pattern")
	}
	re, err := regexp.Compile(params[0])
	if err != nil {
		return nil, err
	}
	return &filterGroupAction{pattern: re}, nil
}

func (a *filterGroupAction) Name() string { return ActionFilterGroup }

func (a *filterGroupAction) Invoke(_ context.Context, b *Builder) error {
	b.RemoveGroups(a.pattern.MatchString)
	b.RemoveAttributes(func(attr models.Attribute) bool {
		return attr.GroupPath != models.RootGroup && a.pattern.MatchString(attr.GroupPath)
	})
	return nil
}
