package translation

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Variables exposed to registration and enquiry rule conditions.
const (
	VarIdsByType  = "idsByType"
	VarAttrs      = "attrs"
	VarGroups     = "groups"
	VarStatus     = "status"
	VarAgreements = "agreements"
)

// RequestVariables declares the request view seen by translation conditions.
func RequestVariables() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Variable(VarIdsByType, cel.MapType(cel.StringType, cel.ListType(cel.StringType))),
		cel.Variable(VarAttrs, cel.MapType(cel.StringType, cel.ListType(cel.StringType))),
		cel.Variable(VarGroups, cel.ListType(cel.StringType)),
		cel.Variable(VarStatus, cel.StringType),
		cel.Variable(VarAgreements, cel.ListType(cel.BoolType)),
	}
}

// Conditions compiles and evaluates boolean CEL expressions. Compiled
// programs are cached per expression text and shared by all profiles.
type Conditions struct {
	env   *cel.Env
	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewConditions builds an evaluator over the given variable declarations.
func NewConditions(vars ...cel.EnvOption) (*Conditions, error) {
	env, err := cel.NewEnv(vars...)
	if err != nil {
		return nil, fmt.Errorf("create CEL env: %w", err)
	}
	return &Conditions{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Compile checks expr and caches its program. The expression must yield a bool.
func (c *Conditions) Compile(expr string) (cel.Program, error) {
	c.mu.RLock()
	prg, hit := c.cache[expr]
	c.mu.RUnlock()
	if hit {
		return prg, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prg, hit = c.cache[expr]; hit {
		return prg, nil
	}
	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile condition %q: %w", expr, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("condition %q yields %s, not bool", expr, out)
	}
	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build program for %q: %w", expr, err)
	}
	c.cache[expr] = prg
	return prg, nil
}

// Eval compiles (or reuses) expr and evaluates it against vars.
func (c *Conditions) Eval(expr string, vars map[string]any) (bool, error) {
	prg, err := c.Compile(expr)
	if err != nil {
		return false, err
	}
	return evalProgram(prg, vars)
}

func evalProgram(prg cel.Program, vars map[string]any) (bool, error) {
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluate condition: %w", err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition result %v is not boolean", out.Value())
	}
	return matched, nil
}

// RequestView flattens a request into the variables conditions see.
func RequestView(req Request, status SubmitStatus) map[string]any {
	idsByType := make(map[string][]string)
	for _, ident := range req.Identities {
		idsByType[ident.TypeID] = append(idsByType[ident.TypeID], ident.Value)
	}
	attrs := make(map[string][]string)
	for _, a := range req.Attributes {
		attrs[a.Name] = append(attrs[a.Name], a.Values...)
	}
	groups := make([]string, 0, len(req.Groups))
	groups = append(groups, req.Groups...)
	agreements := make([]bool, 0, len(req.Agreements))
	agreements = append(agreements, req.Agreements...)
	return map[string]any{
		VarIdsByType:  idsByType,
		VarAttrs:      attrs,
		VarGroups:     groups,
		VarStatus:     string(status),
		VarAgreements: agreements,
	}
}
