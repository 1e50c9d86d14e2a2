package translation

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"idmcore/internal/identity/models"
)

type EvaluatorSuite struct {
	suite.Suite
	ctx       context.Context
	logs      *bytes.Buffer
	metrics   *Metrics
	evaluator *Evaluator
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.logs = &bytes.Buffer{}
	conditions, err := NewConditions(RequestVariables()...)
	s.Require().NoError(err)
	logger := slog.New(slog.NewTextHandler(s.logs, nil))
	s.metrics = newMetrics(promauto.With(prometheus.NewRegistry()))
	s.evaluator = NewEvaluator(NewRegistry(), conditions, WithLogger(logger), WithMetrics(s.metrics))
}

func aliceRequest() Request {
	return Request{
		Identities: []models.IdentityParam{
			{TypeID: models.IdentityTypeUsername, Value: "alice"},
			{TypeID: models.IdentityTypeEmail, Value: "alice@example.com"},
		},
		Attributes: []models.Attribute{{Name: "name", Values: []string{"Alice"}}},
		Agreements: []bool{true},
	}
}

func rule(cond, action string, params ...string) Rule {
	return Rule{Condition: cond, Action: ActionInvocation{Name: action, Parameters: params}}
}

func (s *EvaluatorSuite) compile(rules ...Rule) *CompiledProfile {
	return s.evaluator.Compile(s.ctx, Profile{Name: "form-profile", Type: ProfileTypeEnquiry, Rules: rules})
}

func (s *EvaluatorSuite) TestTranslate() {
	s.Run("request contents are carried over", func() {
		tr, err := s.compile().Translate(s.ctx, aliceRequest())
		s.Require().NoError(err)
		s.Len(tr.Identities(), 2)
		s.Equal(AutoNone, tr.AutoAction())
		root, byGroup := tr.RoutedAttributes()
		s.Require().Len(root, 1)
		s.Equal(models.RootGroup, root[0].GroupPath)
		s.Empty(byGroup)
	})

	s.Run("matching rules apply in order", func() {
		cp := s.compile(
			rule(`'alice' in idsByType['userName']`, ActionAddToGroup, "/staff/dev"),
			rule(`'/staff/dev' in groups || true`, ActionAddAttribute, "role", "/staff", "engineer"),
			rule(`false`, ActionAddToGroup, "/never"),
			rule(`true`, ActionSetAttributeClass, "/staff", "employee"),
			rule(`true`, ActionAddCredential, "password", "s3cret"),
		)
		tr, err := cp.Translate(s.ctx, aliceRequest())
		s.Require().NoError(err)
		s.Equal([]string{"/staff", "/staff/dev"}, tr.Groups())
		_, byGroup := tr.RoutedAttributes()
		s.Require().Len(byGroup["/staff"], 1)
		s.Equal([]string{"engineer"}, byGroup["/staff"][0].Values)
		s.Equal(map[string][]string{"/staff": {"employee"}}, tr.AttributeClasses())
		s.Equal([]CredentialParam{{CredentialID: "password", Secrets: "s3cret"}}, tr.Credentials())
	})

	s.Run("filters drop attributes and groups", func() {
		req := aliceRequest()
		req.Groups = []string{"/tmp", "/keep"}
		req.Attributes = append(req.Attributes, models.Attribute{Name: "note", GroupPath: "/tmp", Values: []string{"x"}})
		cp := s.compile(
			rule(`true`, ActionFilterGroup, "^/tmp"),
			rule(`true`, ActionFilterAttribute, "^name$"),
		)
		tr, err := cp.Translate(s.ctx, req)
		s.Require().NoError(err)
		s.Equal([]string{"/keep"}, tr.Groups())
		s.Empty(tr.Attributes())
	})

	s.Run("accessors return copies", func() {
		tr, err := s.compile().Translate(s.ctx, aliceRequest())
		s.Require().NoError(err)
		attrs := tr.Attributes()
		attrs[0].Values[0] = "Mallory"
		s.Equal("Alice", tr.Attributes()[0].Values[0])
	})

	s.Run("cancelled context stops evaluation", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		_, err := s.compile(rule(`true`, ActionAddToGroup, "/a")).Translate(ctx, aliceRequest())
		s.ErrorIs(err, context.Canceled)
	})
}

func (s *EvaluatorSuite) TestAutoProcessAction() {
	s.Run("no decision is none", func() {
		decision, err := s.compile().AutoProcessAction(s.ctx, aliceRequest(), StatusSubmitted)
		s.Require().NoError(err)
		s.Equal(AutoNone, decision)
	})

	s.Run("alice is accepted", func() {
		cp := s.compile(rule(`'alice' in idsByType['userName'] && agreements.all(a, a)`, ActionAutoProcess, "accept"))
		decision, err := cp.AutoProcessAction(s.ctx, aliceRequest(), StatusSubmitted)
		s.Require().NoError(err)
		s.Equal(AutoAccept, decision)
	})

	s.Run("status is visible to conditions", func() {
		cp := s.compile(rule(`status == 'notSubmitted'`, ActionAutoProcess, "drop"))
		decision, err := cp.AutoProcessAction(s.ctx, aliceRequest(), StatusNotSubmitted)
		s.Require().NoError(err)
		s.Equal(AutoDrop, decision)

		decision, err = cp.AutoProcessAction(s.ctx, aliceRequest(), StatusSubmitted)
		s.Require().NoError(err)
		s.Equal(AutoNone, decision)
	})

	s.Run("last decision wins with a warning", func() {
		s.logs.Reset()
		cp := s.compile(
			rule(`true`, ActionAutoProcess, "accept"),
			rule(`true`, ActionAutoProcess, "reject"),
		)
		decision, err := cp.AutoProcessAction(s.ctx, aliceRequest(), StatusSubmitted)
		s.Require().NoError(err)
		s.Equal(AutoReject, decision)
		s.Contains(s.logs.String(), "multiple automatic decisions")
	})
}

func (s *EvaluatorSuite) TestMisconfiguredRules() {
	s.Run("unknown action becomes a blind stopper", func() {
		s.logs.Reset()
		cp := s.compile(
			rule(`true`, "noSuchAction"),
			rule(`true`, ActionAddToGroup, "/ok"),
		)
		tr, err := cp.Translate(s.ctx, aliceRequest())
		s.Require().NoError(err)
		s.Equal([]string{"/ok"}, tr.Groups())
		s.Contains(s.logs.String(), "skipping invocation of an invalid action")
	})

	s.Run("bad parameters become a blind stopper", func() {
		s.logs.Reset()
		tr, err := s.compile(rule(`true`, ActionAutoProcess, "maybe")).Translate(s.ctx, aliceRequest())
		s.Require().NoError(err)
		s.Equal(AutoNone, tr.AutoAction())
		s.Contains(s.logs.String(), "skipping invocation of an invalid action")
	})

	s.Run("uncompilable condition becomes a blind stopper", func() {
		s.logs.Reset()
		tr, err := s.compile(rule(`idsByType[`, ActionAutoProcess, "accept")).Translate(s.ctx, aliceRequest())
		s.Require().NoError(err)
		s.Equal(AutoNone, tr.AutoAction())
		s.Contains(s.logs.String(), "translation rule misconfigured")
	})

	s.Run("rule broken twice is reported once", func() {
		s.logs.Reset()
		before := testutil.ToFloat64(s.metrics.ConfigErrors)
		tr, err := s.compile(rule(`idsByType[`, "noSuchAction")).Translate(s.ctx, aliceRequest())
		s.Require().NoError(err)
		s.Empty(tr.Groups())
		s.Equal(1, strings.Count(s.logs.String(), "translation rule misconfigured"))
		s.Equal(before+1, testutil.ToFloat64(s.metrics.ConfigErrors))
	})

	s.Run("non boolean condition is rejected", func() {
		tr, err := s.compile(rule(`'x'`, ActionAddToGroup, "/x")).Translate(s.ctx, aliceRequest())
		s.Require().NoError(err)
		s.Empty(tr.Groups())
	})

	s.Run("runtime condition failure skips only that rule", func() {
		s.logs.Reset()
		cp := s.compile(
			rule(`idsByType['mobile'][0] == '1'`, ActionAutoProcess, "reject"),
			rule(`true`, ActionAutoProcess, "accept"),
		)
		decision, err := cp.AutoProcessAction(s.ctx, aliceRequest(), StatusSubmitted)
		s.Require().NoError(err)
		s.Equal(AutoAccept, decision)
		s.Contains(s.logs.String(), "condition failed")
	})
}

func TestTranslateIsDeterministic(t *testing.T) {
	conditions, err := NewConditions(RequestVariables()...)
	require.NoError(t, err)
	evaluator := NewEvaluator(NewRegistry(), conditions, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	cp := evaluator.Compile(context.Background(), Profile{
		Name: "deterministic",
		Type: ProfileTypeRegistration,
		Rules: []Rule{
			rule(`size(idsByType['userName']) > 0 && idsByType['userName'][0].startsWith('a')`, ActionAutoProcess, "accept"),
			rule(`'b' in idsByType['userName']`, ActionAddToGroup, "/b/c"),
			rule(`size(attrs) > 1`, ActionAutoProcess, "reject"),
			rule(`true`, ActionAddAttribute, "origin", "/", "rule"),
		},
	})

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("same input yields equal translations", prop.ForAll(
		func(user string, attrNames []string) bool {
			req := Request{Identities: []models.IdentityParam{{TypeID: models.IdentityTypeUsername, Value: user}}}
			for _, n := range attrNames {
				req.Attributes = append(req.Attributes, models.Attribute{Name: n, Values: []string{n}})
			}
			first, err := cp.Translate(context.Background(), req)
			if err != nil {
				return false
			}
			second, err := cp.Translate(context.Background(), req)
			if err != nil {
				return false
			}
			return first.Equal(second)
		},
		gen.AlphaString(),
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}
