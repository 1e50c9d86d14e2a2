package audit

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "idmcore/pkg/domain"
	"idmcore/pkg/requestcontext"
)

// mockEmitter is a test double for the Emitter interface.
type mockEmitter struct {
	events    []Event
	shouldErr bool
}

func (m *mockEmitter) Emit(_ context.Context, event Event) error {
	if m.shouldErr {
		return errors.New("emit failed")
	}
	m.events = append(m.events, event)
	return nil
}

type LoggerSuite struct {
	suite.Suite
	emitter *mockEmitter
	logger  *Logger
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerSuite))
}

func (s *LoggerSuite) SetupTest() {
	s.emitter = &mockEmitter{}
	textLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s.logger = NewLogger(textLogger, s.emitter)
}

func (s *LoggerSuite) TestLogEnrichesFromContext() {
	ctx := requestcontext.WithRequestID(context.Background(), "req-12345")
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "curl/8.0")

	s.logger.Log(ctx, EventResetStarted, "subject", "alice")

	s.Require().Len(s.emitter.events, 1)
	s.Equal("req-12345", s.emitter.events[0].RequestID)
	s.Equal("10.0.0.1", s.emitter.events[0].ClientIP)
	s.Equal("curl/8.0", s.emitter.events[0].UserAgent)
	s.Equal(string(EventResetStarted), s.emitter.events[0].Action)
}

func (s *LoggerSuite) TestLogExtractsKnownFields() {
	s.logger.Log(context.Background(), EventEnquiryAutoDecided,
		"subject", "resp-1",
		"entity_id", "550e8400-e29b-41d4-a716-446655440001",
		"decision", "accept",
		"reason", "profile",
	)

	s.Require().Len(s.emitter.events, 1)
	ev := s.emitter.events[0]
	s.Equal("resp-1", ev.Subject)
	s.Equal("550e8400-e29b-41d4-a716-446655440001", ev.EntityID.String())
	s.Equal("accept", ev.Decision)
	s.Equal("profile", ev.Reason)
}

func (s *LoggerSuite) TestLogCollectsDetails() {
	s.logger.Log(context.Background(), EventResetFailed,
		"subject", "alice",
		"step", 2,
		slog.String("channel", "email"),
		"error", errors.New("wrong answer"),
		"dangling",
	)

	s.Require().Len(s.emitter.events, 1)
	ev := s.emitter.events[0]
	s.Equal("alice", ev.Subject)
	s.Equal(map[string]string{
		"step":    "2",
		"channel": "email",
		"error":   "wrong answer",
	}, ev.Details)
}

func (s *LoggerSuite) TestLogAcceptsStringers() {
	entityID := id.EntityID(uuid.MustParse("550e8400-e29b-41d4-a716-446655440002"))
	s.logger.Log(context.Background(), EventEnquiryAccepted, "subject", "resp-2", "entity_id", entityID)

	s.Require().Len(s.emitter.events, 1)
	s.Equal(entityID, s.emitter.events[0].EntityID)
	s.Nil(s.emitter.events[0].Details)
}

func (s *LoggerSuite) TestLogHandlesInvalidEntityID() {
	s.NotPanics(func() {
		s.logger.Log(context.Background(), EventOTPDenied, "subject", "bob", "entity_id", "not-a-uuid")
	})
	s.Require().Len(s.emitter.events, 1)
	s.True(s.emitter.events[0].EntityID.IsNil())
	s.Equal("bob", s.emitter.events[0].Subject)
}

func (s *LoggerSuite) TestLogHandlesEmitError() {
	s.emitter.shouldErr = true
	s.NotPanics(func() {
		s.logger.Log(context.Background(), EventBulkRun, "subject", "rule-1")
	})
	s.Empty(s.emitter.events)
}

func (s *LoggerSuite) TestNilCollaborators() {
	s.NotPanics(func() {
		NewLogger(nil, nil).Log(context.Background(), EventBulkRun)
	})
	var nilLogger *Logger
	s.NotPanics(func() {
		nilLogger.Log(context.Background(), EventBulkRun)
	})

	emitter := &mockEmitter{}
	NewLogger(nil, emitter).Log(context.Background(), EventBulkRun, "subject", "rule-1")
	s.Len(emitter.events, 1)
}
