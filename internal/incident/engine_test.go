package incident

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks EventSource,Responder,Alerter,Sink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"careshield/internal/audit"
	"careshield/internal/incident/mocks"
)

type EngineSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	responder *mocks.MockResponder
	alerter   *mocks.MockAlerter
	sink      *mocks.MockSink
	events    *audit.InMemoryStore
	now       time.Time
	engine    *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.responder = mocks.NewMockResponder(s.ctrl)
	s.alerter = mocks.NewMockAlerter(s.ctrl)
	s.sink = mocks.NewMockSink(s.ctrl)
	s.events = audit.NewInMemoryStore(0)
	s.now = time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	s.engine = NewEngine(s.events, s.responder,
		WithAlerter(s.alerter),
		WithSink(s.sink),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithEngineClock(func() time.Time { return s.now }),
	)
}

func (s *EngineSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *EngineSuite) appendLoginFailures(ip string, count int) {
	for i := 0; i < count; i++ {
		_ = s.events.Append(context.Background(), audit.Event{
			Timestamp: s.now.Add(-time.Duration(i) * time.Minute),
			Type:      audit.EventLoginFailed,
			Severity:  audit.SeverityMedium,
			IP:        ip,
		})
	}
}

func (s *EngineSuite) TestBruteForceRaisesExactlyOneIncident() {
	s.appendLoginFailures("203.0.113.9", 10)

	s.responder.EXPECT().BlockIP(gomock.Any(), "203.0.113.9").Return(nil).Times(1)
	s.sink.EXPECT().SaveIncident(gomock.Any(), gomock.Any(), gomock.Any(),
		string(TypeBruteForce), string(audit.SeverityHigh), "", "203.0.113.9",
		gomock.Any(), false, []string{"BLOCK_IP"}).Return(nil).Times(1)

	raised := s.engine.Scan(context.Background())
	s.Require().Len(raised, 1)
	s.Equal(TypeBruteForce, raised[0].Type)
	s.Equal([]string{"BLOCK_IP"}, raised[0].ResponseActions)

	// A second scan over the same failures raises nothing while the incident
	// stays open.
	s.Empty(s.engine.Scan(context.Background()))
}

func (s *EngineSuite) TestBruteForceBelowThresholdRaisesNothing() {
	s.appendLoginFailures("203.0.113.9", 9)
	s.Empty(s.engine.Scan(context.Background()))
}

func (s *EngineSuite) TestFailuresOutsideWindowIgnored() {
	for i := 0; i < 10; i++ {
		_ = s.events.Append(context.Background(), audit.Event{
			Timestamp: s.now.Add(-2 * time.Hour),
			Type:      audit.EventLoginFailed,
			IP:        "203.0.113.9",
		})
	}
	s.Empty(s.engine.Scan(context.Background()))
}

func (s *EngineSuite) TestResolveAllowsRecurrence() {
	s.appendLoginFailures("203.0.113.9", 10)

	s.responder.EXPECT().BlockIP(gomock.Any(), "203.0.113.9").Return(nil).Times(2)
	s.sink.EXPECT().SaveIncident(gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	raised := s.engine.Scan(context.Background())
	s.Require().Len(raised, 1)

	s.Require().NoError(s.engine.Resolve(context.Background(), raised[0].ID))

	raised = s.engine.Scan(context.Background())
	s.Require().Len(raised, 1)
	s.False(raised[0].Resolved)
}

func (s *EngineSuite) TestResolveUnknownIncident() {
	s.Error(s.engine.Resolve(context.Background(), "nope"))
}

func (s *EngineSuite) TestSessionHijackBlocksAndAlerts() {
	_ = s.events.Append(context.Background(), audit.Event{
		Timestamp: s.now,
		Type:      audit.EventSessionHijackAttempt,
		Severity:  audit.SeverityCritical,
		UserID:    "user-7",
		IP:        "198.51.100.4",
		Method:    "GET",
		Path:      "/api/carers",
	})

	s.responder.EXPECT().BlockIP(gomock.Any(), "198.51.100.4").Return(nil)
	s.responder.EXPECT().InvalidateUserSessions(gomock.Any(), "user-7").Return(nil)
	s.sink.EXPECT().SaveIncident(gomock.Any(), gomock.Any(), gomock.Any(),
		string(TypeSessionHijack), string(audit.SeverityCritical), "user-7",
		"198.51.100.4", gomock.Any(), false,
		[]string{"BLOCK_IP", "INVALIDATE_SESSIONS"}).Return(nil)
	s.alerter.EXPECT().Alert(gomock.Any()).Return(nil)

	raised := s.engine.Scan(context.Background())
	s.Require().Len(raised, 1)
	s.Equal(audit.SeverityCritical, raised[0].Severity)
}

func (s *EngineSuite) TestInjectionBlocksAndFlags() {
	_ = s.events.Append(context.Background(), audit.Event{
		Timestamp: s.now,
		Type:      audit.EventSuspiciousInput,
		UserID:    "user-3",
		IP:        "198.51.100.4",
	})

	s.responder.EXPECT().BlockIP(gomock.Any(), "198.51.100.4").Return(nil)
	s.responder.EXPECT().FlagUser(gomock.Any(), "user-3").Return(nil)
	s.sink.EXPECT().SaveIncident(gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	raised := s.engine.Scan(context.Background())
	s.Require().Len(raised, 1)
	s.Equal(TypeInjection, raised[0].Type)
}

func (s *EngineSuite) TestRateLimitBreachOnlyWatches() {
	_ = s.events.Append(context.Background(), audit.Event{
		Timestamp: s.now,
		Type:      audit.EventRateLimitExceeded,
		IP:        "198.51.100.4",
	})

	s.responder.EXPECT().WatchIP(gomock.Any(), "198.51.100.4").Return(nil)
	s.sink.EXPECT().SaveIncident(gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	raised := s.engine.Scan(context.Background())
	s.Require().Len(raised, 1)
	s.Equal(TypeRateLimitAbuse, raised[0].Type)
	s.Equal([]string{"WATCH_IP"}, raised[0].ResponseActions)
}

func (s *EngineSuite) TestFailedActionDoesNotStopOthers() {
	_ = s.events.Append(context.Background(), audit.Event{
		Timestamp: s.now,
		Type:      audit.EventSuspiciousInput,
		UserID:    "user-3",
		IP:        "198.51.100.4",
	})

	s.responder.EXPECT().BlockIP(gomock.Any(), "198.51.100.4").Return(errors.New("store down"))
	s.responder.EXPECT().FlagUser(gomock.Any(), "user-3").Return(nil)
	s.sink.EXPECT().SaveIncident(gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	raised := s.engine.Scan(context.Background())
	s.Require().Len(raised, 1)
	// Only the successful action is recorded.
	s.Equal([]string{"FLAG_USER"}, raised[0].ResponseActions)
}

func (s *EngineSuite) TestRecentOrdersNewestFirst() {
	s.responder.EXPECT().WatchIP(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.sink.EXPECT().SaveIncident(gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
		gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	_ = s.events.Append(context.Background(), audit.Event{
		Timestamp: s.now, Type: audit.EventRateLimitExceeded, IP: "10.0.0.1",
	})
	s.engine.Scan(context.Background())

	s.now = s.now.Add(time.Minute)
	_ = s.events.Append(context.Background(), audit.Event{
		Timestamp: s.now, Type: audit.EventRateLimitExceeded, IP: "10.0.0.2",
	})
	s.engine.Scan(context.Background())

	recent := s.engine.Recent(10)
	s.Require().Len(recent, 2)
	s.Equal("10.0.0.2", recent[0].IP)
	s.Equal("10.0.0.1", recent[1].IP)

	s.Len(s.engine.Recent(1), 1)
}

// TestBlockVisibleImmediately exercises the real responder end to end: the
// block must bind before Scan returns so the attacker's next request is
// already rejected.
func TestBlockVisibleImmediately(t *testing.T) {
	now := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	events := audit.NewInMemoryStore(0)
	for i := 0; i < 10; i++ {
		_ = events.Append(context.Background(), audit.Event{
			Timestamp: now, Type: audit.EventLoginFailed, IP: "203.0.113.9",
		})
	}

	blocklist := NewBlockList()
	sessions := &fakeSessions{}
	engine := NewEngine(events, NewStoreResponder(blocklist, sessions),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithEngineClock(func() time.Time { return now }),
	)

	raised := engine.Scan(context.Background())
	if len(raised) != 1 {
		t.Fatalf("expected 1 incident, got %d", len(raised))
	}
	if !blocklist.IsBlocked("203.0.113.9") {
		t.Fatal("IP not blocked after scan returned")
	}
}

type fakeSessions struct {
	invalidated []string
}

func (f *fakeSessions) InvalidateUser(userID string) int {
	f.invalidated = append(f.invalidated, userID)
	return 1
}
