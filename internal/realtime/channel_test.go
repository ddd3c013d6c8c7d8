package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/yexiu0529666/gobang/internal/gobangtest"
	"github.com/yexiu0529666/gobang/internal/model"
	"github.com/yexiu0529666/gobang/internal/realtime"
	"github.com/yexiu0529666/gobang/internal/testutil"
)

type staticCreds struct {
	token string
}

func (c *staticCreds) Credential() string {
	return c.token
}

type ChannelSuite struct {
	suite.Suite
	srv    *gobangtest.Server
	userID model.UserID
	token  string
	ctx    context.Context
}

func TestChannelSuite(t *testing.T) {
	suite.Run(t, new(ChannelSuite))
}

func (s *ChannelSuite) SetupTest() {
	s.srv = gobangtest.New(s.T())
	s.userID = s.srv.SeedAccount("alice", "hunter2")
	s.token = s.srv.SeedToken(s.userID)
	s.ctx = context.Background()
}

func (s *ChannelSuite) newChannel(token string) *realtime.Channel {
	ch := realtime.NewChannel(realtime.Config{
		URL:                  s.srv.WSURL(),
		DialTimeout:          5 * time.Second,
		ReconnectMin:         10 * time.Millisecond,
		ReconnectMax:         100 * time.Millisecond,
		MaxReconnectAttempts: 3,
	}, &staticCreds{token: token}, testutil.NopLogger())
	s.T().Cleanup(ch.Disconnect)
	return ch
}

func (s *ChannelSuite) TestConnectCompletesHandshake() {
	ch := s.newChannel(s.token)
	s.Equal(realtime.StateDisconnected, ch.State())

	err := ch.Connect(s.ctx)
	s.Require().NoError(err)
	s.Equal(realtime.StateConnected, ch.State())
}

func (s *ChannelSuite) TestConnectIsIdempotent() {
	ch := s.newChannel(s.token)
	s.Require().NoError(ch.Connect(s.ctx))
	s.Require().NoError(ch.Connect(s.ctx))
	s.Equal(realtime.StateConnected, ch.State())
}

func (s *ChannelSuite) TestConnectRejectedWithoutCredential() {
	ch := s.newChannel("")

	err := ch.Connect(s.ctx)
	s.Require().Error(err)
	s.Equal(realtime.StateDisconnected, ch.State())
}

func (s *ChannelSuite) TestEmitWhileDisconnected() {
	ch := s.newChannel(s.token)

	err := ch.Emit(s.ctx, model.EventMakeMove, model.MakeMovePayload{MatchID: 1, X: 7, Y: 7})
	s.ErrorIs(err, model.ErrChannelUnavailable)
}

func (s *ChannelSuite) TestSubscribeReceivesInboundEvents() {
	ch := s.newChannel(s.token)

	events := make(chan realtime.Event, 4)
	sub := ch.Subscribe(func(ev realtime.Event) { events <- ev })
	defer sub.Close()

	s.Require().NoError(ch.Connect(s.ctx))

	s.srv.Push(s.userID, model.EventGameOver, model.GameOverPayload{MatchID: 3, WinnerID: s.userID})

	select {
	case ev := <-events:
		s.Equal(model.EventGameOver, ev.Name)

		var p model.GameOverPayload
		s.Require().NoError(json.Unmarshal(ev.Data, &p))
		s.Equal(model.MatchID(3), p.MatchID)
		s.Equal(s.userID, p.WinnerID)
	case <-time.After(2 * time.Second):
		s.Fail("no event delivered")
	}
}

func (s *ChannelSuite) TestClosedSubscriptionStopsReceiving() {
	ch := s.newChannel(s.token)

	events := make(chan realtime.Event, 4)
	sub := ch.Subscribe(func(ev realtime.Event) { events <- ev })

	s.Require().NoError(ch.Connect(s.ctx))
	sub.Close()

	s.srv.Push(s.userID, model.EventGameOver, model.GameOverPayload{MatchID: 3})

	select {
	case <-events:
		s.Fail("event delivered after subscription closed")
	case <-time.After(200 * time.Millisecond):
	}

	// The connection itself stays up
	s.Equal(realtime.StateConnected, ch.State())
}

func (s *ChannelSuite) TestDisconnectSuppressesReconnect() {
	ch := s.newChannel(s.token)
	s.Require().NoError(ch.Connect(s.ctx))

	ch.Disconnect()
	s.Equal(realtime.StateDisconnected, ch.State())

	err := ch.Emit(s.ctx, model.EventMakeMove, model.MakeMovePayload{MatchID: 1, X: 0, Y: 0})
	s.ErrorIs(err, model.ErrChannelUnavailable)

	time.Sleep(150 * time.Millisecond)
	s.Equal(realtime.StateDisconnected, ch.State())
}

// TestDisconnectDuringConnectWins pins down the race between an
// in-flight Connect and an explicit Disconnect: the Disconnect must
// stick even when the dial completes afterwards.
func (s *ChannelSuite) TestDisconnectDuringConnectWins() {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		<-release
		ack, _ := json.Marshal(realtime.Event{Name: model.EventConnected})
		_ = conn.Write(r.Context(), websocket.MessageText, ack)
		_, _, _ = conn.Read(r.Context())
	}))
	defer slow.Close()

	ch := realtime.NewChannel(realtime.Config{
		URL:                  "ws" + strings.TrimPrefix(slow.URL, "http"),
		DialTimeout:          5 * time.Second,
		ReconnectMin:         10 * time.Millisecond,
		ReconnectMax:         50 * time.Millisecond,
		MaxReconnectAttempts: 3,
	}, &staticCreds{token: s.token}, testutil.NopLogger())
	s.T().Cleanup(ch.Disconnect)

	done := make(chan error, 1)
	go func() { done <- ch.Connect(s.ctx) }()

	s.Require().Eventually(func() bool {
		return ch.State() == realtime.StateConnecting
	}, 2*time.Second, 5*time.Millisecond, "dial never started")

	ch.Disconnect()
	close(release)

	select {
	case err := <-done:
		s.Require().NoError(err)
	case <-time.After(2 * time.Second):
		s.FailNow("Connect never returned")
	}

	s.Equal(realtime.StateDisconnected, ch.State())
	s.ErrorIs(ch.Emit(s.ctx, model.EventMakeMove, model.MakeMovePayload{MatchID: 1, X: 0, Y: 0}),
		model.ErrChannelUnavailable)

	// No reconnect may resurrect the connection either
	time.Sleep(150 * time.Millisecond)
	s.Equal(realtime.StateDisconnected, ch.State())
}

func (s *ChannelSuite) TestReconnectsAfterUnexpectedDrop() {
	ch := s.newChannel(s.token)
	s.Require().NoError(ch.Connect(s.ctx))

	events := make(chan realtime.Event, 4)
	sub := ch.Subscribe(func(ev realtime.Event) { events <- ev })
	defer sub.Close()

	s.srv.DropConnections(s.userID)

	s.Require().Eventually(func() bool {
		return ch.State() == realtime.StateConnected
	}, 5*time.Second, 20*time.Millisecond, "channel did not reconnect")

	// Subscriptions survive the reconnect
	s.srv.Push(s.userID, model.EventGameOver, model.GameOverPayload{MatchID: 9})
	select {
	case ev := <-events:
		s.Equal(model.EventGameOver, ev.Name)
	case <-time.After(2 * time.Second):
		s.Fail("no event after reconnect")
	}
}

func (s *ChannelSuite) TestEmitRoundTrip() {
	opponent := s.srv.SeedAccount("bob", "hunter2")
	gameID := s.srv.SeedGame(s.userID, opponent, model.MatchStatusInProgress)

	ch := s.newChannel(s.token)

	events := make(chan realtime.Event, 4)
	sub := ch.Subscribe(func(ev realtime.Event) { events <- ev })
	defer sub.Close()

	s.Require().NoError(ch.Connect(s.ctx))
	s.Require().NoError(ch.Emit(s.ctx, model.EventMakeMove, model.MakeMovePayload{
		MatchID: gameID,
		X:       7,
		Y:       7,
	}))

	select {
	case ev := <-events:
		s.Equal(model.EventMoveMade, ev.Name)

		var p model.MoveMadePayload
		s.Require().NoError(json.Unmarshal(ev.Data, &p))
		s.Equal(gameID, p.MatchID)
		s.Equal(s.userID, p.PlayerID)
		s.Equal(1, p.MoveNumber)
	case <-time.After(2 * time.Second):
		s.Fail("move was not confirmed")
	}
}
