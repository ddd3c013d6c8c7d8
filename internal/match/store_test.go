package match_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/yexiu0529666/gobang/internal/client"
	"github.com/yexiu0529666/gobang/internal/factory"
	"github.com/yexiu0529666/gobang/internal/gobangtest"
	"github.com/yexiu0529666/gobang/internal/model"
	"github.com/yexiu0529666/gobang/internal/realtime"
	"github.com/yexiu0529666/gobang/internal/testutil"
)

type StoreSuite struct {
	suite.Suite
	srv     *gobangtest.Server
	alice   *factory.App
	bob     *factory.App
	aliceID model.UserID
	bobID   model.UserID
	ctx     context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.srv = gobangtest.New(s.T())
	s.ctx = context.Background()

	s.aliceID = s.srv.SeedAccount("alice", "hunter2")
	s.bobID = s.srv.SeedAccount("bob", "hunter2")

	s.alice = s.newApp()
	s.bob = s.newApp()
	s.Require().NoError(s.alice.Session.Login(s.ctx, "alice", "hunter2"))
	s.Require().NoError(s.bob.Session.Login(s.ctx, "bob", "hunter2"))
}

func (s *StoreSuite) newApp() *factory.App {
	app, err := factory.New(factory.Config{
		ClientConfig: client.Config{BaseURL: s.srv.BaseURL()},
		ChannelConfig: realtime.Config{
			URL:                  s.srv.WSURL(),
			ReconnectMin:         10 * time.Millisecond,
			ReconnectMax:         100 * time.Millisecond,
			MaxReconnectAttempts: 3,
		},
		Logger:      testutil.NopLogger(),
		StorageType: factory.StorageTypeMemory,
	})
	s.Require().NoError(err)
	s.T().Cleanup(app.Channel.Disconnect)
	return app
}

func (s *StoreSuite) connect(app *factory.App) {
	s.Require().NoError(app.Channel.Connect(s.ctx))
}

// List and fetch tests

func (s *StoreSuite) TestListMatches() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)

	matches, err := s.alice.Match.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	s.Equal(id, matches[0].ID)
	s.Equal("alice", matches[0].Player1Username)

	s.Len(s.alice.Match.Matches(), 1)
}

func (s *StoreSuite) TestListMatchesEmptyIsNotNil() {
	matches, err := s.alice.Match.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.NotNil(matches)
	s.Empty(matches)
}

func (s *StoreSuite) TestFetchMatchBecomesActive() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)

	m, err := s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(id, m.ID)
	s.Equal(model.MatchStatusInProgress, m.Status)
	s.Equal(s.aliceID, m.CurrentPlayerID)

	current := s.alice.Match.CurrentMatch()
	s.Require().NotNil(current)
	s.Equal(id, current.ID)
}

func (s *StoreSuite) TestFetchMatchNotFound() {
	_, err := s.alice.Match.FetchMatch(s.ctx, 999)
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StoreSuite) TestFetchMatchMalformedPayloadKeepsCache() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	_, err := s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)

	s.srv.EmptyGamePayload = true
	_, err = s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().ErrorIs(err, model.ErrInvalidResponse)

	current := s.alice.Match.CurrentMatch()
	s.Require().NotNil(current)
	s.Equal(id, current.ID)
}

// Create tests

func (s *StoreSuite) TestCreateMatch() {
	m, err := s.alice.Match.CreateMatch(s.ctx, "")
	s.Require().NoError(err)
	s.NotZero(m.ID)
	s.Equal(model.MatchStatusPending, m.Status)
	s.Equal(s.aliceID, m.Player1ID)

	current := s.alice.Match.CurrentMatch()
	s.Require().NotNil(current)
	s.Equal(m.ID, current.ID)
}

func (s *StoreSuite) TestCreateMatchMissingPayload() {
	s.srv.OmitCreatedGame = true

	_, err := s.alice.Match.CreateMatch(s.ctx, "normal")
	s.Require().ErrorIs(err, model.ErrInvalidResponse)
	s.Nil(s.alice.Match.CurrentMatch())
}

// Move submission tests

func (s *StoreSuite) TestSubmitMoveRequiresConnectedChannel() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	_, err := s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)

	err = s.alice.Match.SubmitMove(s.ctx, id, 7, 7)
	s.Require().ErrorIs(err, model.ErrChannelUnavailable)

	// Nothing reached the server and nothing mutated locally
	s.Equal(0, s.srv.MoveCount(id))
	s.Empty(s.alice.Match.CurrentMatch().Moves)
}

func (s *StoreSuite) TestSubmitMoveRejectsOutOfBoundsCoordinates() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	s.connect(s.alice)

	err := s.alice.Match.SubmitMove(s.ctx, id, model.BoardSize, 0)
	s.Require().Error(err)
	s.NotErrorIs(err, model.ErrChannelUnavailable)
	s.Equal(0, s.srv.MoveCount(id))
}

func (s *StoreSuite) TestSubmitMoveAppliedOnConfirmation() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	_, err := s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)
	s.connect(s.alice)

	s.Require().NoError(s.alice.Match.SubmitMove(s.ctx, id, 7, 7))

	s.Require().Eventually(func() bool {
		return len(s.alice.Match.CurrentMatch().Moves) == 1
	}, 2*time.Second, 10*time.Millisecond, "confirmed move was not applied")

	current := s.alice.Match.CurrentMatch()
	s.Equal(s.aliceID, current.Moves[0].PlayerID)
	s.Equal(1, current.Moves[0].MoveNumber)
	s.Equal(model.StoneBlack, current.Board()[7][7])
}

func (s *StoreSuite) TestInSequenceEventExtendsHistory() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	_, err := s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)
	s.connect(s.alice)

	s.srv.Push(s.aliceID, model.EventMoveMade, model.MoveMadePayload{
		MatchID:    id,
		PlayerID:   s.aliceID,
		X:          3,
		Y:          4,
		MoveNumber: 1,
	})

	s.Require().Eventually(func() bool {
		return len(s.alice.Match.CurrentMatch().Moves) == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Equal(model.StoneBlack, s.alice.Match.CurrentMatch().Board()[3][4])
}

func (s *StoreSuite) TestSequenceGapForcesRefetch() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	_, err := s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)
	s.connect(s.alice)

	// The client missed the first two moves entirely
	s.srv.SeedMoves(id, [][2]int{{7, 7}, {8, 8}, {9, 9}})
	s.srv.Push(s.aliceID, model.EventMoveMade, model.MoveMadePayload{
		MatchID:    id,
		PlayerID:   s.aliceID,
		X:          9,
		Y:          9,
		MoveNumber: 3,
	})

	s.Require().Eventually(func() bool {
		return len(s.alice.Match.CurrentMatch().Moves) == 3
	}, 2*time.Second, 10*time.Millisecond, "gap did not trigger a refetch")

	board := s.alice.Match.CurrentMatch().Board()
	s.Equal(model.StoneBlack, board[7][7])
	s.Equal(model.StoneWhite, board[8][8])
	s.Equal(model.StoneBlack, board[9][9])
}

func (s *StoreSuite) TestEventForDifferentMatchIgnored() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	other := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	_, err := s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)
	s.connect(s.alice)

	s.srv.Push(s.aliceID, model.EventMoveMade, model.MoveMadePayload{
		MatchID:    other,
		PlayerID:   s.aliceID,
		X:          1,
		Y:          1,
		MoveNumber: 1,
	})

	time.Sleep(100 * time.Millisecond)
	s.Empty(s.alice.Match.CurrentMatch().Moves)
	s.Equal(id, s.alice.Match.CurrentMatch().ID)
}

// Terminal event tests

func (s *StoreSuite) TestGameOverEventFinishesMatch() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	_, err := s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)
	s.connect(s.alice)

	s.srv.Push(s.aliceID, model.EventGameOver, model.GameOverPayload{
		MatchID:  id,
		WinnerID: s.bobID,
	})

	s.Require().Eventually(func() bool {
		return s.alice.Match.CurrentMatch().Status == model.MatchStatusFinished
	}, 2*time.Second, 10*time.Millisecond)
	s.Equal(s.bobID, s.alice.Match.CurrentMatch().WinnerID)
}

func (s *StoreSuite) TestOpponentDisconnectAbortsMatch() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	_, err := s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)
	s.connect(s.alice)

	s.srv.Push(s.aliceID, model.EventPlayerDisconnected, model.PlayerDisconnectedPayload{
		MatchID:  id,
		PlayerID: s.bobID,
	})

	s.Require().Eventually(func() bool {
		return s.alice.Match.CurrentMatch().Status == model.MatchStatusAborted
	}, 2*time.Second, 10*time.Millisecond)
}

// Matchmaking tests

func (s *StoreSuite) TestMatchmakingPairsPlayers() {
	s.connect(s.alice)

	s.Require().NoError(s.alice.Match.StartMatchmaking(s.ctx))
	s.True(s.alice.Match.MatchmakingActive())

	ticket, err := s.bob.Match.CheckMatchmaking(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(ticket)
	s.Equal(s.aliceID, ticket.Player1ID)
	s.Equal("alice", ticket.Player1Username)

	m, err := s.bob.Match.JoinMatch(s.ctx, ticket.ID)
	s.Require().NoError(err)
	s.Equal(model.MatchStatusInProgress, m.Status)
	s.Equal(s.aliceID, m.Player1ID)
	s.Equal(s.bobID, m.Player2ID)

	// The creator learns about the pairing over the channel
	s.Require().Eventually(func() bool {
		current := s.alice.Match.CurrentMatch()
		return current != nil && current.ID == m.ID && !s.alice.Match.MatchmakingActive()
	}, 2*time.Second, 10*time.Millisecond, "match_found never reached the creator")
}

func (s *StoreSuite) TestCheckMatchmakingNoTicketWaiting() {
	ticket, err := s.bob.Match.CheckMatchmaking(s.ctx)
	s.Require().NoError(err)
	s.Nil(ticket)
}

func (s *StoreSuite) TestStartMatchmakingIsIdempotent() {
	s.Require().NoError(s.alice.Match.StartMatchmaking(s.ctx))
	s.Require().NoError(s.alice.Match.StartMatchmaking(s.ctx))

	ticket, err := s.bob.Match.CheckMatchmaking(s.ctx)
	s.Require().NoError(err)
	s.NotNil(ticket)
}

func (s *StoreSuite) TestStopMatchmaking() {
	s.Require().NoError(s.alice.Match.StartMatchmaking(s.ctx))
	s.Require().NoError(s.alice.Match.StopMatchmaking(s.ctx))
	s.False(s.alice.Match.MatchmakingActive())

	ticket, err := s.bob.Match.CheckMatchmaking(s.ctx)
	s.Require().NoError(err)
	s.Nil(ticket)

	s.ErrorIs(s.alice.Match.StopMatchmaking(s.ctx), model.ErrMatchmakingNotActive)
}

// Exit tests

func (s *StoreSuite) TestExitMatchAbortsLocallyAndNotifiesOpponent() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	_, err := s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)
	_, err = s.bob.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)
	s.connect(s.bob)

	s.Require().NoError(s.alice.Match.ExitMatch(s.ctx, id))
	s.Equal(model.MatchStatusAborted, s.alice.Match.CurrentMatch().Status)

	s.Require().Eventually(func() bool {
		return s.bob.Match.CurrentMatch().Status == model.MatchStatusAborted
	}, 2*time.Second, 10*time.Millisecond, "opponent never heard about the exit")
}

// Full game over the channel

func (s *StoreSuite) TestFullGameToWin() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	_, err := s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)
	_, err = s.bob.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)
	s.connect(s.alice)
	s.connect(s.bob)

	waitForMoves := func(n int) {
		s.Require().Eventually(func() bool {
			return len(s.alice.Match.CurrentMatch().Moves) == n &&
				len(s.bob.Match.CurrentMatch().Moves) == n
		}, 2*time.Second, 10*time.Millisecond, "move %d never confirmed on both sides", n)
	}

	// Alice builds a vertical five while Bob answers in the next column
	for i := 0; i < 4; i++ {
		s.Require().NoError(s.alice.Match.SubmitMove(s.ctx, id, 7, i))
		waitForMoves(2*i + 1)
		s.Require().NoError(s.bob.Match.SubmitMove(s.ctx, id, 8, i))
		waitForMoves(2*i + 2)
	}
	s.Require().NoError(s.alice.Match.SubmitMove(s.ctx, id, 7, 4))

	s.Require().Eventually(func() bool {
		return s.alice.Match.CurrentMatch().Status == model.MatchStatusFinished &&
			s.bob.Match.CurrentMatch().Status == model.MatchStatusFinished
	}, 2*time.Second, 10*time.Millisecond, "game_over never arrived")

	s.Equal(s.aliceID, s.alice.Match.CurrentMatch().WinnerID)
	s.Equal(s.aliceID, s.bob.Match.CurrentMatch().WinnerID)

	board := s.bob.Match.CurrentMatch().Board()
	for i := 0; i < 5; i++ {
		s.Equal(model.StoneBlack, board[7][i])
	}
}

// Replay and leaderboard tests

func (s *StoreSuite) TestListReplaysSkipsWaitingGames() {
	finished := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusFinished)
	s.srv.SeedGame(s.aliceID, 0, model.MatchStatusPending)

	replays, err := s.alice.Match.ListReplays(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(replays, 1)
	s.Equal(finished, replays[0].ID)
}

func (s *StoreSuite) TestListReplaysNewestFirst() {
	first := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusFinished)
	time.Sleep(time.Millisecond)
	second := s.srv.SeedGame(s.bobID, s.aliceID, model.MatchStatusFinished)

	replays, err := s.alice.Match.ListReplays(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(replays, 2)
	s.Equal(second, replays[0].ID)
	s.Equal(first, replays[1].ID)
}

func (s *StoreSuite) TestListReplaysEmptyIsNotNil() {
	replays, err := s.alice.Match.ListReplays(s.ctx)
	s.Require().NoError(err)
	s.NotNil(replays)
	s.Empty(replays)
}

func (s *StoreSuite) TestFetchReplay() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	s.srv.SeedMoves(id, [][2]int{{7, 7}, {8, 8}, {7, 8}})
	s.srv.FinishGame(id, s.aliceID)

	rep, err := s.alice.Match.FetchReplay(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("alice", rep.BlackPlayer.Username)
	s.Equal("bob", rep.WhitePlayer.Username)
	s.Require().NotNil(rep.Winner)
	s.Equal("alice", rep.Winner.Username)
	s.Require().NotNil(rep.EndTime)
	s.Require().Len(rep.Moves, 3)

	board := rep.Board()
	s.Equal(model.StoneBlack, board[7][7])
	s.Equal(model.StoneWhite, board[8][8])
	s.Equal(model.StoneBlack, board[7][8])
}

func (s *StoreSuite) TestFetchReplayNotFound() {
	_, err := s.alice.Match.FetchReplay(s.ctx, 999)
	s.Require().ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StoreSuite) TestFetchReplayWaitingGameNotFound() {
	id := s.srv.SeedGame(s.aliceID, 0, model.MatchStatusPending)

	_, err := s.alice.Match.FetchReplay(s.ctx, id)
	s.Require().ErrorIs(err, model.ErrMatchNotFound)
}

func (s *StoreSuite) TestLeaderboardSortedByRating() {
	s.srv.SeedStats(s.aliceID, 3, 5, 0, 1180)
	s.srv.SeedStats(s.bobID, 6, 2, 2, 1260)

	entries, err := s.alice.Match.Leaderboard(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal("bob", entries[0].Username)
	s.Equal(1260, entries[0].Rating)
	s.Equal(10, entries[0].TotalGames)
	s.InDelta(60.0, entries[0].WinRate, 0.01)
	s.Equal("alice", entries[1].Username)
}

// Session invalidation tests

func (s *StoreSuite) TestSessionInvalidationClearsMatchState() {
	id := s.srv.SeedGame(s.aliceID, s.bobID, model.MatchStatusInProgress)
	_, err := s.alice.Match.FetchMatch(s.ctx, id)
	s.Require().NoError(err)
	_, err = s.alice.Match.ListMatches(s.ctx)
	s.Require().NoError(err)
	s.connect(s.alice)

	s.srv.RevokeAllTokens()
	_, err = s.alice.Session.FetchUser(s.ctx)
	s.Require().ErrorIs(err, model.ErrAuthRejected)

	s.Nil(s.alice.Match.CurrentMatch())
	s.Empty(s.alice.Match.Matches())
	s.False(s.alice.Match.MatchmakingActive())
	s.Equal(realtime.StateDisconnected, s.alice.Match.ConnectionState())
}

func (s *StoreSuite) TestLogoutDisconnectsChannel() {
	s.connect(s.alice)
	s.Require().NoError(s.alice.Session.Logout(s.ctx))
	s.Equal(realtime.StateDisconnected, s.alice.Match.ConnectionState())
}
