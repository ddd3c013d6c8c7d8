package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/yexiu0529666/gobang/internal/client"
	"github.com/yexiu0529666/gobang/internal/model"
	"github.com/yexiu0529666/gobang/internal/realtime"
)

// Store owns the locally cached view of matches. The server copy is
// authoritative: the cache is only ever mutated by confirmed responses
// and channel events, and any sequence gap forces a full refetch
// instead of a partial apply.
type Store struct {
	client  *client.Client
	channel *realtime.Channel
	logger  *slog.Logger

	mu          sync.RWMutex
	matches     []model.Match
	current     *model.Match
	matchmaking bool
	ticketID    int
}

// New creates a match store and subscribes it to the realtime channel.
// Wire session invalidation by registering HandleSessionInvalidated
// with the session store.
func New(c *client.Client, ch *realtime.Channel, logger *slog.Logger) *Store {
	s := &Store{
		client:  c,
		channel: ch,
		logger:  logger,
	}
	ch.Subscribe(s.handleEvent)
	return s
}

// ConnectionState reports the realtime channel state
func (s *Store) ConnectionState() realtime.State {
	return s.channel.State()
}

// CurrentMatch returns a copy of the active match, or nil
func (s *Store) CurrentMatch() *model.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMatch(s.current)
}

// Matches returns a copy of the cached match list
func (s *Store) Matches() []model.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Match, len(s.matches))
	copy(out, s.matches)
	return out
}

// MatchmakingActive reports whether a matchmaking ticket is open
func (s *Store) MatchmakingActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchmaking
}

type listResponse struct {
	Games []model.Match `json:"games"`
}

// ListMatches fetches and caches the match collection. An absent field
// in the response yields an empty list, never nil.
func (s *Store) ListMatches(ctx context.Context) ([]model.Match, error) {
	var resp listResponse
	if err := s.client.Get(ctx, "/games", &resp); err != nil {
		return nil, err
	}
	if resp.Games == nil {
		resp.Games = []model.Match{}
	}

	s.mu.Lock()
	s.matches = resp.Games
	s.mu.Unlock()

	out := make([]model.Match, len(resp.Games))
	copy(out, resp.Games)
	return out, nil
}

// FetchMatch fetches one match and makes it the active match. A
// malformed payload fails with ErrInvalidResponse and leaves the
// previously cached match untouched.
func (s *Store) FetchMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	var m model.Match
	if err := s.client.Get(ctx, fmt.Sprintf("/games/%d", id), &m); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: match %d", model.ErrMatchNotFound, id)
		}
		return nil, err
	}
	if m.ID == 0 {
		return nil, fmt.Errorf("%w: match payload missing id", model.ErrInvalidResponse)
	}

	s.mu.Lock()
	s.current = &m
	s.mu.Unlock()

	return copyMatch(&m), nil
}

type createResponse struct {
	Game *model.Match `json:"game"`
}

// CreateMatch requests a new match with the given mode ("normal" when
// empty) and makes the created match the active one.
func (s *Store) CreateMatch(ctx context.Context, mode string) (*model.Match, error) {
	if mode == "" {
		mode = "normal"
	}

	var resp createResponse
	if err := s.client.Post(ctx, "/games", map[string]string{"game_mode": mode}, &resp); err != nil {
		return nil, err
	}
	if resp.Game == nil {
		return nil, fmt.Errorf("%w: create response missing game", model.ErrInvalidResponse)
	}

	s.mu.Lock()
	s.current = resp.Game
	s.mu.Unlock()

	return copyMatch(resp.Game), nil
}

// SubmitMove emits a move request over the channel. The connected
// precondition is checked synchronously before anything touches the
// network; a disconnected or still-connecting channel rejects the move
// outright rather than queueing it. The local board is not mutated:
// board state changes only on the server's confirming move_made event.
func (s *Store) SubmitMove(ctx context.Context, matchID model.MatchID, x, y int) error {
	if s.channel.State() != realtime.StateConnected {
		return model.ErrChannelUnavailable
	}
	if x < 0 || x >= model.BoardSize || y < 0 || y >= model.BoardSize {
		return fmt.Errorf("coordinates (%d,%d) outside the board", x, y)
	}

	return s.channel.Emit(ctx, model.EventMakeMove, model.MakeMovePayload{
		MatchID: matchID,
		X:       x,
		Y:       y,
	})
}

type ticketResponse struct {
	Status          string        `json:"status"`
	TicketID        int           `json:"match_id"`
	MatchID         model.MatchID `json:"game_id"`
	Player1ID       model.UserID  `json:"player1_id"`
	Player1Username string        `json:"player1_username"`
}

// StartMatchmaking opens a matchmaking ticket. A no-op when one is
// already open.
func (s *Store) StartMatchmaking(ctx context.Context) error {
	s.mu.RLock()
	active := s.matchmaking
	s.mu.RUnlock()
	if active {
		return nil
	}

	var resp ticketResponse
	if err := s.client.Post(ctx, "/matches/create", nil, &resp); err != nil {
		return err
	}
	if resp.TicketID == 0 {
		return fmt.Errorf("%w: matchmaking response missing ticket id", model.ErrInvalidResponse)
	}

	s.mu.Lock()
	s.matchmaking = true
	s.ticketID = resp.TicketID
	s.mu.Unlock()

	return nil
}

// StopMatchmaking cancels the open ticket
func (s *Store) StopMatchmaking(ctx context.Context) error {
	s.mu.Lock()
	if !s.matchmaking {
		s.mu.Unlock()
		return model.ErrMatchmakingNotActive
	}
	ticketID := s.ticketID
	s.matchmaking = false
	s.ticketID = 0
	s.mu.Unlock()

	return s.client.Post(ctx, fmt.Sprintf("/matches/cancel/%d", ticketID), nil, nil)
}

// CheckMatchmaking polls for an open ticket from another player.
// Returns nil when none is waiting.
func (s *Store) CheckMatchmaking(ctx context.Context) (*model.MatchmakingTicket, error) {
	var resp ticketResponse
	if err := s.client.Get(ctx, "/matches/check", &resp); err != nil {
		return nil, err
	}
	if resp.Status != "match_found" {
		return nil, nil
	}
	return &model.MatchmakingTicket{
		ID:              resp.TicketID,
		Player1ID:       resp.Player1ID,
		Player1Username: resp.Player1Username,
	}, nil
}

// JoinMatch joins another player's ticket and fetches the resulting
// match as the active one.
func (s *Store) JoinMatch(ctx context.Context, ticketID int) (*model.Match, error) {
	var resp ticketResponse
	if err := s.client.Post(ctx, fmt.Sprintf("/matches/join/%d", ticketID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.MatchID == 0 {
		return nil, fmt.Errorf("%w: join response missing game id", model.ErrInvalidResponse)
	}
	return s.FetchMatch(ctx, resp.MatchID)
}

// ListReplays fetches the move records of the current user's games.
// Games that never got a second player have no replay and are omitted
// server-side.
func (s *Store) ListReplays(ctx context.Context) ([]model.Replay, error) {
	var replays []model.Replay
	if err := s.client.Get(ctx, "/replays", &replays); err != nil {
		return nil, err
	}
	if replays == nil {
		replays = []model.Replay{}
	}
	return replays, nil
}

// FetchReplay fetches one game's move record
func (s *Store) FetchReplay(ctx context.Context, id model.MatchID) (*model.Replay, error) {
	var r model.Replay
	if err := s.client.Get(ctx, fmt.Sprintf("/replay/%d", id), &r); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: replay %d", model.ErrMatchNotFound, id)
		}
		return nil, err
	}
	if r.ID == 0 {
		return nil, fmt.Errorf("%w: replay payload missing id", model.ErrInvalidResponse)
	}
	return &r, nil
}

// Leaderboard fetches the top rated players, best first
func (s *Store) Leaderboard(ctx context.Context) ([]model.User, error) {
	var entries []model.User
	if err := s.client.Get(ctx, "/leaderboard", &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.User{}
	}
	return entries, nil
}

// ExitMatch leaves a waiting or in-progress match, aborting it
func (s *Store) ExitMatch(ctx context.Context, matchID model.MatchID) error {
	if err := s.client.Post(ctx, fmt.Sprintf("/games/%d/exit", matchID), nil, nil); err != nil {
		return err
	}

	s.mu.Lock()
	if s.current != nil && s.current.ID == matchID {
		s.current.Status = model.MatchStatusAborted
	}
	s.mu.Unlock()
	return nil
}

// HandleSessionInvalidated drops all cached match state and disconnects
// the channel. A match context is meaningless without an authenticated
// identity; stale board state must never render under a later login.
func (s *Store) HandleSessionInvalidated() {
	s.mu.Lock()
	s.matches = nil
	s.current = nil
	s.matchmaking = false
	s.ticketID = 0
	s.mu.Unlock()

	s.channel.Disconnect()
	s.logger.Info("match state cleared after session invalidation")
}

// handleEvent is the channel subscriber: every inbound event is a
// reconciliation input for the cache, never a raw UI signal.
func (s *Store) handleEvent(ev realtime.Event) {
	switch ev.Name {
	case model.EventMoveMade:
		var p model.MoveMadePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.logger.Warn("bad move_made payload", slog.String("error", err.Error()))
			return
		}
		s.applyConfirmedMove(p)

	case model.EventMatchFound:
		var p model.MatchFoundPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.logger.Warn("bad match_found payload", slog.String("error", err.Error()))
			return
		}
		s.mu.Lock()
		m := p.Match
		s.current = &m
		s.matchmaking = false
		s.ticketID = 0
		s.mu.Unlock()
		s.logger.Info("match found", slog.Int("match_id", int(m.ID)))

	case model.EventGameOver:
		var p model.GameOverPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.logger.Warn("bad game_over payload", slog.String("error", err.Error()))
			return
		}
		s.mu.Lock()
		if s.current != nil && s.current.ID == p.MatchID {
			s.current.Status = model.MatchStatusFinished
			s.current.WinnerID = p.WinnerID
		}
		s.mu.Unlock()

	case model.EventPlayerDisconnected:
		var p model.PlayerDisconnectedPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.logger.Warn("bad player_disconnected payload", slog.String("error", err.Error()))
			return
		}
		s.mu.Lock()
		if s.current != nil && s.current.ID == p.MatchID {
			s.current.Status = model.MatchStatusAborted
		}
		s.mu.Unlock()
		s.logger.Info("opponent disconnected", slog.Int("match_id", int(p.MatchID)))
	}
}

// applyConfirmedMove extends the history with a server-confirmed move.
// A move that does not extend the history by exactly one means the
// client missed traffic; the whole match is refetched instead of
// applying around the gap.
func (s *Store) applyConfirmedMove(p model.MoveMadePayload) {
	s.mu.Lock()
	if s.current == nil || s.current.ID != p.MatchID {
		s.mu.Unlock()
		return
	}

	mv := model.Move{
		MatchID:    p.MatchID,
		PlayerID:   p.PlayerID,
		X:          p.X,
		Y:          p.Y,
		MoveNumber: p.MoveNumber,
	}
	err := s.current.AppendMove(mv)
	s.mu.Unlock()

	if errors.Is(err, model.ErrReconciliationRequired) {
		s.logger.Warn("move sequence gap, refetching match",
			slog.Int("match_id", int(p.MatchID)),
			slog.Int("got", p.MoveNumber))
		go s.reconcile(p.MatchID)
	}
}

// reconcile refetches the authoritative match state after a gap
func (s *Store) reconcile(id model.MatchID) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := s.FetchMatch(ctx, id); err != nil {
		s.logger.Error("reconciliation fetch failed",
			slog.Int("match_id", int(id)),
			slog.String("error", err.Error()))
	}
}

func copyMatch(m *model.Match) *model.Match {
	if m == nil {
		return nil
	}
	out := *m
	out.Moves = make([]model.Move, len(m.Moves))
	copy(out.Moves, m.Moves)
	return &out
}
