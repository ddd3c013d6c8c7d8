// Package gobangtest provides an in-process fake of the gobang backend
// for client tests: the HTTP API, the websocket event protocol, and
// just enough game logic to confirm moves and detect wins. It is a test
// double implementing the wire contract, not a product server.
package gobangtest

import (
	"crypto/rand"
	"encoding/base64"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/yexiu0529666/gobang/internal/model"
)

type account struct {
	id           model.UserID
	username     string
	email        string
	passwordHash string
	wins         int
	losses       int
	draws        int
	rating       int
}

type game struct {
	id        model.MatchID
	player1   model.UserID
	player2   model.UserID
	status    model.MatchStatus
	moves     []model.Move
	winner    model.UserID
	startTime time.Time
	endTime   *time.Time
}

type ticket struct {
	id      int
	gameID  model.MatchID
	player1 model.UserID
	status  string // waiting, closed
}

// Server is the fake backend. All state is in memory and guarded by a
// single mutex; tests drive it through the public HTTP/websocket
// surface plus a few seeding and push helpers.
type Server struct {
	mu       sync.Mutex
	accounts map[string]*account
	byID     map[model.UserID]*account
	tokens   map[string]model.UserID
	games    map[model.MatchID]*game
	tickets  map[int]*ticket
	conns    map[model.UserID][]*wsConn

	nextUserID   int
	nextGameID   int
	nextTicketID int
	nextMoveID   int

	// RejectVerification makes send-verification-code fail with a
	// server-supplied message
	RejectVerification bool

	// EmptyGamePayload makes GET /games/{id} return 200 with no body
	EmptyGamePayload bool

	// OmitCreatedGame makes POST /games omit the game field
	OmitCreatedGame bool

	httpServer *httptest.Server
}

// New starts a fake server and registers cleanup with the test
func New(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		accounts: make(map[string]*account),
		byID:     make(map[model.UserID]*account),
		tokens:   make(map[string]model.UserID),
		games:    make(map[model.MatchID]*game),
		tickets:  make(map[int]*ticket),
		conns:    make(map[model.UserID][]*wsConn),
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")
	api.HandleFunc("/auth/me", s.handleMe).Methods("GET")
	api.HandleFunc("/auth/send-verification-code", s.handleSendCode).Methods("POST")
	api.HandleFunc("/me", s.handleUpdateProfile).Methods("PUT")
	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/games", s.handleCreateGame).Methods("POST")
	api.HandleFunc("/games/{id:[0-9]+}", s.handleGetGame).Methods("GET")
	api.HandleFunc("/games/{id:[0-9]+}/exit", s.handleExitGame).Methods("POST")
	api.HandleFunc("/replays", s.handleListReplays).Methods("GET")
	api.HandleFunc("/replay/{id:[0-9]+}", s.handleGetReplay).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	api.HandleFunc("/matches/check", s.handleCheckMatches).Methods("GET")
	api.HandleFunc("/matches/create", s.handleCreateMatch).Methods("POST")
	api.HandleFunc("/matches/join/{id:[0-9]+}", s.handleJoinMatch).Methods("POST")
	api.HandleFunc("/matches/cancel/{id:[0-9]+}", s.handleCancelMatch).Methods("POST")
	r.HandleFunc("/ws", s.handleWebsocket)

	s.httpServer = httptest.NewServer(r)
	t.Cleanup(s.Close)

	return s
}

// Close shuts the server down
func (s *Server) Close() {
	s.httpServer.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conns := range s.conns {
		for _, c := range conns {
			c.close()
		}
	}
	s.conns = make(map[model.UserID][]*wsConn)
}

// BaseURL returns the HTTP API base URL including the /api prefix
func (s *Server) BaseURL() string {
	return s.httpServer.URL + "/api"
}

// WSURL returns the websocket endpoint URL
func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.httpServer.URL, "http") + "/ws"
}

// SeedAccount registers an account directly, bypassing the API
func (s *Server) SeedAccount(username, password string) model.UserID {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccount(username, "", string(hash)).id
}

// SeedToken issues a token for a user without going through login
func (s *Server) SeedToken(id model.UserID) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := newToken()
	s.tokens[token] = id
	return token
}

// SeedGame creates a game in the given status
func (s *Server) SeedGame(p1, p2 model.UserID, status model.MatchStatus) model.MatchID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextGameID++
	g := &game{
		id:        model.MatchID(s.nextGameID),
		player1:   p1,
		player2:   p2,
		status:    status,
		startTime: time.Now(),
	}
	s.games[g.id] = g
	return g.id
}

// SeedMoves appends stone placements to a game's history, alternating
// between the two players starting with player 1
func (s *Server) SeedMoves(id model.MatchID, coords [][2]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.games[id]
	if g == nil {
		return
	}
	for _, c := range coords {
		player := g.player1
		if len(g.moves)%2 == 1 {
			player = g.player2
		}
		s.nextMoveID++
		g.moves = append(g.moves, model.Move{
			ID:         s.nextMoveID,
			MatchID:    g.id,
			PlayerID:   player,
			X:          c[0],
			Y:          c[1],
			MoveNumber: len(g.moves) + 1,
			Timestamp:  time.Now(),
		})
	}
}

// FinishGame marks a game finished with the given winner (0 for a draw)
func (s *Server) FinishGame(id model.MatchID, winner model.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g := s.games[id]; g != nil {
		g.status = model.MatchStatusFinished
		g.winner = winner
		now := time.Now()
		g.endTime = &now
	}
}

// SeedStats sets an account's win/loss record and rating
func (s *Server) SeedStats(id model.UserID, wins, losses, draws, rating int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a := s.byID[id]; a != nil {
		a.wins = wins
		a.losses = losses
		a.draws = draws
		a.rating = rating
	}
}

// MoveCount returns the number of moves recorded for a game
func (s *Server) MoveCount(id model.MatchID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g := s.games[id]; g != nil {
		return len(g.moves)
	}
	return 0
}

// Push delivers an arbitrary event to every open connection of a user
func (s *Server) Push(userID model.UserID, name model.EventType, payload any) {
	s.pushEvent(userID, name, payload)
}

// DropConnections force-closes every websocket connection of a user,
// simulating an unexpected network drop
func (s *Server) DropConnections(userID model.UserID) {
	s.mu.Lock()
	conns := s.conns[userID]
	s.conns[userID] = nil
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// RevokeToken invalidates a token so subsequent bearer requests 401
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// RevokeAllTokens invalidates every issued token
func (s *Server) RevokeAllTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]model.UserID)
}

// TokenCount returns the number of live tokens
func (s *Server) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func (s *Server) addAccount(username, email, passwordHash string) *account {
	s.nextUserID++
	a := &account{
		id:           model.UserID(s.nextUserID),
		username:     username,
		email:        email,
		passwordHash: passwordHash,
		rating:       1000,
	}
	s.accounts[username] = a
	s.byID[a.id] = a
	return a
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return "tok_" + base64.RawURLEncoding.EncodeToString(b)
}
