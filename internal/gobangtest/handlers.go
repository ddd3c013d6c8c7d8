package gobangtest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/yexiu0529666/gobang/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// authAccount resolves the bearer token. Callers must not hold s.mu.
func (s *Server) authAccount(r *http.Request) *account {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return nil
	}
	return s.byID[id]
}

func userJSON(a *account, withStats bool) model.User {
	u := model.User{
		ID:       a.id,
		Username: a.username,
		Email:    a.email,
	}
	if withStats {
		u.TotalGames = a.wins + a.losses + a.draws
		u.GamesWon = a.wins
		u.GamesLost = a.losses
		u.Rating = a.rating
		if u.TotalGames > 0 {
			u.WinRate = float64(a.wins) / float64(u.TotalGames) * 100
		}
	}
	return u
}

// matchJSON renders a game in the wire shape the client decodes.
// Caller must hold s.mu.
func (s *Server) matchJSON(g *game) model.Match {
	m := model.Match{
		ID:        g.id,
		Player1ID: g.player1,
		Player2ID: g.player2,
		Status:    g.status,
		Moves:     g.moves,
		WinnerID:  g.winner,
		StartTime: g.startTime,
		EndTime:   g.endTime,
	}
	if a := s.byID[g.player1]; a != nil {
		m.Player1Username = a.username
	}
	if a := s.byID[g.player2]; a != nil {
		m.Player2Username = a.username
	}
	if a := s.byID[g.winner]; a != nil {
		m.WinnerUsername = a.username
	}
	if g.status == model.MatchStatusInProgress {
		if len(g.moves)%2 == 0 {
			m.CurrentPlayerID = g.player1
		} else {
			m.CurrentPlayerID = g.player2
		}
	}
	return m
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		errorJSON(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "hashing failed")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Username]; exists {
		s.mu.Unlock()
		errorJSON(w, http.StatusBadRequest, "username already exists")
		return
	}
	a := s.addAccount(req.Username, req.Email, string(hash))
	token := newToken()
	s.tokens[token] = a.id
	user := userJSON(a, false)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "registered",
		"token":   token,
		"user":    user,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		errorJSON(w, http.StatusBadRequest, "missing username or password")
		return
	}

	s.mu.Lock()
	a := s.accounts[req.Username]
	s.mu.Unlock()

	if a == nil || bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(req.Password)) != nil {
		errorJSON(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	s.mu.Lock()
	token := newToken()
	s.tokens[token] = a.id
	user := userJSON(a, false)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "logged in",
		"token":   token,
		"user":    user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.authAccount(r) == nil {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	header := r.Header.Get("Authorization")
	token, _ := strings.CutPrefix(header, "Bearer ")
	s.RevokeToken(token)

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	a := s.authAccount(r)
	if a == nil {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, userJSON(a, true))
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		errorJSON(w, http.StatusBadRequest, "email is required")
		return
	}
	if s.RejectVerification {
		errorJSON(w, http.StatusBadRequest, "verification dispatch rejected")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	a := s.authAccount(r)
	if a == nil {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	if req.Email != "" {
		a.email = req.Email
	}
	if req.Password != "" {
		hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
		a.passwordHash = string(hash)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "profile updated"})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	a := s.authAccount(r)
	if a == nil {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	s.mu.Lock()
	games := make([]model.Match, 0, len(s.games))
	for _, g := range s.games {
		if g.player1 == a.id || g.player2 == a.id {
			games = append(games, s.matchJSON(g))
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	a := s.authAccount(r)
	if a == nil {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if s.EmptyGamePayload {
		w.WriteHeader(http.StatusOK)
		return
	}

	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	s.mu.Lock()
	g := s.games[model.MatchID(id)]
	var m model.Match
	if g != nil {
		m = s.matchJSON(g)
	}
	s.mu.Unlock()

	if g == nil {
		errorJSON(w, http.StatusNotFound, "game not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	a := s.authAccount(r)
	if a == nil {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if s.OmitCreatedGame {
		writeJSON(w, http.StatusCreated, map[string]any{"status": "success"})
		return
	}

	var req struct {
		GameMode string `json:"game_mode"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.nextGameID++
	g := &game{
		id:        model.MatchID(s.nextGameID),
		player1:   a.id,
		status:    model.MatchStatusPending,
		startTime: time.Now(),
	}
	s.games[g.id] = g
	m := s.matchJSON(g)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"game": m})
}

func (s *Server) handleExitGame(w http.ResponseWriter, r *http.Request) {
	a := s.authAccount(r)
	if a == nil {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	s.mu.Lock()
	g := s.games[model.MatchID(id)]
	if g == nil {
		s.mu.Unlock()
		errorJSON(w, http.StatusNotFound, "game not found")
		return
	}
	if g.player1 != a.id && g.player2 != a.id {
		s.mu.Unlock()
		writeJSON(w, http.StatusForbidden, map[string]string{
			"status": "error", "message": "not a participant",
		})
		return
	}
	if g.status != model.MatchStatusPending && g.status != model.MatchStatusInProgress {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error", "message": "game already over",
		})
		return
	}
	g.status = model.MatchStatusAborted
	now := time.Now()
	g.endTime = &now
	opponent := g.player1
	if a.id == g.player1 {
		opponent = g.player2
	}
	s.mu.Unlock()

	if opponent != 0 {
		s.pushEvent(opponent, model.EventPlayerDisconnected, model.PlayerDisconnectedPayload{
			MatchID:  model.MatchID(id),
			PlayerID: a.id,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// replayJSON renders a game's move record. Caller must hold s.mu.
func (s *Server) replayJSON(g *game) model.Replay {
	rep := model.Replay{
		ID:          g.id,
		BlackPlayer: model.ReplayPlayer{ID: g.player1},
		WhitePlayer: model.ReplayPlayer{ID: g.player2},
		StartTime:   g.startTime,
		EndTime:     g.endTime,
		Moves:       g.moves,
	}
	if rep.Moves == nil {
		rep.Moves = []model.Move{}
	}
	if a := s.byID[g.player1]; a != nil {
		rep.BlackPlayer.Username = a.username
	}
	if a := s.byID[g.player2]; a != nil {
		rep.WhitePlayer.Username = a.username
	}
	if g.winner != 0 {
		winner := model.ReplayPlayer{ID: g.winner}
		if a := s.byID[g.winner]; a != nil {
			winner.Username = a.username
		}
		rep.Winner = &winner
	}
	return rep
}

func (s *Server) handleListReplays(w http.ResponseWriter, r *http.Request) {
	a := s.authAccount(r)
	if a == nil {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	s.mu.Lock()
	replays := make([]model.Replay, 0, len(s.games))
	for _, g := range s.games {
		// A game that never got a second player has no replay
		if g.player2 == 0 {
			continue
		}
		if g.player1 == a.id || g.player2 == a.id {
			replays = append(replays, s.replayJSON(g))
		}
	}
	s.mu.Unlock()

	sort.Slice(replays, func(i, j int) bool {
		return replays[i].StartTime.After(replays[j].StartTime)
	})
	writeJSON(w, http.StatusOK, replays)
}

func (s *Server) handleGetReplay(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	s.mu.Lock()
	g := s.games[model.MatchID(id)]
	var rep model.Replay
	ok := g != nil && g.player2 != 0
	if ok {
		rep = s.replayJSON(g)
	}
	s.mu.Unlock()

	if !ok {
		errorJSON(w, http.StatusNotFound, "replay not found")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	entries := make([]model.User, 0, len(s.byID))
	for _, a := range s.byID {
		entries = append(entries, userJSON(a, true))
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Rating > entries[j].Rating
	})
	if len(entries) > 50 {
		entries = entries[:50]
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCheckMatches(w http.ResponseWriter, r *http.Request) {
	a := s.authAccount(r)
	if a == nil {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tickets {
		if t.status == "waiting" && t.player1 != a.id {
			resp := map[string]any{
				"status":     "match_found",
				"match_id":   t.id,
				"player1_id": t.player1,
			}
			if creator := s.byID[t.player1]; creator != nil {
				resp["player1_username"] = creator.username
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "no_match_found"})
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	a := s.authAccount(r)
	if a == nil {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	s.mu.Lock()
	s.nextGameID++
	g := &game{
		id:        model.MatchID(s.nextGameID),
		player1:   a.id,
		status:    model.MatchStatusPending,
		startTime: time.Now(),
	}
	s.games[g.id] = g

	s.nextTicketID++
	t := &ticket{
		id:      s.nextTicketID,
		gameID:  g.id,
		player1: a.id,
		status:  "waiting",
	}
	s.tickets[t.id] = t
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":   "success",
		"match_id": t.id,
		"game_id":  g.id,
	})
}

func (s *Server) handleJoinMatch(w http.ResponseWriter, r *http.Request) {
	a := s.authAccount(r)
	if a == nil {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	s.mu.Lock()
	t := s.tickets[id]
	if t == nil {
		s.mu.Unlock()
		errorJSON(w, http.StatusNotFound, "match not found")
		return
	}
	if t.status != "waiting" {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error", "message": "match already closed",
		})
		return
	}
	if t.player1 == a.id {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error", "message": "cannot join own match",
		})
		return
	}

	t.status = "closed"
	g := s.games[t.gameID]
	g.player2 = a.id
	g.status = model.MatchStatusInProgress
	m := s.matchJSON(g)
	creator := t.player1
	s.mu.Unlock()

	s.pushEvent(creator, model.EventMatchFound, model.MatchFoundPayload{Match: m})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"game_id": g.id,
	})
}

func (s *Server) handleCancelMatch(w http.ResponseWriter, r *http.Request) {
	a := s.authAccount(r)
	if a == nil {
		errorJSON(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tickets[id]
	if t == nil {
		errorJSON(w, http.StatusNotFound, "match not found")
		return
	}
	if t.player1 != a.id {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error", "message": "only the creator can cancel",
		})
		return
	}
	if t.status != "waiting" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error", "message": "match already closed",
		})
		return
	}

	t.status = "closed"
	if g := s.games[t.gameID]; g != nil {
		g.status = model.MatchStatusAborted
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
