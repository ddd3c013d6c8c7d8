package gobangtest

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/yexiu0529666/gobang/internal/model"
)

// wsEvent mirrors the channel wire format
type wsEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type wsConn struct {
	conn   *websocket.Conn
	userID model.UserID

	writeMu sync.Mutex
}

func (c *wsConn) send(name model.EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(wsEvent{Event: string(name), Data: data})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, msg)
}

func (c *wsConn) close() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "server shutdown")
}

// pushEvent delivers an event to every open connection of a user
func (s *Server) pushEvent(userID model.UserID, name model.EventType, payload any) {
	s.mu.Lock()
	conns := make([]*wsConn, len(s.conns[userID]))
	copy(conns, s.conns[userID])
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.send(name, payload)
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	a := s.authAccount(r)
	if a == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}

	c := &wsConn{conn: ws, userID: a.id}

	s.mu.Lock()
	s.conns[a.id] = append(s.conns[a.id], c)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		conns := s.conns[a.id]
		for i, cc := range conns {
			if cc == c {
				s.conns[a.id] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		c.close()
	}()

	// Handshake ack: the client treats the connection as usable only
	// after this arrives
	if err := c.send(model.EventConnected, map[string]any{"user_id": a.id}); err != nil {
		return
	}

	for {
		_, data, err := ws.Read(r.Context())
		if err != nil {
			return
		}

		var ev wsEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}

		if model.EventType(ev.Event) == model.EventMakeMove {
			var p model.MakeMovePayload
			if err := json.Unmarshal(ev.Data, &p); err != nil {
				continue
			}
			s.processMove(a.id, p)
		}
	}
}

// processMove validates and applies a move, broadcasting the confirmed
// move to both players, and the game_over event when the move wins or
// draws the game.
func (s *Server) processMove(playerID model.UserID, p model.MakeMovePayload) {
	s.mu.Lock()
	g := s.games[p.MatchID]
	if g == nil || g.status != model.MatchStatusInProgress {
		s.mu.Unlock()
		return
	}
	if g.player1 != playerID && g.player2 != playerID {
		s.mu.Unlock()
		return
	}

	currentPlayer := g.player1
	if len(g.moves)%2 == 1 {
		currentPlayer = g.player2
	}
	if playerID != currentPlayer {
		s.mu.Unlock()
		return
	}
	if p.X < 0 || p.X >= model.BoardSize || p.Y < 0 || p.Y >= model.BoardSize {
		s.mu.Unlock()
		return
	}
	for _, mv := range g.moves {
		if mv.X == p.X && mv.Y == p.Y {
			s.mu.Unlock()
			return
		}
	}

	s.nextMoveID++
	mv := model.Move{
		ID:         s.nextMoveID,
		MatchID:    g.id,
		PlayerID:   playerID,
		X:          p.X,
		Y:          p.Y,
		MoveNumber: len(g.moves) + 1,
		Timestamp:  time.Now(),
	}
	g.moves = append(g.moves, mv)

	won := s.checkWin(g, p.X, p.Y)
	draw := !won && len(g.moves) >= model.BoardSize*model.BoardSize
	if won || draw {
		g.status = model.MatchStatusFinished
		now := time.Now()
		g.endTime = &now
		if won {
			g.winner = playerID
		}
	}
	players := []model.UserID{g.player1, g.player2}
	matchID := g.id
	winner := g.winner
	s.mu.Unlock()

	for _, id := range players {
		s.pushEvent(id, model.EventMoveMade, model.MoveMadePayload{
			MatchID:    mv.MatchID,
			PlayerID:   mv.PlayerID,
			X:          mv.X,
			Y:          mv.Y,
			MoveNumber: mv.MoveNumber,
		})
	}

	if won || draw {
		for _, id := range players {
			s.pushEvent(id, model.EventGameOver, model.GameOverPayload{
				MatchID:  matchID,
				WinnerID: winner,
				Draw:     draw,
			})
		}
	}
}

// checkWin reports whether the stone just placed at (x, y) completes
// five in a row. Caller must hold s.mu.
func (s *Server) checkWin(g *game, x, y int) bool {
	board := map[[2]int]model.UserID{}
	for _, mv := range g.moves {
		board[[2]int{mv.X, mv.Y}] = mv.PlayerID
	}
	player := board[[2]int{x, y}]

	dirs := [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}
	for _, d := range dirs {
		count := 1
		for _, sign := range []int{1, -1} {
			for i := 1; i < 5; i++ {
				nx, ny := x+d[0]*i*sign, y+d[1]*i*sign
				if board[[2]int{nx, ny}] != player {
					break
				}
				count++
			}
		}
		if count >= 5 {
			return true
		}
	}
	return false
}
