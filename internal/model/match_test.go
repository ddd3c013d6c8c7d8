package model

import (
	"errors"
	"testing"
)

func TestAppendMoveSequential(t *testing.T) {
	m := &Match{ID: 1}

	for i := 1; i <= 3; i++ {
		err := m.AppendMove(Move{MatchID: 1, X: i, Y: i, MoveNumber: i})
		if err != nil {
			t.Fatalf("AppendMove(%d) returned %v", i, err)
		}
	}

	if len(m.Moves) != 3 {
		t.Fatalf("expected 3 moves, got %d", len(m.Moves))
	}
	if m.NextMoveNumber() != 4 {
		t.Fatalf("expected next move number 4, got %d", m.NextMoveNumber())
	}
}

func TestAppendMoveRejectsGaps(t *testing.T) {
	tests := []struct {
		name       string
		have       int
		moveNumber int
	}{
		{name: "skipped ahead", have: 1, moveNumber: 3},
		{name: "replayed old move", have: 2, moveNumber: 1},
		{name: "duplicate of latest", have: 2, moveNumber: 2},
		{name: "zero move number", have: 0, moveNumber: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Match{ID: 1}
			for i := 1; i <= tt.have; i++ {
				if err := m.AppendMove(Move{MoveNumber: i}); err != nil {
					t.Fatalf("setup move %d: %v", i, err)
				}
			}

			err := m.AppendMove(Move{MoveNumber: tt.moveNumber})
			if !errors.Is(err, ErrReconciliationRequired) {
				t.Fatalf("expected ErrReconciliationRequired, got %v", err)
			}
			if len(m.Moves) != tt.have {
				t.Fatalf("history mutated: expected %d moves, got %d", tt.have, len(m.Moves))
			}
		})
	}
}

func TestStoneFor(t *testing.T) {
	if StoneFor(1) != StoneBlack {
		t.Error("move 1 should place black")
	}
	if StoneFor(2) != StoneWhite {
		t.Error("move 2 should place white")
	}
	if StoneFor(15) != StoneBlack {
		t.Error("odd moves should place black")
	}
}

func TestBoardDerivedFromHistory(t *testing.T) {
	m := &Match{
		Moves: []Move{
			{X: 7, Y: 7, MoveNumber: 1},
			{X: 8, Y: 8, MoveNumber: 2},
			{X: 7, Y: 8, MoveNumber: 3},
		},
	}

	b := m.Board()
	if b[7][7] != StoneBlack {
		t.Error("expected black at (7,7)")
	}
	if b[8][8] != StoneWhite {
		t.Error("expected white at (8,8)")
	}
	if b[7][8] != StoneBlack {
		t.Error("expected black at (7,8)")
	}
	if b[0][0] != StoneNone {
		t.Error("expected (0,0) empty")
	}
}

func TestBoardSkipsOutOfRangeMoves(t *testing.T) {
	m := &Match{
		Moves: []Move{
			{X: -1, Y: 5, MoveNumber: 1},
			{X: 5, Y: BoardSize, MoveNumber: 2},
			{X: 5, Y: 5, MoveNumber: 3},
		},
	}

	b := m.Board()
	if b[5][5] != StoneBlack {
		t.Error("expected black at (5,5)")
	}
}
