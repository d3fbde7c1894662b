package board

import "testing"

func TestEvaluateEmptyBoard(t *testing.T) {
	res := Evaluate(Board{})
	if res.Winner != Empty || res.Draw {
		t.Fatalf("empty board should be undecided, got %+v", res)
	}
}

func TestEvaluateAllLines(t *testing.T) {
	lines := [8][3]int{
		{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
		{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
		{0, 4, 8}, {2, 4, 6},
	}
	for _, sym := range []Cell{X, O} {
		for _, line := range lines {
			var b Board
			for _, i := range line {
				b[i] = sym
			}
			res := Evaluate(b)
			if res.Winner != sym {
				t.Fatalf("line %v with %q: winner=%q", line, sym, res.Winner)
			}
			if res.Line != line {
				t.Fatalf("line %v with %q: reported line %v", line, sym, res.Line)
			}
			if res.Draw {
				t.Fatalf("line %v with %q: draw reported alongside winner", line, sym)
			}
		}
	}
}

func TestEvaluateDraw(t *testing.T) {
	// X O X / O X O / O X O — full board, no completed line
	b := Board{X, O, X, O, X, O, O, X, O}
	res := Evaluate(b)
	if !res.Draw || res.Winner != Empty {
		t.Fatalf("expected draw, got %+v", res)
	}
}

func TestEvaluateFirstMatchingLineWins(t *testing.T) {
	// Unreachable from legal play but the evaluator must stay total: two
	// winning lines for different symbols, row-major order decides.
	b := Board{X, X, X, O, O, O, Empty, Empty, Empty}
	res := Evaluate(b)
	if res.Winner != X {
		t.Fatalf("expected first line (X row) to win, got %q", res.Winner)
	}
}

func TestEvaluateTotalOverAllBoards(t *testing.T) {
	cells := []Cell{Empty, X, O}
	var b Board
	var walk func(i int)
	count := 0
	walk = func(i int) {
		if i == Size {
			count++
			res := Evaluate(b)
			if res.Draw && res.Winner != Empty {
				t.Fatalf("board %v: draw with winner", b)
			}
			if res.Draw && !b.Full() {
				t.Fatalf("board %v: draw on non-full board", b)
			}
			if res.Winner != Empty && res.Winner != X && res.Winner != O {
				t.Fatalf("board %v: bogus winner %q", b, res.Winner)
			}
			return
		}
		for _, c := range cells {
			b[i] = c
			walk(i + 1)
		}
	}
	walk(0)
	if count != 19683 { // 3^9 labelings
		t.Fatalf("expected 19683 boards, visited %d", count)
	}
}

func TestValid(t *testing.T) {
	for _, idx := range []int{-1, 9, 100} {
		if Valid(idx) {
			t.Fatalf("index %d should be invalid", idx)
		}
	}
	for idx := 0; idx < Size; idx++ {
		if !Valid(idx) {
			t.Fatalf("index %d should be valid", idx)
		}
	}
}
