package board

// Cell is the content of one board square.
type Cell string

const (
	Empty Cell = ""
	X     Cell = "X"
	O     Cell = "O"
)

// Size is the number of cells on the grid.
const Size = 9

// Board is the 3x3 grid in row-major order.
type Board [Size]Cell

// winLines in check order: rows, columns, diagonals.
var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Result is the outcome of evaluating a board position.
type Result struct {
	Winner Cell   // Empty when nobody has won
	Line   [3]int // indices of the winning line, valid only when Winner != Empty
	Draw   bool   // no winner and every cell filled
}

// Evaluate reports the first winning line in check order, or a draw when the
// board is full with no winner. It is total over every cell labeling.
func Evaluate(b Board) Result {
	for _, line := range winLines {
		a := b[line[0]]
		if a != Empty && a == b[line[1]] && a == b[line[2]] {
			return Result{Winner: a, Line: line}
		}
	}
	if b.Full() {
		return Result{Draw: true}
	}
	return Result{}
}

// Full reports whether every cell is occupied.
func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Valid reports whether idx addresses a cell on the grid.
func Valid(idx int) bool { return idx >= 0 && idx < Size }
