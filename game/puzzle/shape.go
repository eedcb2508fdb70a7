package puzzle

// edgeSign decides which neighbour owns the tab on the internal edge that
// leaves cell (row, col) going right (horizontal) or down (vertical). The
// hash is fixed so every client and server agrees on the same cut.
func edgeSign(row, col int, horizontal bool) int {
	salt := 321
	if horizontal {
		salt = 789
	}
	if (row*123+col*456+salt)%2 == 0 {
		return Tab
	}
	return Blank
}

// ShapeOf returns the edge shape of the cell at (row, col).
//
// Grid-border sides are Flat. Every internal edge is shared by two cells
// whose values on it are opposite, so a Tab on one always meets a Blank on
// the other.
func ShapeOf(row, col int) EdgeShape {
	var s EdgeShape
	if row > 0 {
		s.Top = -edgeSign(row-1, col, false)
	}
	if row < Rows-1 {
		s.Bottom = edgeSign(row, col, false)
	}
	if col > 0 {
		s.Left = -edgeSign(row, col-1, true)
	}
	if col < Cols-1 {
		s.Right = edgeSign(row, col, true)
	}
	return s
}

// ShapeOfTile is ShapeOf for a tile's home cell.
func ShapeOfTile(t Tile) EdgeShape {
	return ShapeOf(t.Row, t.Col)
}
