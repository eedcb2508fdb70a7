package puzzle

// PlayAreaHeight returns the board height for a container height, floor(h*0.82).
func PlayAreaHeight(containerHeight int) int {
	if containerHeight <= 0 {
		return 0
	}
	return containerHeight * PlayAreaPercent / 100
}

// BoardSize returns the board dimensions derived from a measured container.
func BoardSize(containerWidth, containerHeight int) (int, int) {
	if containerWidth < 0 {
		containerWidth = 0
	}
	return containerWidth, PlayAreaHeight(containerHeight)
}

// BoundsOf returns the solved-position rectangle of cell (row, col) on a
// board of the given size. Edges are placed at floor(i*W/Cols) and
// floor(j*H/Rows), so adjacent cells share an edge exactly and the 20 cells
// partition the board even when W or H is not divisible by the grid.
func BoundsOf(row, col, boardWidth, boardHeight int) Bounds {
	x0 := col * boardWidth / Cols
	x1 := (col + 1) * boardWidth / Cols
	y0 := row * boardHeight / Rows
	y1 := (row + 1) * boardHeight / Rows
	return Bounds{
		X:      x0,
		Y:      y0,
		Width:  x1 - x0,
		Height: y1 - y0,
	}
}

// BoundsOfTile is BoundsOf for a tile's home cell.
func BoundsOfTile(t Tile, boardWidth, boardHeight int) Bounds {
	return BoundsOf(t.Row, t.Col, boardWidth, boardHeight)
}
