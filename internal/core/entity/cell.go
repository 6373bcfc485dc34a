package entity

// Cell is one grid bucket packed into 32 bits: the low IndexBits hold the
// slot index of the first occupant (IndexMask when empty) and the remaining
// bits hold a terrain/type tag.
type Cell uint32

const emptyCell = Cell(IndexMask)

const MaxCellType = GenerationMask

func (c Cell) Head() uint32 { return uint32(c) & IndexMask }
func (c Cell) Empty() bool  { return c.Head() == IndexMask }
func (c Cell) Type() uint32 { return uint32(c) >> IndexBits }

func (c *Cell) SetType(t uint32) {
	check(t <= MaxCellType, "SetType", "cell type %d exceeds %d", t, MaxCellType)
	*c = Cell(uint32(*c)&IndexMask | t<<IndexBits)
}

func (c *Cell) setHead(index uint32) {
	*c = Cell(uint32(*c)&^IndexMask | index&IndexMask)
}

// Grid is a fixed-size, row-major table of cells. Cells never move once the
// grid is built, so slots may keep a *Cell back-reference.
type Grid struct {
	width  uint32
	height uint32
	cells  []Cell
}

func NewGrid(width, height uint32) *Grid {
	check(width > 0 && height > 0, "NewGrid", "empty grid %dx%d", width, height)
	cells := make([]Cell, int(width)*int(height))
	for i := range cells {
		cells[i] = emptyCell
	}
	return &Grid{width: width, height: height, cells: cells}
}

func (g *Grid) Width() uint32  { return g.width }
func (g *Grid) Height() uint32 { return g.height }

func (g *Grid) Contains(x, y uint32) bool {
	return x < g.width && y < g.height
}

// At returns the cell at (x, y). Coordinates outside the grid are a fault.
func (g *Grid) At(x, y uint32) *Cell {
	check(g.Contains(x, y), "At", "(%d,%d) outside %dx%d grid", x, y, g.width, g.height)
	return &g.cells[y*g.width+x]
}
