package world

import "github.com/zurustar/intvm/pkg/vm"

// Map dimensions. Tiles are numbered row by row: tile = y*GridWidth + x.
const (
	GridWidth  = vm.GridWidth
	GridHeight = 200
	Elevations = 3

	// FarAway is the distance reported for tiles outside the map.
	FarAway int32 = 9999
)

// Hex directions, clockwise from north-east.
var directions = [6]struct{ q, r int32 }{
	{+1, -1}, // 0 north-east
	{+1, 0},  // 1 south-east
	{0, +1},  // 2 south
	{-1, +1}, // 3 south-west
	{-1, 0},  // 4 north-west
	{0, -1},  // 5 north
}

func validTile(tile int32) bool {
	return tile >= 0 && tile < GridWidth*GridHeight
}

// axial converts a tile number to axial hex coordinates. Odd columns are
// shifted half a hex down.
func axial(tile int32) (q, r int32) {
	x, y := tile%GridWidth, tile/GridWidth
	return x, y - (x-(x&1))/2
}

func tileAt(q, r int32) (int32, bool) {
	x := q
	y := r + (q-(q&1))/2
	if x < 0 || x >= GridWidth || y < 0 || y >= GridHeight {
		return 0, false
	}
	return y*GridWidth + x, true
}

// TileDistance returns the number of hex steps between two tiles.
func (w *World) TileDistance(a, b int32) int32 {
	if !validTile(a) || !validTile(b) {
		return FarAway
	}
	aq, ar := axial(a)
	bq, br := axial(b)
	dq, dr := aq-bq, ar-br
	return max(abs(dq), abs(dr), abs(dq+dr))
}

// TileInDirection walks distance steps from tile. Walking off the map
// returns the start tile.
func (w *World) TileInDirection(tile, dir, distance int32) int32 {
	if !validTile(tile) || dir < 0 || dir > 5 || distance < 0 {
		return tile
	}
	q, r := axial(tile)
	d := directions[dir]
	out, ok := tileAt(q+d.q*distance, r+d.r*distance)
	if !ok {
		return tile
	}
	return out
}

// Start is where the player enters the map.
type Start struct {
	Tile        int32
	Elevation   int32
	Orientation int32
}

// OverrideMapStart changes the player's entry point.
func (w *World) OverrideMapStart(tile, elevation, orientation int32) {
	w.start = Start{Tile: tile, Elevation: elevation, Orientation: orientation}
}

// MapStart returns the player's entry point.
func (w *World) MapStart() Start {
	return w.start
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
