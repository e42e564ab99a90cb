package fog

import (
	"fmt"
	"math"

	"cryptdelve.gg/internal/area"
)

// CellsForFloor projects the character's revealed cells on one floor to a set
// of "x,y" strings for minimap rendering.
func (s *Store) CellsForFloor(characterID string, depth int, instanceID string) map[string]struct{} {
	cells := make(map[string]struct{})
	for _, k := range s.Load(characterID, instanceID).Keys() {
		d, x, y := area.Decode(k)
		if d != depth {
			continue
		}
		cells[fmt.Sprintf("%d,%d", x, y)] = struct{}{}
	}
	return cells
}

// Bounds is the axis-aligned extent of the revealed cells on one floor.
type Bounds struct {
	MinX, MaxX int
	MinY, MaxY int
}

// BoundsForFloor returns the extent of the character's revealed cells on one
// floor, or nil when none are revealed there.
func (s *Store) BoundsForFloor(characterID string, depth int, instanceID string) *Bounds {
	var b *Bounds
	for _, k := range s.Load(characterID, instanceID).Keys() {
		d, x, y := area.Decode(k)
		if d != depth {
			continue
		}
		if b == nil {
			b = &Bounds{MinX: x, MaxX: x, MinY: y, MaxY: y}
			continue
		}
		if x < b.MinX {
			b.MinX = x
		}
		if x > b.MaxX {
			b.MaxX = x
		}
		if y < b.MinY {
			b.MinY = y
		}
		if y > b.MaxY {
			b.MaxY = y
		}
	}
	return b
}

// Stats summarizes a character's exploration progress.
type Stats struct {
	TotalRevealed   int
	FloorsVisited   int
	PercentExplored float64
}

// ExplorationStats computes progress against the fixed 51x51x51 world bound.
// The percentage is rounded to two decimals.
func (s *Store) ExplorationStats(characterID, instanceID string) Stats {
	set := s.Load(characterID, instanceID)
	floors := make(map[int]struct{})
	for _, k := range set.Keys() {
		floors[k.Depth()] = struct{}{}
	}
	total := set.Len()
	worldCells := WorldAxisCells * WorldAxisCells * WorldAxisCells
	pct := math.Round(float64(total)/float64(worldCells)*100*100) / 100
	return Stats{
		TotalRevealed:   total,
		FloorsVisited:   len(floors),
		PercentExplored: pct,
	}
}
