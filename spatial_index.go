package server

import (
	"math"
	"sort"
)

type cellKey struct {
	X int
	Y int
}

const targetGridCellSize = 4.0 // world units per grid cell

// targetIndex buckets live actors into grid cells so area queries touch only
// nearby candidates. It is rebuilt from scratch once per tick after movement
// resolves; queries between rebuilds see a consistent snapshot.
type targetIndex struct {
	cellSize    float64
	invCellSize float64
	cells       map[cellKey][]*actorState
}

func newTargetIndex(cellSize float64) *targetIndex {
	if cellSize <= 0 {
		cellSize = targetGridCellSize
	}
	return &targetIndex{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]*actorState),
	}
}

func (idx *targetIndex) rebuild(actors []*actorState) {
	if idx == nil {
		return
	}
	idx.cells = make(map[cellKey][]*actorState, len(actors))
	for _, actor := range actors {
		if actor == nil || !actor.alive() {
			continue
		}
		key := idx.cellFor(actor.X, actor.Y)
		idx.cells[key] = append(idx.cells[key], actor)
	}
}

func (idx *targetIndex) cellFor(x, y float64) cellKey {
	return cellKey{
		X: int(math.Floor(x * idx.invCellSize)),
		Y: int(math.Floor(y * idx.invCellSize)),
	}
}

// targetsWithin returns the live actors whose position lies inside the
// circle, ordered by id ascending so tie-breaking stays deterministic.
func (idx *targetIndex) targetsWithin(cx, cy, radius float64) []*actorState {
	if idx == nil || radius <= 0 {
		return nil
	}
	min := idx.cellFor(cx-radius, cy-radius)
	max := idx.cellFor(cx+radius, cy+radius)

	var found []*actorState
	for row := min.Y; row <= max.Y; row++ {
		for col := min.X; col <= max.X; col++ {
			for _, actor := range idx.cells[cellKey{X: col, Y: row}] {
				if circleContains(cx, cy, radius, actor.X, actor.Y) {
					found = append(found, actor)
				}
			}
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found
}

// closestTargets returns up to n targets inside the circle sorted by
// ascending distance, ties broken by id.
func (idx *targetIndex) closestTargets(cx, cy, radius float64, n int) []*actorState {
	found := idx.targetsWithin(cx, cy, radius)
	if len(found) == 0 || n <= 0 {
		return nil
	}
	sortTargetsByDistance(cx, cy, found)
	if len(found) > n {
		found = found[:n]
	}
	return found
}

func sortTargetsByDistance(cx, cy float64, targets []*actorState) {
	sort.Slice(targets, func(i, j int) bool {
		di := distanceSquared(cx, cy, targets[i].X, targets[i].Y)
		dj := distanceSquared(cx, cy, targets[j].X, targets[j].Y)
		if di != dj {
			return di < dj
		}
		return targets[i].ID < targets[j].ID
	})
}

func (w *World) targetsWithin(cx, cy, radius float64) []*actorState {
	if w == nil || w.targetIndex == nil {
		return nil
	}
	return w.targetIndex.targetsWithin(cx, cy, radius)
}

func (w *World) closestTargets(cx, cy, radius float64, n int) []*actorState {
	if w == nil || w.targetIndex == nil {
		return nil
	}
	return w.targetIndex.closestTargets(cx, cy, radius, n)
}
