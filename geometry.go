package server

import "math"

// vectorEpsilon is the threshold below which a vector is treated as having no
// direction.
const vectorEpsilon = 1e-9

// normalizeVector scales (x, y) to unit length. The boolean reports whether
// the input carried a usable direction; callers fall back to the actor's
// facing when it did not.
func normalizeVector(x, y float64) (float64, float64, bool) {
	length := math.Hypot(x, y)
	if length < vectorEpsilon {
		return 0, 0, false
	}
	return x / length, y / length, true
}

func distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

func distanceSquared(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx + dy*dy
}

// circleContains reports whether the point lies inside the circle. Edges are
// inclusive so a target standing exactly on the rim still counts as a hit.
func circleContains(cx, cy, radius, px, py float64) bool {
	if radius < 0 {
		return false
	}
	return distanceSquared(cx, cy, px, py) <= radius*radius
}

// circlesOverlap reports whether two circles touch or overlap.
func circlesOverlap(ax, ay, ar, bx, by, br float64) bool {
	sum := ar + br
	return distanceSquared(ax, ay, bx, by) <= sum*sum
}

// segmentDistanceSquared returns the squared distance from point (px, py) to
// the segment spanning (ax, ay) to (bx, by). Projectile sweeps use it so a
// fast shot cannot tunnel through a target between two ticks.
func segmentDistanceSquared(ax, ay, bx, by, px, py float64) float64 {
	vx := bx - ax
	vy := by - ay
	wx := px - ax
	wy := py - ay

	segLenSq := vx*vx + vy*vy
	if segLenSq < vectorEpsilon {
		return wx*wx + wy*wy
	}

	proj := (wx*vx + wy*vy) / segLenSq
	if proj <= 0 {
		return wx*wx + wy*wy
	}
	if proj >= 1 {
		dx := px - bx
		dy := py - by
		return dx*dx + dy*dy
	}

	dx := px - (ax + vx*proj)
	dy := py - (ay + vy*proj)
	return dx*dx + dy*dy
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
