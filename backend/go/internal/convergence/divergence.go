package convergence

import "math"

// MaxScore is the top of the understanding and alignment scale.
const MaxScore = 10.0

// Divergence maps an agent's understanding and alignment scores (0-10) to a
// divergence in [0, 1], where 0 is perfect convergence. A missing score
// counts as fully divergent.
func Divergence(understanding, alignment *float64) float64 {
	if understanding == nil || alignment == nil {
		return 1.0
	}
	u, a := *understanding, *alignment
	if math.IsNaN(u) || math.IsNaN(a) {
		return 1.0
	}
	d := 1.0 - (u/MaxScore+a/MaxScore)/2.0
	return math.Max(0, math.Min(1, d))
}
