package compare

// distanceHalfLife is the match offset at which the positional part of the
// score has decayed halfway.
const distanceHalfLife = 16.0

// Relevance converts a match at the given error depth and distance from the
// start of the context into a score in (0,1]. The score never increases when
// either input grows, and a perfect match at the start scores exactly 1.
func Relevance(depth, distance int) float64 {
	if depth < 0 {
		depth = 0
	}
	if distance < 0 {
		distance = 0
	}
	base := 1.0 / float64(depth+1)
	decay := 1.0 / (1.0 + float64(distance)/distanceHalfLife)
	return base * (0.5 + 0.5*decay)
}
