package game

// Rating adjustment constants
const (
	ratingBase     = 25
	blowoutMargin  = 10
	blowoutFactor  = 1.5
	closeMargin    = 2
	closeGameScale = 0.8
)

// RatingDelta returns how many rating points the winner gains and the loser
// loses for a finished match with the given scores. Callers skip draws.
func RatingDelta(score1, score2 int) int {
	diff := score1 - score2
	if diff < 0 {
		diff = -diff
	}

	mult := 1.0
	switch {
	case diff > blowoutMargin:
		mult = blowoutFactor
	case diff < closeMargin:
		mult = closeGameScale
	}
	return int(ratingBase * mult)
}
