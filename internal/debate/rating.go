package debate

import (
	"math"

	"github.com/arenalabs/debatearena/internal/domain"
)

// kFactor is the Elo sensitivity constant applied after every debate.
const kFactor = 32

// expectedScore is the standard Elo win expectancy of a rating against an
// opponent's rating.
func expectedScore(rating, opponent int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponent-rating)/400.0))
}

// NextRatings computes both sides' post-debate ratings from a paired Elo
// update. A nil winner scores the debate as a draw. The update is zero-sum
// up to rounding and moves more points when the lower-rated side wins.
func NextRatings(pro, con int, winner *domain.Side) (newPro, newCon int) {
	proScore := 0.5
	if winner != nil {
		if *winner == domain.SidePro {
			proScore = 1.0
		} else {
			proScore = 0.0
		}
	}

	proExpected := expectedScore(pro, con)
	newPro = pro + int(math.Round(kFactor*(proScore-proExpected)))
	newCon = con + int(math.Round(kFactor*((1.0-proScore)-(1.0-proExpected))))
	return newPro, newCon
}
