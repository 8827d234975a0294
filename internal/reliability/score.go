// Package reliability derives a 0-100 track-record score from exchange
// counts. The score is recomputed from scratch on every completion or
// failure, never adjusted incrementally, so it cannot drift from the counts.
package reliability

// Score computes the reliability score for a contact.
//
//	50 base
//	+ up to 40 for successful exchanges (5 each)
//	+ 20 / 10 ratio bonus above 80% / 60% success
//	- up to 50 for failed exchanges (10 each)
//
// clamped to [0, 100].
func Score(successful, failed, total int) int {
	score := 50

	bonus := successful * 5
	if bonus > 40 {
		bonus = 40
	}
	score += bonus

	if total > 0 {
		ratio := float64(successful) / float64(total)
		switch {
		case ratio > 0.8:
			score += 20
		case ratio > 0.6:
			score += 10
		}
	}

	penalty := failed * 10
	if penalty > 50 {
		penalty = 50
	}
	score -= penalty

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
