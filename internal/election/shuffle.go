package election

import "math/rand/v2"

// Shuffler permutes ids in place.
type Shuffler func(ids []string)

// Shuffle applies a uniform random permutation. It only hides the order in
// which members acted from anyone reading the stored rolls; it is not a
// secret ballot.
func Shuffle(ids []string) {
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}
