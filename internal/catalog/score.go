package catalog

// Fuzzy matching combines a character-bigram Dice coefficient with a token
// Jaccard index. Bigrams tolerate typos and inflection, tokens reward
// whole-word overlap; the blend keeps "Statistik 1" and "Statistik 2"
// apart while still matching "statstik eins".
const (
	diceWeight    = 0.6
	jaccardWeight = 0.4
)

// Score returns the fuzzy similarity of two strings in [0, 1].
func Score(a, b string) float64 {
	return diceWeight*diceCoefficient(bigrams(a), bigrams(b)) +
		jaccardWeight*jaccardIndex(tokenSet(a), tokenSet(b))
}

// diceCoefficient is 2|A∩B| / (|A|+|B|). Two empty sets count as
// identical so equal normalized strings always score 1.0.
func diceCoefficient(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	return 2 * float64(inter) / float64(len(a)+len(b))
}

// jaccardIndex is |A∩B| / |A∪B| with the same empty-set conventions.
func jaccardIndex(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
