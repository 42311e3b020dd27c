package truco

import "math/rand"

// NewDeck returns all 40 rank/suit combinations in a fixed order.
func NewDeck() []Card {
	deck := make([]Card, 0, len(rankOrder)*len(suitOrder))
	for _, rank := range rankOrder {
		for _, suit := range suitOrder {
			deck = append(deck, Card{Rank: rank, Suit: suit})
		}
	}
	return deck
}

// Shuffle runs Fisher-Yates with the caller's source so deals are
// reproducible under a seeded rng.
func Shuffle(deck []Card, rng *rand.Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}
