package truco

// Suit and Rank are wire-level strings so cards round-trip through JSON
// exactly as clients send them.
type Suit string

type Rank string

const (
	Clubs    Suit = "clubs"
	Hearts   Suit = "hearts"
	Spades   Suit = "spades"
	Diamonds Suit = "diamonds"
)

// rankOrder is the fixed strength ordering; suitOrder breaks ties between
// manilhas only (clubs weakest, diamonds strongest).
var rankOrder = []Rank{"4", "5", "6", "7", "Q", "J", "K", "A", "2", "3"}

var suitOrder = []Suit{Clubs, Hearts, Spades, Diamonds}

var rankIndex = buildRankIndex()

var suitIndex = map[Suit]int{Clubs: 0, Hearts: 1, Spades: 2, Diamonds: 3}

func buildRankIndex() map[Rank]int {
	m := make(map[Rank]int, len(rankOrder))
	for i, r := range rankOrder {
		m[r] = i
	}
	return m
}

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) Valid() bool {
	_, rankOK := rankIndex[c.Rank]
	_, suitOK := suitIndex[c.Suit]
	return rankOK && suitOK
}

// NextRank is the cyclic successor in the strength ordering; the rank after
// "3" wraps to "4". The manilha of a hand is NextRank(vira.Rank).
func NextRank(r Rank) Rank {
	return rankOrder[(rankIndex[r]+1)%len(rankOrder)]
}

// Power orders played cards. Manilhas score 100 plus their suit strength so
// they beat every plain card; plain cards compare by rank index alone.
func Power(c Card, manilha Rank) int {
	if c.Rank == manilha {
		return 100 + suitIndex[c.Suit]
	}
	return rankIndex[c.Rank]
}
