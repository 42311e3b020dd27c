package truco_test

import (
	"math/rand"
	"testing"

	"github.com/Sergioohs/Trucopro/internal/truco"
)

func TestNewDeckHas40UniqueCards(t *testing.T) {
	deck := truco.NewDeck()
	if len(deck) != 40 {
		t.Fatalf("expected 40 cards, got %d", len(deck))
	}
	seen := make(map[truco.Card]struct{}, len(deck))
	for _, c := range deck {
		if !c.Valid() {
			t.Fatalf("invalid card in deck: %+v", c)
		}
		if _, dup := seen[c]; dup {
			t.Fatalf("duplicate card in deck: %+v", c)
		}
		seen[c] = struct{}{}
	}
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	a := truco.NewDeck()
	b := truco.NewDeck()
	truco.Shuffle(a, rand.New(rand.NewSource(7)))
	truco.Shuffle(b, rand.New(rand.NewSource(7)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different decks at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestNextRankIsCyclic(t *testing.T) {
	cases := map[truco.Rank]truco.Rank{
		"4": "5", "5": "6", "6": "7", "7": "Q", "Q": "J",
		"J": "K", "K": "A", "A": "2", "2": "3", "3": "4",
	}
	for vira, want := range cases {
		if got := truco.NextRank(vira); got != want {
			t.Fatalf("NextRank(%s) = %s, want %s", vira, got, want)
		}
	}
}

func TestPowerRanksManilhaAboveEverything(t *testing.T) {
	manilha := truco.Rank("7")

	strongestPlain := truco.Card{Rank: "3", Suit: truco.Diamonds}
	weakManilha := truco.Card{Rank: "7", Suit: truco.Clubs}
	if truco.Power(weakManilha, manilha) <= truco.Power(strongestPlain, manilha) {
		t.Fatalf("manilha of clubs should beat the strongest plain card")
	}

	// Manilhas order by suit: clubs < hearts < spades < diamonds.
	prev := -1
	for _, suit := range []truco.Suit{truco.Clubs, truco.Hearts, truco.Spades, truco.Diamonds} {
		p := truco.Power(truco.Card{Rank: "7", Suit: suit}, manilha)
		if p <= prev {
			t.Fatalf("manilha suit ordering broken at %s: %d <= %d", suit, p, prev)
		}
		prev = p
	}

	// Plain cards ignore suit entirely.
	a := truco.Power(truco.Card{Rank: "K", Suit: truco.Clubs}, manilha)
	b := truco.Power(truco.Card{Rank: "K", Suit: truco.Diamonds}, manilha)
	if a != b {
		t.Fatalf("plain cards of equal rank must have equal power, got %d and %d", a, b)
	}
}
