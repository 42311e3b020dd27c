package truco_test

import (
	"math/rand"
	"testing"

	"github.com/Sergioohs/Trucopro/internal/truco"
	appErr "github.com/Sergioohs/Trucopro/pkg/errors"
)

func newTestMatch(t *testing.T, seed int64) *truco.State {
	t.Helper()

	seats := [4]truco.SeatInfo{
		{UserID: 1, Nickname: "ana", Team: 0},
		{UserID: 2, Nickname: "bia", Team: 1},
		{UserID: 3, Nickname: "caio", Team: 0},
		{UserID: 4, Nickname: "davi", Team: 1},
	}
	return truco.NewMatch("m1", seats, rand.New(rand.NewSource(seed)))
}

func TestNewMatchDealIntegrity(t *testing.T) {
	st := newTestMatch(t, 42)

	seen := map[truco.Card]struct{}{st.Vira: {}}
	if !st.Vira.Valid() {
		t.Fatalf("invalid vira: %+v", st.Vira)
	}
	for i, seat := range st.Seats {
		if len(seat.Hand) != 3 {
			t.Fatalf("seat %d has %d cards, want 3", i, len(seat.Hand))
		}
		for _, c := range seat.Hand {
			if !c.Valid() {
				t.Fatalf("invalid card dealt: %+v", c)
			}
			if _, dup := seen[c]; dup {
				t.Fatalf("card dealt twice: %+v", c)
			}
			seen[c] = struct{}{}
		}
	}
	if len(seen) != 13 {
		t.Fatalf("expected 13 distinct dealt cards, got %d", len(seen))
	}

	if st.Manilha != truco.NextRank(st.Vira.Rank) {
		t.Fatalf("manilha %s does not follow vira %s", st.Manilha, st.Vira.Rank)
	}
	if st.Turn != (st.Dealer+1)%4 {
		t.Fatalf("first turn %d should be the seat after dealer %d", st.Turn, st.Dealer)
	}
	if st.Stake != 1 || st.Round != 1 || st.Over {
		t.Fatalf("fresh match has stake=%d round=%d over=%v", st.Stake, st.Round, st.Over)
	}
}

func TestPlayCardValidation(t *testing.T) {
	st := newTestMatch(t, 1)

	other := (st.Turn + 1) % 4
	if err := st.PlayCard(other, st.Seats[other].Hand[0]); err != appErr.ErrNotYourTurn {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}

	// A card the current seat cannot hold: one from another seat's hand.
	foreign := st.Seats[other].Hand[0]
	if err := st.PlayCard(st.Turn, foreign); err != appErr.ErrCardNotInHand {
		t.Fatalf("expected ErrCardNotInHand, got %v", err)
	}

	turn := st.Turn
	card := st.Seats[turn].Hand[0]
	if err := st.PlayCard(turn, card); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if len(st.Seats[turn].Hand) != 2 {
		t.Fatalf("hand should shrink to 2, got %d", len(st.Seats[turn].Hand))
	}
	if st.Turn != (turn+1)%4 {
		t.Fatalf("turn should advance to %d, got %d", (turn+1)%4, st.Turn)
	}
	if len(st.Trick) != 1 {
		t.Fatalf("trick should hold 1 play, got %d", len(st.Trick))
	}
}

func TestTrickResolutionPicksStrongestCard(t *testing.T) {
	st := truco.State{
		Seats: [4]truco.Seat{
			{SeatInfo: truco.SeatInfo{UserID: 1, Team: 0}, Hand: []truco.Card{{Rank: "Q", Suit: truco.Clubs}}},
			{SeatInfo: truco.SeatInfo{UserID: 2, Team: 1}, Hand: []truco.Card{{Rank: "7", Suit: truco.Hearts}}},
			{SeatInfo: truco.SeatInfo{UserID: 3, Team: 0}, Hand: []truco.Card{{Rank: "3", Suit: truco.Spades}}},
			{SeatInfo: truco.SeatInfo{UserID: 4, Team: 1}, Hand: []truco.Card{{Rank: "7", Suit: truco.Diamonds}}},
		},
		Manilha:   "7",
		Round:     1,
		Stake:     1,
		Score:     [2]int{11, 11},
		TrickWins: [2]int{0, 1},
	}

	for seat := 0; seat < 4; seat++ {
		if err := st.PlayCard(seat, st.Seats[seat].Hand[0]); err != nil {
			t.Fatalf("seat %d play failed: %v", seat, err)
		}
	}

	// Seat 3's manilha of diamonds outranks seat 1's manilha of hearts.
	if st.TrickWins != [2]int{0, 2} {
		t.Fatalf("trick wins = %v, want [0 2]", st.TrickWins)
	}
	if !st.Over {
		t.Fatalf("team 1 reached 12, match should be over")
	}
	if st.Score != [2]int{11, 12} {
		t.Fatalf("score = %v, want [11 12]", st.Score)
	}
	if len(st.TrickHistory) != 1 || len(st.TrickHistory[0]) != 4 {
		t.Fatalf("resolved trick should move into history")
	}
	if err := st.PlayCard(0, truco.Card{Rank: "4", Suit: truco.Clubs}); err != appErr.ErrMatchAlreadyOver {
		t.Fatalf("expected ErrMatchAlreadyOver, got %v", err)
	}
}

func TestTrucoBiddingLadder(t *testing.T) {
	st := newTestMatch(t, 3)

	if err := st.AnswerTruco(1, truco.BidAccept); err != appErr.ErrNoBidPending {
		t.Fatalf("expected ErrNoBidPending, got %v", err)
	}

	if err := st.RequestTruco(0); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if err := st.RequestTruco(2); err != appErr.ErrBidAlreadyPending {
		t.Fatalf("expected ErrBidAlreadyPending, got %v", err)
	}
	if err := st.AnswerTruco(2, truco.BidAccept); err != appErr.ErrWrongTeam {
		t.Fatalf("requester's teammate must not answer, got %v", err)
	}
	if !st.Bid.Pending || st.Stake != 1 {
		t.Fatalf("rejected answers must leave the bid untouched")
	}

	if err := st.AnswerTruco(1, truco.BidAccept); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if st.Stake != 3 || st.Bid.Pending {
		t.Fatalf("accept should move stake to 3 and clear the bid, got stake=%d pending=%v", st.Stake, st.Bid.Pending)
	}

	// Raise chain walks the ladder one rung per answer, alternating teams.
	if err := st.RequestTruco(0); err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	wantStakes := []int{6, 9, 12}
	answerers := []int{1, 0, 1}
	for i, seat := range answerers {
		if err := st.AnswerTruco(seat, truco.BidRaise); err != nil {
			t.Fatalf("raise %d failed: %v", i, err)
		}
		if st.Stake != wantStakes[i] {
			t.Fatalf("raise %d: stake = %d, want %d", i, st.Stake, wantStakes[i])
		}
		if !st.Bid.Pending || st.Bid.Requester != seat {
			t.Fatalf("raise %d should pass the bid to seat %d", i, seat)
		}
	}

	if err := st.AnswerTruco(0, truco.BidRaise); err != appErr.ErrCannotRaiseFurther {
		t.Fatalf("expected ErrCannotRaiseFurther at 12, got %v", err)
	}
	if st.Stake != 12 || !st.Bid.Pending {
		t.Fatalf("failed raise must not mutate state")
	}
	if err := st.AnswerTruco(0, truco.BidAccept); err != nil {
		t.Fatalf("accept at the top rung failed: %v", err)
	}
	if st.Stake != 12 {
		t.Fatalf("stake must stay at 12, got %d", st.Stake)
	}

	if err := st.RequestTruco(2); err != appErr.ErrBidLimitReached {
		t.Fatalf("expected ErrBidLimitReached at 12, got %v", err)
	}
}

func TestTrucoRunAwardsStakeAndRedeals(t *testing.T) {
	st := newTestMatch(t, 5)
	dealerBefore := st.Dealer

	if err := st.RequestTruco(0); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if err := st.AnswerTruco(1, truco.BidRun); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if st.Score != [2]int{1, 0} {
		t.Fatalf("running should give the requester's team the stake, score=%v", st.Score)
	}
	if st.Over {
		t.Fatalf("match must continue below 12 points")
	}
	if st.Dealer != (dealerBefore+1)%4 {
		t.Fatalf("redeal should rotate the dealer")
	}
	if st.Stake != 1 || st.Round != 1 || st.Bid.Pending {
		t.Fatalf("hand state should reset after a run")
	}
	for i, seat := range st.Seats {
		if len(seat.Hand) != 3 {
			t.Fatalf("seat %d should be redealt 3 cards, got %d", i, len(seat.Hand))
		}
	}
}

// Drives whole matches with a first-card policy and checks the scoring
// invariants hold from deal to terminal state.
func TestFullMatchInvariants(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		st := newTestMatch(t, seed)

		for plays := 0; !st.Over; plays++ {
			if plays > 10000 {
				t.Fatalf("seed %d: match did not terminate", seed)
			}
			prevScore := st.Score
			prevStake := st.Stake
			turn := st.Turn

			if err := st.PlayCard(turn, st.Seats[turn].Hand[0]); err != nil {
				t.Fatalf("seed %d: play failed: %v", seed, err)
			}

			if st.Score != prevScore {
				diff0 := st.Score[0] - prevScore[0]
				diff1 := st.Score[1] - prevScore[1]
				if diff0+diff1 != prevStake || diff0 < 0 || diff1 < 0 {
					t.Fatalf("seed %d: score moved by (%d,%d) with stake %d", seed, diff0, diff1, prevStake)
				}
			}
		}

		winner := 0
		if st.Score[1] >= truco.TargetScore {
			winner = 1
		}
		if st.Score[winner] < truco.TargetScore {
			t.Fatalf("seed %d: terminal match without a 12-point team: %v", seed, st.Score)
		}
		if st.Score[1-winner] >= truco.TargetScore {
			t.Fatalf("seed %d: both teams reached 12: %v", seed, st.Score)
		}
	}
}
