package truco

import (
	"fmt"
	"math/rand"
	"time"

	appErr "github.com/Sergioohs/Trucopro/pkg/errors"
)

// StakeLadder is the fixed sequence of hand values reachable through truco
// bidding.
var StakeLadder = []int{1, 3, 6, 9, 12}

// TargetScore ends the match for the first team that reaches it.
const TargetScore = 12

type BidAction string

const (
	BidAccept BidAction = "accept"
	BidRaise  BidAction = "raise"
	BidRun    BidAction = "run"
)

type SeatInfo struct {
	UserID   int64  `json:"userId"`
	Nickname string `json:"nickname"`
	Team     int    `json:"team"`
}

type Seat struct {
	SeatInfo
	Hand []Card `json:"hand"`
}

type Play struct {
	Seat int  `json:"seat"`
	Card Card `json:"card"`
}

// Bid is the bidding sub-state. Pending=false means no outstanding request;
// Requester is only meaningful while Pending is true.
type Bid struct {
	Pending   bool `json:"pending"`
	Requester int  `json:"requester"`
}

// State is one match. All mutations go through its methods; callers are
// expected to serialize access (the room holds one lock per match).
type State struct {
	ID        string
	Seats     [4]Seat
	Dealer    int
	Turn      int
	Score     [2]int
	Stake     int
	Vira      Card
	Manilha   Rank
	Trick     []Play
	TrickWins [2]int
	Round     int
	Bid       Bid
	Over      bool

	// TrickHistory keeps the resolved tricks of the current hand for
	// client replay; it is cleared on every redeal.
	TrickHistory [][]Play

	trickWinners []int // seat index per resolved trick, same hand scope
	stakeIdx     int
	rng          *rand.Rand
}

// NewMatch deals the first hand. The rng drives every shuffle of the match;
// pass a seeded source for reproducible deals.
func NewMatch(id string, seats [4]SeatInfo, rng *rand.Rand) *State {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	st := &State{ID: id, rng: rng}
	for i, info := range seats {
		st.Seats[i] = Seat{SeatInfo: info}
	}
	st.Dealer = 0
	st.deal()
	return st
}

// deal resets all per-hand state and hands out a fresh shuffle: three cards
// per seat, then the vira.
func (st *State) deal() {
	deck := NewDeck()
	Shuffle(deck, st.rng)

	next := len(deck) - 1
	draw := func() Card {
		c := deck[next]
		next--
		return c
	}

	for i := range st.Seats {
		st.Seats[i].Hand = st.Seats[i].Hand[:0]
	}
	for round := 0; round < 3; round++ {
		for i := range st.Seats {
			st.Seats[i].Hand = append(st.Seats[i].Hand, draw())
		}
	}
	st.Vira = draw()
	st.Manilha = NextRank(st.Vira.Rank)

	st.Trick = nil
	st.TrickWins = [2]int{}
	st.Round = 1
	st.Stake = StakeLadder[0]
	st.stakeIdx = 0
	st.Bid = Bid{}
	st.TrickHistory = nil
	st.trickWinners = nil
	st.Turn = (st.Dealer + 1) % 4
}

func (st *State) resetHand() {
	st.Dealer = (st.Dealer + 1) % 4
	st.deal()
}

// PlayCard removes card from the seat's hand and appends it to the current
// trick. Completing a trick resolves it, and resolving the decisive trick
// ends the hand (scoring the stake) or the match.
func (st *State) PlayCard(seat int, card Card) error {
	if st.Over {
		return appErr.ErrMatchAlreadyOver
	}
	if st.Turn != seat {
		return appErr.ErrNotYourTurn
	}

	hand := st.Seats[seat].Hand
	idx := -1
	for i, c := range hand {
		if c == card {
			idx = i
			break
		}
	}
	if idx < 0 {
		return appErr.ErrCardNotInHand
	}

	st.Seats[seat].Hand = append(hand[:idx], hand[idx+1:]...)
	st.Trick = append(st.Trick, Play{Seat: seat, Card: card})
	st.Turn = (st.Turn + 1) % 4

	if len(st.Trick) == 4 {
		st.resolveTrick()
	}
	return nil
}

// resolveTrick awards the trick to the strictly strongest play. Exact power
// ties cannot occur between distinct cards, but if they did the earlier play
// wins.
func (st *State) resolveTrick() {
	winner := st.Trick[0].Seat
	best := Power(st.Trick[0].Card, st.Manilha)
	for _, play := range st.Trick[1:] {
		if p := Power(play.Card, st.Manilha); p > best {
			best = p
			winner = play.Seat
		}
	}

	st.TrickWins[st.Seats[winner].Team]++
	st.trickWinners = append(st.trickWinners, winner)
	st.TrickHistory = append(st.TrickHistory, st.Trick)
	st.Trick = nil
	st.Turn = winner

	if st.TrickWins[0] == 2 || st.TrickWins[1] == 2 || st.Round == 3 {
		st.endHand(st.handWinnerTeam())
		return
	}
	st.Round++
}

// handWinnerTeam picks the team with more trick wins. Equal counts fall back
// to the team that took the first trick of the hand; with three tricks per
// hand this branch is unreachable, but the policy must be deterministic.
func (st *State) handWinnerTeam() int {
	switch {
	case st.TrickWins[0] > st.TrickWins[1]:
		return 0
	case st.TrickWins[1] > st.TrickWins[0]:
		return 1
	default:
		return st.Seats[st.trickWinners[0]].Team
	}
}

func (st *State) endHand(team int) {
	st.Score[team] += st.Stake
	if st.Score[team] >= TargetScore {
		st.Over = true
		return
	}
	st.resetHand()
}

// RequestTruco opens a bid for the other team to answer. It needs room for
// at least one more step on the stake ladder.
func (st *State) RequestTruco(seat int) error {
	if st.Over {
		return appErr.ErrMatchAlreadyOver
	}
	if st.Bid.Pending {
		return appErr.ErrBidAlreadyPending
	}
	if st.stakeIdx >= len(StakeLadder)-1 {
		return appErr.ErrBidLimitReached
	}
	st.Bid = Bid{Pending: true, Requester: seat}
	return nil
}

// AnswerTruco settles an outstanding bid. Only the opposing team may answer.
// Run concedes the hand at the current stake; accept raises the stake one
// step; raise does the same and hands the bid back to the other team.
func (st *State) AnswerTruco(seat int, action BidAction) error {
	if st.Over {
		return appErr.ErrMatchAlreadyOver
	}
	if !st.Bid.Pending {
		return appErr.ErrNoBidPending
	}
	if st.Seats[seat].Team == st.Seats[st.Bid.Requester].Team {
		return appErr.ErrWrongTeam
	}

	switch action {
	case BidRun:
		team := st.Seats[st.Bid.Requester].Team
		st.Bid = Bid{}
		st.endHand(team)
		return nil
	case BidAccept:
		// The ladder ends at 12: accepting a raise to the last rung
		// keeps the stake there.
		if st.stakeIdx < len(StakeLadder)-1 {
			st.stakeIdx++
		}
		st.Stake = StakeLadder[st.stakeIdx]
		st.Bid = Bid{}
		return nil
	case BidRaise:
		if st.stakeIdx+1 >= len(StakeLadder) {
			return appErr.ErrCannotRaiseFurther
		}
		st.stakeIdx++
		st.Stake = StakeLadder[st.stakeIdx]
		st.Bid = Bid{Pending: true, Requester: seat}
		return nil
	default:
		return fmt.Errorf("unsupported bid action %q", action)
	}
}
