package lobby

import (
	"time"

	"github.com/Sergioohs/Trucopro/internal/truco"
)

// Identity is the authenticated caller as resolved by the auth layer.
type Identity struct {
	UserID   int64
	Nickname string
	Avatar   string
}

// SeatSlot is an occupied room seat. Empty slots are nil in the room's seat
// array.
type SeatSlot struct {
	UserID    int64
	Nickname  string
	Avatar    string
	Team      int
	Ready     bool
	Connected bool
}

// OutgoingMessage is the ws envelope pushed to subscribers.
type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}

type SeatView struct {
	Occupied  bool   `json:"occupied"`
	UserID    int64  `json:"userId,omitempty"`
	Nickname  string `json:"nickname,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	Team      int    `json:"team"`
	Ready     bool   `json:"ready"`
	Connected bool   `json:"connected"`
}

type MatchSeatView struct {
	UserID    int64  `json:"userId"`
	Nickname  string `json:"nickname"`
	Team      int    `json:"team"`
	CardCount int    `json:"cardCount"`
}

// MatchView is the public slice of match state plus the recipient's own
// hand. Other hands only ever appear as counts.
type MatchView struct {
	ID           string          `json:"id"`
	Score        [2]int          `json:"score"`
	Stake        int             `json:"stake"`
	Vira         truco.Card      `json:"vira"`
	Manilha      truco.Rank      `json:"manilha"`
	Turn         int             `json:"turn"`
	Round        int             `json:"round"`
	Trick        []truco.Play    `json:"trick"`
	TrickWins    [2]int          `json:"trickWins"`
	TrickHistory [][]truco.Play  `json:"trickHistory"`
	Bid          truco.Bid       `json:"bid"`
	Over         bool            `json:"over"`
	Countdown    int             `json:"countdown"`
	Seats        []MatchSeatView `json:"seats"`
	SelfHand     []truco.Card    `json:"selfHand"`
}

type RoomSnapshot struct {
	ID      string      `json:"id"`
	Code    string      `json:"code"`
	Private bool        `json:"private"`
	Seats   [4]SeatView `json:"seats"`
	Match   *MatchView  `json:"match,omitempty"`
}

// RoomSummary is the admin-facing digest of one live room.
type RoomSummary struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Private   bool      `json:"private"`
	Players   int       `json:"players"`
	InGame    bool      `json:"inGame"`
	CreatedAt time.Time `json:"createdAt"`
}
