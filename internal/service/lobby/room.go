package lobby

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Sergioohs/Trucopro/internal/service/rating"
	"github.com/Sergioohs/Trucopro/internal/truco"
	appErr "github.com/Sergioohs/Trucopro/pkg/errors"
	"github.com/Sergioohs/Trucopro/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var quickChatAllowed = map[string]struct{}{
	"Truco!": {}, "Corre!": {}, "Seis!": {}, "Nove!": {}, "Doze!": {},
	"Boa!": {}, "😅": {}, "🔥": {}, "😎": {},
}

// Room is a single-writer unit: every mutation of seats or match state goes
// through mu, while different rooms proceed in parallel.
type Room struct {
	id        string
	code      string
	private   bool
	createdAt time.Time

	mu             sync.Mutex
	seats          [4]*SeatSlot
	match          *truco.State
	matchStartedAt time.Time
	lastSeen       map[int64]time.Time
	subscribers    map[int64]chan OutgoingMessage
	seq            int64

	turnSeat     int
	turnDeadline time.Time
	finalized    bool

	turnTimer time.Duration
	newRng    func() *rand.Rand
	onFinish  func(rating.MatchOutcome)
}

func (r *Room) ID() string   { return r.id }
func (r *Room) Code() string { return r.code }

func (r *Room) Seated(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seatIndexLocked(userID)
	return ok
}

// Join seats the identity, or rebinds it if it already holds a seat
// (reconnection). Seat, team and ready state survive reconnects.
func (r *Room) Join(id Identity) (reconnected bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.seatIndexLocked(id.UserID); ok {
		r.seats[idx].Connected = true
		r.lastSeen[id.UserID] = time.Now()
		r.broadcastStateLocked()
		return true, nil
	}

	for idx := range r.seats {
		if r.seats[idx] != nil {
			continue
		}
		r.seats[idx] = &SeatSlot{
			UserID:    id.UserID,
			Nickname:  id.Nickname,
			Avatar:    id.Avatar,
			Team:      idx % 2,
			Ready:     false,
			Connected: true,
		}
		r.lastSeen[id.UserID] = time.Now()
		r.broadcastStateLocked()
		return false, nil
	}
	return false, appErr.ErrRoomFull
}

// Subscribe registers a live connection for the seat and immediately pushes
// a redacted snapshot. The returned channel closes on Unsubscribe.
func (r *Room) Subscribe(userID int64) (<-chan OutgoingMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.seatIndexLocked(userID)
	if !ok {
		return nil, appErr.ErrNotSeated
	}

	if old, exists := r.subscribers[userID]; exists {
		delete(r.subscribers, userID)
		close(old)
	}

	ch := make(chan OutgoingMessage, 16)
	r.subscribers[userID] = ch
	r.seats[idx].Connected = true
	r.lastSeen[userID] = time.Now()
	r.pushStateLocked(userID)
	return ch, nil
}

func (r *Room) Unsubscribe(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.subscribers[userID]; ok {
		delete(r.subscribers, userID)
		close(ch)
	}
	if idx, ok := r.seatIndexLocked(userID); ok {
		r.seats[idx].Connected = false
		r.broadcastStateLocked()
	}
}

// HandleAction validates and applies one inbound client action. Errors are
// reported to the acting client only; they never mutate shared state.
func (r *Room) HandleAction(userID int64, action string, data json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seatIdx, ok := r.seatIndexLocked(userID)
	if !ok {
		return appErr.ErrNotSeated
	}
	r.lastSeen[userID] = time.Now()

	switch action {
	case "ready":
		var payload struct {
			Ready bool `json:"ready"`
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("invalid payload: %w", err)
			}
		}
		return r.setReadyLocked(seatIdx, payload.Ready)
	case "team":
		var payload struct {
			Team int `json:"team"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
		return r.setTeamLocked(seatIdx, payload.Team)
	case "heartbeat":
		return nil
	case "play":
		var payload struct {
			Card truco.Card `json:"card"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
		return r.playCardLocked(seatIdx, payload.Card)
	case "truco":
		var payload struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
		return r.trucoLocked(seatIdx, payload.Action)
	case "chat":
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
		if _, allowed := quickChatAllowed[payload.Message]; !allowed {
			return nil
		}
		r.broadcastLocked(OutgoingMessage{
			Type: "chat:quick",
			Seq:  r.nextSeqLocked(),
			Data: map[string]string{"from": r.seats[seatIdx].Nickname, "message": payload.Message},
		})
		return nil
	case "ping":
		r.pushMessageLocked(userID, OutgoingMessage{Type: "pong", Seq: r.nextSeqLocked()})
		return nil
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}

func (r *Room) setReadyLocked(seatIdx int, ready bool) error {
	r.seats[seatIdx].Ready = ready
	if r.matchStartableLocked() && r.allReadyLocked() {
		if err := r.startMatchLocked(); err != nil {
			return err
		}
	}
	r.broadcastStateLocked()
	return nil
}

func (r *Room) setTeamLocked(seatIdx, team int) error {
	if team != 0 && team != 1 {
		return fmt.Errorf("invalid team %d", team)
	}
	if r.match != nil && !r.match.Over {
		return appErr.ErrMatchInProgress
	}
	r.seats[seatIdx].Team = team
	r.broadcastStateLocked()
	return nil
}

func (r *Room) playCardLocked(seatIdx int, card truco.Card) error {
	if r.match == nil {
		return appErr.ErrRoomNotReady
	}
	if !card.Valid() {
		return appErr.ErrCardNotInHand
	}
	if err := r.match.PlayCard(seatIdx, card); err != nil {
		return err
	}
	r.refreshTurnLocked(time.Now())
	r.broadcastStateLocked()
	if r.match.Over {
		r.finalizeLocked()
	}
	return nil
}

func (r *Room) trucoLocked(seatIdx int, action string) error {
	if r.match == nil {
		return appErr.ErrRoomNotReady
	}
	var err error
	switch action {
	case "request":
		err = r.match.RequestTruco(seatIdx)
	case "accept", "raise", "run":
		err = r.match.AnswerTruco(seatIdx, truco.BidAction(action))
	default:
		return fmt.Errorf("unsupported truco action %q", action)
	}
	if err != nil {
		return err
	}
	r.refreshTurnLocked(time.Now())
	r.broadcastStateLocked()
	if r.match.Over {
		r.finalizeLocked()
	}
	return nil
}

// startMatchLocked deals the first hand once four ready seats are present.
func (r *Room) startMatchLocked() error {
	if !r.matchStartableLocked() {
		return appErr.ErrMatchInProgress
	}
	if !r.allReadyLocked() {
		return appErr.ErrRoomNotReady
	}

	var infos [4]truco.SeatInfo
	for i, s := range r.seats {
		infos[i] = truco.SeatInfo{UserID: s.UserID, Nickname: s.Nickname, Team: s.Team}
	}
	r.match = truco.NewMatch(uuid.NewString(), infos, r.newRng())
	r.matchStartedAt = time.Now()
	r.finalized = false
	r.turnDeadline = time.Time{}
	r.refreshTurnLocked(time.Now())

	logger.Log.Info("match started",
		zap.String("roomID", r.id),
		zap.String("matchID", r.match.ID),
	)
	return nil
}

// matchStartableLocked: a room can (re)start when it has no match yet or
// the previous one finished.
func (r *Room) matchStartableLocked() bool {
	return r.match == nil || r.match.Over
}

func (r *Room) allReadyLocked() bool {
	for _, s := range r.seats {
		if s == nil || !s.Ready {
			return false
		}
	}
	return true
}

// Heartbeat refreshes the seat's liveness timestamp.
func (r *Room) Heartbeat(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seatIndexLocked(userID); ok {
		r.lastSeen[userID] = time.Now()
	}
}

// sweepConnectivity flags seats whose heartbeats stopped. It never removes
// a seat or touches the match.
func (r *Room) sweepConnectivity(now time.Time, grace time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for _, s := range r.seats {
		if s == nil || !s.Connected {
			continue
		}
		seen, ok := r.lastSeen[s.UserID]
		if ok && now.Sub(seen) <= grace {
			continue
		}
		if !ok {
			continue
		}
		s.Connected = false
		changed = true
	}
	if changed {
		r.broadcastStateLocked()
	}
}

// tickTurn auto-plays the turn holder's first card once its deadline has
// passed. Failures are a benign race with a concurrent action and are
// dropped.
func (r *Room) tickTurn(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.match == nil || r.match.Over || r.finalized {
		return
	}
	if r.turnDeadline.IsZero() || now.Before(r.turnDeadline) {
		return
	}

	seat := r.match.Turn
	hand := r.match.Seats[seat].Hand
	if len(hand) == 0 {
		return
	}
	if err := r.match.PlayCard(seat, hand[0]); err != nil {
		return
	}

	logger.Log.Info("turn timeout auto-play",
		zap.String("roomID", r.id),
		zap.Int("seat", seat),
	)
	r.broadcastLocked(OutgoingMessage{
		Type: "system",
		Seq:  r.nextSeqLocked(),
		Data: map[string]string{"message": fmt.Sprintf("%s ficou AFK e jogou automático.", r.match.Seats[seat].Nickname)},
	})
	r.refreshTurnLocked(now)
	r.broadcastStateLocked()
	if r.match.Over {
		r.finalizeLocked()
	}
}

// refreshTurnLocked re-arms the deadline whenever the turn holder changed.
func (r *Room) refreshTurnLocked(now time.Time) {
	if r.match == nil || r.match.Over {
		r.turnDeadline = time.Time{}
		return
	}
	if r.turnDeadline.IsZero() || r.turnSeat != r.match.Turn {
		r.turnSeat = r.match.Turn
		r.turnDeadline = now.Add(r.turnTimer)
	}
}

// finalizeLocked emits match:over, clears the turn tracker and hands the
// outcome to the rating collaborator without holding the room lock over its
// I/O.
func (r *Room) finalizeLocked() {
	if r.finalized || r.match == nil {
		return
	}
	r.finalized = true
	r.turnDeadline = time.Time{}

	winner := 1
	if r.match.Score[0] >= truco.TargetScore {
		winner = 0
	}

	out := rating.MatchOutcome{
		MatchID:    r.match.ID,
		RoomID:     r.id,
		WinnerTeam: winner,
		ScoreA:     r.match.Score[0],
		ScoreB:     r.match.Score[1],
		StartedAt:  r.matchStartedAt,
		EndedAt:    time.Now(),
		Ranked:     !r.private,
	}
	for _, s := range r.match.Seats {
		out.Players = append(out.Players, s.Nickname)
		if s.Team == 0 {
			out.TeamA = append(out.TeamA, s.UserID)
		} else {
			out.TeamB = append(out.TeamB, s.UserID)
		}
	}

	r.broadcastLocked(OutgoingMessage{
		Type: "match:over",
		Seq:  r.nextSeqLocked(),
		Data: map[string]interface{}{"winnerTeam": winner, "score": r.match.Score},
	})

	if r.onFinish != nil {
		go r.onFinish(out)
	}
}

func (r *Room) seatIndexLocked(userID int64) (int, bool) {
	for i, s := range r.seats {
		if s != nil && s.UserID == userID {
			return i, true
		}
	}
	return -1, false
}

func (r *Room) nextSeqLocked() int64 {
	r.seq++
	return r.seq
}

func (r *Room) pushStateLocked(userID int64) {
	r.pushMessageLocked(userID, OutgoingMessage{
		Type: "room:update",
		Seq:  r.nextSeqLocked(),
		Data: r.snapshotLocked(userID),
	})
}

func (r *Room) broadcastStateLocked() {
	seq := r.nextSeqLocked()
	for uid, ch := range r.subscribers {
		msg := OutgoingMessage{
			Type: "room:update",
			Seq:  seq,
			Data: r.snapshotLocked(uid),
		}
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full", zap.Int64("userID", uid), zap.String("roomID", r.id))
		}
	}
}

func (r *Room) broadcastLocked(msg OutgoingMessage) {
	for uid, ch := range r.subscribers {
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full", zap.Int64("userID", uid), zap.String("roomID", r.id))
		}
	}
}

func (r *Room) pushMessageLocked(userID int64, msg OutgoingMessage) {
	if ch, ok := r.subscribers[userID]; ok {
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full", zap.Int64("userID", userID), zap.String("roomID", r.id))
		}
	}
}

// snapshotLocked builds the view for one recipient: public room and match
// state plus only that recipient's hand.
func (r *Room) snapshotLocked(userID int64) RoomSnapshot {
	snap := RoomSnapshot{
		ID:      r.id,
		Code:    r.code,
		Private: r.private,
	}
	for i, s := range r.seats {
		if s == nil {
			continue
		}
		snap.Seats[i] = SeatView{
			Occupied:  true,
			UserID:    s.UserID,
			Nickname:  s.Nickname,
			Avatar:    s.Avatar,
			Team:      s.Team,
			Ready:     s.Ready,
			Connected: s.Connected,
		}
	}

	if r.match == nil {
		return snap
	}

	view := &MatchView{
		ID:           r.match.ID,
		Score:        r.match.Score,
		Stake:        r.match.Stake,
		Vira:         r.match.Vira,
		Manilha:      r.match.Manilha,
		Turn:         r.match.Turn,
		Round:        r.match.Round,
		Trick:        append([]truco.Play(nil), r.match.Trick...),
		TrickWins:    r.match.TrickWins,
		TrickHistory: r.match.TrickHistory,
		Bid:          r.match.Bid,
		Over:         r.match.Over,
		Countdown:    r.countdownSecondsLocked(),
	}
	for _, s := range r.match.Seats {
		view.Seats = append(view.Seats, MatchSeatView{
			UserID:    s.UserID,
			Nickname:  s.Nickname,
			Team:      s.Team,
			CardCount: len(s.Hand),
		})
		if s.UserID == userID {
			view.SelfHand = append([]truco.Card(nil), s.Hand...)
		}
	}
	snap.Match = view
	return snap
}

func (r *Room) countdownSecondsLocked() int {
	if r.turnDeadline.IsZero() {
		return 0
	}
	diff := time.Until(r.turnDeadline)
	if diff <= 0 {
		return 0
	}
	return int(diff / time.Second)
}

// summary is read under the room lock by the service.
func (r *Room) summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := 0
	for _, s := range r.seats {
		if s != nil {
			players++
		}
	}
	return RoomSummary{
		ID:        r.id,
		Code:      r.code,
		Private:   r.private,
		Players:   players,
		InGame:    r.match != nil && !r.match.Over,
		CreatedAt: r.createdAt,
	}
}
