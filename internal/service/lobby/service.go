package lobby

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Sergioohs/Trucopro/internal/service/match"
	"github.com/Sergioohs/Trucopro/internal/service/rating"
	appErr "github.com/Sergioohs/Trucopro/pkg/errors"
	"github.com/Sergioohs/Trucopro/pkg/logger"
	"github.com/Sergioohs/Trucopro/pkg/utils/random"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	codeLength         = 6
	turnSweepInterval  = time.Second
	aliveSweepInterval = 5 * time.Second
)

type Config struct {
	TurnTimer      time.Duration
	ReconnectGrace time.Duration
}

func DefaultConfig() Config {
	return Config{
		TurnTimer:      20 * time.Second,
		ReconnectGrace: 30 * time.Second,
	}
}

// Finalizer is the external rating/persistence collaborator invoked once per
// completed match.
type Finalizer interface {
	RecordMatch(ctx context.Context, out rating.MatchOutcome) error
}

// Service owns the room registry. It is constructed at process start and
// injected wherever rooms are needed; there is no ambient registry.
type Service struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	byCode map[string]string // lowercased code -> room id

	finalizer Finalizer
	cfg       Config
	newRng    func() *rand.Rand
}

func NewService(finalizer Finalizer, cfg Config) *Service {
	return &Service{
		rooms:     make(map[string]*Room),
		byCode:    make(map[string]string),
		finalizer: finalizer,
		cfg:       cfg,
		newRng: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// Start launches the periodic reconciliation passes: turn timeouts every
// second, connectivity every five. Both stop with ctx.
func (s *Service) Start(ctx context.Context) {
	go s.runSweep(ctx, turnSweepInterval, func(r *Room) {
		r.tickTurn(time.Now())
	})
	go s.runSweep(ctx, aliveSweepInterval, func(r *Room) {
		r.sweepConnectivity(time.Now(), s.cfg.ReconnectGrace)
	})
}

func (s *Service) runSweep(ctx context.Context, interval time.Duration, fn func(*Room)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, room := range s.snapshotRooms() {
				fn(room)
			}
		}
	}
}

func (s *Service) snapshotRooms() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// CreateRoom allocates an empty room with a fresh id and join code.
func (s *Service) CreateRoom(private bool) *Room {
	room := &Room{
		id:          uuid.NewString(),
		code:        random.Code(codeLength),
		private:     private,
		createdAt:   time.Now(),
		lastSeen:    make(map[int64]time.Time),
		subscribers: make(map[int64]chan OutgoingMessage),
		turnTimer:   s.cfg.TurnTimer,
		newRng:      s.newRng,
	}
	room.onFinish = func(out rating.MatchOutcome) {
		s.finishMatch(out)
	}

	s.mu.Lock()
	s.rooms[room.id] = room
	s.byCode[strings.ToLower(room.code)] = room.id
	s.mu.Unlock()

	logger.Log.Info("room created",
		zap.String("roomID", room.id),
		zap.String("code", room.code),
		zap.Bool("private", private),
	)
	return room
}

// Room looks a room up by id.
func (s *Service) Room(id string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, appErr.ErrRoomNotFound
	}
	return room, nil
}

// JoinByCode seats the identity in the room with that join code, treating a
// repeat join as a reconnection. Codes are case-insensitive.
func (s *Service) JoinByCode(code string, id Identity) (*Room, bool, error) {
	s.mu.RLock()
	roomID, ok := s.byCode[strings.ToLower(strings.TrimSpace(code))]
	var room *Room
	if ok {
		room = s.rooms[roomID]
	}
	s.mu.RUnlock()

	if room == nil {
		return nil, false, appErr.ErrRoomNotFound
	}
	reconnected, err := room.Join(id)
	if err != nil {
		return nil, false, err
	}
	return room, reconnected, nil
}

// SeatMatchedPlayers implements match.RoomSeater: the grouped four land in a
// fresh public room, auto-ready, teams by seat parity, and the match starts
// immediately.
func (s *Service) SeatMatchedPlayers(players []match.Entry) (string, string) {
	room := s.CreateRoom(false)

	room.mu.Lock()
	now := time.Now()
	for idx, p := range players {
		if idx >= len(room.seats) {
			break
		}
		room.seats[idx] = &SeatSlot{
			UserID:    p.UserID,
			Nickname:  p.Nickname,
			Avatar:    p.Avatar,
			Team:      idx % 2,
			Ready:     true,
			Connected: true,
		}
		room.lastSeen[p.UserID] = now
	}
	if err := room.startMatchLocked(); err != nil {
		logger.Log.Warn("matched room failed to start",
			zap.String("roomID", room.id),
			zap.Error(err),
		)
	}
	room.mu.Unlock()

	return room.id, room.code
}

// MarkDisconnected flags every seat held by the identity across rooms; used
// on transport loss.
func (s *Service) MarkDisconnected(userID int64) {
	for _, room := range s.snapshotRooms() {
		room.Unsubscribe(userID)
	}
}

// RoomSummaries is the admin digest, newest rooms first.
func (s *Service) RoomSummaries() []RoomSummary {
	rooms := s.snapshotRooms()
	summaries := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, r.summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

// finishMatch runs outside any room lock; a failed record is logged and
// dropped, retries are the collaborator's concern.
func (s *Service) finishMatch(out rating.MatchOutcome) {
	if s.finalizer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.finalizer.RecordMatch(ctx, out); err != nil {
		logger.Log.Error("failed to record match",
			zap.String("matchID", out.MatchID),
			zap.Error(err),
		)
		return
	}
	logger.Log.Info("match recorded",
		zap.String("matchID", out.MatchID),
		zap.Int("winnerTeam", out.WinnerTeam),
	)
}
