package match

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Sergioohs/Trucopro/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Config struct {
	// Tolerance is the max absolute mmr deviation from a window's mean.
	Tolerance int
	// WaitTimeout lets a window through regardless of tolerance once its
	// oldest entry has waited this long.
	WaitTimeout time.Duration
	// Interval between grouping passes.
	Interval time.Duration
	// NotifyTTL bounds how long a "match found" key survives unread.
	NotifyTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		Tolerance:   250,
		WaitTimeout: 10 * time.Second,
		Interval:    time.Second,
		NotifyTTL:   5 * time.Minute,
	}
}

// RoomSeater seats a matched group of four into a fresh auto-ready room.
// Implemented by the lobby service.
type RoomSeater interface {
	SeatMatchedPlayers(players []Entry) (roomID, code string)
}

// Service is the matchmaking queue. The queue itself is in-memory and
// mutex-guarded; redis only carries best-effort "match found" notifications
// for status polling, so a nil client degrades gracefully.
type Service struct {
	mu    sync.Mutex
	queue []Entry

	rdb   *redis.Client
	rooms RoomSeater
	cfg   Config
}

func NewService(rdb *redis.Client, rooms RoomSeater, cfg Config) *Service {
	return &Service{rdb: rdb, rooms: rooms, cfg: cfg}
}

// Start runs grouping passes until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Log.Info("matchmaker stopped")
				return
			case <-ticker.C:
				s.BuildMatches(ctx)
			}
		}
	}()
}

// Enqueue adds a waiting player, replacing any previous entry for the same
// identity.
func (s *Service) Enqueue(e Entry) {
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(e.UserID)
	s.queue = append(s.queue, e)

	logger.Log.Info("user joined queue",
		zap.Int64("userID", e.UserID),
		zap.Int("mmr", e.MMR),
		zap.Int("depth", len(s.queue)),
	)
}

// Dequeue removes an identity from the queue; absent identities are a no-op.
func (s *Service) Dequeue(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(userID)
}

func (s *Service) removeLocked(userID int64) {
	for i, e := range s.queue {
		if e.UserID == userID {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// BuildMatches scans the queue oldest-first and groups each window of four
// consecutive players whose mmr spread fits the tolerance, or whose oldest
// member has outwaited the fairness timeout. Groups are seated immediately;
// windows that don't qualify slide forward by one.
func (s *Service) BuildMatches(ctx context.Context) []MatchedRoom {
	s.mu.Lock()
	sort.SliceStable(s.queue, func(i, j int) bool {
		return s.queue[i].EnqueuedAt.Before(s.queue[j].EnqueuedAt)
	})

	now := time.Now()
	var made []MatchedRoom
	for i := 0; i+3 < len(s.queue); {
		window := s.queue[i : i+4]

		mean := 0.0
		for _, e := range window {
			mean += float64(e.MMR)
		}
		mean /= 4

		maxDelta := 0.0
		for _, e := range window {
			delta := float64(e.MMR) - mean
			if delta < 0 {
				delta = -delta
			}
			if delta > maxDelta {
				maxDelta = delta
			}
		}

		if maxDelta <= float64(s.cfg.Tolerance) || now.Sub(window[0].EnqueuedAt) > s.cfg.WaitTimeout {
			players := append([]Entry(nil), window...)
			roomID, code := s.rooms.SeatMatchedPlayers(players)
			made = append(made, MatchedRoom{RoomID: roomID, Code: code, Players: players})
			s.queue = append(s.queue[:i], s.queue[i+4:]...)
		} else {
			i++
		}
	}
	s.mu.Unlock()

	for _, room := range made {
		s.notifyMatched(ctx, room)
		logger.Log.Info("match composed",
			zap.String("roomID", room.RoomID),
			zap.String("code", room.Code),
			zap.Int("players", len(room.Players)),
		)
	}
	return made
}

// Status reports whether the identity is queued, already matched into a
// room, or idle.
func (s *Service) Status(ctx context.Context, userID int64) (*StatusResult, error) {
	if s.rdb != nil {
		payloadStr, err := s.rdb.Get(ctx, buildMatchNotifyKey(userID)).Result()
		if err == nil {
			var payload matchNotifyPayload
			if jsonErr := json.Unmarshal([]byte(payloadStr), &payload); jsonErr == nil {
				return &StatusResult{
					Status: QueueStatusMatched,
					RoomID: payload.RoomID,
					Code:   payload.Code,
				}, nil
			}
		} else if err != redis.Nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.queue {
		if e.UserID == userID {
			joined := e.EnqueuedAt
			return &StatusResult{Status: QueueStatusQueued, JoinedAt: &joined}, nil
		}
	}
	return &StatusResult{Status: QueueStatusIdle}, nil
}

func (s *Service) notifyMatched(ctx context.Context, room MatchedRoom) {
	if s.rdb == nil {
		return
	}
	data, _ := json.Marshal(matchNotifyPayload{RoomID: room.RoomID, Code: room.Code})
	for _, p := range room.Players {
		if err := s.rdb.Set(ctx, buildMatchNotifyKey(p.UserID), data, s.cfg.NotifyTTL).Err(); err != nil {
			logger.Log.Warn("match notify failed",
				zap.Int64("userID", p.UserID),
				zap.Error(err),
			)
		}
	}
}

// ClearNotify drops a pending "match found" flag, typically once the player
// has joined the room.
func (s *Service) ClearNotify(ctx context.Context, userID int64) {
	if s.rdb == nil {
		return
	}
	s.rdb.Del(ctx, buildMatchNotifyKey(userID))
}

func buildMatchNotifyKey(userID int64) string {
	return fmt.Sprintf("match:pending:%d", userID)
}
