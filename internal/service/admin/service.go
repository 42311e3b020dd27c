package admin

import (
	"context"
	"strings"
	"time"

	"github.com/Sergioohs/Trucopro/internal/model"
	"github.com/Sergioohs/Trucopro/internal/service/lobby"
	appErr "github.com/Sergioohs/Trucopro/pkg/errors"
	"github.com/Sergioohs/Trucopro/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recentMatchesLimit = 30

// RoomsSource exposes the live room registry.
type RoomsSource interface {
	RoomSummaries() []lobby.RoomSummary
}

// QueueSource exposes the matchmaking queue depth.
type QueueSource interface {
	Len() int
}

type Service struct {
	db    *gorm.DB
	rooms RoomsSource
	queue QueueSource
}

type Stats struct {
	Users         int64               `json:"users"`
	BannedUsers   int64               `json:"bannedUsers"`
	MatchesTotal  int64               `json:"matchesTotal"`
	MatchesToday  int64               `json:"matchesToday"`
	QueueDepth    int                 `json:"queueDepth"`
	Rooms         []lobby.RoomSummary `json:"rooms"`
	RecentMatches []model.Match       `json:"recentMatches"`
}

func NewService(db *gorm.DB, rooms RoomsSource, queue QueueSource) *Service {
	return &Service{db: db, rooms: rooms, queue: queue}
}

// Stats aggregates the live panel view: user counters, queue depth, open
// rooms and the latest finished matches.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.WithContext(ctx).Model(&model.User{}).Count(&stats.Users).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("banned = ?", true).Count(&stats.BannedUsers).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&model.Match{}).Count(&stats.MatchesTotal).Error; err != nil {
		return nil, err
	}
	midnight := time.Now().Truncate(24 * time.Hour)
	if err := s.db.WithContext(ctx).Model(&model.Match{}).Where("ended_at >= ?", midnight).Count(&stats.MatchesToday).Error; err != nil {
		return nil, err
	}

	stats.RecentMatches = make([]model.Match, 0, recentMatchesLimit)
	if err := s.db.WithContext(ctx).
		Order("ended_at DESC").
		Limit(recentMatchesLimit).
		Find(&stats.RecentMatches).Error; err != nil {
		return nil, err
	}

	if s.rooms != nil {
		stats.Rooms = s.rooms.RoomSummaries()
	}
	if s.queue != nil {
		stats.QueueDepth = s.queue.Len()
	}
	return stats, nil
}

// SetBanned flips the ban flag for a nickname. Banned users cannot log in;
// live sessions expire with their token.
func (s *Service) SetBanned(ctx context.Context, nickname string, banned bool) (*model.User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, appErr.ErrUserNotFound
	}

	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("nickname = ?", nickname).
		Updates(map[string]interface{}{
			"banned":     banned,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, appErr.ErrUserNotFound
	}

	logger.Log.Info("admin toggled user ban",
		zap.String("nickname", nickname),
		zap.Bool("banned", banned))

	var user model.User
	if err := s.db.WithContext(ctx).Where("nickname = ?", nickname).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
