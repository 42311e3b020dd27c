package user

import (
	"context"
	"strings"
	"time"

	"github.com/Sergioohs/Trucopro/internal/model"
	appErr "github.com/Sergioohs/Trucopro/pkg/errors"

	"gorm.io/gorm"
)

const (
	historyPageSize = 20
	rankingSize     = 100
)

type Service struct {
	db *gorm.DB
}

type ProfileResult struct {
	User    model.User                `json:"user"`
	WinRate float64                   `json:"winRate"`
	History []model.MatchHistoryEntry `json:"history"`
}

type RankingEntry struct {
	Position int    `json:"position"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	MMR      int    `json:"mmr"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Profile returns the user with win rate and its most recent match results.
func (s *Service) Profile(ctx context.Context, userID int64) (*ProfileResult, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, appErr.ErrUserNotFound
		}
		return nil, err
	}

	history := make([]model.MatchHistoryEntry, 0, historyPageSize)
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("at DESC").
		Limit(historyPageSize).
		Find(&history).Error; err != nil {
		return nil, err
	}

	winRate := 0.0
	if total := user.Wins + user.Losses; total > 0 {
		winRate = float64(user.Wins) / float64(total)
	}
	return &ProfileResult{User: user, WinRate: winRate, History: history}, nil
}

// Ranking lists the leaderboard. "all" orders by rating; "daily" and
// "weekly" order by wins recorded inside the period.
func (s *Service) Ranking(ctx context.Context, period string) ([]RankingEntry, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "", "all":
		return s.rankingByMMR(ctx)
	case "daily":
		return s.rankingByPeriodWins(ctx, time.Now().Add(-24*time.Hour))
	case "weekly":
		return s.rankingByPeriodWins(ctx, time.Now().Add(-7*24*time.Hour))
	default:
		return s.rankingByMMR(ctx)
	}
}

func (s *Service) rankingByMMR(ctx context.Context) ([]RankingEntry, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).
		Where("banned = ?", false).
		Order("mmr DESC, wins DESC, id ASC").
		Limit(rankingSize).
		Find(&users).Error; err != nil {
		return nil, err
	}

	entries := make([]RankingEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, RankingEntry{
			Position: i + 1,
			Nickname: u.Nickname,
			Avatar:   u.Avatar,
			MMR:      u.MMR,
			Wins:     u.Wins,
			Losses:   u.Losses,
		})
	}
	return entries, nil
}

func (s *Service) rankingByPeriodWins(ctx context.Context, since time.Time) ([]RankingEntry, error) {
	type row struct {
		Nickname   string
		Avatar     string
		MMR        int
		Losses     int
		PeriodWins int
	}
	var rows []row
	if err := s.db.WithContext(ctx).
		Table("match_history_entries").
		Select("users.nickname, users.avatar, users.mmr, users.losses, COUNT(*) AS period_wins").
		Joins("JOIN users ON users.id = match_history_entries.user_id").
		Where("match_history_entries.won = ? AND match_history_entries.at >= ? AND users.banned = ?", true, since, false).
		Group("users.id, users.nickname, users.avatar, users.mmr, users.losses").
		Order("period_wins DESC, users.mmr DESC").
		Limit(rankingSize).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]RankingEntry, 0, len(rows))
	for i, r := range rows {
		entries = append(entries, RankingEntry{
			Position: i + 1,
			Nickname: r.Nickname,
			Avatar:   r.Avatar,
			MMR:      r.MMR,
			Wins:     r.PeriodWins,
			Losses:   r.Losses,
		})
	}
	return entries, nil
}
