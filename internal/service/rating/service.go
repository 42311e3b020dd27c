package rating

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/Sergioohs/Trucopro/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const kFactor = 32

// MatchOutcome is what the orchestrator hands over when a match finishes.
type MatchOutcome struct {
	MatchID    string
	RoomID     string
	Players    []string // nicknames in seat order
	TeamA      []int64
	TeamB      []int64
	ScoreA     int
	ScoreB     int
	WinnerTeam int
	StartedAt  time.Time
	EndedAt    time.Time
	Ranked     bool
}

// Service adjusts ratings and durably records completed matches. It is
// called exactly once per match; the caller logs failures and moves on.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RecordMatch applies team-average Elo deltas, bumps win/loss counters,
// appends per-player history entries and persists the match row, all in one
// transaction. Re-recording a known match id is a no-op.
func (s *Service) RecordMatch(ctx context.Context, out MatchOutcome) error {
	if out.MatchID == "" || len(out.TeamA) == 0 || len(out.TeamB) == 0 {
		return fmt.Errorf("incomplete match outcome")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.Match{}).Where("id = ?", out.MatchID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		var teamA, teamB []model.User
		if err := tx.Where("id IN ?", out.TeamA).Find(&teamA).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", out.TeamB).Find(&teamB).Error; err != nil {
			return err
		}
		if len(teamA) == 0 || len(teamB) == 0 {
			return fmt.Errorf("match %s references unknown players", out.MatchID)
		}

		avgA := averageMMR(teamA)
		avgB := averageMMR(teamB)
		scoreA := 0.0
		if out.WinnerTeam == 0 {
			scoreA = 1
		}
		newA, newB := updateElo(avgA, avgB, scoreA)
		deltaA := newA - int(math.Round(avgA))
		deltaB := newB - int(math.Round(avgB))

		scoreLabel := fmt.Sprintf("%d-%d", out.ScoreA, out.ScoreB)
		history := make([]model.MatchHistoryEntry, 0, len(teamA)+len(teamB))

		apply := func(users []model.User, delta int, won bool) error {
			for i := range users {
				u := &users[i]
				if out.Ranked {
					u.MMR += delta
				}
				if won {
					u.Wins++
				} else {
					u.Losses++
				}
				if err := tx.Save(u).Error; err != nil {
					return err
				}
				history = append(history, model.MatchHistoryEntry{
					UserID:  u.ID,
					MatchID: out.MatchID,
					Won:     won,
					Score:   scoreLabel,
					At:      out.EndedAt,
				})
			}
			return nil
		}

		if err := apply(teamA, deltaA, out.WinnerTeam == 0); err != nil {
			return err
		}
		if err := apply(teamB, deltaB, out.WinnerTeam == 1); err != nil {
			return err
		}

		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		record := model.Match{
			ID:          out.MatchID,
			PlayersJSON: mustJSON(out.Players),
			TeamAJSON:   mustJSON(out.TeamA),
			TeamBJSON:   mustJSON(out.TeamB),
			ScoreA:      out.ScoreA,
			ScoreB:      out.ScoreB,
			WinnerTeam:  out.WinnerTeam,
			StartedAt:   out.StartedAt,
			EndedAt:     out.EndedAt,
			DurationSec: int(out.EndedAt.Sub(out.StartedAt) / time.Second),
			Ranked:      out.Ranked,
		}
		return tx.Create(&record).Error
	})
}

// updateElo returns the new team-average ratings; scoreA is 1 when team A
// won, 0 otherwise.
func updateElo(mmrA, mmrB, scoreA float64) (int, int) {
	expectedA := 1 / (1 + math.Pow(10, (mmrB-mmrA)/400))
	newA := int(math.Round(mmrA + kFactor*(scoreA-expectedA)))
	newB := int(math.Round(mmrB + kFactor*((1-scoreA)-(1-expectedA))))
	return newA, newB
}

func averageMMR(users []model.User) float64 {
	sum := 0.0
	for _, u := range users {
		sum += float64(u.MMR)
	}
	return sum / float64(len(users))
}

func mustJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}
