package service

import (
	"context"
	"time"

	"github.com/Sergioohs/Trucopro/internal/config"
	"github.com/Sergioohs/Trucopro/internal/service/admin"
	"github.com/Sergioohs/Trucopro/internal/service/auth"
	"github.com/Sergioohs/Trucopro/internal/service/lobby"
	"github.com/Sergioohs/Trucopro/internal/service/match"
	"github.com/Sergioohs/Trucopro/internal/service/rating"
	"github.com/Sergioohs/Trucopro/internal/service/user"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Auth   *auth.Service
	User   *user.Service
	Rating *rating.Service
	Lobby  *lobby.Service
	Queue  *match.Service
	Admin  *admin.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	ratingSvc := rating.NewService(db)

	lobbyCfg := lobby.DefaultConfig()
	queueCfg := match.DefaultConfig()
	if cfg := config.GlobalConfig; cfg != nil {
		if cfg.Game.TurnTimerSec > 0 {
			lobbyCfg.TurnTimer = time.Duration(cfg.Game.TurnTimerSec) * time.Second
		}
		if cfg.Game.ReconnectGraceSec > 0 {
			lobbyCfg.ReconnectGrace = time.Duration(cfg.Game.ReconnectGraceSec) * time.Second
		}
		if cfg.Game.MatchTolerance > 0 {
			queueCfg.Tolerance = cfg.Game.MatchTolerance
		}
		if cfg.Game.MatchWaitMS > 0 {
			queueCfg.WaitTimeout = time.Duration(cfg.Game.MatchWaitMS) * time.Millisecond
		}
	}

	lobbySvc := lobby.NewService(ratingSvc, lobbyCfg)
	queueSvc := match.NewService(rdb, lobbySvc, queueCfg)

	return &Container{
		Auth:   auth.NewService(db),
		User:   user.NewService(db),
		Rating: ratingSvc,
		Lobby:  lobbySvc,
		Queue:  queueSvc,
		Admin:  admin.NewService(db, lobbySvc, queueSvc),
	}
}

func (c *Container) Start(ctx context.Context) error {
	c.Lobby.Start(ctx)
	c.Queue.Start(ctx)
	return nil
}
