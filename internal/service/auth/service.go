package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/Sergioohs/Trucopro/internal/config"
	"github.com/Sergioohs/Trucopro/internal/model"
	pkgAuth "github.com/Sergioohs/Trucopro/pkg/auth"
	appErr "github.com/Sergioohs/Trucopro/pkg/errors"
	"github.com/Sergioohs/Trucopro/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	nicknamePattern = regexp.MustCompile(`^[a-zA-Z0-9_à-üÀ-Ü]{3,16}$`)
	pinPattern      = regexp.MustCompile(`^[0-9]{4,6}$`)
)

type Service struct {
	db *gorm.DB
}

type LoginResult struct {
	Token    string     `json:"token"`
	ExpireAt time.Time  `json:"expireAt"`
	User     model.User `json:"user"`
	Created  bool       `json:"created"`
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Login signs the nickname in with its PIN, registering it on first use.
// The PIN is only ever stored as a bcrypt hash.
func (s *Service) Login(ctx context.Context, nickname, pin, avatar string) (*LoginResult, error) {
	nickname = strings.TrimSpace(nickname)
	if !nicknamePattern.MatchString(nickname) {
		return nil, appErr.ErrInvalidNickname
	}
	if !pinPattern.MatchString(pin) {
		return nil, appErr.ErrInvalidPin
	}

	created := false
	var user model.User
	err := s.db.WithContext(ctx).Where("nickname = ?", nickname).First(&user).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		user, err = s.createUser(ctx, nickname, pin, avatar)
		if err != nil {
			return nil, err
		}
		created = true
	} else {
		if user.Banned {
			return nil, appErr.ErrUserBanned
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PinHash), []byte(pin)) != nil {
			return nil, appErr.ErrInvalidCredentials
		}
	}

	token, err := pkgAuth.GenerateToken(user.ID, user.Nickname)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("user logged in",
		zap.String("nickname", user.Nickname),
		zap.Bool("created", created),
	)
	expireAt := time.Now().Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour)
	return &LoginResult{
		Token:    token,
		ExpireAt: expireAt,
		User:     user,
		Created:  created,
	}, nil
}

// AdminLogin checks the panel credentials seeded through configuration.
func (s *Service) AdminLogin(username, password string) (string, error) {
	adminCfg := config.GlobalConfig.Admin
	if adminCfg.Username == "" || username != adminCfg.Username {
		return "", appErr.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(adminCfg.PasswordHash), []byte(password)) != nil {
		return "", appErr.ErrInvalidCredentials
	}
	return pkgAuth.GenerateAdminToken(1)
}

func (s *Service) createUser(ctx context.Context, nickname, pin, avatar string) (model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, err
	}
	user := model.User{
		Nickname: nickname,
		PinHash:  string(hash),
	}
	if avatar != "" {
		user.Avatar = avatar
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return model.User{}, err
	}
	return user, nil
}
