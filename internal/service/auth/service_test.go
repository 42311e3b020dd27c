package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Sergioohs/Trucopro/internal/config"
	"github.com/Sergioohs/Trucopro/internal/model"
	"github.com/Sergioohs/Trucopro/internal/service/auth"
	appErr "github.com/Sergioohs/Trucopro/pkg/errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*gorm.DB, *auth.Service) {
	t.Helper()

	config.GlobalConfig = &config.Config{
		JWT: config.JWTConfig{
			Secret: "test-secret",
			Expire: 24,
		},
	}

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db, auth.NewService(db)
}

func TestLoginRegistersNewUser(t *testing.T) {
	db, svc := newService(t)

	res, err := svc.Login(context.Background(), "maria_auth", "1234", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.Created {
		t.Fatalf("expected first login to register the nickname")
	}
	if res.Token == "" {
		t.Fatalf("expected a token")
	}

	var stored model.User
	if err := db.Where("nickname = ?", "maria_auth").First(&stored).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.PinHash == "1234" || stored.PinHash == "" {
		t.Fatalf("pin must be stored hashed")
	}
	if stored.MMR != 1000 {
		t.Fatalf("expected default mmr 1000, got %d", stored.MMR)
	}
}

func TestLoginVerifiesPin(t *testing.T) {
	_, svc := newService(t)

	if _, err := svc.Login(context.Background(), "pedro_auth", "4321", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(context.Background(), "pedro_auth", "9999", ""); !errors.Is(err, appErr.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	res, err := svc.Login(context.Background(), "pedro_auth", "4321", "")
	if err != nil {
		t.Fatalf("re-login: %v", err)
	}
	if res.Created {
		t.Fatalf("second login must not register again")
	}
}

func TestLoginRejectsBannedUser(t *testing.T) {
	db, svc := newService(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.DefaultCost)
	if err := db.Create(&model.User{Nickname: "banido_auth", PinHash: string(hash), Banned: true}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.Login(context.Background(), "banido_auth", "1234", ""); !errors.Is(err, appErr.ErrUserBanned) {
		t.Fatalf("expected ErrUserBanned, got %v", err)
	}
}

func TestLoginValidatesInput(t *testing.T) {
	_, svc := newService(t)

	if _, err := svc.Login(context.Background(), "ab", "1234", ""); !errors.Is(err, appErr.ErrInvalidNickname) {
		t.Fatalf("expected ErrInvalidNickname, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "valido_auth", "12", ""); !errors.Is(err, appErr.ErrInvalidPin) {
		t.Fatalf("expected ErrInvalidPin, got %v", err)
	}
}

func TestAdminLogin(t *testing.T) {
	_, svc := newService(t)

	hash, _ := bcrypt.GenerateFromPassword([]byte("painel123"), bcrypt.DefaultCost)
	config.GlobalConfig.Admin.Username = "admin"
	config.GlobalConfig.Admin.PasswordHash = string(hash)

	token, err := svc.AdminLogin("admin", "painel123")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if token == "" {
		t.Fatalf("expected an admin token")
	}

	if _, err := svc.AdminLogin("admin", "errada"); !errors.Is(err, appErr.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.AdminLogin("root", "painel123"); !errors.Is(err, appErr.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown admin, got %v", err)
	}
}
