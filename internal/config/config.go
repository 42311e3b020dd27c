package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database DatabaseConfig  `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
	JWT      JWTConfig       `mapstructure:"jwt"`
	Game     GameConfig      `mapstructure:"game"`
	Admin    AdminSeedConfig `mapstructure:"admin"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type GameConfig struct {
	TurnTimerSec      int `mapstructure:"turnTimerSec"`
	ReconnectGraceSec int `mapstructure:"reconnectGraceSec"`
	MatchTolerance    int `mapstructure:"matchTolerance"`    // mmr points
	MatchWaitMS       int `mapstructure:"matchWaitMs"`       // fairness escape hatch
	ActionsPerSec     int `mapstructure:"actionsPerSec"`     // ws rate limit
}

type AdminSeedConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"passwordHash"` // bcrypt
}

var GlobalConfig *Config

func LoadConfig(path string) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	viper.SetDefault("game.turnTimerSec", 20)
	viper.SetDefault("game.reconnectGraceSec", 30)
	viper.SetDefault("game.matchTolerance", 250)
	viper.SetDefault("game.matchWaitMs", 10000)
	viper.SetDefault("game.actionsPerSec", 20)

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	GlobalConfig = &cfg
}
