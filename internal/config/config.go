package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Telegram TelegramConfig
	Owners   OwnersConfig
}

type ServerConfig struct {
	Port         string
	Environment  string
	AllowOrigins string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type TelegramConfig struct {
	BotToken    string
	BotUsername string
	SupportLink string
}

// OwnersConfig is the trusted identity set. The super-owner and the owner
// list are deployment configuration, not code constants, so each
// installation can carry its own trusted identities.
type OwnersConfig struct {
	SuperOwnerID int64
	OwnerIDs     []int64
}

// IsSuperOwner reports whether id is the fixed super-owner identity.
func (o OwnersConfig) IsSuperOwner(id int64) bool {
	return o.SuperOwnerID != 0 && id == o.SuperOwnerID
}

// IsOwner reports whether id is in the configured owner set.
func (o OwnersConfig) IsOwner(id int64) bool {
	for _, owner := range o.OwnerIDs {
		if id == owner {
			return true
		}
	}
	return false
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	superOwnerID, _ := strconv.ParseInt(getEnv("SUPER_OWNER_ID", "0"), 10, 64)

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "ninjaotc"),
			Password: getEnv("DB_PASSWORD", "ninjaotc"),
			Name:     getEnv("DB_NAME", "ninjaotc"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Telegram: TelegramConfig{
			BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
			BotUsername: getEnv("TELEGRAM_BOT_USERNAME", "NinjaOTCRobot"),
			SupportLink: getEnv("SUPPORT_LINK", "@SupCryptOtcRobot"),
		},
		Owners: OwnersConfig{
			SuperOwnerID: superOwnerID,
			OwnerIDs:     parseIDList(getEnv("OWNER_IDS", "")),
		},
	}

	return cfg, nil
}

func parseIDList(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
