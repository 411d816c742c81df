package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Opayo    OpayoConfig
	API      APIConfig
	Notify   NotifyConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

// OpayoConfig holds the gateway credentials and behaviour switches.
type OpayoConfig struct {
	// Env selects the gateway environment, "test" or "live". Switches both
	// the API base URL and the tokenisation widget script URL.
	Env      string
	Vendor   string
	Key      string
	Password string

	// Policy is the capture policy: "automatic" sends Payment transactions,
	// "manual" sends Deferred ones that need a later release instruction.
	Policy string

	// Apply3DSecure is forwarded verbatim on the transaction payload,
	// e.g. "UseMSPSetting" or "Force".
	Apply3DSecure string

	// NotificationURL must be publicly reachable; the ACS posts the
	// challenge result (cres/PaRes/md/mdx) back to it.
	NotificationURL string
}

// APIConfig protects the ops endpoints (capture, refund).
type APIConfig struct {
	Key string
}

type NotifyConfig struct {
	TelegramToken  string
	TelegramChatID string
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("OPAYO_ENV", "test")
	viper.SetDefault("OPAYO_POLICY", "automatic")
	viper.SetDefault("OPAYO_APPLY_3DSECURE", "UseMSPSetting")

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: DatabaseConfig{
			Host:    viper.GetString("DB_HOST"),
			Port:    viper.GetString("DB_PORT"),
			Name:    viper.GetString("DB_NAME"),
			User:    viper.GetString("DB_USER"),
			Pass:    viper.GetString("DB_PASS"),
			Charset: viper.GetString("DB_CHARSET"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Opayo: OpayoConfig{
			Env:             strings.ToLower(viper.GetString("OPAYO_ENV")),
			Vendor:          viper.GetString("OPAYO_VENDOR"),
			Key:             viper.GetString("OPAYO_KEY"),
			Password:        viper.GetString("OPAYO_PASSWORD"),
			Policy:          viper.GetString("OPAYO_POLICY"),
			Apply3DSecure:   viper.GetString("OPAYO_APPLY_3DSECURE"),
			NotificationURL: viper.GetString("OPAYO_NOTIFICATION_URL"),
		},
		API: APIConfig{
			Key: viper.GetString("API_KEY"),
		},
		Notify: NotifyConfig{
			TelegramToken:  viper.GetString("NOTIFY_TELEGRAM_TOKEN"),
			TelegramChatID: viper.GetString("NOTIFY_TELEGRAM_CHAT_ID"),
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Opayo.Vendor == "" {
		log.Println("WARNING: OPAYO_VENDOR is not set")
	}
	if cfg.Opayo.Key == "" {
		log.Println("WARNING: OPAYO_KEY is not set")
	}

	return cfg, nil
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
}
