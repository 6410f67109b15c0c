package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aure/rumtrack/internal/api"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	APIEndpoint    string
	Domain         string
	DomainKey      string
	DBPath         string
	RedisAddr      string
	RedisPassword  string
	CacheSize      int
	HTTPTimeout    time.Duration
	MaxConcurrency int
	AuthTokens     []string
	LogLevel       string
}

func SetDefaults() {
	viper.SetDefault("api_endpoint", "https://bundles.aem.page")
	viper.SetDefault("database_path", "rum.db")
	viper.SetDefault("cache_size", 512)
	viper.SetDefault("http_timeout", api.DefaultTimeout)
	viper.SetDefault("max_concurrency", 0)
	viper.SetDefault("log_level", "info")
}

func Load() (*Config, error) {
	godotenv.Load()

	SetDefaults()
	viper.SetEnvPrefix("rumtrack")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	viper.BindEnv("domain_key", "RUMTRACK_DOMAIN_KEY", "RUM_DOMAIN_KEY")
	viper.BindEnv("database_path", "RUMTRACK_DATABASE_PATH", "DATABASE_PATH")

	cfg := &Config{
		APIEndpoint:    viper.GetString("api_endpoint"),
		Domain:         viper.GetString("domain"),
		DomainKey:      viper.GetString("domain_key"),
		DBPath:         viper.GetString("database_path"),
		RedisAddr:      viper.GetString("redis_addr"),
		RedisPassword:  viper.GetString("redis_password"),
		CacheSize:      viper.GetInt("cache_size"),
		HTTPTimeout:    viper.GetDuration("http_timeout"),
		MaxConcurrency: viper.GetInt("max_concurrency"),
		AuthTokens:     splitTokens(viper.GetString("auth_tokens")),
		LogLevel:       viper.GetString("log_level"),
	}

	if len(cfg.AuthTokens) == 0 {
		cfg.AuthTokens = loadTokenFile()
	}

	return cfg, nil
}

func splitTokens(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
}

// TokenFile is where `rumtrack token generate --save` appends tokens.
func TokenFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rumtrack", "tokens"), nil
}

func loadTokenFile() []string {
	path, err := TokenFile()
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return splitTokens(string(data))
}
