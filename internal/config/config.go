package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
// Both binaries read the same structure; each uses the sections it needs.
type Config struct {
	API struct {
		BaseURL string
		Timeout time.Duration
	}
	Demo struct {
		Enabled bool
		Delay   time.Duration
	}
	Store struct {
		// Driver is sqlite, redis or memory.
		Driver string
		Path   string
		Key    string
		Redis  struct {
			Addr     string
			Password string
			DB       int
			Prefix   string
			TTL      time.Duration
		}
	}
	Log struct {
		Level  string
		Format string
	}
	Server struct {
		Addr           string
		AllowedOrigins []string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret string
		TokenTTL  time.Duration
	}
	Storage struct {
		// Driver is local or s3.
		Driver    string
		UploadDir string
		BaseURL   string
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
		PublicURL string
	}
	AWS struct {
		Profile string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with the directory holding .env and config.* made explicit.
func LoadFrom(dir string) (Config, error) {
	// existing environment wins over .env
	_ = godotenv.Load(strings.TrimRight(dir, "/") + "/.env")

	v := viper.New()
	v.SetEnvPrefix("WELLNESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.baseurl", "http://localhost:3001/api")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("demo.enabled", false)
	v.SetDefault("demo.delay", time.Second)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "data/session.db")
	v.SetDefault("store.key", "token")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "wellness:")
	v.SetDefault("store.redis.ttl", time.Duration(0))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.addr", "0.0.0.0:3001")
	v.SetDefault("server.allowedorigins", []string{})
	v.SetDefault("database.path", "data/mockserver.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", time.Hour)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.uploaddir", "data/uploads")
	v.SetDefault("storage.baseurl", "http://localhost:3001/uploads")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "profile-images")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicurl", "")
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Storage.Driver {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// splitList flattens comma separated entries, as env vars carry lists that way.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
