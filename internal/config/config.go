package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/posdit/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Data    DataConfig
	Reddit  RedditConfig
	Mail    MailConfig
	Monitor MonitorConfig
	Misc    MiscConfig
}

type ServerConfig struct {
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutDownTimeout    time.Duration
	RequestTimeout     time.Duration
	CORSAllowedOrigins string
}

type DataConfig struct {
	FilePath        string
	PersistInterval time.Duration
}

// RedditConfig selects and configures the listing collector.
type RedditConfig struct {
	Mode         string
	UserAgent    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Limit        int
	FetchTimeout time.Duration
	RateInterval time.Duration
}

type MailConfig struct {
	Mode     string
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type MonitorConfig struct {
	OnMissingSubreddit string
	StartPaused        bool
	DedupPolicy        string
	DedupCapacity      int
	DedupWindow        time.Duration
	EventHistory       int
}

type MiscConfig struct {
	LogLevel string
	GinMode  string
}

// LoadConfig reads config.yaml from POSDIT_CONFIG_PATH (default ./config),
// applies defaults and POSDIT_* environment overrides, validates the result
// and makes sure the data file exists.
func LoadConfig() (*Config, error) {
	log := logger.WithComponent("config")

	confPath := getEnvOrDefault("POSDIT_CONFIG_PATH", "./config")

	viper.Reset()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(confPath)

	setDefaults(confPath)

	// POSDIT_MONITOR_DEDUP_POLICY overrides monitor.dedup_policy, and so on.
	viper.SetEnvPrefix("POSDIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config file error: %w", err)
		}
		log.Info("no config file found, using defaults and env vars")
	}

	port, err := getEnvOrViperPort("PORT", "server.port")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               port,
			ReadTimeout:        viper.GetDuration("server.read_timeout"),
			WriteTimeout:       viper.GetDuration("server.write_timeout"),
			IdleTimeout:        viper.GetDuration("server.idle_timeout"),
			ShutDownTimeout:    viper.GetDuration("server.shutdown_timeout"),
			RequestTimeout:     viper.GetDuration("server.request_timeout"),
			CORSAllowedOrigins: viper.GetString("server.cors_allowed_origins"),
		},
		Data: DataConfig{
			FilePath:        viper.GetString("data.file_path"),
			PersistInterval: viper.GetDuration("data.persist_interval"),
		},
		Reddit: RedditConfig{
			Mode:         strings.ToLower(viper.GetString("reddit.mode")),
			UserAgent:    viper.GetString("reddit.user_agent"),
			ClientID:     viper.GetString("reddit.client_id"),
			ClientSecret: viper.GetString("reddit.client_secret"),
			Username:     viper.GetString("reddit.username"),
			Password:     viper.GetString("reddit.password"),
			Limit:        viper.GetInt("reddit.limit"),
			FetchTimeout: viper.GetDuration("reddit.fetch_timeout"),
			RateInterval: viper.GetDuration("reddit.rate_interval"),
		},
		Mail: MailConfig{
			Mode:     strings.ToLower(viper.GetString("mail.mode")),
			Host:     viper.GetString("mail.host"),
			Port:     viper.GetInt("mail.port"),
			Username: viper.GetString("mail.username"),
			Password: viper.GetString("mail.password"),
			From:     viper.GetString("mail.from"),
		},
		Monitor: MonitorConfig{
			OnMissingSubreddit: strings.ToLower(viper.GetString("monitor.on_missing_subreddit")),
			StartPaused:        viper.GetBool("monitor.start_paused"),
			DedupPolicy:        strings.ToLower(viper.GetString("monitor.dedup_policy")),
			DedupCapacity:      viper.GetInt("monitor.dedup_capacity"),
			DedupWindow:        viper.GetDuration("monitor.dedup_window"),
			EventHistory:       viper.GetInt("monitor.event_history"),
		},
		Misc: MiscConfig{
			LogLevel: viper.GetString("misc.log_level"),
			GinMode:  viper.GetString("misc.gin_mode"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := ensureDataFile(cfg.Data.FilePath); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(confPath string) {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.idle_timeout", 120*time.Second)
	viper.SetDefault("server.shutdown_timeout", 5*time.Second)
	viper.SetDefault("server.request_timeout", 5*time.Second)
	viper.SetDefault("server.cors_allowed_origins", "")

	viper.SetDefault("data.file_path", filepath.Join(confPath, "data", "watches.json"))
	viper.SetDefault("data.persist_interval", 5*time.Second)

	viper.SetDefault("reddit.mode", "public")
	viper.SetDefault("reddit.user_agent", "posdit/1.0")
	viper.SetDefault("reddit.limit", 25)
	viper.SetDefault("reddit.fetch_timeout", 10*time.Second)
	viper.SetDefault("reddit.rate_interval", time.Second)

	viper.SetDefault("mail.mode", "log")
	viper.SetDefault("mail.port", 587)

	viper.SetDefault("monitor.on_missing_subreddit", "halt")
	viper.SetDefault("monitor.start_paused", false)
	viper.SetDefault("monitor.dedup_policy", "unbounded")
	viper.SetDefault("monitor.dedup_capacity", 10000)
	viper.SetDefault("monitor.dedup_window", 24*time.Hour)
	viper.SetDefault("monitor.event_history", 10000)

	viper.SetDefault("misc.log_level", "info")
	viper.SetDefault("misc.gin_mode", "release")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return errors.New("server read/write/idle timeouts must be positive")
	}
	if c.Server.ShutDownTimeout <= 0 {
		return errors.New("server shutdown timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server request timeout must be positive")
	}

	if c.Data.FilePath == "" {
		return errors.New("data file path is required")
	}
	if c.Data.PersistInterval <= 0 {
		return errors.New("data persist interval must be positive")
	}

	switch c.Reddit.Mode {
	case "api":
		if c.Reddit.ClientID == "" || c.Reddit.ClientSecret == "" {
			return errors.New("reddit api mode requires client_id and client_secret")
		}
	case "public", "mock":
	default:
		return fmt.Errorf("invalid reddit mode: %s (use 'api', 'public', or 'mock')", c.Reddit.Mode)
	}
	if c.Reddit.Limit < 0 || c.Reddit.Limit > 100 {
		return fmt.Errorf("reddit limit must be between 0 and 100, got %d", c.Reddit.Limit)
	}
	if c.Reddit.FetchTimeout < 0 || c.Reddit.RateInterval < 0 {
		return errors.New("reddit fetch timeout and rate interval must not be negative")
	}

	switch c.Mail.Mode {
	case "smtp":
		if c.Mail.Host == "" || c.Mail.From == "" {
			return errors.New("smtp mail mode requires host and from")
		}
		if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
			return fmt.Errorf("invalid mail port: %d", c.Mail.Port)
		}
	case "", "log":
	default:
		return fmt.Errorf("invalid mail mode: %s (use 'smtp' or 'log')", c.Mail.Mode)
	}

	switch c.Monitor.OnMissingSubreddit {
	case "", "halt", "skip":
	default:
		return fmt.Errorf("invalid on_missing_subreddit: %s (use 'halt' or 'skip')", c.Monitor.OnMissingSubreddit)
	}
	switch c.Monitor.DedupPolicy {
	case "", "unbounded":
	case "lru":
		if c.Monitor.DedupCapacity <= 0 {
			return errors.New("lru dedup policy requires a positive dedup_capacity")
		}
	case "window":
		if c.Monitor.DedupWindow <= 0 {
			return errors.New("window dedup policy requires a positive dedup_window")
		}
	default:
		return fmt.Errorf("invalid dedup policy: %s (use 'unbounded', 'lru' or 'window')", c.Monitor.DedupPolicy)
	}
	if c.Monitor.EventHistory <= 0 {
		return errors.New("monitor event history must be positive")
	}

	switch c.Misc.GinMode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("invalid gin mode: %s", c.Misc.GinMode)
	}

	return nil
}

// ensureDataFile creates an empty JSON document when the data file is missing.
func ensureDataFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot stat data file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		return fmt.Errorf("cannot create data file: %w", err)
	}
	logger.WithComponent("config").Infof("created empty data file %s", path)
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvOrViperPort(envKey, viperKey string) (int, error) {
	if v := os.Getenv(envKey); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", envKey, err)
		}
		return port, nil
	}
	return viper.GetInt(viperKey), nil
}
