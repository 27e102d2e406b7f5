package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DBTypePostgres = "postgres"
	DBTypeSQLite   = "sqlite"
	DBTypeMemory   = "memory"
)

const (
	DefaultServerPort          = "8080"
	DefaultProbeTimeout        = 30 * time.Second
	DefaultProbeMaxTimeout     = 90 * time.Second
	DefaultMaxResponseBodySize = 10 * 1024 * 1024
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Probe     ProbeConfig
	Analytics AnalyticsConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type DBConfig struct {
	Type    string
	Host    string
	Port    int
	User    string
	Pass    string
	Name    string
	SSLMode string
	// DSN is the postgres URL, the sqlite DSN or the memory store file path.
	DSN string
}

type ProbeConfig struct {
	DefaultTimeout       time.Duration
	MaxTimeout           time.Duration
	MaxResponseBodySize  int64
	BlockPrivateNetworks bool
	FollowRedirects      bool
}

type AnalyticsConfig struct {
	Location *time.Location
}

type LogConfig struct {
	Level  slog.Level
	Format string
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("server_port", c.Server.Port),
		slog.String("db_type", c.DB.Type),
		slog.String("db_host", c.DB.Host),
		slog.String("db_name", c.DB.Name),
		slog.Bool("db_dsn_set", c.DB.DSN != ""),
		slog.String("probe_default_timeout", c.Probe.DefaultTimeout.String()),
		slog.String("probe_max_timeout", c.Probe.MaxTimeout.String()),
		slog.Int64("probe_max_body_bytes", c.Probe.MaxResponseBodySize),
		slog.Bool("probe_block_private_networks", c.Probe.BlockPrivateNetworks),
		slog.String("analytics_timezone", c.Analytics.Location.String()),
	)
}

func LoadConfig() (*Config, error) {
	probeConfig := ProbeConfig{
		DefaultTimeout:       DefaultProbeTimeout,
		MaxTimeout:           DefaultProbeMaxTimeout,
		MaxResponseBodySize:  DefaultMaxResponseBodySize,
		BlockPrivateNetworks: true,
	}
	var err error
	if probeConfig.DefaultTimeout, err = durationEnv("PROBE_DEFAULT_TIMEOUT", probeConfig.DefaultTimeout); err != nil {
		return nil, err
	}
	if probeConfig.MaxTimeout, err = durationEnv("PROBE_MAX_TIMEOUT", probeConfig.MaxTimeout); err != nil {
		return nil, err
	}
	if probeConfig.DefaultTimeout > probeConfig.MaxTimeout {
		return nil, fmt.Errorf("PROBE_DEFAULT_TIMEOUT %v exceeds PROBE_MAX_TIMEOUT %v", probeConfig.DefaultTimeout, probeConfig.MaxTimeout)
	}
	if v, ok := lookupEnvNonEmpty("PROBE_MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid PROBE_MAX_BODY_BYTES: %q", v)
		}
		probeConfig.MaxResponseBodySize = n
	}
	if probeConfig.BlockPrivateNetworks, err = boolEnv("PROBE_BLOCK_PRIVATE_NETWORKS", probeConfig.BlockPrivateNetworks); err != nil {
		return nil, err
	}
	if probeConfig.FollowRedirects, err = boolEnv("PROBE_FOLLOW_REDIRECTS", false); err != nil {
		return nil, err
	}

	dbConfig, err := loadDBConfig()
	if err != nil {
		return nil, err
	}

	loc := time.UTC
	if v, ok := lookupEnvNonEmpty("ANALYTICS_TIMEZONE"); ok {
		loc, err = time.LoadLocation(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ANALYTICS_TIMEZONE: %v", err)
		}
	}

	logConfig := LogConfig{Level: slog.LevelInfo, Format: "text"}
	if v, ok := lookupEnvNonEmpty("LOG_LEVEL"); ok {
		if err := logConfig.Level.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %v", err)
		}
	}
	if v, ok := lookupEnvNonEmpty("LOG_FORMAT"); ok {
		if v != "text" && v != "json" {
			return nil, fmt.Errorf("invalid LOG_FORMAT: %q", v)
		}
		logConfig.Format = v
	}

	serverConfig := ServerConfig{
		Port:        DefaultServerPort,
		ReadTimeout: 15 * time.Second,
		// The handler may wait for a full probe before writing.
		WriteTimeout:   probeConfig.MaxTimeout + 15*time.Second,
		IdleTimeout:    60 * time.Second,
		AllowedOrigins: []string{"*"},
	}
	if v, ok := lookupEnvNonEmpty("SERVER_PORT"); ok {
		serverConfig.Port = v
	}
	if v, ok := lookupEnvNonEmpty("CORS_ALLOWED_ORIGINS"); ok {
		serverConfig.AllowedOrigins = splitList(v)
	}

	return &Config{
		Server:    serverConfig,
		DB:        dbConfig,
		Probe:     probeConfig,
		Analytics: AnalyticsConfig{Location: loc},
		Log:       logConfig,
	}, nil
}

func loadDBConfig() (DBConfig, error) {
	cfg := DBConfig{Type: DBTypeMemory}
	if v, ok := lookupEnvNonEmpty("DATABASE_TYPE"); ok {
		cfg.Type = strings.ToLower(v)
	}
	cfg.DSN = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	switch cfg.Type {
	case DBTypeMemory:
		return cfg, nil
	case DBTypeSQLite:
		if cfg.DSN == "" {
			cfg.DSN = "./suar-probe.db"
		}
		return cfg, nil
	case DBTypePostgres:
	default:
		return DBConfig{}, fmt.Errorf("invalid DATABASE_TYPE: %q", cfg.Type)
	}

	if cfg.DSN != "" {
		return cfg, nil
	}

	dbPort, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		return DBConfig{}, fmt.Errorf("invalid DB_PORT: %v", err)
	}
	cfg.Host = os.Getenv("DB_HOST")
	cfg.Port = dbPort
	cfg.User = os.Getenv("DB_USER")
	cfg.Pass = os.Getenv("DB_PASS")
	cfg.Name = os.Getenv("DB_NAME")
	cfg.SSLMode = os.Getenv("DB_SSLMODE")
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	cfg.DSN = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Pass, cfg.Name, cfg.SSLMode,
	)
	return cfg, nil
}

func lookupEnvNonEmpty(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v, ok := lookupEnvNonEmpty(key)
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v, ok := lookupEnvNonEmpty(key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
