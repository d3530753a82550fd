package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Storage  StorageConfig
	Letter   LetterConfig
	Asset    AssetConfig
	Render   RenderConfig

	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	Year int // fixed year for letter numbers; 0 uses the current year
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file path
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Enabled           bool
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// LetterConfig holds institutional letter settings
type LetterConfig struct {
	InstitutionPrefix string
	InstitutionName   string
	FacultyName       string
	Address           string
	City              string
	StrictFields      bool   // reject approval when template fields are missing
	CounterBackend    string // database, redis or memory
	TemplateDir       string
	LetterheadLogo    string
	FooterNotice      string
	FooterMarks       []string
	SignatoryName     string
	SignatoryNIP      string
	SignatoryTitle    string
	SignatureRef      string
}

// AssetConfig holds asset embedding settings
type AssetConfig struct {
	FetchTimeout    time.Duration
	BaseURL         string
	CacheTTL        time.Duration
	CacheMaxEntries int
	MaxBytes        int64
	Concurrency     int
}

// RenderConfig holds preview/print renderer settings
type RenderConfig struct {
	Surface         string // sandbox or chromedp
	ChromeRemoteURL string
	NoSandbox       bool
	SettleDelay     time.Duration
	ArtifactTimeout time.Duration
	RenderTimeout   time.Duration
	SpoolDir        string
	SpoolURL        string
	SpoolRetention  time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // export traces and metrics over OTLP gRPC
	CollectorEndpoint string  // e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool          // plaintext gRPC, development only
	MetricsInterval   time.Duration // metric export interval
	DBTraceEnabled    bool          // register otelgorm on the database
	DBLogFullSQL      bool          // keep query variables in spans, never in production
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with TULIP_ prefix (e.g., TULIP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("TULIP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
			Year: v.GetInt("app.year"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Storage: StorageConfig{
			Enabled:           v.GetBool("storage.enabled"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Letter: LetterConfig{
			InstitutionPrefix: v.GetString("letter.institution_prefix"),
			InstitutionName:   v.GetString("letter.institution_name"),
			FacultyName:       v.GetString("letter.faculty_name"),
			Address:           v.GetString("letter.address"),
			City:              v.GetString("letter.city"),
			StrictFields:      v.GetBool("letter.strict_fields"),
			CounterBackend:    v.GetString("letter.counter_backend"),
			TemplateDir:       v.GetString("letter.template_dir"),
			LetterheadLogo:    v.GetString("letter.letterhead_logo"),
			FooterNotice:      v.GetString("letter.footer_notice"),
			FooterMarks:       v.GetStringSlice("letter.footer_marks"),
			SignatoryName:     v.GetString("letter.signatory_name"),
			SignatoryNIP:      v.GetString("letter.signatory_nip"),
			SignatoryTitle:    v.GetString("letter.signatory_title"),
			SignatureRef:      v.GetString("letter.signature_ref"),
		},
		Asset: AssetConfig{
			FetchTimeout:    v.GetDuration("asset.fetch_timeout"),
			BaseURL:         v.GetString("asset.base_url"),
			CacheTTL:        v.GetDuration("asset.cache_ttl"),
			CacheMaxEntries: v.GetInt("asset.cache_max_entries"),
			MaxBytes:        v.GetInt64("asset.max_bytes"),
			Concurrency:     v.GetInt("asset.concurrency"),
		},
		Render: RenderConfig{
			Surface:         v.GetString("render.surface"),
			ChromeRemoteURL: v.GetString("render.chrome_remote_url"),
			NoSandbox:       v.GetBool("render.no_sandbox"),
			SettleDelay:     v.GetDuration("render.settle_delay"),
			ArtifactTimeout: v.GetDuration("render.artifact_timeout"),
			RenderTimeout:   v.GetDuration("render.render_timeout"),
			SpoolDir:        v.GetString("render.spool_dir"),
			SpoolURL:        v.GetString("render.spool_url"),
			SpoolRetention:  v.GetDuration("render.spool_retention"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "tulip-letters"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "tulip"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "tulip.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	// An empty origin list means no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-User-ID"}
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Letter.InstitutionPrefix == "" {
		cfg.Letter.InstitutionPrefix = "UN6.B.1"
	}
	if cfg.Letter.InstitutionName == "" {
		cfg.Letter.InstitutionName = "UNIVERSITAS PADJADJARAN"
	}
	if cfg.Letter.FacultyName == "" {
		cfg.Letter.FacultyName = "FAKULTAS MATEMATIKA DAN ILMU PENGETAHUAN ALAM"
	}
	if cfg.Letter.City == "" {
		cfg.Letter.City = "Bandung"
	}
	if cfg.Letter.FooterNotice == "" {
		cfg.Letter.FooterNotice = "Dokumen ini diterbitkan secara elektronik dan sah tanpa tanda tangan basah."
	}
	if cfg.Letter.CounterBackend == "" {
		cfg.Letter.CounterBackend = "database"
	}
	if cfg.Letter.SignatoryTitle == "" {
		cfg.Letter.SignatoryTitle = "Wakil Dekan Bidang Pembelajaran, Kemahasiswaan, dan Riset"
	}
	if cfg.Asset.FetchTimeout == 0 {
		cfg.Asset.FetchTimeout = 5 * time.Second
	}
	if cfg.Asset.CacheTTL == 0 {
		cfg.Asset.CacheTTL = 24 * time.Hour
	}
	if cfg.Asset.CacheMaxEntries == 0 {
		cfg.Asset.CacheMaxEntries = 256
	}
	if cfg.Asset.MaxBytes == 0 {
		cfg.Asset.MaxBytes = 5 << 20 // 5MB
	}
	if cfg.Asset.Concurrency == 0 {
		cfg.Asset.Concurrency = 4
	}
	if cfg.Render.Surface == "" {
		cfg.Render.Surface = "sandbox"
	}
	if cfg.Render.SettleDelay == 0 {
		cfg.Render.SettleDelay = 500 * time.Millisecond
	}
	if cfg.Render.ArtifactTimeout == 0 {
		cfg.Render.ArtifactTimeout = 5 * time.Second
	}
	if cfg.Render.RenderTimeout == 0 {
		cfg.Render.RenderTimeout = 30 * time.Second
	}
	if cfg.Render.SpoolDir == "" {
		cfg.Render.SpoolDir = "./data/spool"
	}
	if cfg.Render.SpoolURL == "" {
		cfg.Render.SpoolURL = "/files/spool"
	}
	if cfg.Render.SpoolRetention == 0 {
		cfg.Render.SpoolRetention = 7 * 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Letter.CounterBackend {
	case "database", "redis", "memory":
	default:
		return fmt.Errorf("letter.counter_backend must be database, redis or memory, got %q", c.Letter.CounterBackend)
	}
	if c.Letter.CounterBackend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("letter.counter_backend redis requires redis.enabled")
	}

	switch c.Render.Surface {
	case "sandbox", "chromedp":
	default:
		return fmt.Errorf("render.surface must be sandbox or chromedp, got %q", c.Render.Surface)
	}
	if c.Asset.Concurrency < 0 {
		return fmt.Errorf("asset.concurrency cannot be negative")
	}
	if c.Asset.BaseURL != "" {
		u, err := url.Parse(c.Asset.BaseURL)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("asset.base_url must be an absolute URL, got %q", c.Asset.BaseURL)
		}
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.Env == "production" {
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
		if c.Storage.Enabled && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
			return fmt.Errorf("storage credentials are required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
