package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFile = "./config.yml"
	EnvFile    = "./config.env"
	EnvPrefix  = "BCAT"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverBolt     = "bolt"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit    string         `yaml:"git_commit" envconfig:"BCAT_GIT_COMMIT" json:"git_commit"`
	GitTag       string         `yaml:"git_tag" envconfig:"BCAT_GIT_TAG" json:"git_tag"`
	BuildTime    string         `yaml:"build_time" envconfig:"BCAT_BUILD_TIME" json:"build_time"`
	IsProduction bool           `yaml:"is_production" envconfig:"BCAT_IS_PRODUCTION" json:"is_production"`
	LogLevel     zapcore.Level  `yaml:"log_level" envconfig:"BCAT_LOG_LEVEL" json:"log_level"`
	LogFolder    string         `yaml:"log_folder" envconfig:"BCAT_LOG_FOLDER" json:"log_folder"`
	LogMaxSize   int            `yaml:"log_max_size" envconfig:"BCAT_LOG_MAX_SIZE" json:"log_max_size"`
	SeedOnStart  *bool          `yaml:"seed_on_start" envconfig:"BCAT_SEED_ON_START" json:"seed_on_start"`
	Server       ServerConfig   `yaml:"server" json:"server"`
	Storage      StorageConfig  `yaml:"storage" json:"storage"`
	Database     DatabaseConfig `yaml:"database" json:"database"`
	SQLite       SQLiteConfig   `yaml:"sqlite" json:"sqlite"`
	Redis        RedisConfig    `yaml:"redis" json:"redis"`
	BoltDB       BoltDBConfig   `yaml:"boltdb" json:"boltdb"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"BCAT_SERVER_HOST" json:"host"`
	Port            string        `yaml:"port" envconfig:"BCAT_SERVER_PORT" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"BCAT_SERVER_READ_TIMEOUT" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"BCAT_SERVER_WRITE_TIMEOUT" json:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"BCAT_SERVER_REQUEST_TIMEOUT" json:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"BCAT_SERVER_SHUTDOWN_TIMEOUT" json:"shutdown_timeout"`
	RateLimit       float64       `yaml:"rate_limit" envconfig:"BCAT_SERVER_RATE_LIMIT" json:"rate_limit"` // requests per second, 0 disables it
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"BCAT_SERVER_RATE_LIMIT_BURST" json:"rate_limit_burst"`
	OpsEnable       bool          `yaml:"ops_enable" envconfig:"BCAT_SERVER_OPS_ENABLE" json:"ops_enable"`
	ProfilerEnable  bool          `yaml:"profiler_enable" envconfig:"BCAT_SERVER_PROFILER_ENABLE" json:"profiler_enable"`
	FaviconPath     string        `yaml:"favicon_path" envconfig:"BCAT_SERVER_FAVICON_PATH" json:"favicon_path"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"BCAT_STORAGE_DRIVER" json:"driver"`
}

// DatabaseConfig holds the postgres settings. The environment names
// are the ones used by the official postgres image.
type DatabaseConfig struct {
	Host            string        `yaml:"host" envconfig:"POSTGRES_HOST" json:"host"`
	Port            string        `yaml:"port" envconfig:"POSTGRES_PORT" json:"port"`
	User            string        `yaml:"user" envconfig:"POSTGRES_USER" json:"user"`
	Password        string        `yaml:"password" envconfig:"POSTGRES_PASSWORD" json:"password"`
	Name            string        `yaml:"name" envconfig:"POSTGRES_DB" json:"name"`
	SSLMode         string        `yaml:"sslmode" envconfig:"POSTGRES_SSLMODE" json:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"BCAT_DATABASE_MAX_OPEN_CONNS" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"BCAT_DATABASE_MAX_IDLE_CONNS" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"BCAT_DATABASE_CONN_MAX_LIFETIME" json:"conn_max_lifetime"`
}

type SQLiteConfig struct {
	FilePath string `yaml:"filepath" envconfig:"BCAT_SQLITE_FILE_PATH" json:"filepath"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BCAT_REDIS_HOST" json:"host"`
	Port          string        `yaml:"port" envconfig:"BCAT_REDIS_PORT" json:"port"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BCAT_REDIS_DIAL_TIMEOUT" json:"dial_timeout"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BCAT_REDIS_READ_TIMEOUT" json:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BCAT_REDIS_WRITE_TIMEOUT" json:"write_timeout"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BCAT_REDIS_POOL_SIZE" json:"pool_size"`
	Username      string        `yaml:"username" envconfig:"BCAT_REDIS_USERNAME" json:"username"`
	Password      string        `yaml:"password" envconfig:"BCAT_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BCAT_REDIS_DATABASE_INDEX" json:"db_index"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BCAT_BOLTDB_FILE_PATH" json:"filepath"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BCAT_BOLTDB_TIMEOUT" json:"timeout"`
	BucketName string        `yaml:"bucket_name" envconfig:"BCAT_BOLTDB_BUCKET_NAME" json:"bucket_name"`
}

// LoadConfigFile provides an instance of config structure for the all application.
// A missing file is not an error: the returned config is then empty and gets
// filled by the environment and the defaults.
func LoadConfigFile(configFile string) (*Config, error) {
	cfg := &Config{}
	file, err := os.Open(configFile)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err = yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables into the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig sets defaults values for non provided parameters and
// configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}
	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}
	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	setDefault(&config.LogFolder, "./logs")
	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}
	if config.SeedOnStart == nil {
		seed := true
		config.SeedOnStart = &seed
	}

	setDefault(&config.Server.Host, "0.0.0.0")
	setDefault(&config.Server.Port, "8000")
	setDefaultDuration(&config.Server.ReadTimeout, 10*time.Second)
	setDefaultDuration(&config.Server.WriteTimeout, 15*time.Second)
	setDefaultDuration(&config.Server.RequestTimeout, 10*time.Second)
	setDefaultDuration(&config.Server.ShutdownTimeout, 30*time.Second)
	setDefault(&config.Server.FaviconPath, "./static/favicon.ico")
	if config.Server.RateLimit > 0 && config.Server.RateLimitBurst <= 0 {
		config.Server.RateLimitBurst = int(config.Server.RateLimit) * 2
	}

	setDefault(&config.Storage.Driver, DriverPostgres)

	setDefault(&config.Database.Host, "localhost")
	setDefault(&config.Database.Port, "5432")
	setDefault(&config.Database.User, "postgres")
	setDefault(&config.Database.Password, "password")
	setDefault(&config.Database.Name, "books")
	setDefault(&config.Database.SSLMode, "disable")
	if config.Database.MaxOpenConns <= 0 {
		config.Database.MaxOpenConns = 20
	}
	if config.Database.MaxIdleConns <= 0 {
		config.Database.MaxIdleConns = 5
	}
	setDefaultDuration(&config.Database.ConnMaxLifetime, 30*time.Minute)

	setDefault(&config.SQLite.FilePath, "./data/books.sqlite")

	setDefault(&config.Redis.Host, "localhost")
	setDefault(&config.Redis.Port, "6379")
	setDefaultDuration(&config.Redis.DialTimeout, 5*time.Second)

	setDefault(&config.BoltDB.FilePath, "./data/books.bolt")
	setDefault(&config.BoltDB.BucketName, "books")
	setDefaultDuration(&config.BoltDB.Timeout, time.Second)

	switch config.Storage.Driver {
	case DriverPostgres, DriverSQLite, DriverRedis, DriverBolt:
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	config, err := LoadConfigFile(ConfigFile)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// The env file is optional, already exported variables win.
	err = godotenv.Load(EnvFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	err = LoadConfigEnvs(EnvPrefix, config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}

// Redacted returns a copy of the config safe to expose on ops endpoints.
func (c Config) Redacted() Config {
	if c.Database.Password != "" {
		c.Database.Password = "*****"
	}
	return c
}

// DSN builds the postgres connection string.
func (dc DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dc.Host, dc.Port, dc.User, dc.Password, dc.Name, dc.SSLMode)
}

func setDefault(field *string, value string) {
	if len(*field) == 0 {
		*field = value
	}
}

func setDefaultDuration(field *time.Duration, value time.Duration) {
	if *field <= 0 {
		*field = value
	}
}
