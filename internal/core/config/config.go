package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type CORS struct {
	AllowOrigins []string
}

// Limits 对应 router.Options，0 表示关闭该项
type Limits struct {
	RPS               float64
	Burst             int
	PerIPRPS          float64
	PerIPBurst        int
	MaxConcurrent     int64
	QueueWaitMs       int
	MaxBodyBytes      int64
	RequestTimeoutSec int
}

type App struct {
	Name   string
	Env    string
	HTTP   HTTP
	CORS   CORS
	Limits Limits
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Mongo struct {
	URI               string
	Database          string
	Collection        string
	ConnectTimeoutSec int
}

// Redis addr 为空时不启用缓存
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTLSec   int    `mapstructure:"ttlsec"`
}

type Config struct {
	App   App
	Log   Log
	DB    DB
	Mongo Mongo
	Redis Redis `mapstructure:"redis"`
}

func (r Redis) Enabled() bool          { return r.Addr != "" }
func (r Redis) TTL() time.Duration     { return time.Duration(r.TTLSec) * time.Second }
func (m Mongo) Timeout() time.Duration { return time.Duration(m.ConnectTimeoutSec) * time.Second }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "users-api")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 5001)
	v.SetDefault("app.http.readtimeoutsec", 15)
	v.SetDefault("app.http.writetimeoutsec", 15)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.cors.alloworigins", []string{})
	v.SetDefault("app.limits.rps", 200)
	v.SetDefault("app.limits.burst", 400)
	v.SetDefault("app.limits.periprps", 0)
	v.SetDefault("app.limits.peripburst", 0)
	v.SetDefault("app.limits.maxconcurrent", 300)
	v.SetDefault("app.limits.queuewaitms", 100)
	v.SetDefault("app.limits.maxbodybytes", 1<<20)
	v.SetDefault("app.limits.requesttimeoutsec", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.maxsizemb", 100)
	v.SetDefault("log.file.maxbackups", 7)
	v.SetDefault("log.file.maxagedays", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "host=localhost user=postgres password=postgres dbname=users port=5432 sslmode=disable")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.automigrate", true)
	v.SetDefault("db.loglevel", "warn")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "users")
	v.SetDefault("mongo.collection", "users")
	v.SetDefault("mongo.connecttimeoutsec", 10)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttlsec", 60)
}

// Load 读取 YAML + APP_ 前缀环境变量；文件不存在时只用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("config: unsupported db.driver %q", c.DB.Driver)
	}
	if c.App.HTTP.Port <= 0 || c.App.HTTP.Port > 65535 {
		return fmt.Errorf("config: invalid app.http.port %d", c.App.HTTP.Port)
	}
	if c.Mongo.Database == "" || c.Mongo.Collection == "" {
		return errors.New("config: mongo.database and mongo.collection are required")
	}
	return nil
}
