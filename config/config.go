package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	GinMode   string `envconfig:"GIN_MODE" default:"debug"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN    string `envconfig:"DB_DSN" default:"mesas.db"`

	CORSOrigin  string `envconfig:"CORS_ORIGIN" default:"*"`
	FrontendDir string `envconfig:"FRONTEND_DIR" default:"frontend"`

	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"100"`

	WSWriteTimeout   time.Duration `envconfig:"WS_WRITE_TIMEOUT" default:"5s"`
	BroadcastTimeout time.Duration `envconfig:"BROADCAST_TIMEOUT" default:"10s"`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"mesas"`

	SeedTables int `envconfig:"SEED_TABLES" default:"0"`
}

// Load -> baca .env (jika ada) lalu environment
func Load() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDriver != DriverMemory && c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required for driver %s", c.DBDriver)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}

// Dialector picks the gorm driver for DB_DRIVER.
func (c Config) Dialector() (gorm.Dialector, error) {
	switch c.DBDriver {
	case DriverMySQL:
		return mysql.Open(c.DBDSN), nil
	case DriverPostgres:
		return postgres.Open(c.DBDSN), nil
	case DriverSQLite:
		return sqlite.Open(c.DBDSN), nil
	}
	return nil, fmt.Errorf("driver %q has no SQL dialector", c.DBDriver)
}

func InitDB(c Config) (*gorm.DB, error) {
	dialector, err := c.Dialector()
	if err != nil {
		return nil, err
	}
	gormLogger := logger.Default.LogMode(logger.Warn)
	if c.LogLevel == "debug" || c.LogLevel == "trace" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}
	if c.DBDriver == DriverSQLite {
		// sqlite allows a single writer
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
