package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"store-ratings-api/auth"
	"store-ratings-api/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config is read from the environment.
type Config struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	GinMode         string        `envconfig:"GIN_MODE" default:"debug"`
	DatabasePath    string        `envconfig:"DATABASE_PATH" default:"store_ratings.db"`
	JWTSecret       string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL          time.Duration `envconfig:"JWT_TTL" default:"24h"`
	BcryptCost      int           `envconfig:"BCRYPT_COST" default:"10"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	CORSOrigin      string        `envconfig:"CORS_ORIGIN" default:"*"`
	AuthRateLimit   float64       `envconfig:"AUTH_RATE_LIMIT" default:"5"`
	AuthRateBurst   int           `envconfig:"AUTH_RATE_BURST" default:"10"`
	// Proxies (IPs or CIDRs) whose X-Forwarded-For is believed. Empty trusts none.
	TrustedProxies  []string      `envconfig:"TRUSTED_PROXIES"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Bootstrap administrator, created at startup when both are set.
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`
	AdminName     string `envconfig:"ADMIN_NAME" default:"System Admin"`
}

// Load reads envFile (when it exists) into the process environment and then
// processes the environment into a Config. Variables already set win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	return c, nil
}

// OpenDB connects to the sqlite database at path and migrates every model.
// Use ":memory:" for a throwaway database. gorm warnings and errors go to log;
// a nil log discards them.
func OpenDB(path string, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: databases alive.
	sqlDB.SetMaxOpenConns(1)

	// Auto-migrate all models
	if err := db.AutoMigrate(
		&models.User{},
		&models.Store{},
		&models.Rating{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func gormLogger(log logrus.FieldLogger) logger.Interface {
	if log == nil {
		return logger.Discard
	}
	// Misses are answered as 404/401 by the caller, not logged.
	return logger.New(log.WithField("component", "gorm"), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// NewLogger builds the process logger. format is "json" or "text".
func NewLogger(level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if strings.EqualFold(format, "text") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// EnsureAdmin creates the bootstrap administrator described by c unless
// AdminEmail or AdminPassword is empty or a user with that email exists.
// It reports whether a user was created.
func EnsureAdmin(db *gorm.DB, c Config) (bool, error) {
	if c.AdminEmail == "" || c.AdminPassword == "" {
		return false, nil
	}
	email := strings.ToLower(strings.TrimSpace(c.AdminEmail))

	var n int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, fmt.Errorf("look up admin: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	hash, err := auth.HashPassword(c.AdminPassword, c.BcryptCost)
	if err != nil {
		return false, err
	}
	admin := models.User{
		ID:           uuid.NewString(),
		Name:         c.AdminName,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Address:      "-",
	}
	if err := db.Create(&admin).Error; err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
