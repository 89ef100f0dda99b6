package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"store-ratings-api/auth"
	"store-ratings-api/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestLoad_DefaultsAndEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("JWT_SECRET=from-file\nPORT=9090\n"), 0o600))

	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	t.Setenv("JWT_TTL", "2h")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "store_ratings.db", cfg.DatabasePath)
	assert.Equal(t, 10, cfg.BcryptCost)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	_, err := Load("")
	assert.Error(t, err)
}

func TestOpenDB_Migrates(t *testing.T) {
	db, err := OpenDB(":memory:", nil)
	require.NoError(t, err)
	for _, table := range []string{"users", "stores", "ratings"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("ratings", "idx_rating_user_store"))
}

func TestOpenDB_LogsThroughLogrus(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	db, err := OpenDB(":memory:", log)
	require.NoError(t, err)
	require.Empty(t, buf.String(), "migration is quiet")

	var u models.User
	err = db.Where("email = ?", "missing@example.com").First(&u).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "a miss is not logged")

	err = db.Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "no_such_table")
	assert.Contains(t, buf.String(), `"component":"gorm"`)
}

func TestNewLogger(t *testing.T) {
	log := NewLogger("debug", "text")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	_, isText := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)

	log = NewLogger("nonsense", "json")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestEnsureAdmin(t *testing.T) {
	db, err := OpenDB(":memory:", nil)
	require.NoError(t, err)

	created, err := EnsureAdmin(db, Config{})
	require.NoError(t, err)
	assert.False(t, created, "no credentials configured")

	cfg := Config{
		AdminEmail:    " Root@Example.com ",
		AdminPassword: "Sup3r$ecret",
		AdminName:     "Root",
		BcryptCost:    bcrypt.MinCost,
	}
	created, err = EnsureAdmin(db, cfg)
	require.NoError(t, err)
	assert.True(t, created)

	var admin models.User
	require.NoError(t, db.Where("email = ?", "root@example.com").First(&admin).Error)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, auth.CheckPassword(admin.PasswordHash, "Sup3r$ecret"))

	created, err = EnsureAdmin(db, cfg)
	require.NoError(t, err)
	assert.False(t, created, "second run is a no-op")
}
