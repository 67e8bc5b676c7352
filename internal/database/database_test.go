package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	assert.Equal(t,
		"u:p@tcp(db:3306)/housing?charset=utf8mb4&parseTime=True&loc=Local",
		MySQLDSN("db", "3306", "u", "p", "housing"))
	assert.Equal(t,
		"host=db port=5432 user=u password=p dbname=housing sslmode=disable",
		PostgresDSN("db", "5432", "u", "p", "housing"))
}

func TestOpenNone(t *testing.T) {
	cache, gdb, err := Open(Options{Type: TypeNone})
	require.NoError(t, err)
	assert.Nil(t, cache)
	assert.Nil(t, gdb)

	_, _, err = Open(Options{Type: "mongo"})
	assert.EqualError(t, err, `unknown database type "mongo"`)
}

func TestNullableConversions(t *testing.T) {
	assert.Nil(t, floatPtr(nullFloat(nil)))
	v := 12.5
	got := floatPtr(nullFloat(&v))
	require.NotNil(t, got)
	assert.Equal(t, 12.5, *got)

	assert.Nil(t, timePtr(nullTime(nil)))
	now := time.Now()
	tp := timePtr(nullTime(&now))
	require.NotNil(t, tp)
	assert.True(t, now.Equal(*tp))
	assert.Equal(t, sql.NullTime{}, nullTime(nil))
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, GormLogLevel("debug"))
	assert.Equal(t, logger.Error, GormLogLevel("error"))
	assert.Equal(t, logger.Silent, GormLogLevel("disabled"))
	assert.Equal(t, logger.Warn, GormLogLevel("info"))
}
