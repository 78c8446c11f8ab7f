package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicetrader/src/model"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := Open("sqlite:file:dbmain?mode=memory&cache=shared", 1)
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable(&model.TradeExecutionLog{}))
	assert.True(t, db.Migrator().HasTable(&model.Exception{}))
	assert.True(t, db.Migrator().HasTable("trade_execution_logs"))
}

func TestInitMainDBDisabled(t *testing.T) {
	t.Setenv("ENABLE_DB", "false")
	MainDB = nil

	require.NoError(t, InitMainDB())
	assert.Nil(t, MainDB)
}

func TestInitMainDBWithSQLite(t *testing.T) {
	t.Setenv("ENABLE_DB", "true")
	t.Setenv("DATABASE_URL_MAIN", "file:initmain?mode=memory&cache=shared")
	t.Setenv("GORM_LOG_LEVEL", "1")
	t.Cleanup(CloseMainDB)

	require.NoError(t, InitMainDB())
	require.NotNil(t, MainDB)
	assert.True(t, MainDB.Migrator().HasTable(&model.Exception{}))
}
