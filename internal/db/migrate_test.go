package db

import (
	"context"
	"errors"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ingluisfelipemunoz/turnqueue/internal/constants"
	"github.com/ingluisfelipemunoz/turnqueue/internal/store/mocks"
	"github.com/ingluisfelipemunoz/turnqueue/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io/fs"
	"testing"
	"time"
)

func TestMigrate_LockFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	lockMgr := &mocks.MockDistributedLockManager{
		AcquireFunc: func(ctx context.Context, lockID int) error {
			assert.Equal(t, constants.MigrationLock, lockID)
			return errors.New("lock busy")
		},
	}

	err = Migrate(context.Background(), conn, lockMgr)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "acquire migration lock")
	// nothing touched the database
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_DriverFailureReturnsConnection(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	conn.SetMaxOpenConns(1)

	mock.ExpectQuery("SELECT CURRENT_DATABASE").WillReturnError(errors.New("connection reset"))

	err = Migrate(context.Background(), conn, &mocks.MockDistributedLockManager{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "migration driver")
	assert.Equal(t, 0, conn.Stats().InUse)

	// the single pooled connection is usable again
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var n int
	assert.NoError(t, conn.QueryRowContext(ctx, "SELECT 1").Scan(&n))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationsAreEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.Contains(t, files, "000001_init.up.sql")
	assert.Contains(t, files, "000001_init.down.sql")

	up, err := fs.ReadFile(migrations.FS, "000001_init.up.sql")
	require.NoError(t, err)
	for _, table := range []string{"players", "actions", "turn_jobs"} {
		assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS "+table)
	}
}
