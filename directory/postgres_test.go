package directory

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	shiftAuth "github.com/MrEthical07/shiftAuth"
	"github.com/MrEthical07/shiftAuth/permission"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

var accountCols = []string{"user_id", "username", "password_hash", "role", "api_key_id", "api_key_hash", "api_key_created_at"}

const (
	qFindByUsername = `(?s)^SELECT\s+user_id,.*FROM\s+accounts\s+WHERE\s+username\s*=\s*\$1\s*$`
	qFindByID       = `(?s)^SELECT\s+user_id,.*FROM\s+accounts\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	qFindByKeyID    = `(?s)^SELECT\s+user_id,.*FROM\s+accounts\s+WHERE\s+api_key_id\s*=\s*\$1\s*$`
	qRoleOf         = `(?s)^SELECT\s+role\s+FROM\s+accounts\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	qRoleForUpdate  = `(?s)^SELECT\s+role\s+FROM\s+accounts\s+WHERE\s+user_id\s*=\s*\$1\s*FOR\s+UPDATE$`
	qSetRole        = `(?s)^UPDATE\s+accounts\s+SET\s+role\s*=\s*\$2\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	qSetAPIKey      = `(?s)^UPDATE\s+accounts\s+SET\s+api_key_id\s*=\s*\$2,\s*api_key_hash\s*=\s*\$3,\s*api_key_created_at\s*=\s*\$4\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	qAPIKeyOf       = `(?s)^SELECT\s+api_key_id,\s*api_key_hash,\s*api_key_created_at\s+FROM\s+accounts\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	qInsertUser     = `(?s)^INSERT\s+INTO\s+users\s*\(full_name\)\s*VALUES\s*\(\$1\)\s*RETURNING\s+id\s*$`
	qInsertAccount  = `(?s)^INSERT\s+INTO\s+accounts\s*\(user_id,\s*username,\s*password_hash,\s*role\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*$`
	qExistsUser     = `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\)$`
)

func newPostgresWithMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgres(db), mock
}

func TestPostgresFindByUsername(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	rows := sqlmock.NewRows(accountCols).
		AddRow(int64(7), "alice", "$argon2id$hash", "Manager", nil, nil, nil)
	mock.ExpectQuery(qFindByUsername).WithArgs("alice").WillReturnRows(rows)

	acct, err := p.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, int64(7), acct.UserID)
	require.Equal(t, permission.RoleManager, acct.Role)
	require.Nil(t, acct.APIKey)
}

func TestPostgresFindByUsernameNotFound(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectQuery(qFindByUsername).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := p.FindByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, shiftAuth.ErrUserNotFound)
}

func TestPostgresFindByIDWrapsDBError(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectQuery(qFindByID).WithArgs(int64(1)).WillReturnError(errors.New("db down"))

	_, err := p.FindByID(context.Background(), 1)
	require.Error(t, err)
	require.Regexp(t, `db error: .*db down`, err.Error())
}

func TestPostgresFindByAPIKeyID(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(accountCols).
		AddRow(int64(3), "bob", "pw", "User", "kid", "khash", created)
	mock.ExpectQuery(qFindByKeyID).WithArgs("kid").WillReturnRows(rows)

	acct, err := p.FindByAPIKeyID(context.Background(), "kid")
	require.NoError(t, err)
	require.NotNil(t, acct.APIKey)
	require.Equal(t, "kid", acct.APIKey.KeyID)
	require.Equal(t, "khash", acct.APIKey.SecretHash)
	require.True(t, acct.APIKey.CreatedAt.Equal(created))
}

func TestPostgresScanRejectsUnknownRole(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	rows := sqlmock.NewRows(accountCols).
		AddRow(int64(3), "bob", "pw", "Superuser", nil, nil, nil)
	mock.ExpectQuery(qFindByID).WithArgs(int64(3)).WillReturnRows(rows)

	_, err := p.FindByID(context.Background(), 3)
	require.ErrorIs(t, err, permission.ErrUnknownRole)
}

func TestPostgresRoleOf(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectQuery(qRoleOf).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("Admin"))
	mock.ExpectQuery(qRoleOf).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	role, err := p.RoleOf(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, permission.RoleAdmin, role)

	_, err = p.RoleOf(context.Background(), 9)
	require.ErrorIs(t, err, shiftAuth.ErrUserNotFound)
}

func TestPostgresSetRoleCommits(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(qSetRole).WithArgs(int64(4), "Manager").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, p.SetRole(context.Background(), 4, permission.RoleManager))
}

func TestPostgresSetRoleMissingRowRollsBack(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(qSetRole).WithArgs(int64(4), "User").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := p.SetRole(context.Background(), 4, permission.RoleUser)
	require.ErrorIs(t, err, shiftAuth.ErrUserNotFound)
}

func TestPostgresTransferOwnershipCommitsBothRows(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qRoleForUpdate).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("Owner"))
	mock.ExpectQuery(qRoleForUpdate).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("Manager"))
	mock.ExpectExec(qSetRole).WithArgs(int64(1), "Admin").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qSetRole).WithArgs(int64(2), "Owner").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, p.TransferOwnership(context.Background(), 1, 2))
}

func TestPostgresTransferOwnershipRequiresOwner(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qRoleForUpdate).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("Admin"))
	mock.ExpectRollback()

	err := p.TransferOwnership(context.Background(), 1, 2)
	require.ErrorIs(t, err, shiftAuth.ErrForbidden)
}

func TestPostgresTransferOwnershipRollsBackOnSecondWrite(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qRoleForUpdate).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("Owner"))
	mock.ExpectQuery(qRoleForUpdate).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("User"))
	mock.ExpectExec(qSetRole).WithArgs(int64(1), "Admin").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qSetRole).WithArgs(int64(2), "Owner").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := p.TransferOwnership(context.Background(), 1, 2)
	require.Error(t, err)
	require.Regexp(t, `db error: .*connection reset`, err.Error())
}

func TestPostgresTransferOwnershipUnknownTarget(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qRoleForUpdate).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("Owner"))
	mock.ExpectQuery(qRoleForUpdate).WithArgs(int64(5)).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := p.TransferOwnership(context.Background(), 1, 5)
	require.ErrorIs(t, err, shiftAuth.ErrUserNotFound)
}

func TestPostgresSetAPIKeyAndRevoke(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectExec(qSetAPIKey).
		WithArgs(int64(3), "kid", "khash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qSetAPIKey).
		WithArgs(int64(3), nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := p.SetAPIKey(context.Background(), 3, &shiftAuth.APIKeyRecord{KeyID: "kid", SecretHash: "khash", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, p.SetAPIKey(context.Background(), 3, nil))
}

func TestPostgresAPIKeyOf(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectQuery(qAPIKeyOf).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"api_key_id", "api_key_hash", "api_key_created_at"}).AddRow(nil, nil, nil))

	_, ok, err := p.APIKeyOf(context.Background(), 3)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPostgresExistsUserID(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectQuery(qExistsUser).WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := p.ExistsUserID(context.Background(), 11)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPostgresCreateAccount(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qInsertUser).WithArgs("Alice A").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectExec(qInsertAccount).WithArgs(int64(12), "alice", "pw", "User").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := p.CreateAccount(context.Background(), shiftAuth.NewAccountRecord{
		FullName:     "Alice A",
		Username:     "alice",
		PasswordHash: "pw",
		Role:         permission.RoleUser,
	})
	require.NoError(t, err)
	require.Equal(t, int64(12), id)
}

func TestPostgresCreateAccountDuplicate(t *testing.T) {
	p, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qInsertUser).WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(13)))
	mock.ExpectExec(qInsertAccount).WithArgs(int64(13), "alice", "pw", "User").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "accounts_username_key"})
	mock.ExpectRollback()

	_, err := p.CreateAccount(context.Background(), shiftAuth.NewAccountRecord{
		Username:     "alice",
		PasswordHash: "pw",
		Role:         permission.RoleUser,
	})
	require.ErrorIs(t, err, shiftAuth.ErrAccountExists)
}
