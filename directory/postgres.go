package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	shiftAuth "github.com/MrEthical07/shiftAuth"
	"github.com/MrEthical07/shiftAuth/permission"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// Postgres is an AccountDirectory over the users and accounts tables.
type Postgres struct {
	db *sql.DB
}

// NewPostgres returns a directory bound to db. db should be opened with the
// pgx stdlib driver.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const accountColumns = `user_id, username, password_hash, role, api_key_id, api_key_hash, api_key_created_at`

func (p *Postgres) FindByUsername(ctx context.Context, username string) (shiftAuth.Account, error) {
	query :=
		`SELECT ` + accountColumns + ` FROM accounts
		 WHERE username = $1
		 `
	return scanAccount(p.db.QueryRowContext(ctx, query, username))
}

func (p *Postgres) FindByID(ctx context.Context, userID int64) (shiftAuth.Account, error) {
	query :=
		`SELECT ` + accountColumns + ` FROM accounts
		 WHERE user_id = $1
		 `
	return scanAccount(p.db.QueryRowContext(ctx, query, userID))
}

func (p *Postgres) FindByAPIKeyID(ctx context.Context, keyID string) (shiftAuth.Account, error) {
	query :=
		`SELECT ` + accountColumns + ` FROM accounts
		 WHERE api_key_id = $1
		 `
	return scanAccount(p.db.QueryRowContext(ctx, query, keyID))
}

func (p *Postgres) RoleOf(ctx context.Context, userID int64) (permission.Role, error) {
	return roleOf(ctx, p.db, userID, false)
}

func (p *Postgres) APIKeyOf(ctx context.Context, userID int64) (shiftAuth.APIKeyRecord, bool, error) {
	query :=
		`SELECT api_key_id, api_key_hash, api_key_created_at FROM accounts
		 WHERE user_id = $1
		 `

	var (
		keyID     sql.NullString
		hash      sql.NullString
		createdAt sql.NullTime
	)
	err := p.db.QueryRowContext(ctx, query, userID).Scan(&keyID, &hash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shiftAuth.APIKeyRecord{}, false, shiftAuth.ErrUserNotFound
		}
		return shiftAuth.APIKeyRecord{}, false, fmt.Errorf("db error: %w", err)
	}
	if !keyID.Valid {
		return shiftAuth.APIKeyRecord{}, false, nil
	}

	return shiftAuth.APIKeyRecord{
		KeyID:      keyID.String,
		SecretHash: hash.String,
		CreatedAt:  createdAt.Time,
	}, true, nil
}

func (p *Postgres) SetAPIKey(ctx context.Context, userID int64, key *shiftAuth.APIKeyRecord) error {
	query :=
		`UPDATE accounts SET api_key_id = $2, api_key_hash = $3, api_key_created_at = $4
		 WHERE user_id = $1
		 `

	var (
		keyID     sql.NullString
		hash      sql.NullString
		createdAt sql.NullTime
	)
	if key != nil {
		keyID = sql.NullString{String: key.KeyID, Valid: true}
		hash = sql.NullString{String: key.SecretHash, Valid: true}
		createdAt = sql.NullTime{Time: key.CreatedAt, Valid: true}
	}

	res, err := p.db.ExecContext(ctx, query, userID, keyID, hash, createdAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

func (p *Postgres) SetRole(ctx context.Context, userID int64, role permission.Role) error {
	if !role.Valid() {
		return permission.ErrUnknownRole
	}

	return WithTx(ctx, p.db, nil, func(ctx context.Context, tx DBTX) error {
		return setRole(ctx, tx, userID, role)
	})
}

// TransferOwnership demotes from to Admin and promotes to to Owner in one
// transaction. Both rows are locked first; if from is no longer the owner
// the transaction is rolled back with ErrForbidden.
func (p *Postgres) TransferOwnership(ctx context.Context, fromUserID, toUserID int64) error {
	return WithTx(ctx, p.db, nil, func(ctx context.Context, tx DBTX) error {
		fromRole, err := roleOf(ctx, tx, fromUserID, true)
		if err != nil {
			if errors.Is(err, shiftAuth.ErrUserNotFound) {
				return shiftAuth.ErrForbidden
			}
			return err
		}
		if fromRole != permission.RoleOwner {
			return shiftAuth.ErrForbidden
		}

		if _, err := roleOf(ctx, tx, toUserID, true); err != nil {
			return err
		}

		// the single-owner index requires the demotion first
		if err := setRole(ctx, tx, fromUserID, permission.RoleAdmin); err != nil {
			return err
		}
		return setRole(ctx, tx, toUserID, permission.RoleOwner)
	})
}

func (p *Postgres) ExistsUserID(ctx context.Context, userID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var ok bool
	if err := p.db.QueryRowContext(ctx, query, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

// CreateAccount inserts the user profile and its account in one transaction.
func (p *Postgres) CreateAccount(ctx context.Context, rec shiftAuth.NewAccountRecord) (int64, error) {
	if !rec.Role.Valid() {
		return 0, permission.ErrUnknownRole
	}

	var userID int64
	err := WithTx(ctx, p.db, nil, func(ctx context.Context, tx DBTX) error {
		userQuery :=
			`INSERT INTO users (full_name)
			 VALUES ($1)
			 RETURNING id
			 `
		if err := tx.QueryRowContext(ctx, userQuery, rec.FullName).Scan(&userID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		accountQuery :=
			`INSERT INTO accounts (user_id, username, password_hash, role)
			 VALUES ($1, $2, $3, $4)
			 `
		if _, err := tx.ExecContext(ctx, accountQuery, userID, rec.Username, rec.PasswordHash, string(rec.Role)); err != nil {
			if isUniqueViolation(err) {
				return shiftAuth.ErrAccountExists
			}
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

func roleOf(ctx context.Context, db DBTX, userID int64, forUpdate bool) (permission.Role, error) {
	query :=
		`SELECT role FROM accounts
		 WHERE user_id = $1
		 `
	if forUpdate {
		query += `FOR UPDATE`
	}

	var raw string
	if err := db.QueryRowContext(ctx, query, userID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", shiftAuth.ErrUserNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	role := permission.Role(raw)
	if !role.Valid() {
		return "", fmt.Errorf("db error: %w: %q", permission.ErrUnknownRole, raw)
	}
	return role, nil
}

func setRole(ctx context.Context, db DBTX, userID int64, role permission.Role) error {
	query :=
		`UPDATE accounts SET role = $2
		 WHERE user_id = $1
		 `
	res, err := db.ExecContext(ctx, query, userID, string(role))
	if err != nil {
		if isUniqueViolation(err) {
			return shiftAuth.ErrForbidden
		}
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (shiftAuth.Account, error) {
	var (
		acct      shiftAuth.Account
		role      string
		keyID     sql.NullString
		hash      sql.NullString
		createdAt sql.NullTime
	)

	err := row.Scan(&acct.UserID, &acct.Username, &acct.PasswordHash, &role, &keyID, &hash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shiftAuth.Account{}, shiftAuth.ErrUserNotFound
		}
		return shiftAuth.Account{}, fmt.Errorf("db error: %w", err)
	}

	acct.Role = permission.Role(role)
	if !acct.Role.Valid() {
		return shiftAuth.Account{}, fmt.Errorf("db error: %w: %q", permission.ErrUnknownRole, role)
	}
	if keyID.Valid {
		acct.APIKey = &shiftAuth.APIKeyRecord{
			KeyID:      keyID.String,
			SecretHash: hash.String,
			CreatedAt:  createdAt.Time.UTC(),
		}
	}
	return acct, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return shiftAuth.ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

var _ shiftAuth.AccountDirectory = (*Postgres)(nil)
