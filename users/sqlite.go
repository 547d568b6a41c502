package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	sqlite3 "github.com/mattn/go-sqlite3"
)

type (
	// Control is the SQLite backed Store.
	Control struct {
		db  *sql.DB
		now func() time.Time
	}
)

var _ Store = (*Control)(nil)

func openUserDatabase(ctx context.Context, file string) (*sql.DB, error) {
	err := os.MkdirAll(filepath.Dir(file), 0755)
	if err != nil {
		return nil, fmt.Errorf("unable to create directory to store %v, cause %w", file, err)
	}
	connstr := fmt.Sprintf("file:%v?_journal=wal&_busy_timeout=5000&_fk=true&mode=rwc", file)
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %w", file, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping user database %v, cause %w", file, err)
	}
	return conn, nil
}

// OpenSQLite opens (creating when needed) the user database at file.
func OpenSQLite(ctx context.Context, file string) (*Control, error) {
	conn, err := openUserDatabase(ctx, file)
	if err != nil {
		return nil, err
	}
	c := &Control{db: conn, now: time.Now}
	err = c.init(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to init user database %v, cause %w", file, err)
	}
	return c, nil
}

func (c *Control) Create(ctx context.Context, u *User) error {
	u.Prepare(c.now())
	_, err := c.db.ExecContext(ctx, `insert into users(user_id, login, login_hash64, password, provider, subject, secret, created_at)
	values (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Login, loginHash(u.Login), u.Password, u.Provider, u.Subject, u.Secret, u.CreatedAt.UnixNano())
	if isUniqueViolation(err) {
		return LoginTaken{Login: u.Login}
	} else if err != nil {
		return fmt.Errorf("unable to create user %v, cause %w", u.Login, err)
	}
	return nil
}

func (c *Control) FindByLogin(ctx context.Context, login string) (*User, error) {
	login = NormalizeLogin(login)
	u, err := c.scanUser(c.db.QueryRowContext(ctx, `select `+userColumns+` from users
	where login_hash64 = ? and login = ?`, loginHash(login), login))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound{Key: login}
	} else if err != nil {
		return nil, fmt.Errorf("unable to lookup user %v, cause %w", login, err)
	}
	return u, nil
}

func (c *Control) FindByID(ctx context.Context, id string) (*User, error) {
	u, err := c.scanUser(c.db.QueryRowContext(ctx, `select `+userColumns+` from users where user_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound{Key: id}
	} else if err != nil {
		return nil, fmt.Errorf("unable to lookup user %v, cause %w", id, err)
	}
	return u, nil
}

func (c *Control) FindOrCreateBySubject(ctx context.Context, provider, subject, login string) (*User, error) {
	if subject == "" || provider == "" {
		return nil, errors.New("provider and subject are required")
	}
	u, err := c.findBySubject(ctx, provider, subject)
	if err == nil {
		return u, nil
	} else if !errors.As(err, &NotFound{}) {
		return nil, err
	}
	for _, candidate := range []string{login, FederatedLogin(provider, subject)} {
		if NormalizeLogin(candidate) == "" {
			continue
		}
		u = &User{Login: candidate, Provider: provider, Subject: subject}
		err = c.Create(ctx, u)
		if err == nil {
			return u, nil
		} else if !errors.As(err, &LoginTaken{}) {
			return nil, err
		}
	}
	// someone else created the same identity in the meantime
	return c.findBySubject(ctx, provider, subject)
}

func (c *Control) findBySubject(ctx context.Context, provider, subject string) (*User, error) {
	u, err := c.scanUser(c.db.QueryRowContext(ctx, `select `+userColumns+` from users
	where provider = ? and subject = ?`, provider, subject))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound{Key: FederatedLogin(provider, subject)}
	} else if err != nil {
		return nil, fmt.Errorf("unable to lookup federated user %v, cause %w", FederatedLogin(provider, subject), err)
	}
	return u, nil
}

func (c *Control) SetSecret(ctx context.Context, id, secret string) error {
	res, err := c.db.ExecContext(ctx, `update users set secret = ? where user_id = ?`, secret, id)
	if err != nil {
		return fmt.Errorf("unable to store secret for user %v, cause %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to store secret for user %v, cause %w", id, err)
	} else if n == 0 {
		return NotFound{Key: id}
	}
	return nil
}

func (c *Control) ListSecrets(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `select secret from users where secret <> '' order by created_at asc, rowid asc`)
	if err != nil {
		return nil, fmt.Errorf("unable to list secrets, cause %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		err = rows.Scan(&s)
		if err != nil {
			return nil, fmt.Errorf("unable to scan secret, cause %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *Control) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Control) Close() error {
	return c.db.Close()
}

const userColumns = `user_id, login, password, provider, subject, secret, created_at`

func (c *Control) scanUser(row *sql.Row) (*User, error) {
	var u User
	var created int64
	err := row.Scan(&u.ID, &u.Login, &u.Password, &u.Provider, &u.Subject, &u.Secret, &created)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(0, created).UTC()
	return &u, nil
}

func (c *Control) init(ctx context.Context) error {
	for _, cmd := range []string{
		`create table if not exists users(
			user_id text not null primary key,
			login text not null,
			login_hash64 integer not null,
			password text not null default '',
			provider text not null default '',
			subject text not null default '',
			secret text not null default '',
			created_at integer not null
		)`,
		`create unique index if not exists uidx_users_login
			on users(login)`,
		`create index if not exists idx_users_login_hash64
			on users(login_hash64)`,
		`create unique index if not exists uidx_users_identity
			on users(provider, subject) where subject <> ''`,
	} {
		_, err := c.db.ExecContext(ctx, cmd)
		if err != nil {
			return err
		}
	}
	return nil
}

func loginHash(login string) int64 {
	return int64(xxhash.Sum64String(login))
}

func isUniqueViolation(err error) bool {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	return sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
