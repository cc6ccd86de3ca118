package sqliteuserrepo

import (
	"database/sql"
	"time"

	"github.com/filevault/filevault/users"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var _ users.UserRepo = (*UserRepo)(nil)

// UserRepo persists users in SQLite. The *sql.DB is owned by the caller and
// shared with the other repositories.
type UserRepo struct {
	db *sql.DB
}

const userSchema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	display_name TEXT,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	created_at DATETIME NOT NULL,
	last_login DATETIME,
	verified INTEGER NOT NULL DEFAULT 0,
	blocked INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`

func New(db *sql.DB) (*UserRepo, error) {
	if _, err := db.Exec(userSchema); err != nil {
		return nil, errors.Wrap(err, "[sqliteuserrepo.New] init schema")
	}
	return &UserRepo{db: db}, nil
}

func (ur *UserRepo) Upsert(user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := ur.db.Exec(`
		INSERT INTO users (id, email, display_name, password_hash, role, created_at, last_login, verified, blocked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			password_hash = excluded.password_hash,
			role = excluded.role,
			last_login = excluded.last_login,
			verified = excluded.verified,
			blocked = excluded.blocked`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, string(user.Role),
		user.CreatedAt, nullTime(user.LastLogin), user.Verified, user.Blocked)
	if err != nil {
		return errors.Wrap(err, "[UserRepo.Upsert] exec")
	}
	return nil
}

func (ur *UserRepo) Delete(email string) error {
	res, err := ur.db.Exec(`DELETE FROM users WHERE email = ?`, email)
	if err != nil {
		return errors.Wrap(err, "[UserRepo.Delete] exec")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("not found")
	}
	return nil
}

func (ur *UserRepo) GetByEmail(email string) (*users.User, error) {
	return ur.get(`SELECT id, email, display_name, password_hash, role, created_at, last_login, verified, blocked
		FROM users WHERE email = ?`, email)
}

func (ur *UserRepo) GetByID(id string) (*users.User, error) {
	return ur.get(`SELECT id, email, display_name, password_hash, role, created_at, last_login, verified, blocked
		FROM users WHERE id = ?`, id)
}

func (ur *UserRepo) List(offset, limit int) ([]*users.User, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := ur.db.Query(`SELECT id, email, display_name, password_hash, role, created_at, last_login, verified, blocked
		FROM users ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "[UserRepo.List] query")
	}
	defer rows.Close()

	userList := make([]*users.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		userList = append(userList, user)
	}
	return userList, rows.Err()
}

func (ur *UserRepo) SetBlocked(email string, blocked bool) error {
	return ur.setFlag(`UPDATE users SET blocked = ? WHERE email = ?`, blocked, email)
}

func (ur *UserRepo) SetLastLogin(email string) error {
	res, err := ur.db.Exec(`UPDATE users SET last_login = ? WHERE email = ?`, time.Now().UTC(), email)
	if err != nil {
		return errors.Wrap(err, "[UserRepo.SetLastLogin] exec")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("not found")
	}
	return nil
}

func (ur *UserRepo) setFlag(query string, value bool, email string) error {
	res, err := ur.db.Exec(query, value, email)
	if err != nil {
		return errors.Wrap(err, "[UserRepo.setFlag] exec")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("not found")
	}
	return nil
}

func (ur *UserRepo) get(query string, arg string) (*users.User, error) {
	row := ur.db.QueryRow(query, arg)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("not found")
	}
	return user, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*users.User, error) {
	var (
		user      users.User
		role      string
		lastLogin sql.NullTime
	)
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &role,
		&user.CreatedAt, &lastLogin, &user.Verified, &user.Blocked)
	if err != nil {
		return nil, err
	}
	user.Role = users.RoleType(role)
	if lastLogin.Valid {
		user.LastLogin = lastLogin.Time
	}
	return &user, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
