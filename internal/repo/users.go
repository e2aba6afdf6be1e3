package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"promptboard/internal/domain"
)

// InsertUser stores a user. PasswordHash must already contain the hashed value.
func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	if u.Email == "" {
		return errors.New("email required")
	}
	if u.PasswordHash == "" {
		return errors.New("password_hash required")
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO users(email, password_hash, created_at) VALUES (?,?,?)`,
		u.Email, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r Repo) GetUser(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := r.DB.QueryRowContext(ctx, `SELECT email, password_hash, created_at FROM users WHERE email=?`, email).
		Scan(&u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

func (r Repo) InsertSession(ctx context.Context, s domain.Session) error {
	if s.ID == "" || s.Email == "" {
		return errors.New("session id and email required")
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sessions(id, email, created_at, expires_at) VALUES (?,?,?,?)`,
		s.ID, s.Email, s.CreatedAt, s.ExpiresAt)
	return err
}

func (r Repo) GetSession(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	err := r.DB.QueryRowContext(ctx, `SELECT id, email, created_at, expires_at FROM sessions WHERE id=?`, id).
		Scan(&s.ID, &s.Email, &s.CreatedAt, &s.ExpiresAt)
	if err == sql.ErrNoRows {
		return domain.Session{}, ErrNotFound
	}
	return s, err
}

// DeleteSession removes a session; deleting an unknown session is not an error.
func (r Repo) DeleteSession(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id required")
	}
	_, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, id)
	return err
}

// DeleteExpiredSessions removes sessions that expired before now (RFC3339).
func (r Repo) DeleteExpiredSessions(ctx context.Context, now string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
