package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"promptboard/internal/domain"
	"promptboard/internal/events"
	"promptboard/internal/repo"
)

const (
	MinPasswordLength = 4
	DefaultTokenTTL   = 7 * 24 * time.Hour
)

var (
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired session")
	ErrSecretMissing      = errors.New("jwt secret not configured")
)

// Service registers users and issues session tokens. A token is an HS256 JWT
// whose jti names a row in sessions, so logout revokes it server-side.
type Service struct {
	Repo   repo.Repo
	Events events.Writer
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

// Session is what clients receive after register or login.
type Session struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt" format:"date-time"`
	ExpiresAt string `json:"expiresAt" format:"date-time"`
}

// Principal is the authenticated caller.
type Principal struct {
	Email     string
	SessionID string
}

type claims struct {
	jwt.RegisteredClaims
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultTokenTTL
}

// NormalizeEmail trims and lowercases an email and checks it looks like one.
func NormalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" || !strings.Contains(e, "@") {
		return "", ErrInvalidEmail
	}
	return e, nil
}

func (s Service) Register(ctx context.Context, email, password string) (Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if len([]rune(password)) < MinPasswordLength {
		return Session{}, ErrPasswordTooShort
	}
	if strings.TrimSpace(s.Secret) == "" {
		return Session{}, ErrSecretMissing
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC().Format(time.RFC3339)

	tx, err := s.Repo.DB.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()
	if err := s.Repo.InsertUser(ctx, tx, domain.User{Email: email, PasswordHash: string(hash), CreatedAt: now}); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, err
	}
	if err := s.Events.Append(ctx, tx, events.UserRegistered, "user", email, email, nil); err != nil {
		return Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return Session{}, err
	}
	return s.issue(ctx, email)
}

func (s Service) Login(ctx context.Context, email, password string) (Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	u, err := s.Repo.GetUser(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(ctx, email)
}

func (s Service) issue(ctx context.Context, email string) (Session, error) {
	if strings.TrimSpace(s.Secret) == "" {
		return Session{}, ErrSecretMissing
	}
	issued := s.now().UTC().Truncate(time.Second)
	expires := issued.Add(s.ttl())
	id := uuid.NewString()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   email,
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	}}).SignedString([]byte(s.Secret))
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	sess := domain.Session{
		ID:        id,
		Email:     email,
		CreatedAt: issued.Format(time.RFC3339),
		ExpiresAt: expires.Format(time.RFC3339),
	}
	if err := s.Repo.InsertSession(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return Session{Token: token, Email: email, CreatedAt: sess.CreatedAt, ExpiresAt: sess.ExpiresAt}, nil
}

// Authenticate validates the token signature, expiry and backing session row.
func (s Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	if strings.TrimSpace(s.Secret) == "" {
		return Principal{}, ErrSecretMissing
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	c := &claims{}
	parsed, err := parser.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return []byte(s.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	if c.Subject == "" || c.ID == "" {
		return Principal{}, ErrInvalidToken
	}
	sess, err := s.Repo.GetSession(ctx, c.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return Principal{}, ErrInvalidToken
	}
	if err != nil {
		return Principal{}, err
	}
	if sess.Email != c.Subject {
		return Principal{}, ErrInvalidToken
	}
	return Principal{Email: sess.Email, SessionID: sess.ID}, nil
}

// Logout deletes the session; the token stops authenticating immediately.
func (s Service) Logout(ctx context.Context, p Principal) error {
	return s.Repo.DeleteSession(ctx, p.SessionID)
}

// PurgeExpired removes sessions past their expiry.
func (s Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.Repo.DeleteExpiredSessions(ctx, s.now().UTC().Format(time.RFC3339))
}
