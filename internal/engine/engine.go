package engine

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"promptboard/internal/config"
	"promptboard/internal/engine/auth"
	"promptboard/internal/events"
	"promptboard/internal/intent"
	"promptboard/internal/repo"
)

// Engine owns the application operations around the intent interpreter:
// tasks, interpretation history, sessions and the raw chat proxy. It is a
// value type; copies share the database handle.
type Engine struct {
	DB          *sql.DB
	Repo        repo.Repo
	Events      events.Writer
	Config      *config.Config
	Interpreter intent.Interpreter
	Secret      string
	Logger      *zap.Logger
	Now         func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:          db,
		Repo:        repo.Repo{DB: db},
		Config:      cfg,
		Interpreter: intent.Interpreter{MaxInputLength: cfg.Interpret.MaxInputLength},
		Now:         time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e Engine) writer() events.Writer {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

// Auth returns the session service bound to this engine's store and clock.
func (e Engine) Auth() auth.Service {
	return auth.Service{
		Repo:   e.Repo,
		Events: e.writer(),
		Secret: e.Secret,
		TTL:    e.Config.Auth.TokenTTL,
		Now:    e.now,
	}
}
