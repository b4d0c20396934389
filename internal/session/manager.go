package session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Config holds cookie and lifetime settings.
type Config struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager ties the session store to the session cookie.
type Manager struct {
	store  Store
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(store Store, cfg Config, logger *slog.Logger) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "STOCKFLOW_SESSION"
	}
	return &Manager{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// Start creates and stores a session and sets the cookie.
func (m *Manager) Start(c echo.Context, username, tenantID string, roles []string) (*Session, error) {
	s, err := New(username, tenantID, roles, m.now(), m.cfg.TTL)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(c.Request().Context(), s); err != nil {
		return nil, err
	}

	c.SetCookie(&http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// End deletes the session named by the cookie and expires the cookie.
func (m *Manager) End(c echo.Context) error {
	cookie, err := c.Cookie(m.cfg.CookieName)
	if err == nil && cookie.Value != "" {
		if err := m.store.Delete(c.Request().Context(), cookie.Value); err != nil {
			return err
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Middleware loads the session named by the cookie onto the request
// context. Missing, expired or unreadable sessions leave the request
// anonymous.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(m.cfg.CookieName)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			req := c.Request()
			s, err := m.store.Get(req.Context(), cookie.Value)
			switch {
			case errors.Is(err, ErrNotFound):
				return next(c)
			case err != nil:
				m.logger.WarnContext(req.Context(), "failed to load session", "error", err)
				return next(c)
			case s.IsExpired(m.now()):
				return next(c)
			}

			c.SetRequest(req.WithContext(WithSession(req.Context(), s)))
			return next(c)
		}
	}
}
