// Package session keeps the logged-in user in a signed cookie and gates
// handlers on login and admin role.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"asrama/internal/core"
	applog "asrama/internal/log"
	"asrama/internal/restapi"
)

const CookieName = "asrama_session"

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session")
)

// Session is the authenticated state of one browser. Token is the data
// backend's bearer token, empty for backends that do not issue one.
type Session struct {
	Token     string
	User      core.User
	ExpiresAt time.Time
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.User.IsAdmin()
}

type claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"tok,omitempty"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	logger *applog.Logger
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration, secure bool, logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		logger: logger.WithComponent(applog.ComponentSession),
		now:    time.Now,
	}
}

// Issue signs a session for user and sets it as an HttpOnly cookie.
func (m *Manager) Issue(w http.ResponseWriter, user core.User, backendToken string) (*Session, error) {
	now := m.now()
	s := &Session{
		Token:     backendToken,
		User:      user,
		ExpiresAt: now.Add(m.ttl),
	}
	c := claims{
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		Token: backendToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// Load reads and verifies the session cookie.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}

	var c claims
	_, err = jwt.ParseWithClaims(cookie.Value, &c, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	return &Session{
		Token: c.Token,
		User: core.User{
			ID:    c.Subject,
			Name:  c.Name,
			Email: c.Email,
			Role:  c.Role,
		},
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type contextKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	ctx = context.WithValue(ctx, contextKey{}, s)
	if s.Token != "" {
		ctx = restapi.WithToken(ctx, s.Token)
	}
	return ctx
}

// FromContext returns the request's session, or nil for anonymous requests.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// Middleware loads the session once per request. Invalid cookies are
// cleared and the request continues anonymously.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Load(r)
		switch {
		case err == nil:
			r = r.WithContext(NewContext(r.Context(), s))
		case errors.Is(err, ErrInvalidSession):
			m.logger.DebugContext(r.Context(), "Discarding invalid session cookie", applog.FieldError, err)
			m.Clear(w)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLogin sends anonymous visitors to the login page.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			redirect(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin lets only admins through. Anonymous visitors go to the login
// page, other users back to the dashboard.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		if s == nil {
			redirect(w, r, "/login")
			return
		}
		if !s.IsAdmin() {
			redirect(w, r, "/")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// redirect also works for HTMX requests, which ignore 3xx on XHR.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", to)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}
