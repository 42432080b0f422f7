package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/logging"
)

const (
	AccessCookie  = "accessToken"
	refreshCookie = "refreshToken"
	principalKey  = "principal"
)

type Refresher interface {
	RefreshSession(ctx context.Context, refreshToken, accessToken string) (*RefreshResponse, error)
}

type Middleware struct {
	Secret        []byte
	Refresher     Refresher
	SecureCookies bool
}

// CurrentUser returns the principal resolved for this request, if any.
func CurrentUser(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}

func SetCurrentUser(c echo.Context, p Principal) {
	c.Set(principalKey, p)
}

// Resolve attaches the caller's principal when a valid session is present.
// It never rejects a request; anonymous callers pass through.
func (m *Middleware) Resolve(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := sessionToken(c)
		if token == "" {
			return next(c)
		}

		claims, err := ParseSession(token, m.Secret)
		if err == nil {
			m.attach(c, claims)
			return next(c)
		}

		l := logging.FromContext(c.Request().Context()).With("middleware", "identity.resolve")
		if !errors.Is(err, jwt.ErrTokenExpired) || m.Refresher == nil {
			l.Debug("session_rejected", "error", err)
			m.clearCookies(c)
			return next(c)
		}

		rc, rErr := c.Cookie(refreshCookie)
		if rErr != nil || rc.Value == "" {
			m.clearCookies(c)
			return next(c)
		}

		refreshed, refErr := m.Refresher.RefreshSession(c.Request().Context(), rc.Value, token)
		if refErr != nil {
			l.Warn("session_refresh_failed", "error", refErr)
			m.clearCookies(c)
			return next(c)
		}

		newClaims, pErr := ParseSession(refreshed.AccessToken, m.Secret)
		if pErr != nil {
			l.Warn("refreshed_session_invalid", "error", pErr)
			m.clearCookies(c)
			return next(c)
		}

		c.SetCookie(m.cookie(AccessCookie, refreshed.AccessToken, time.Unix(refreshed.AccessExp, 0)))
		c.SetCookie(m.cookie(refreshCookie, refreshed.RefreshToken, time.Unix(refreshed.RefreshExp, 0)))
		m.attach(c, newClaims)
		return next(c)
	}
}

// RequireAuth rejects requests Resolve left anonymous.
func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := CurrentUser(c); !ok {
			return apperr.Unauthenticated("sign in to continue")
		}
		return next(c)
	}
}

func (m *Middleware) attach(c echo.Context, claims *SessionClaims) {
	p, err := claims.Principal()
	if err != nil {
		logging.FromContext(c.Request().Context()).Warn("session_bad_subject", "error", err)
		return
	}
	SetCurrentUser(c, p)
}

func sessionToken(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

func (m *Middleware) cookie(name, value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   m.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Middleware) clearCookies(c echo.Context) {
	for _, name := range []string{AccessCookie, refreshCookie} {
		ck := m.cookie(name, "", time.Unix(0, 0))
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}
