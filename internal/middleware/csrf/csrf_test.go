package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apperr"
)

func newEcho(cfg Config) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.NoContent(apperr.HTTPStatus(err))
	}
	e.Use(Middleware(cfg))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/form", ok)
	e.POST("/submit", ok)
	e.POST("/hook", ok)
	return e
}

func TestCSRF_GetIssuesToken(t *testing.T) {
	e := newEcho(Config{})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/form", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	assert.NotEmpty(t, token)
	require.NotEmpty(t, rec.Result().Cookies())
	assert.Equal(t, token, rec.Result().Cookies()[0].Value)
}

func TestCSRF_PostChecks(t *testing.T) {
	e := newEcho(Config{SkipPaths: []string{"/hook"}})

	tests := []struct {
		name   string
		path   string
		cookie string
		header string
		origin string
		want   int
	}{
		{"matching token", "/submit", "tok", "tok", "http://example.com", http.StatusOK},
		{"missing header", "/submit", "tok", "", "http://example.com", http.StatusForbidden},
		{"wrong token", "/submit", "tok", "other", "http://example.com", http.StatusForbidden},
		{"cross origin", "/submit", "tok", "tok", "http://evil.test", http.StatusForbidden},
		{"skipped path", "/hook", "", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCSRF_CookieOnlySkipsBearerClients(t *testing.T) {
	e := newEcho(Config{Skipper: CookieOnly("accessToken")})

	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "jwt"})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
