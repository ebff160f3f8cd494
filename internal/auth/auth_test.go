package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/markbates/goth"
	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/petermazzocco/findit/internal/config"
	"github.com/petermazzocco/findit/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	HashCost = bcrypt.MinCost
}

type fakeUsers map[uint]*models.User

func (f fakeUsers) GetUser(_ context.Context, id uint) (*models.User, error) {
	if id == 99 {
		return nil, errors.New("connection reset")
	}
	u, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return u, nil
}

func requestAs(id uint) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if id != 0 {
		r = r.WithContext(WithUserID(r.Context(), id))
	}
	return r
}

func TestAuthenticatedGate(t *testing.T) {
	gate := Authenticated()

	d := gate(requestAs(0))
	assert.False(t, d.Allowed())
	assert.Equal(t, apperr.KindAuthRequired, apperr.KindOf(d.Err))

	assert.True(t, gate(requestAs(7)).Allowed())
}

func TestAdminGate(t *testing.T) {
	users := fakeUsers{
		1: {ID: 1, Username: "root", IsAdmin: true},
		2: {ID: 2, Username: "alice"},
	}
	gate := Admin(users)

	cases := []struct {
		name string
		id   uint
		kind apperr.Kind
		ok   bool
	}{
		{"no session", 0, apperr.KindAuthRequired, false},
		{"admin", 1, 0, true},
		{"regular user", 2, apperr.KindForbidden, false},
		{"deleted user", 3, apperr.KindForbidden, false},
		{"lookup failure", 99, apperr.KindInternal, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := gate(requestAs(tc.id))
			assert.Equal(t, tc.ok, d.Allowed())
			if !tc.ok {
				assert.Equal(t, tc.kind, apperr.KindOf(d.Err))
			}
		})
	}

	// Revoking the flag takes effect on the next request.
	users[1].IsAdmin = false
	assert.False(t, gate(requestAs(1)).Allowed())
}

func TestRequire(t *testing.T) {
	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})
	var denied error
	deny := func(w http.ResponseWriter, r *http.Request, err error) {
		denied = err
		w.WriteHeader(apperr.KindOf(err).Status())
	}
	h := Require(Authenticated(), deny)(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestAs(0))
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.ErrAuthRequired, denied)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestAs(5))
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
	assert.False(t, CheckPassword("not-a-hash", "hunter22"))
}

func newTestSessions(t *testing.T) *Sessions {
	t.Helper()
	store, err := NewFilesystemStore(config.Config{
		SecretKey:       "test-secret",
		SessionDir:      t.TempDir(),
		SessionLifetime: time.Hour,
	})
	require.NoError(t, err)
	return NewSessions(store, "test_session", nil)
}

func cookiesFrom(rec *httptest.ResponseRecorder) []*http.Cookie {
	return rec.Result().Cookies()
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestSessions(t)

	// Login sets an http-only, lax cookie.
	rec := httptest.NewRecorder()
	require.NoError(t, s.Login(rec, httptest.NewRequest(http.MethodPost, "/login", nil), 42))
	cookies := cookiesFrom(rec)
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	// The cookie resolves to the user through the middleware.
	var seen uint
	h := s.UserMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, uint(42), seen)

	// Logout expires the cookie and the server side payload.
	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	require.NoError(t, s.Logout(rec, req))
	out := cookiesFrom(rec)
	require.Len(t, out, 1)
	assert.True(t, out[0].MaxAge < 0)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	_, ok := s.UserID(req)
	assert.False(t, ok, "old cookie must not resolve after logout")
}

func TestLoginIssuesFreshSession(t *testing.T) {
	s := newTestSessions(t)

	rec := httptest.NewRecorder()
	require.NoError(t, s.Login(rec, httptest.NewRequest(http.MethodPost, "/login", nil), 7))
	first := cookiesFrom(rec)
	require.Len(t, first, 1)

	// Logging in again while holding a session replaces it.
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(first[0])
	rec = httptest.NewRecorder()
	require.NoError(t, s.Login(rec, req, 42))
	out := cookiesFrom(rec)
	require.NotEmpty(t, out)
	second := out[len(out)-1]
	assert.True(t, second.MaxAge > 0)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(first[0])
	_, ok := s.UserID(req)
	assert.False(t, ok, "previous session must not survive a login")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(second)
	id, ok := s.UserID(req)
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)
}

func TestSessionWithoutOrBadCookie(t *testing.T) {
	s := newTestSessions(t)

	_, ok := s.UserID(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "tampered"})
	_, ok = s.UserID(req)
	assert.False(t, ok)

	// Logging out without a session is fine.
	assert.NoError(t, s.Logout(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil)))
}

func TestBaseUsername(t *testing.T) {
	assert.Equal(t, "jdoe", BaseUsername(goth.User{NickName: "JDoe", Email: "x@example.com"}))
	assert.Equal(t, "jane_doe", BaseUsername(goth.User{Email: "jane.doe@example.com"}))
	assert.Equal(t, "jane_smith", BaseUsername(goth.User{Email: "j@x.io", Name: "Jane Smith"}))
	assert.Equal(t, "user", BaseUsername(goth.User{}))
}
