package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tijara-apps/tijara/internal/platform/httpx"
	"github.com/tijara-apps/tijara/internal/shared"
)

type stubRepo struct {
	sessions map[string]Session
	tokens   map[string]string
}

func newStubRepo() *stubRepo {
	return &stubRepo{sessions: map[string]Session{}, tokens: map[string]string{}}
}

func (s *stubRepo) Get(ctx context.Context, id string) (Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.ExpiresAt != nil && !sess.ExpiresAt.After(time.Now()) {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *stubRepo) Create(ctx context.Context, sess Session) error {
	s.sessions[sess.ID] = sess
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func (s *stubRepo) TokenForShop(ctx context.Context, shop string) (string, error) {
	token, ok := s.tokens[shop]
	if !ok {
		return "", ErrSessionNotFound
	}
	return token, nil
}

func hash(t *testing.T, password string) string {
	t.Helper()
	raw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(raw)
}

func newTestRouter(repo Repository, passwordHash string) (http.Handler, *Service) {
	svc := NewService(repo, passwordHash)
	handler := NewHandler(slog.Default(), svc, false)
	r := chi.NewRouter()
	r.Use(Middleware(svc, slog.Default()))
	r.Route("/auth", handler.MountRoutes)
	return r, svc
}

func TestDevLoginMintsSession(t *testing.T) {
	repo := newStubRepo()
	router, _ := newTestRouter(repo, hash(t, "hunter2"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/dev-login",
		strings.NewReader(`{"shop":"shop.example.com","password":"hunter2"}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "session cookie must be set")
	assert.True(t, cookie.HttpOnly)

	sess, ok := repo.sessions[cookie.Value]
	require.True(t, ok)
	assert.Equal(t, "shop.example.com", sess.Shop)
	assert.Equal(t, "dev", sess.State)
}

func TestDevLoginRejectsWrongPassword(t *testing.T) {
	router, _ := newTestRouter(newStubRepo(), hash(t, "hunter2"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/dev-login",
		strings.NewReader(`{"shop":"shop.example.com","password":"wrong"}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDevLoginDisabledWithoutHash(t *testing.T) {
	router, _ := newTestRouter(newStubRepo(), "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/dev-login",
		strings.NewReader(`{"shop":"shop.example.com","password":"anything"}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDevLoginValidatesBody(t *testing.T) {
	router, _ := newTestRouter(newStubRepo(), hash(t, "hunter2"))

	for _, body := range []string{
		`{`,
		`{"password":"hunter2"}`,
		`{"shop":"not a hostname !","password":"hunter2"}`,
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/dev-login", strings.NewReader(body))
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestMiddlewareResolvesCookieToIdentity(t *testing.T) {
	repo := newStubRepo()
	expires := time.Now().Add(time.Hour)
	repo.sessions["sess-1"] = Session{
		ID:          "sess-1",
		Shop:        "shop.example.com",
		AccessToken: "storefront-token",
		ExpiresAt:   &expires,
	}
	svc := NewService(repo, "")

	var seen *shared.Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.IdentityFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "sess-1"})
	Middleware(svc, slog.Default())(inner).ServeHTTP(rec, req)

	require.NotNil(t, seen)
	assert.Equal(t, "shop.example.com", seen.Shop)
	assert.Equal(t, "storefront-token", seen.AccessToken)
}

func TestMiddlewareIgnoresExpiredSession(t *testing.T) {
	repo := newStubRepo()
	expired := time.Now().Add(-time.Minute)
	repo.sessions["sess-1"] = Session{ID: "sess-1", Shop: "shop.example.com", ExpiresAt: &expired}
	svc := NewService(repo, "")

	var seen *shared.Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.IdentityFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "sess-1"})
	Middleware(svc, slog.Default())(inner).ServeHTTP(rec, req)

	assert.Nil(t, seen, "expired sessions must not authenticate")
}

func TestRequireShopRejectsAnonymous(t *testing.T) {
	handler := RequireShop(func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, map[string]any{"success": true})
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
}

func TestLogoutDeletesSessionAndClearsCookie(t *testing.T) {
	repo := newStubRepo()
	expires := time.Now().Add(time.Hour)
	repo.sessions["sess-1"] = Session{ID: "sess-1", Shop: "shop.example.com", ExpiresAt: &expires}
	router, _ := newTestRouter(repo, "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "sess-1"})
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := repo.sessions["sess-1"]
	assert.False(t, ok)

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "cookie must be expired on logout")
}
