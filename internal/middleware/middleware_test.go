package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sadoj/intel-backend/internal/middleware"
	"github.com/sadoj/intel-backend/internal/utils"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFetcher implements middleware.SessionFetcher without any database dependency.
type mockFetcher struct {
	session utils.SessionData
	err     error
}

func (m mockFetcher) FindSessionByID(ctx context.Context, id string) (utils.SessionData, error) {
	return m.session, m.err
}

// refreshingFetcher also implements middleware.SessionRefresher.
type refreshingFetcher struct {
	mockFetcher
	refreshed  string
	newExpires time.Time
}

func (f *refreshingFetcher) RefreshSession(ctx context.Context, id string) (time.Time, error) {
	f.refreshed = id
	return f.newExpires, nil
}

type mockRoles map[string]string

func (m mockRoles) FindRole(ctx context.Context, userID string) (string, error) {
	role, ok := m[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return role, nil
}

// callWithCookie wraps a simple 200-OK inner handler in the provided middleware,
// optionally setting one cookie on the request, and returns the recorded response.
func callWithCookie(t *testing.T, mw func(http.Handler) http.Handler, cookieName, cookieValue string) *httptest.ResponseRecorder {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := mw(inner)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if cookieName != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: cookieValue})
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSessionMiddleware_MissingCookie(t *testing.T) {
	rec := callWithCookie(t, middleware.SessionMiddleware(mockFetcher{}), "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionMiddleware_ExpiredSession(t *testing.T) {
	fetcher := mockFetcher{
		session: utils.SessionData{
			UserID:    "some-user",
			ExpiresAt: time.Now().Add(-1 * time.Hour),
		},
	}

	rec := callWithCookie(t, middleware.SessionMiddleware(fetcher), "session_id", "expired-session-id")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Session expired")
}

func TestSessionMiddleware_FetcherError(t *testing.T) {
	fetcher := mockFetcher{err: errors.New("session not found")}

	rec := callWithCookie(t, middleware.SessionMiddleware(fetcher), "session_id", "nonexistent-session-id")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestSessionMiddleware_ValidSession checks that the user id and the edit-mode
// flag both reach the inner handler.
func TestSessionMiddleware_ValidSession(t *testing.T) {
	const wantUserID = "test-user-123"

	fetcher := mockFetcher{
		session: utils.SessionData{
			SessionID: "valid-session-id",
			UserID:    wantUserID,
			ExpiresAt: time.Now().Add(1 * time.Hour),
			EditMode:  true,
		},
	}

	var gotUserID string
	var gotSession utils.SessionData
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = utils.GetUserIDFromContext(r.Context())
		gotSession, _ = utils.GetSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := middleware.SessionMiddleware(fetcher)(inner)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session-id"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, wantUserID, gotUserID)
	assert.True(t, gotSession.EditMode)
}

func TestSessionMiddleware_RefreshesExpiry(t *testing.T) {
	newExpires := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	fetcher := &refreshingFetcher{
		mockFetcher: mockFetcher{session: utils.SessionData{
			SessionID: "sid",
			UserID:    "u1",
			ExpiresAt: time.Now().Add(time.Minute),
		}},
		newExpires: newExpires,
	}

	var got utils.SessionData
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = utils.GetSessionFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "sid"})
	rec := httptest.NewRecorder()
	middleware.SessionMiddleware(fetcher)(inner).ServeHTTP(rec, req)

	assert.Equal(t, "sid", fetcher.refreshed)
	assert.True(t, got.ExpiresAt.Equal(newExpires))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session_id", cookies[0].Name)
	assert.Equal(t, "sid", cookies[0].Value)
	assert.InDelta(t, 2*time.Hour.Seconds(), cookies[0].MaxAge, 5)
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure)
	assert.Equal(t, "/", cookies[0].Path)
}

// secureFetcher refreshes and asks for HTTPS-only cookies.
type secureFetcher struct {
	*refreshingFetcher
}

func (secureFetcher) SecureCookies() bool { return true }

func TestSessionMiddleware_ReissuedCookieKeepsSecureFlag(t *testing.T) {
	fetcher := secureFetcher{&refreshingFetcher{
		mockFetcher: mockFetcher{session: utils.SessionData{
			SessionID: "sid",
			UserID:    "u1",
			ExpiresAt: time.Now().Add(time.Minute),
		}},
		newExpires: time.Now().Add(time.Hour),
	}}

	rec := callWithCookie(t, middleware.SessionMiddleware(fetcher), "session_id", "sid")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
}

func TestSessionMiddleware_NoCookieWithoutRefresh(t *testing.T) {
	fetcher := mockFetcher{session: utils.SessionData{
		SessionID: "sid",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(time.Hour),
	}}

	rec := callWithCookie(t, middleware.SessionMiddleware(fetcher), "session_id", "sid")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestAdminMiddleware_MissingUserID(t *testing.T) {
	rec := callWithCookie(t, middleware.AdminMiddleware(mockRoles{}), "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing user ID")
}

func TestAdminMiddleware_Roles(t *testing.T) {
	roles := mockRoles{"boss": "admin", "field": "agent"}

	tests := []struct {
		userID string
		want   int
	}{
		{userID: "boss", want: http.StatusOK},
		{userID: "field", want: http.StatusForbidden},
		{userID: "ghost", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			req = req.WithContext(utils.WithSession(req.Context(), utils.SessionData{UserID: tt.userID}))
			rec := httptest.NewRecorder()
			middleware.AdminMiddleware(roles)(inner).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := middleware.NewRateLimiter(0.001, 2)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:3333"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1111"))
}

func TestRateLimiter_IgnoresForwardingHeaders(t *testing.T) {
	rl := middleware.NewRateLimiter(0.001, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var codes []int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.9:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{200, 429, 429, 429, 429}, codes)
	assert.Equal(t, 1, rl.Clients())
}

func TestAccessLogger_WritesThroughLogrus(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	handler := middleware.AccessLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/gangs", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, http.StatusTeapot, entry.Data["status"])
	assert.Equal(t, "/api/gangs", entry.Data["path"])
	assert.Equal(t, http.MethodGet, entry.Data["method"])
}

func TestCORSMiddleware_AllowList(t *testing.T) {
	handler := middleware.CORSMiddleware([]string{"https://intel.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/gangs", nil)
	req.Header.Set("Origin", "https://intel.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://intel.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/gangs", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.True(t, strings.TrimSpace(rec.Header().Get("Access-Control-Allow-Origin")) == "")
}
