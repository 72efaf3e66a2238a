package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/sadoj/intel-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

const SessionCookieName = "session_id"

type SessionFetcher interface {
	FindSessionByID(ctx context.Context, id string) (utils.SessionData, error)
}

// SessionRefresher is implemented by fetchers that support sliding expiry.
type SessionRefresher interface {
	RefreshSession(ctx context.Context, id string) (time.Time, error)
}

// SecureCookies is implemented by fetchers whose session cookie may only be
// sent over HTTPS.
type SecureCookies interface {
	SecureCookies() bool
}

// SessionCookie builds the session cookie. A negative maxAge deletes it.
func SessionCookie(value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
}

func SessionMiddleware(fetcher SessionFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "Couldn't find cookie", http.StatusUnauthorized)
				return
			}

			session, err := fetcher.FindSessionByID(r.Context(), cookie.Value)
			if err != nil {
				http.Error(w, "Couldn't find session", http.StatusUnauthorized)
				return
			}

			if session.ExpiresAt.Before(time.Now()) {
				http.Error(w, "Session expired", http.StatusUnauthorized)
				return
			}

			if refresher, ok := fetcher.(SessionRefresher); ok {
				expiresAt, err := refresher.RefreshSession(r.Context(), session.SessionID)
				if err != nil {
					logrus.Warnf("refresh session for user %s: %v", session.UserID, err)
				} else {
					session.ExpiresAt = expiresAt
					reissueCookie(w, fetcher, session)
				}
			}

			next.ServeHTTP(w, r.WithContext(utils.WithSession(r.Context(), session)))
		})
	}
}

// reissueCookie moves the browser's cookie expiry along with the session's.
func reissueCookie(w http.ResponseWriter, fetcher SessionFetcher, session utils.SessionData) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	if maxAge < 1 {
		return
	}
	secure := false
	if sc, ok := fetcher.(SecureCookies); ok {
		secure = sc.SecureCookies()
	}
	cookie := SessionCookie(session.SessionID, maxAge, secure)
	cookie.Expires = session.ExpiresAt.UTC()
	http.SetCookie(w, cookie)
}

type RoleLookup interface {
	FindRole(ctx context.Context, userID string) (string, error)
}

const RoleAdmin = "admin"

// AdminMiddleware must run after SessionMiddleware.
func AdminMiddleware(roles RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized: missing user ID in context", http.StatusUnauthorized)
				return
			}

			role, err := roles.FindRole(r.Context(), userID)
			if err != nil {
				http.Error(w, "Unauthorized: user not found", http.StatusUnauthorized)
				return
			}

			if role != RoleAdmin {
				http.Error(w, "Forbidden: admin access required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
