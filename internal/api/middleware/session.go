package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/eshaffer321/cartsync/internal/api/dto"
	"github.com/eshaffer321/cartsync/internal/api/shop"
)

// SessionCookie names the cookie carrying the session ID.
const SessionCookie = "sessionid"

// CSRFHeader is the header alternative to the CSRF form field.
const CSRFHeader = "X-CSRFToken"

type sessionKey struct{}

// Sessions attaches the shopper's session to the request context, starting
// a new one when the cookie is missing or unknown.
func Sessions(store *shop.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *shop.Session
			if c, err := r.Cookie(SessionCookie); err == nil {
				sess, _ = store.Get(c.Value)
			}
			if sess == nil {
				sess = store.New()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sess.ID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
		})
	}
}

// SessionFrom returns the session attached by Sessions.
func SessionFrom(ctx context.Context) (*shop.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*shop.Session)
	return sess, ok
}

// CSRF rejects unsafe requests whose token, read from field or the
// X-CSRFToken header, does not match the session's. It must run after
// Sessions.
func CSRF(field string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			sess, ok := SessionFrom(r.Context())
			token := r.PostFormValue(field)
			if token == "" {
				token = r.Header.Get(CSRFHeader)
			}
			if !ok || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(sess.CSRFToken)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(dto.ForbiddenError("CSRF verification failed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
