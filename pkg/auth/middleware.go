package auth

import (
	"context"
	"net/http"
	"time"
)

// CookieName is the cookie carrying the session token.
const CookieName = "Auth"

// CookieOptions controls the attributes of the Auth cookie.
type CookieOptions struct {
	Domain string
	// Secure marks the cookie Secure and SameSite=Strict. Off in dev mode.
	Secure bool
}

// SetCookie writes token as the Auth cookie.
func SetCookie(w http.ResponseWriter, token string, ttl time.Duration, opts CookieOptions) {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if opts.Secure {
		c.Domain = opts.Domain
		c.Secure = true
		c.SameSite = http.SameSiteStrictMode
	}
	http.SetCookie(w, c)
}

// ClearCookie expires the Auth cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

type userContextKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext returns the user Middleware resolved for this request.
func UserFromContext(ctx context.Context) (*User, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(userContextKey{}).(*User)
	return u, ok && u != nil
}

// Middleware resolves the Auth cookie to a user and stores it in the
// request context. Invalid cookies are cleared; near-expiry tokens are
// renewed.
func (s *Service) Middleware(opts CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			u, renewed, err := s.Authorize(r.Context(), cookie.Value)
			if err != nil {
				ClearCookie(w)
				next.ServeHTTP(w, r)
				return
			}
			if renewed != "" {
				SetCookie(w, renewed, s.tokens.TTL(), opts)
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireUser rejects requests without an authenticated user.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects requests whose user lacks any of roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
				return
			}
			if !u.HasRoles(roles...) {
				http.Error(w, ErrForbidden.Error(), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
