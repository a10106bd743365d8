package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"
)

// ErrInvalidToken is returned for malformed, forged or expired tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// DefaultTokenTTL matches the lifetime of the Auth cookie.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Token is a decoded session token.
type Token struct {
	UserKey  string `json:"k"`
	IssuedAt int64  `json:"t"`
}

// ExpiresAt returns when a token issued at IssuedAt stops being valid.
func (t Token) ExpiresAt(ttl time.Duration) time.Time {
	return time.Unix(t.IssuedAt, 0).Add(ttl)
}

// Tokens signs and verifies session tokens. Values are HMAC-signed
// securecookie encodings bound to the Auth cookie name.
type Tokens struct {
	codec *securecookie.SecureCookie
	ttl   time.Duration
	now   func() time.Time
}

// NewTokens creates a signer. An empty secret gets a random one, which
// invalidates every token on restart.
func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		if secret == nil {
			panic("auth: generating token secret")
		}
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	// Lifetime is checked against IssuedAt so renewals and the clock stay
	// under our control; the codec's own max age is off.
	codec := securecookie.New(secret, nil).
		SetSerializer(securecookie.JSONEncoder{}).
		MaxAge(0)
	return &Tokens{codec: codec, ttl: ttl, now: time.Now}
}

// TTL returns the token lifetime.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue returns a token for userKey stamped with at.
func (t *Tokens) Issue(userKey string, at time.Time) (string, error) {
	raw, err := t.codec.Encode(CookieName, Token{UserKey: userKey, IssuedAt: at.Unix()})
	if err != nil {
		return "", fmt.Errorf("encoding token: %w", err)
	}
	return raw, nil
}

// Parse verifies the signature and lifetime of raw.
func (t *Tokens) Parse(raw string) (Token, error) {
	if raw == "" {
		return Token{}, ErrInvalidToken
	}
	var tk Token
	if err := t.codec.Decode(CookieName, raw, &tk); err != nil || tk.UserKey == "" {
		return Token{}, ErrInvalidToken
	}
	if !t.now().Before(tk.ExpiresAt(t.ttl)) {
		return Token{}, ErrInvalidToken
	}
	return tk, nil
}

// ExpiresSoon reports whether tk expires within d.
func (t *Tokens) ExpiresSoon(tk Token, d time.Duration) bool {
	return tk.ExpiresAt(t.ttl).Before(t.now().Add(d))
}
