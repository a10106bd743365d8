package auth

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/mail"
	"regexp"
	"slices"
	"strings"
)

var (
	// ErrInvalidUsernameOrEmail is returned for malformed credentials.
	ErrInvalidUsernameOrEmail = errors.New("invalid username or email")
	// ErrUnauthorized is returned when authentication is required but missing
	// or invalid.
	ErrUnauthorized = errors.New("unauthorized: authentication required")
	// ErrForbidden is returned when the user lacks a required role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")
	// ErrIncompleteUser is returned when a user record lacks email or username.
	ErrIncompleteUser = errors.New("user is missing an email or username")
	// ErrEmailRateLimit is returned when too many mails went to one address.
	ErrEmailRateLimit = errors.New("too many auth emails, wait a bit and try again")
	// ErrNotFound is returned when no user matches a lookup.
	ErrNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when a new account asks for a username
	// another email already owns.
	ErrUsernameTaken = errors.New("username is taken")
)

// Role is an authorization level.
type Role int

const (
	UnverifiedUser Role = 1
	VerifiedUser   Role = 2
	Admin          Role = 3
)

func (r Role) String() string {
	switch r {
	case UnverifiedUser:
		return "unverified"
	case VerifiedUser:
		return "verified"
	case Admin:
		return "admin"
	default:
		return "unknown"
	}
}

// User is an account.
type User struct {
	Key         string  `json:"key,omitempty"`
	Email       string  `json:"email,omitempty"`
	EmailMD5    string  `json:"emailmd5,omitempty"`
	Username    string  `json:"username,omitempty"`
	Description string  `json:"description,omitempty"`
	Verifier    string  `json:"-"`
	Created     int64   `json:"created,omitempty"`
	Logins      []int64 `json:"logins,omitempty"`
	Auths       []int64 `json:"-"`
	Roles       []Role  `json:"roles,omitempty"`
	Subscriber  bool    `json:"subscriber,omitempty"`
}

// IsValid reports whether the user has an email and a username.
func (u *User) IsValid() bool {
	return u.Email != "" && u.Username != ""
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role Role) bool {
	return slices.Contains(u.Roles, role)
}

// HasRoles reports whether the user holds every one of roles.
func (u *User) HasRoles(roles ...Role) bool {
	for _, r := range roles {
		if !u.HasRole(r) {
			return false
		}
	}
	return true
}

// Verified reports whether the user has confirmed their email at least once.
func (u *User) Verified() bool { return u.HasRole(VerifiedUser) || u.HasRole(Admin) }

// IsAdmin reports whether the user is an administrator.
func (u *User) IsAdmin() bool { return u.HasRole(Admin) }

// LastAuth returns the timestamp of the latest issued token, or 0.
func (u *User) LastAuth() int64 {
	if len(u.Auths) == 0 {
		return 0
	}
	return u.Auths[len(u.Auths)-1]
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,50}$`)

// ValidUsername reports whether name is 3 to 50 letters, digits, dots,
// underscores or hyphens.
func ValidUsername(name string) bool { return usernamePattern.MatchString(name) }

// ValidEmail reports whether addr is a bare email address.
func ValidEmail(addr string) bool {
	if addr == "" || strings.ContainsAny(addr, " <>") {
		return false
	}
	parsed, err := mail.ParseAddress(addr)
	return err == nil && parsed.Address == addr && strings.Contains(addr[strings.LastIndex(addr, "@"):], ".")
}

// EmailHash returns the hex MD5 of the trimmed, lowercased address, as used
// by avatar services.
func EmailHash(addr string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(addr))))
	return hex.EncodeToString(sum[:])
}
