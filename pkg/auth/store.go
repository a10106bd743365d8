package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sauldoescode/saul.app/internal/db"
)

// Store manages persistence of users.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a new user store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

const userColumns = `id, email, email_md5, username, description, COALESCE(verifier, ''),
	roles, subscriber, created, logins, auths`

// Create inserts a new user with the given roles.
func (s *Store) Create(ctx context.Context, email, username string, roles ...Role) (*User, error) {
	u := &User{
		Key:      uuid.New().String(),
		Email:    email,
		EmailMD5: EmailHash(email),
		Username: username,
		Created:  s.now().Unix(),
		Roles:    roles,
	}
	if !u.IsValid() {
		return nil, ErrIncompleteUser
	}
	rolesJSON, err := json.Marshal(nonNil(u.Roles))
	if err != nil {
		return nil, fmt.Errorf("encoding roles: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, email_md5, username, roles, created)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Key, u.Email, u.EmailMD5, u.Username, string(rolesJSON), u.Created,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

// ByKey retrieves a user by key.
func (s *Store) ByKey(ctx context.Context, key string) (*User, error) {
	return s.one(ctx, `id = ?`, key)
}

// ByUsername retrieves a user by username.
func (s *Store) ByUsername(ctx context.Context, username string) (*User, error) {
	return s.one(ctx, `username = ?`, username)
}

// ByEmail retrieves a user by email address.
func (s *Store) ByEmail(ctx context.Context, email string) (*User, error) {
	return s.one(ctx, `email = ?`, email)
}

// ByDetails retrieves the user owning both email and username.
func (s *Store) ByDetails(ctx context.Context, email, username string) (*User, error) {
	return s.one(ctx, `email = ? AND username = ?`, email, username)
}

// ByVerifier retrieves the user holding a pending verifier.
func (s *Store) ByVerifier(ctx context.Context, verifier string) (*User, error) {
	if verifier == "" {
		return nil, ErrNotFound
	}
	return s.one(ctx, `verifier = ?`, verifier)
}

// UserKey returns the key of the user called username.
func (s *Store) UserKey(ctx context.Context, username string) (string, error) {
	u, err := s.ByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	return u.Key, nil
}

// UsernameAvailable reports whether a valid username is still unclaimed.
func (s *Store) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	if !ValidUsername(username) {
		return false, nil
	}
	_, err := s.ByUsername(ctx, username)
	switch {
	case errors.Is(err, ErrNotFound):
		return true, nil
	case err != nil:
		return false, err
	}
	return false, nil
}

// SetVerifier stores a fresh verifier on the user and returns it.
func (s *Store) SetVerifier(ctx context.Context, u *User) (string, error) {
	verifier := uuid.New().String()
	if err := s.exec(ctx, `UPDATE users SET verifier = ? WHERE id = ?`, verifier, u.Key); err != nil {
		return "", fmt.Errorf("setting verifier: %w", err)
	}
	u.Verifier = verifier
	return verifier, nil
}

// ConsumeVerifier clears the user's verifier and promotes an unverified
// user to verified.
func (s *Store) ConsumeVerifier(ctx context.Context, u *User) error {
	roles := u.Roles
	if !u.Verified() {
		roles = append(removeRole(roles, UnverifiedUser), VerifiedUser)
	}
	rolesJSON, err := json.Marshal(nonNil(roles))
	if err != nil {
		return fmt.Errorf("encoding roles: %w", err)
	}
	if err := s.exec(ctx, `UPDATE users SET verifier = NULL, roles = ? WHERE id = ?`, string(rolesJSON), u.Key); err != nil {
		return fmt.Errorf("consuming verifier: %w", err)
	}
	u.Verifier = ""
	u.Roles = roles
	return nil
}

// SetRoles replaces the user's roles.
func (s *Store) SetRoles(ctx context.Context, u *User, roles ...Role) error {
	rolesJSON, err := json.Marshal(nonNil(roles))
	if err != nil {
		return fmt.Errorf("encoding roles: %w", err)
	}
	if err := s.exec(ctx, `UPDATE users SET roles = ? WHERE id = ?`, string(rolesJSON), u.Key); err != nil {
		return fmt.Errorf("setting roles: %w", err)
	}
	u.Roles = roles
	return nil
}

// RecordAuth appends at to the user's auth history and, for logins that are
// not renewals, to the login history.
func (s *Store) RecordAuth(ctx context.Context, u *User, at int64, login bool) error {
	auths := append(append([]int64(nil), u.Auths...), at)
	logins := u.Logins
	if login {
		logins = append(append([]int64(nil), u.Logins...), at)
	}
	authsJSON, err := json.Marshal(auths)
	if err != nil {
		return fmt.Errorf("encoding auths: %w", err)
	}
	loginsJSON, err := json.Marshal(nonNil(logins))
	if err != nil {
		return fmt.Errorf("encoding logins: %w", err)
	}
	if err := s.exec(ctx, `UPDATE users SET auths = ?, logins = ? WHERE id = ?`, string(authsJSON), string(loginsJSON), u.Key); err != nil {
		return fmt.Errorf("recording auth: %w", err)
	}
	u.Auths = auths
	u.Logins = logins
	return nil
}

// SetSubscriber updates whether the user receives publication mails.
func (s *Store) SetSubscriber(ctx context.Context, u *User, on bool) error {
	if err := s.exec(ctx, `UPDATE users SET subscriber = ? WHERE id = ?`, on, u.Key); err != nil {
		return fmt.Errorf("setting subscriber: %w", err)
	}
	u.Subscriber = on
	return nil
}

// Subscribers returns every user subscribed to publication mails.
func (s *Store) Subscribers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE subscriber = 1 ORDER BY created`)
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) one(ctx context.Context, where string, args ...any) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *Store) exec(ctx context.Context, stmt string, args ...any) error {
	result, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var u User
	var roles, logins, auths string
	err := row.Scan(&u.Key, &u.Email, &u.EmailMD5, &u.Username, &u.Description, &u.Verifier,
		&roles, &u.Subscriber, &u.Created, &logins, &auths)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	for _, field := range []struct {
		src string
		dst any
	}{{roles, &u.Roles}, {logins, &u.Logins}, {auths, &u.Auths}} {
		if err := json.Unmarshal([]byte(field.src), field.dst); err != nil {
			return nil, fmt.Errorf("decoding user %s: %w", u.Key, err)
		}
	}
	return &u, nil
}

func removeRole(roles []Role, role Role) []Role {
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if r != role {
			out = append(out, r)
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
