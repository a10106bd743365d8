package writ

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sauldoescode/saul.app/internal/db"
	"github.com/sauldoescode/saul.app/pkg/emitter"
)

// Authors resolves a username to the key of a registered user.
type Authors interface {
	UserKey(ctx context.Context, username string) (string, error)
}

// Store manages persistence of writs.
type Store struct {
	db      *db.DB
	authors Authors
	events  *emitter.Emitter[*Writ]
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithEmitter sets the emitter that receives EventPublished.
func WithEmitter(e *emitter.Emitter[*Writ]) Option {
	return func(s *Store) { s.events = e }
}

// WithClock overrides the store's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a new writ store.
func NewStore(database *db.DB, authors Authors, opts ...Option) *Store {
	s := &Store{
		db:      database,
		authors: authors,
		logger:  slog.Default().With("component", "writ"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = emitter.New[*Writ](nil)
	}
	return s
}

// Events returns the emitter EventPublished is sent on.
func (s *Store) Events() *emitter.Emitter[*Writ] { return s.events }

// Save creates a writ, or updates the one with the same key or title.
//
// New writs need a title, markdown and an author who is a registered user.
// Updates append an edit timestamp and re-render the content. The slug is
// derived from the title unless one is given for a new writ. A writ that
// goes from private to public is published.
func (s *Store) Save(ctx context.Context, w *Writ) error {
	w.Tags = uniqueTags(w.Tags)
	if len(w.Tags) == 0 {
		return ErrMissingTags
	}
	if w.Key == "" && w.Title == "" {
		return ErrIncompleteWrit
	}

	current, err := s.QueryOne(ctx, Query{EditorMode: true, Key: w.Key, Title: titleIfNoKey(w)})
	switch {
	case errors.Is(err, ErrNotFound):
		if w.Key != "" {
			return ErrIncompleteWrit
		}
		return s.create(ctx, w)
	case err != nil:
		return err
	}
	return s.update(ctx, current, w)
}

func titleIfNoKey(w *Writ) string {
	if w.Key != "" {
		return ""
	}
	return w.Title
}

func (s *Store) create(ctx context.Context, w *Writ) error {
	if w.Title == "" || w.Markdown == "" || w.Author == "" {
		return ErrIncompleteWrit
	}

	authorKey, err := s.authors.UserKey(ctx, w.Author)
	if err != nil {
		s.logger.Debug("writ author lookup failed", "author", w.Author, "error", err)
		return ErrAuthorIsNoUser
	}
	w.AuthorKey = authorKey

	if err := w.RenderContent(); err != nil {
		return err
	}
	if w.Slug == "" {
		w.Slugify()
	}
	w.Key = uuid.New().String()
	w.Created = s.now().Unix()
	w.Edits = nil

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO writs (`+writColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.Key, w.Title, w.Slug, w.AuthorKey, w.Author, w.Markdown, w.Content, w.Injection,
		w.Description, "[]", w.Created, w.Views, w.Public, w.MembersOnly, w.NoComments,
	)
	if err != nil {
		return fmt.Errorf("inserting writ: %w", err)
	}
	if err := writeTags(ctx, tx, w.Key, w.Tags); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing writ: %w", err)
	}

	s.logger.Info("writ created", "title", w.Title, "slug", w.Slug, "public", w.Public)
	if w.Public {
		s.events.Emit(EventPublished, w)
	}
	return nil
}

// update merges the non-empty fields of w into current and stores the
// result back into w.
func (s *Store) update(ctx context.Context, current, w *Writ) error {
	next := *current
	if w.Title != "" && w.Title != current.Title {
		next.Title = w.Title
		next.Slugify()
	}
	if w.Markdown != "" && w.Markdown != current.Markdown {
		next.Markdown = w.Markdown
		if err := next.RenderContent(); err != nil {
			return err
		}
	}
	if w.Description != "" {
		next.Description = w.Description
	}
	if w.Injection != "" {
		next.Injection = w.Injection
	}
	next.Tags = w.Tags
	next.Public = w.Public
	next.MembersOnly = w.MembersOnly
	next.NoComments = w.NoComments
	next.Edits = append(append([]int64(nil), current.Edits...), s.now().Unix())

	edits, err := json.Marshal(next.Edits)
	if err != nil {
		return fmt.Errorf("encoding edits: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE writs SET title = ?, slug = ?, markdown = ?, content = ?, injection = ?,
		 description = ?, edits = ?, public = ?, members_only = ?, no_comments = ?
		 WHERE id = ?`,
		next.Title, next.Slug, next.Markdown, next.Content, next.Injection,
		next.Description, string(edits), next.Public, next.MembersOnly, next.NoComments,
		next.Key,
	)
	if err != nil {
		return fmt.Errorf("updating writ: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM writ_tags WHERE writ_id = ?`, next.Key); err != nil {
		return fmt.Errorf("clearing tags: %w", err)
	}
	if err := writeTags(ctx, tx, next.Key, next.Tags); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing writ: %w", err)
	}

	*w = next
	s.logger.Info("writ updated", "title", w.Title, "edits", len(w.Edits))
	if !current.Public && w.Public {
		s.events.Emit(EventPublished, w)
	}
	return nil
}

func writeTags(ctx context.Context, tx *sql.Tx, key string, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `INSERT INTO writ_tags (writ_id, tag) VALUES (?, ?)`, key, tag); err != nil {
			return fmt.Errorf("inserting tag %q: %w", tag, err)
		}
	}
	return nil
}

// Query returns the writs matching q.
func (s *Store) Query(ctx context.Context, q Query) ([]*Writ, error) {
	stmt, args := q.build()
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying writs: %w", err)
	}
	defer rows.Close()

	var writs []*Writ
	for rows.Next() {
		w, err := scanWrit(rows)
		if err != nil {
			return nil, err
		}
		writs = append(writs, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading writs: %w", err)
	}
	rows.Close()

	for _, w := range writs {
		if w.Tags, err = s.tags(ctx, w.Key); err != nil {
			return nil, err
		}
	}
	if q.UpdateViews {
		for _, w := range writs {
			if err := s.IncrementViews(ctx, w.Key); err != nil {
				return nil, err
			}
			w.Views++
		}
	}
	for _, w := range writs {
		q.omit(w)
	}
	return writs, nil
}

// QueryOne returns the first writ matching q, or ErrNotFound.
func (s *Store) QueryOne(ctx context.Context, q Query) (*Writ, error) {
	q.One = true
	writs, err := s.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(writs) == 0 {
		return nil, ErrNotFound
	}
	return writs[0], nil
}

// BySlug returns the writ with the given slug, editor fields included.
func (s *Store) BySlug(ctx context.Context, slug string) (*Writ, error) {
	return s.QueryOne(ctx, Query{EditorMode: true, Slug: slug})
}

// ByTitle returns the writ with the given title, editor fields included.
func (s *Store) ByTitle(ctx context.Context, title string) (*Writ, error) {
	return s.QueryOne(ctx, Query{EditorMode: true, Title: title})
}

// IncrementViews adds one to a writ's view count.
func (s *Store) IncrementViews(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE writs SET views = views + 1 WHERE id = ?`, key)
	if err != nil {
		return fmt.Errorf("incrementing views: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViewsBySlug adds one to the view count of the writ with the given
// slug. Reader queries strip keys, so page handlers count by slug.
func (s *Store) IncrementViewsBySlug(ctx context.Context, slug string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE writs SET views = views + 1 WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("incrementing views: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of writs, or of public writs only.
func (s *Store) Count(ctx context.Context, publicOnly bool) (int, error) {
	stmt := `SELECT COUNT(*) FROM writs`
	if publicOnly {
		stmt += ` WHERE public = 1`
	}
	var n int
	if err := s.db.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting writs: %w", err)
	}
	return n, nil
}

func (s *Store) tags(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tag FROM writ_tags WHERE writ_id = ? ORDER BY tag`, key)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWrit(row scanner) (*Writ, error) {
	var w Writ
	var edits string
	err := row.Scan(&w.Key, &w.Title, &w.Slug, &w.AuthorKey, &w.Author, &w.Markdown, &w.Content, &w.Injection,
		&w.Description, &edits, &w.Created, &w.Views, &w.Public, &w.MembersOnly, &w.NoComments)
	if err != nil {
		return nil, fmt.Errorf("scanning writ: %w", err)
	}
	if err := json.Unmarshal([]byte(edits), &w.Edits); err != nil {
		return nil, fmt.Errorf("decoding edits of %s: %w", w.Key, err)
	}
	if len(w.Edits) == 0 {
		w.Edits = nil
	}
	return &w, nil
}
