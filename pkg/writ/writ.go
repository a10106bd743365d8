// Package writ stores and renders the blog's posts ("writs").
//
// A writ is written in markdown, rendered to HTML when saved and addressed
// by a slug derived from its title. Private writs are visible to editors
// only; publishing one emits EventPublished on the store's emitter.
package writ

import (
	"errors"
	"time"
)

var (
	// ErrIncompleteWrit is returned when a new writ lacks a title, markdown
	// or author.
	ErrIncompleteWrit = errors.New("writ is incomplete: title, markdown and author are required")
	// ErrMissingTags is returned when a writ is saved without tags.
	ErrMissingTags = errors.New("writ doesn't have any tags, add some")
	// ErrAuthorIsNoUser is returned when the author is not a registered user.
	ErrAuthorIsNoUser = errors.New("writ author is not a registered user")
	// ErrNotFound is returned when no writ matches a lookup.
	ErrNotFound = errors.New("writ not found")
)

// EventPublished is emitted with the writ when a private writ becomes public.
const EventPublished = "published"

// Writ is a post or document.
type Writ struct {
	Key         string   `json:"key,omitempty"`
	Title       string   `json:"title,omitempty"`
	AuthorKey   string   `json:"authorkey,omitempty"`
	Author      string   `json:"author,omitempty"`
	Content     string   `json:"content,omitempty"`
	Injection   string   `json:"injection,omitempty"`
	Markdown    string   `json:"markdown,omitempty"`
	Description string   `json:"description,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Edits       []int64  `json:"edits,omitempty"`
	Created     int64    `json:"created,omitempty"`
	Views       int64    `json:"views,omitempty"`
	Public      bool     `json:"public,omitempty"`
	MembersOnly bool     `json:"membersonly,omitempty"`
	NoComments  bool     `json:"nocomments,omitempty"`
}

// CreatedAt returns the creation time.
func (w *Writ) CreatedAt() time.Time { return time.Unix(w.Created, 0) }

// ModifiedAt returns the time of the last edit, and false if the writ was
// never edited.
func (w *Writ) ModifiedAt() (time.Time, bool) {
	if len(w.Edits) == 0 {
		return time.Time{}, false
	}
	return time.Unix(w.Edits[len(w.Edits)-1], 0), true
}

// Route returns the hash route a live session shows the writ under.
func (w *Writ) Route() string { return "#writ-" + w.Slug }

// Slugify sets Slug from Title.
func (w *Writ) Slugify() { w.Slug = Slugify(w.Title) }

// RenderContent sets Content from Markdown.
func (w *Writ) RenderContent() error {
	html, err := RenderMarkdown(w.Markdown)
	if err != nil {
		return err
	}
	w.Content = html
	return nil
}

// Timeframe bounds a query by creation time. A zero Start or End leaves
// that side open.
type Timeframe struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// IsZero reports whether neither side is set.
func (t Timeframe) IsZero() bool { return t.Start.IsZero() && t.End.IsZero() }
