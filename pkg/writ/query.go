package writ

import "strings"

// Query selects writs. The zero Query matches every writ, newest first,
// with editor-only fields omitted.
type Query struct {
	One         bool      `json:"one,omitempty"`
	Public      bool      `json:"public,omitempty"`
	MembersOnly bool      `json:"membersonly,omitempty"`
	EditorMode  bool      `json:"editormode,omitempty"`
	UpdateViews bool      `json:"updateviews,omitempty"`
	DontSort    bool      `json:"dontsort,omitempty"`
	Key         string    `json:"key,omitempty"`
	Title       string    `json:"title,omitempty"`
	Slug        string    `json:"slug,omitempty"`
	Author      string    `json:"author,omitempty"`
	Between     Timeframe `json:"between,omitempty"`
	Tags        []string  `json:"tags,omitempty"`

	// Limit is [count] or [offset, count].
	Limit []int64 `json:"limit,omitempty"`
}

const writColumns = `id, title, slug, author_id, author, markdown, content, injection,
	description, edits, created, views, public, members_only, no_comments`

// build returns the SELECT statement and its arguments.
func (q *Query) build() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT " + writColumns + " FROM writs WHERE 1=1")
	args := []any{}

	if q.Public {
		sb.WriteString(" AND public = 1")
	}
	if q.MembersOnly {
		sb.WriteString(" AND members_only = 1")
	}
	if q.Key != "" {
		sb.WriteString(" AND id = ?")
		args = append(args, q.Key)
	}
	if q.Slug != "" {
		sb.WriteString(" AND slug = ?")
		args = append(args, q.Slug)
	}
	if q.Title != "" {
		sb.WriteString(" AND title = ?")
		args = append(args, q.Title)
	}
	if q.Author != "" {
		sb.WriteString(" AND author = ?")
		args = append(args, q.Author)
	}
	if !q.Between.Start.IsZero() {
		sb.WriteString(" AND created > ?")
		args = append(args, q.Between.Start.Unix())
	}
	if !q.Between.End.IsZero() {
		sb.WriteString(" AND created < ?")
		args = append(args, q.Between.End.Unix())
	}
	if tags := uniqueTags(q.Tags); len(tags) > 0 {
		// every tag must be present
		sb.WriteString(" AND (SELECT COUNT(*) FROM writ_tags WHERE writ_id = writs.id AND tag IN (")
		for i, tag := range tags {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("?")
			args = append(args, tag)
		}
		sb.WriteString(")) = ?")
		args = append(args, len(tags))
	}

	if !q.DontSort {
		sb.WriteString(" ORDER BY created DESC, title ASC")
	}

	switch {
	case q.One:
		sb.WriteString(" LIMIT 1")
	case len(q.Limit) == 1:
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit[0])
	case len(q.Limit) >= 2:
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.Limit[1], q.Limit[0])
	}

	return sb.String(), args
}

// omit clears the fields only editors may see. Public and MembersOnly stay:
// readers filter and gate on them.
func (q *Query) omit(w *Writ) {
	if q.EditorMode {
		return
	}
	w.Key = ""
	w.AuthorKey = ""
	w.Markdown = ""
	w.Edits = nil
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
