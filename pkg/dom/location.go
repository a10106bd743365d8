package dom

import (
	"slices"
	"strings"
)

// HashChange is the Detail of a "hashchange" event.
type HashChange struct {
	OldHash string
	NewHash string
}

// Location holds the document's URL fragment and its history.
//
// Like a browser, Hash reports "" both for a missing fragment and for a
// bare "#".
type Location struct {
	doc     *Document
	hash    string
	history []string
	index   int
}

func normalizeHash(h string) string {
	h = strings.TrimSpace(h)
	if h == "" || h == "#" {
		return ""
	}
	if h[0] != '#' {
		h = "#" + h
	}
	return h
}

// Hash returns the current fragment including its leading "#", or "".
func (l *Location) Hash() string { return l.hash }

// SetHash navigates to a new fragment, pushing a history entry. A
// "hashchange" event is dispatched asynchronously when the fragment
// actually changes.
func (l *Location) SetHash(h string) {
	h = normalizeHash(h)
	if h == l.hash {
		return
	}
	l.history = append(l.history[:l.index+1], h)
	l.index++
	l.set(h)
}

// Replace changes the fragment without adding a history entry.
func (l *Location) Replace(h string) {
	h = normalizeHash(h)
	if h == l.hash {
		return
	}
	l.history[l.index] = h
	l.set(h)
}

// Back moves one entry back in history. It reports whether it moved.
func (l *Location) Back() bool {
	if l.index == 0 {
		return false
	}
	l.index--
	l.set(l.history[l.index])
	return true
}

// Forward moves one entry forward in history. It reports whether it moved.
func (l *Location) Forward() bool {
	if l.index >= len(l.history)-1 {
		return false
	}
	l.index++
	l.set(l.history[l.index])
	return true
}

// History returns the history entries and the current index.
func (l *Location) History() ([]string, int) {
	return slices.Clone(l.history), l.index
}

func (l *Location) set(h string) {
	old := l.hash
	if old == h {
		return
	}
	l.hash = h
	l.doc.RunAsync(func() {
		l.doc.Dispatch(&Event{Type: "hashchange", Detail: HashChange{OldHash: old, NewHash: h}})
	})
}
