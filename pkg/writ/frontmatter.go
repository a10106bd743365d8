package writ

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoTitle is returned by ParseFile when neither the front matter nor a
// leading heading names the writ.
var ErrNoTitle = errors.New("writ has no title")

var fence = []byte("---")

// frontMatter is the YAML header a markdown file may start with.
type frontMatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Author      string   `yaml:"author"`
	Tags        []string `yaml:"tags"`
	Public      bool     `yaml:"public"`
	MembersOnly bool     `yaml:"membersOnly"`
	NoComments  bool     `yaml:"noComments"`
	Injection   string   `yaml:"injection"`
}

// ParseFile reads a markdown document with optional front matter:
//
//	---
//	title: Hello World
//	tags: [status]
//	public: true
//	---
//	# Hello World
//
// Without a title in the front matter, a leading "# " heading is used and
// stripped from the body.
func ParseFile(data []byte) (*Writ, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	body := data

	var fm frontMatter
	if bytes.HasPrefix(data, fence) {
		rest := data[len(fence):]
		end := bytes.Index(rest, append([]byte("\n"), fence...))
		if end < 0 {
			return nil, fmt.Errorf("unterminated front matter")
		}
		if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
			return nil, fmt.Errorf("parsing front matter: %w", err)
		}
		body = rest[end+1+len(fence):]
	}

	markdown := strings.TrimLeft(string(body), "\r\n")
	if fm.Title == "" {
		line, rest, _ := strings.Cut(markdown, "\n")
		if !strings.HasPrefix(line, "# ") {
			return nil, ErrNoTitle
		}
		fm.Title = strings.TrimSpace(line[2:])
		markdown = strings.TrimLeft(rest, "\r\n")
	}

	return &Writ{
		Title:       fm.Title,
		Description: fm.Description,
		Author:      fm.Author,
		Tags:        fm.Tags,
		Public:      fm.Public,
		MembersOnly: fm.MembersOnly,
		NoComments:  fm.NoComments,
		Injection:   fm.Injection,
		Markdown:    strings.TrimRight(markdown, "\r\n") + "\n",
	}, nil
}
